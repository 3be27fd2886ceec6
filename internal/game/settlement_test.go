package game

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/casino-builder/internal/config"
	apperrors "github.com/wfunc/casino-builder/internal/errors"
)

func stake(v float64) SettleRequest {
	return SettleRequest{CasinoID: "c1", SessionID: "s1", Stake: decimal.NewFromFloat(v)}
}

func TestNewSettlement(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.SettlementConfig
		code     apperrors.ErrorCode
		isDemo   bool
		isRemote bool
	}{
		{name: "默认演示", cfg: config.SettlementConfig{}, isDemo: true},
		{name: "演示", cfg: config.SettlementConfig{Mode: "demo", DemoSeed: 7}, isDemo: true},
		{name: "远端", cfg: config.SettlementConfig{Mode: "remote", BaseURL: "http://backend"}, isRemote: true},
		{name: "远端缺地址", cfg: config.SettlementConfig{Mode: "remote"}, code: apperrors.ErrConfigMissing},
		{name: "未知模式", cfg: config.SettlementConfig{Mode: "chain"}, code: apperrors.ErrConfigValidate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSettlement(tt.cfg, nil)
			if tt.code != 0 {
				assert.True(t, apperrors.Is(err, tt.code))
				return
			}
			require.NoError(t, err)
			_, demo := s.(*DemoSettlement)
			_, remote := s.(*RemoteSettlement)
			assert.Equal(t, tt.isDemo, demo)
			assert.Equal(t, tt.isRemote, remote)
		})
	}
}

func TestDemoSettlement_Deterministic(t *testing.T) {
	a := NewDemoSettlement(42)
	b := NewDemoSettlement(42)
	ctx := context.Background()

	allowed := map[float64]bool{}
	for _, o := range defaultDemoOutcomes {
		allowed[o.multiplier] = true
	}

	for i := 0; i < 50; i++ {
		ra, err := a.Settle(ctx, stake(2))
		require.NoError(t, err)
		rb, err := b.Settle(ctx, stake(2))
		require.NoError(t, err)

		assert.Equal(t, ra.Multiplier, rb.Multiplier)
		assert.True(t, allowed[ra.Multiplier], "倍数不在分布内: %v", ra.Multiplier)
		assert.NotEmpty(t, ra.TrialID)
		assert.NotEqual(t, ra.TrialID, rb.TrialID)
		assert.True(t, ra.Payout.Equal(ra.Stake.Mul(decimal.NewFromFloat(ra.Multiplier)).Round(2)))
	}
}

func TestDemoSettlement_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDemoSettlement(1).Settle(ctx, stake(1))
	assert.True(t, apperrors.Is(err, apperrors.ErrCanceled))
}

func TestFinalize(t *testing.T) {
	tests := []struct {
		name string
		res  SettleResult
		want float64
		err  bool
	}{
		{"正常", SettleResult{TrialID: "t", Stake: decimal.NewFromInt(4), Payout: decimal.NewFromInt(10)}, 2.5, false},
		{"零派彩", SettleResult{TrialID: "t", Stake: decimal.NewFromInt(4), Payout: decimal.Zero}, 0, false},
		{"缺编号", SettleResult{Stake: decimal.NewFromInt(1), Payout: decimal.Zero}, 0, true},
		{"零投注", SettleResult{TrialID: "t", Stake: decimal.Zero, Payout: decimal.Zero}, 0, true},
		{"负派彩", SettleResult{TrialID: "t", Stake: decimal.NewFromInt(1), Payout: decimal.NewFromInt(-1)}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.res
			out, err := finalize(&res)
			if tt.err {
				assert.True(t, apperrors.Is(err, apperrors.ErrInvalidSettlement))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, out.Multiplier, 1e-9)
		})
	}
}

func TestRemoteSettlement_Success(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, settlePath, r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"trialId":"abc-123","stake":"2.00","payout":"7.50"}`))
	}))
	defer srv.Close()

	s := NewRemoteSettlement(srv.URL+"/", "secret", time.Second, nil)
	res, err := s.Settle(context.Background(), stake(2))
	require.NoError(t, err)

	assert.Equal(t, "abc-123", res.TrialID)
	assert.InDelta(t, 3.75, res.Multiplier, 1e-9)
	assert.Equal(t, "c1", got["casinoId"])
	assert.Equal(t, "2", got["stake"])
}

func TestRemoteSettlement_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		code    apperrors.ErrorCode
	}{
		{"服务端错误", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, apperrors.ErrSettlementUnavailable},
		{"拒绝", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = w.Write([]byte(`{"error":"insufficient balance"}`))
		}, apperrors.ErrSettlementRejected},
		{"响应格式错误", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}, apperrors.ErrInvalidSettlement},
		{"金额无效", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"trialId":"x","stake":"0","payout":"1"}`))
		}, apperrors.ErrInvalidSettlement},
		{"超时", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}, apperrors.ErrSettlementTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			s := NewRemoteSettlement(srv.URL, "", 50*time.Millisecond, nil)
			_, err := s.Settle(context.Background(), stake(1))
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.GetCode(err), err.Error())
		})
	}
}

func TestRemoteSettlement_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewRemoteSettlement(url, "", time.Second, nil).Settle(context.Background(), stake(1))
	assert.Equal(t, apperrors.ErrSettlementUnavailable, apperrors.GetCode(err))
}

func TestObserveSettlement(t *testing.T) {
	var seen []error
	inner := &fixedSettlement{multiplier: 1}
	s := ObserveSettlement(inner, func(err error) { seen = append(seen, err) })

	_, err := s.Settle(context.Background(), stake(1))
	require.NoError(t, err)
	assert.Empty(t, seen)

	inner.err = apperrors.New(apperrors.ErrSettlementTimeout)
	_, err = s.Settle(context.Background(), stake(1))
	require.Error(t, err)
	require.Len(t, seen, 1)
	assert.Same(t, inner.err, seen[0])

	assert.Same(t, inner, ObserveSettlement(inner, nil))
}
