package game

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wfunc/casino-builder/internal/config"
	apperrors "github.com/wfunc/casino-builder/internal/errors"
	"go.uber.org/zap"
)

// SettleRequest 结算请求
type SettleRequest struct {
	CasinoID  string          `json:"casinoId"`
	SessionID string          `json:"sessionId"`
	Stake     decimal.Decimal `json:"stake"`
}

// SettleResult 结算结果，倍数 = 派彩 / 投注
type SettleResult struct {
	TrialID    string          `json:"trialId"`
	Stake      decimal.Decimal `json:"stake"`
	Payout     decimal.Decimal `json:"payout"`
	Multiplier float64         `json:"-"`
}

// Settlement 结算服务，给出权威的派彩倍数和用作确定性种子的结算编号
type Settlement interface {
	Settle(ctx context.Context, req SettleRequest) (*SettleResult, error)
}

// NewSettlement 按配置创建结算服务
func NewSettlement(cfg config.SettlementConfig, logger *zap.Logger) (Settlement, error) {
	switch cfg.Mode {
	case "", "demo":
		return NewDemoSettlement(cfg.DemoSeed), nil
	case "remote":
		if cfg.BaseURL == "" {
			return nil, apperrors.New(apperrors.ErrConfigMissing, "game.settlement.base_url")
		}
		return NewRemoteSettlement(cfg.BaseURL, cfg.APIKey, cfg.Timeout, logger), nil
	default:
		return nil, apperrors.Newf(apperrors.ErrConfigValidate, "未知的结算模式: %s", cfg.Mode)
	}
}

// observedSettlement 结算失败时回调
type observedSettlement struct {
	Settlement
	onError func(err error)
}

// ObserveSettlement 包装结算服务，失败时调用onError
func ObserveSettlement(s Settlement, onError func(err error)) Settlement {
	if onError == nil {
		return s
	}
	return &observedSettlement{Settlement: s, onError: onError}
}

// Settle 转发并观察错误
func (o *observedSettlement) Settle(ctx context.Context, req SettleRequest) (*SettleResult, error) {
	res, err := o.Settlement.Settle(ctx, req)
	if err != nil {
		o.onError(err)
	}
	return res, err
}

// finalize 校验金额并计算倍数
func finalize(res *SettleResult) (*SettleResult, error) {
	if res.TrialID == "" {
		return nil, apperrors.New(apperrors.ErrInvalidSettlement, "缺少trialId")
	}
	if !res.Stake.IsPositive() {
		return nil, apperrors.Newf(apperrors.ErrInvalidSettlement, "投注金额无效: %s", res.Stake)
	}
	if res.Payout.IsNegative() {
		return nil, apperrors.Newf(apperrors.ErrInvalidSettlement, "派彩金额无效: %s", res.Payout)
	}
	res.Multiplier = res.Payout.Div(res.Stake).InexactFloat64()
	return res, nil
}

// demoOutcome 演示模式的倍数分布
type demoOutcome struct {
	multiplier float64
	weight     float64
}

var defaultDemoOutcomes = []demoOutcome{
	{0, 55},
	{0.5, 15},
	{1, 10},
	{2, 8},
	{4, 5},
	{8, 3},
	{15, 2},
	{40, 1.5},
	{100, 0.5},
}

// DemoSettlement 本地演示结算，按权重抽取倍数
type DemoSettlement struct {
	mu       sync.Mutex
	rng      *rand.Rand
	outcomes []demoOutcome
	total    float64
}

// NewDemoSettlement 创建演示结算，seed为0时按时间播种
func NewDemoSettlement(seed uint64) *DemoSettlement {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	d := &DemoSettlement{
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		outcomes: defaultDemoOutcomes,
	}
	for _, o := range d.outcomes {
		d.total += o.weight
	}
	return d
}

// Settle 抽取倍数，派彩保留两位小数
func (d *DemoSettlement) Settle(ctx context.Context, req SettleRequest) (*SettleResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCanceled)
	}

	d.mu.Lock()
	roll := d.rng.Float64() * d.total
	d.mu.Unlock()

	multiplier := d.outcomes[len(d.outcomes)-1].multiplier
	for _, o := range d.outcomes {
		if roll < o.weight {
			multiplier = o.multiplier
			break
		}
		roll -= o.weight
	}

	return finalize(&SettleResult{
		TrialID: uuid.NewString(),
		Stake:   req.Stake,
		Payout:  req.Stake.Mul(decimal.NewFromFloat(multiplier)).Round(2),
	})
}

// settlePath 远端结算接口路径
const settlePath = "/api/games/slots/settle"

// RemoteSettlement 通过REST调用后端结算
type RemoteSettlement struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewRemoteSettlement 创建远端结算客户端
func NewRemoteSettlement(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *RemoteSettlement {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteSettlement{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Settle 发送结算请求
func (r *RemoteSettlement) Settle(ctx context.Context, req SettleRequest) (*SettleResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrSettlementFailed, "序列化请求失败")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+settlePath, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrSettlementFailed, "创建请求失败")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	start := time.Now()
	resp, err := r.client.Do(httpReq)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, apperrors.Wrap(err, apperrors.ErrSettlementTimeout)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrSettlementUnavailable)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrSettlementFailed, "读取响应失败")
	}

	r.logger.Debug("结算响应",
		zap.String("session_id", req.SessionID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	switch {
	case resp.StatusCode >= 500:
		return nil, apperrors.Newf(apperrors.ErrSettlementUnavailable, "status=%d body=%s", resp.StatusCode, truncate(data))
	case resp.StatusCode >= 400:
		return nil, apperrors.Newf(apperrors.ErrSettlementRejected, "status=%d body=%s", resp.StatusCode, truncate(data))
	}

	var res SettleResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInvalidSettlement, "解析响应失败")
	}
	return finalize(&res)
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return stderrors.As(err, &te) && te.Timeout()
}

func truncate(b []byte) string {
	const limit = 256
	if len(b) > limit {
		return fmt.Sprintf("%s...", b[:limit])
	}
	return string(b)
}
