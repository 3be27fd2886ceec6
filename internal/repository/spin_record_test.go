package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/wfunc/casino-builder/internal/errors"
	"github.com/wfunc/casino-builder/internal/models"
)

func TestSpinRecordRepository(t *testing.T) {
	repo := NewSpinRecordRepository(SetupTestDB(t))
	ctx := context.Background()

	strategies := []string{"basicStandard", "tease", "basicStandard", "jackpot"}
	for i, s := range strategies {
		require.NoError(t, repo.Create(ctx, &models.SpinRecord{
			SessionID:  "s1",
			CasinoID:   "c1",
			TrialID:    "t",
			Bet:        2,
			Multiplier: float64(i),
			Payout:     float64(i) * 2,
			Strategy:   s,
			Positions:  []int{i, i, i},
			Details:    models.JSONMap{"index": i},
		}))
	}
	require.NoError(t, repo.Create(ctx, &models.SpinRecord{SessionID: "s2", CasinoID: "c2", Strategy: "tease"}))

	p := NewPagination(1, 3)
	records, err := repo.FindBySessionID(ctx, "s1", p)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, int64(4), p.Total)
	assert.Equal(t, "jackpot", records[0].Strategy, "最新的在前")
	assert.Equal(t, []int{3, 3, 3}, records[0].Positions)
	assert.Equal(t, float64(3), records[0].Details["index"])

	counts, err := repo.CountByStrategy(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"basicStandard": 2, "tease": 1, "jackpot": 1}, counts)
}

func TestSessionStateRepository(t *testing.T) {
	repo := NewSessionStateRepository(SetupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &models.SessionState{SessionID: "s1", CasinoID: "c1", CurrentState: "idle"}))
	require.NoError(t, repo.Save(ctx, &models.SessionState{SessionID: "s1", CasinoID: "c1", CurrentState: "spinning", StateData: "{}"}))

	state, err := repo.FindBySessionID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "spinning", state.CurrentState)
	assert.Equal(t, "{}", state.StateData)

	require.NoError(t, repo.Delete(ctx, "s1"))
	_, err = repo.FindBySessionID(ctx, "s1")
	assert.True(t, apperrors.Is(err, apperrors.ErrSessionNotFound))
}

func TestManager(t *testing.T) {
	m := NewManager(SetupTestDB(t), WithCasinoCache(4, 0))
	assert.Same(t, m.Casino(), m.Casino())
	_, cached := m.Casino().(*cachedCasinoRepo)
	assert.False(t, cached, "TTL为0时不启用缓存")

	m2 := NewManager(m.DB(), WithCasinoCache(4, 1))
	_, cached = m2.Casino().(*cachedCasinoRepo)
	assert.True(t, cached)
	assert.NotNil(t, m2.SpinRecord())
	assert.NotNil(t, m2.SessionState())
}
