package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/wfunc/casino-builder/internal/errors"
	"github.com/wfunc/casino-builder/internal/repository"
)

type serviceFixture struct {
	service   *GameService
	repos     *repository.Manager
	scheduler *manualScheduler
	hooked    []string
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	db := repository.SetupTestDB(t)
	f := &serviceFixture{
		repos:     repository.NewManager(db),
		scheduler: &manualScheduler{},
	}

	svc, err := NewGameService(ServiceConfig{
		Slots:      testSlotsConfig(),
		Casinos:    f.repos.Casino(),
		Records:    f.repos.SpinRecord(),
		Settlement: &fixedSettlement{multiplier: 1.5},
		Persister:  NewRepositoryStatePersister(f.repos.SessionState()),
		Scheduler:  f.scheduler,
		Hooks: []SessionHook{func(s *SlotSession) {
			f.hooked = append(f.hooked, s.ID())
		}},
	})
	require.NoError(t, err)
	t.Cleanup(svc.Shutdown)
	f.service = svc
	return f
}

func TestNewGameService_RequiresSettlement(t *testing.T) {
	_, err := NewGameService(ServiceConfig{Slots: testSlotsConfig()})
	assert.True(t, apperrors.Is(err, apperrors.ErrSettlementUnavailable))
}

func TestGameService_SessionLifecycle(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	casino := repository.CreateTestCasino("neon")
	require.NoError(t, f.repos.Casino().Create(ctx, casino))

	created, err := f.service.CreateSession(ctx, casino.ID)
	require.NoError(t, err)
	sid := created.SessionID
	assert.Equal(t, []string{sid}, f.hooked)

	// 赌场配置覆盖默认规则
	rules := created.Session.Rules
	assert.Equal(t, 5, rules.ReelCount)
	assert.Equal(t, casino.Slots.AllowedStrategies, rules.AllowedStrategies)
	assert.Equal(t, 50.0, rules.MaxBet)

	result, err := f.service.Spin(ctx, sid, 2)
	require.NoError(t, err)
	assert.Len(t, result.Positions, 5)
	assert.Equal(t, 1.5, result.Multiplier)
	assert.Contains(t, casino.Slots.AllowedStrategies, result.Strategy)

	require.NoError(t, f.service.Skip(ctx, sid))
	info, err := f.service.GetSession(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, info.State)
	assert.Equal(t, 1, info.Spins)

	records, page, err := f.service.History(ctx, sid, 1, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, result.TrialID, records[0].TrialID)
	assert.Equal(t, casino.ID, records[0].CasinoID)

	assert.Equal(t, 1, f.service.Stats().ActiveSessions)
	require.NoError(t, f.service.EndSession(ctx, sid))
	_, err = f.service.GetSession(ctx, sid)
	assert.True(t, apperrors.Is(err, apperrors.ErrSessionNotFound))

	// 记录在会话结束后仍可查询
	records, _, err = f.service.History(ctx, sid, 1, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestGameService_UnknownCasino(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.service.CreateSession(context.Background(), "missing")
	assert.True(t, apperrors.Is(err, apperrors.ErrCasinoNotFound))
	assert.Zero(t, f.service.Stats().ActiveSessions)
}

func TestGameService_DefaultRulesWithoutCasinos(t *testing.T) {
	svc, err := NewGameService(ServiceConfig{
		Slots:      testSlotsConfig(),
		Settlement: &fixedSettlement{},
		Scheduler:  &manualScheduler{},
	})
	require.NoError(t, err)
	defer svc.Shutdown()

	ctx := context.Background()
	created, err := svc.CreateSession(ctx, "anything")
	require.NoError(t, err)
	assert.Equal(t, testRules(), created.Session.Rules)

	records, page, err := svc.History(ctx, created.SessionID, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 1, page.Page)
}

func TestGameService_ResumeAfterRestart(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	casino := repository.CreateTestCasino("retro")
	require.NoError(t, f.repos.Casino().Create(ctx, casino))
	created, err := f.service.CreateSession(ctx, casino.ID)
	require.NoError(t, err)
	_, err = f.service.Spin(ctx, created.SessionID, 1)
	require.NoError(t, err)

	// 新的服务实例共享同一个数据库
	restarted, err := NewGameService(ServiceConfig{
		Slots:      testSlotsConfig(),
		Casinos:    f.repos.Casino(),
		Records:    f.repos.SpinRecord(),
		Settlement: &fixedSettlement{multiplier: 1},
		Persister:  NewRepositoryStatePersister(f.repos.SessionState()),
		Scheduler:  &manualScheduler{},
	})
	require.NoError(t, err)
	defer restarted.Shutdown()

	info, err := restarted.GetSession(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, info.State)
	assert.Equal(t, 1, info.Spins)
	assert.Equal(t, casino.ID, info.CasinoID)
	assert.Equal(t, 5, info.Rules.ReelCount)
}
