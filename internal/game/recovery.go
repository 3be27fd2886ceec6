package game

import (
	"context"
	"time"

	apperrors "github.com/wfunc/casino-builder/internal/errors"
	"go.uber.org/zap"
)

// RecoveryManager 会话恢复管理器
type RecoveryManager struct {
	logger    *zap.Logger
	persister StatePersister
	timeout   time.Duration // 会话超时时间
}

// NewRecoveryManager 创建恢复管理器
func NewRecoveryManager(logger *zap.Logger, persister StatePersister, timeout time.Duration) *RecoveryManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecoveryManager{
		logger:    logger,
		persister: persister,
		timeout:   timeout,
	}
}

// RecoverSession 从持久化状态恢复会话状态机，中断的转动被收敛到待机
func (rm *RecoveryManager) RecoverSession(ctx context.Context, sessionID string) (*StateMachine, error) {
	stateData, err := rm.persister.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// 检查会话是否超时
	if rm.timeout > 0 && time.Since(stateData.LastUpdate) > rm.timeout {
		rm.logger.Warn("会话已超时",
			zap.String("session_id", sessionID),
			zap.Time("last_update", stateData.LastUpdate),
			zap.Duration("timeout", rm.timeout))

		if err := rm.persister.Delete(ctx, sessionID); err != nil {
			rm.logger.Error("删除超时会话失败", zap.Error(err))
		}
		return nil, apperrors.New(apperrors.ErrSessionNotFound, "会话已超时")
	}

	sm := NewStateMachine(sessionID, stateData.CasinoID, rm.logger, rm.persister)
	sm.LoadFromData(stateData)

	if err := rm.getRecoveryStrategy(stateData.CurrentState)(ctx, sm); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrSessionState, "执行恢复策略失败")
	}

	rm.logger.Info("会话恢复成功",
		zap.String("session_id", sessionID),
		zap.String("from_state", string(stateData.CurrentState)),
		zap.String("state", string(sm.GetState())))

	return sm, nil
}

// getRecoveryStrategy 根据状态获取恢复策略
func (rm *RecoveryManager) getRecoveryStrategy(state SessionState) func(context.Context, *StateMachine) error {
	strategies := map[SessionState]func(context.Context, *StateMachine) error{
		StateIdle:       rm.recoverIdle,
		StateSpinning:   rm.recoverSpinning,
		StatePresenting: rm.recoverPresenting,
		StateError:      rm.recoverError,
	}

	if strategy, exists := strategies[state]; exists {
		return strategy
	}
	return rm.recoverToIdle
}

// recoverIdle 待机状态无需处理
func (rm *RecoveryManager) recoverIdle(ctx context.Context, sm *StateMachine) error {
	return nil
}

// recoverSpinning 结算未返回，按出错处理后恢复
func (rm *RecoveryManager) recoverSpinning(ctx context.Context, sm *StateMachine) error {
	rm.logger.Warn("转动在结算前中断",
		zap.String("session_id", sm.sessionID))

	sm.SetError("结算前中断")
	if err := sm.Trigger(ctx, EventError); err != nil {
		return err
	}
	return sm.Trigger(ctx, EventRecover)
}

// recoverPresenting 结算已完成，动画直接视为结束
func (rm *RecoveryManager) recoverPresenting(ctx context.Context, sm *StateMachine) error {
	rm.logger.Info("从展示状态恢复，跳过动画",
		zap.String("session_id", sm.sessionID))
	return sm.Trigger(ctx, EventComplete)
}

// recoverError 恢复错误状态
func (rm *RecoveryManager) recoverError(ctx context.Context, sm *StateMachine) error {
	rm.logger.Warn("从错误状态恢复",
		zap.String("session_id", sm.sessionID),
		zap.String("error", sm.Data().ErrorMsg))
	return sm.Trigger(ctx, EventRecover)
}

// recoverToIdle 未知状态直接重置
func (rm *RecoveryManager) recoverToIdle(ctx context.Context, sm *StateMachine) error {
	rm.logger.Warn("未知状态，重置到待机",
		zap.String("session_id", sm.sessionID),
		zap.String("from_state", string(sm.GetState())))

	sm.Reset()
	return nil
}
