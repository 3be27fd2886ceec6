package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/wfunc/casino-builder/internal/errors"
	"go.uber.org/zap"
)

// SessionBuilder 根据状态机构建会话，创建和恢复共用
type SessionBuilder func(ctx context.Context, sessionID, casinoID string, sm *StateMachine) (*SlotSession, error)

// ManagerConfig 会话管理器配置
type ManagerConfig struct {
	Logger         *zap.Logger
	MaxSessions    int
	SessionTimeout time.Duration
	Builder        SessionBuilder
	Persister      StatePersister   // 可选
	Recovery       *RecoveryManager // 可选，为空时不从持久化恢复
	OnClose        func(sessionID string)
}

// SessionManager 会话管理器
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*SlotSession

	logger         *zap.Logger
	builder        SessionBuilder
	persister      StatePersister
	recovery       *RecoveryManager
	onClose        func(sessionID string)
	sessionTimeout time.Duration
	maxSessions    int
}

// NewSessionManager 创建会话管理器
func NewSessionManager(cfg ManagerConfig) *SessionManager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &SessionManager{
		sessions:       make(map[string]*SlotSession),
		logger:         cfg.Logger,
		builder:        cfg.Builder,
		persister:      cfg.Persister,
		recovery:       cfg.Recovery,
		onClose:        cfg.OnClose,
		sessionTimeout: cfg.SessionTimeout,
		maxSessions:    cfg.MaxSessions,
	}
}

// Create 创建新会话
func (m *SessionManager) Create(ctx context.Context, casinoID string) (*SlotSession, error) {
	if err := m.checkCapacity(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	session, err := m.builder(ctx, id, casinoID, nil)
	if err != nil {
		return nil, err
	}

	if err := m.add(session); err != nil {
		session.Close()
		return nil, err
	}

	m.logger.Info("创建会话",
		zap.String("session_id", id),
		zap.String("casino_id", casinoID))
	return session, nil
}

// Get 获取会话，内存中不存在时尝试从持久化状态恢复
func (m *SessionManager) Get(ctx context.Context, sessionID string) (*SlotSession, error) {
	m.mu.RLock()
	session, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		return session, nil
	}

	if m.recovery == nil {
		return nil, apperrors.New(apperrors.ErrSessionNotFound, sessionID)
	}

	sm, err := m.recovery.RecoverSession(ctx, sessionID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSessionNotFound) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.ErrSessionNotFound, sessionID)
	}

	if err := m.checkCapacity(); err != nil {
		return nil, err
	}

	session, err = m.builder(ctx, sessionID, sm.Data().CasinoID, sm)
	if err != nil {
		return nil, err
	}

	if err := m.add(session); err != nil {
		session.Close()
		// 并发恢复时以先放入的为准
		m.mu.RLock()
		existing, ok := m.sessions[sessionID]
		m.mu.RUnlock()
		if ok {
			return existing, nil
		}
		return nil, err
	}

	m.logger.Info("恢复会话", zap.String("session_id", sessionID))
	return session, nil
}

func (m *SessionManager) checkCapacity() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return apperrors.Newf(apperrors.ErrSessionLimit, "会话数量已达上限: %d", m.maxSessions)
	}
	return nil
}

func (m *SessionManager) add(session *SlotSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[session.ID()]; exists {
		return apperrors.Newf(apperrors.ErrAlreadyExists, "会话已存在: %s", session.ID())
	}
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return apperrors.Newf(apperrors.ErrSessionLimit, "会话数量已达上限: %d", m.maxSessions)
	}
	m.sessions[session.ID()] = session
	return nil
}

// Remove 结束会话并删除持久化状态
func (m *SessionManager) Remove(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	session, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if !ok {
		return apperrors.New(apperrors.ErrSessionNotFound, sessionID)
	}

	session.Close()
	if m.persister != nil {
		if err := m.persister.Delete(ctx, sessionID); err != nil {
			m.logger.Error("删除会话状态失败",
				zap.String("session_id", sessionID),
				zap.Error(err))
		}
	}
	if m.onClose != nil {
		m.onClose(sessionID)
	}

	m.logger.Info("结束会话", zap.String("session_id", sessionID))
	return nil
}

// CleanupInactiveSessions 清理不活跃的会话，持久化状态保留以便恢复
func (m *SessionManager) CleanupInactiveSessions(ctx context.Context) int {
	if m.sessionTimeout <= 0 {
		return 0
	}

	now := time.Now()
	var expired []*SlotSession

	m.mu.Lock()
	for id, session := range m.sessions {
		if now.Sub(session.IdleSince()) > m.sessionTimeout {
			expired = append(expired, session)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, session := range expired {
		session.Close()
		if m.onClose != nil {
			m.onClose(session.ID())
		}
		m.logger.Info("清理超时会话",
			zap.String("session_id", session.ID()),
			zap.Duration("inactive", now.Sub(session.IdleSince())))
	}
	return len(expired)
}

// StartCleanupTask 启动清理任务
func (m *SessionManager) StartCleanupTask(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				m.logger.Info("停止会话清理任务")
				return
			case <-ticker.C:
				m.CleanupInactiveSessions(ctx)
			}
		}
	}()
}

// CloseAll 关闭全部会话，用于停机
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*SlotSession)
	m.mu.Unlock()

	for _, session := range sessions {
		session.Close()
		if m.onClose != nil {
			m.onClose(session.ID())
		}
	}
}

// Count 活跃会话数
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Stats 会话统计
func (m *SessionManager) Stats() SessionStats {
	return SessionStats{
		ActiveSessions: m.Count(),
		MaxSessions:    m.maxSessions,
	}
}
