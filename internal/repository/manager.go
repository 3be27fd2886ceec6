package repository

import (
	"sync"
	"time"

	"gorm.io/gorm"
)

// Manager 仓储管理器，提供所有仓储的统一访问接口
type Manager struct {
	db *gorm.DB

	cacheSize int
	cacheTTL  time.Duration

	// 仓储实例（使用懒加载）
	casinoOnce sync.Once
	casino     CasinoRepository

	spinRecordOnce sync.Once
	spinRecord     SpinRecordRepository

	sessionStateOnce sync.Once
	sessionState     SessionStateRepository
}

// ManagerOption 仓储管理器选项
type ManagerOption func(*Manager)

// WithCasinoCache 为赌场读取启用LRU缓存
func WithCasinoCache(size int, ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.cacheSize = size
		m.cacheTTL = ttl
	}
}

// NewManager 创建仓储管理器
func NewManager(db *gorm.DB, opts ...ManagerOption) *Manager {
	m := &Manager{db: db}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DB 获取数据库实例
func (m *Manager) DB() *gorm.DB {
	return m.db
}

// Casino 获取赌场仓储
func (m *Manager) Casino() CasinoRepository {
	m.casinoOnce.Do(func() {
		repo := NewCasinoRepository(m.db)
		if m.cacheSize > 0 && m.cacheTTL > 0 {
			repo = NewCachedCasinoRepository(repo, m.cacheSize, m.cacheTTL)
		}
		m.casino = repo
	})
	return m.casino
}

// SpinRecord 获取转动记录仓储
func (m *Manager) SpinRecord() SpinRecordRepository {
	m.spinRecordOnce.Do(func() {
		m.spinRecord = NewSpinRecordRepository(m.db)
	})
	return m.spinRecord
}

// SessionState 获取会话状态仓储
func (m *Manager) SessionState() SessionStateRepository {
	m.sessionStateOnce.Do(func() {
		m.sessionState = NewSessionStateRepository(m.db)
	})
	return m.sessionState
}
