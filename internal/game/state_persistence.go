package game

import (
	"context"
	"encoding/json"
	"sync"

	apperrors "github.com/wfunc/casino-builder/internal/errors"
	"github.com/wfunc/casino-builder/internal/models"
	"github.com/wfunc/casino-builder/internal/repository"
)

// MemoryStatePersister 内存状态持久化
type MemoryStatePersister struct {
	mu     sync.RWMutex
	states map[string]*StateMachineData
}

// NewMemoryStatePersister 创建内存持久化器
func NewMemoryStatePersister() *MemoryStatePersister {
	return &MemoryStatePersister{
		states: make(map[string]*StateMachineData),
	}
}

// Save 保存状态
func (p *MemoryStatePersister) Save(ctx context.Context, sessionID string, state *StateMachineData) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	stateCopy := *state
	p.states[sessionID] = &stateCopy
	return nil
}

// Load 加载状态
func (p *MemoryStatePersister) Load(ctx context.Context, sessionID string) (*StateMachineData, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	state, exists := p.states[sessionID]
	if !exists {
		return nil, apperrors.New(apperrors.ErrSessionNotFound, sessionID)
	}

	stateCopy := *state
	return &stateCopy, nil
}

// Delete 删除状态
func (p *MemoryStatePersister) Delete(ctx context.Context, sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.states, sessionID)
	return nil
}

// RepositoryStatePersister 数据库状态持久化
type RepositoryStatePersister struct {
	repo repository.SessionStateRepository
}

// NewRepositoryStatePersister 创建数据库持久化器
func NewRepositoryStatePersister(repo repository.SessionStateRepository) *RepositoryStatePersister {
	return &RepositoryStatePersister{repo: repo}
}

// Save 保存状态到数据库
func (p *RepositoryStatePersister) Save(ctx context.Context, sessionID string, state *StateMachineData) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInvalidParam, "序列化状态失败")
	}

	return p.repo.Save(ctx, &models.SessionState{
		SessionID:    sessionID,
		CasinoID:     state.CasinoID,
		CurrentState: string(state.CurrentState),
		StateData:    string(stateJSON),
	})
}

// Load 从数据库加载状态
func (p *RepositoryStatePersister) Load(ctx context.Context, sessionID string) (*StateMachineData, error) {
	row, err := p.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var state StateMachineData
	if err := json.Unmarshal([]byte(row.StateData), &state); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDataIntegrity, "反序列化状态失败")
	}
	return &state, nil
}

// Delete 从数据库删除状态
func (p *RepositoryStatePersister) Delete(ctx context.Context, sessionID string) error {
	return p.repo.Delete(ctx, sessionID)
}

// CacheStatePersister 带缓存的持久化器
type CacheStatePersister struct {
	cache   StatePersister // 缓存层
	storage StatePersister // 存储层
}

// NewCacheStatePersister 创建带缓存的持久化器
func NewCacheStatePersister(cache, storage StatePersister) *CacheStatePersister {
	return &CacheStatePersister{
		cache:   cache,
		storage: storage,
	}
}

// Save 先写存储层再写缓存层
func (p *CacheStatePersister) Save(ctx context.Context, sessionID string, state *StateMachineData) error {
	if err := p.storage.Save(ctx, sessionID, state); err != nil {
		return err
	}

	// 缓存失败不影响主流程
	_ = p.cache.Save(ctx, sessionID, state)
	return nil
}

// Load 优先从缓存加载
func (p *CacheStatePersister) Load(ctx context.Context, sessionID string) (*StateMachineData, error) {
	if state, err := p.cache.Load(ctx, sessionID); err == nil {
		return state, nil
	}

	state, err := p.storage.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	_ = p.cache.Save(ctx, sessionID, state)
	return state, nil
}

// Delete 同时删除缓存和存储
func (p *CacheStatePersister) Delete(ctx context.Context, sessionID string) error {
	_ = p.cache.Delete(ctx, sessionID)
	return p.storage.Delete(ctx, sessionID)
}
