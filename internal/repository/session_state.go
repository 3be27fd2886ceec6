package repository

import (
	"context"
	stderrors "errors"

	apperrors "github.com/wfunc/casino-builder/internal/errors"
	"github.com/wfunc/casino-builder/internal/models"
	"gorm.io/gorm"
)

// SessionStateRepository 会话状态仓储接口
type SessionStateRepository interface {
	BaseRepository
	Save(ctx context.Context, state *models.SessionState) error
	FindBySessionID(ctx context.Context, sessionID string) (*models.SessionState, error)
	Delete(ctx context.Context, sessionID string) error
}

// sessionStateRepo 会话状态仓储实现
type sessionStateRepo struct {
	*BaseRepo
}

// NewSessionStateRepository 创建会话状态仓储
func NewSessionStateRepository(db *gorm.DB) SessionStateRepository {
	return &sessionStateRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Save 按会话ID插入或更新
func (r *sessionStateRepo) Save(ctx context.Context, state *models.SessionState) error {
	err := r.db.WithContext(ctx).
		Where(models.SessionState{SessionID: state.SessionID}).
		Assign(models.SessionState{
			CasinoID:     state.CasinoID,
			CurrentState: state.CurrentState,
			StateData:    state.StateData,
		}).
		FirstOrCreate(state).Error
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate, "session_state")
	}
	return nil
}

// FindBySessionID 根据会话ID查找
func (r *sessionStateRepo) FindBySessionID(ctx context.Context, sessionID string) (*models.SessionState, error) {
	var state models.SessionState
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&state).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrSessionNotFound, sessionID)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "session_state")
	}
	return &state, nil
}

// Delete 删除会话状态
func (r *sessionStateRepo) Delete(ctx context.Context, sessionID string) error {
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&models.SessionState{}).Error
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseDelete, "session_state")
	}
	return nil
}
