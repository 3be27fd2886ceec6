package repository

import (
	"context"

	apperrors "github.com/wfunc/casino-builder/internal/errors"
	"github.com/wfunc/casino-builder/internal/models"
	"gorm.io/gorm"
)

// SpinRecordRepository 转动记录仓储接口
type SpinRecordRepository interface {
	BaseRepository
	Create(ctx context.Context, record *models.SpinRecord) error
	FindBySessionID(ctx context.Context, sessionID string, p *Pagination) ([]*models.SpinRecord, error)
	CountByStrategy(ctx context.Context, casinoID string) (map[string]int64, error)
}

// StrategyCount 按策略统计
type StrategyCount struct {
	Strategy string
	Total    int64
}

// spinRecordRepo 转动记录仓储实现
type spinRecordRepo struct {
	*BaseRepo
}

// NewSpinRecordRepository 创建转动记录仓储
func NewSpinRecordRepository(db *gorm.DB) SpinRecordRepository {
	return &spinRecordRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 写入转动记录
func (r *spinRecordRepo) Create(ctx context.Context, record *models.SpinRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseInsert, "spin_record")
	}
	return nil
}

// FindBySessionID 按会话分页查询，最新的在前
func (r *spinRecordRepo) FindBySessionID(ctx context.Context, sessionID string, p *Pagination) ([]*models.SpinRecord, error) {
	var records []*models.SpinRecord

	// 查询总数
	if err := r.db.WithContext(ctx).
		Model(&models.SpinRecord{}).
		Where("session_id = ?", sessionID).
		Count(&p.Total).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "spin_record count")
	}

	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id desc").
		Scopes(Paginate(p)).
		Find(&records).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "spin_record")
	}
	return records, nil
}

// CountByStrategy 统计赌场下各策略的使用次数
func (r *spinRecordRepo) CountByStrategy(ctx context.Context, casinoID string) (map[string]int64, error) {
	var rows []StrategyCount
	err := r.db.WithContext(ctx).
		Model(&models.SpinRecord{}).
		Select("strategy, count(*) as total").
		Where("casino_id = ?", casinoID).
		Group("strategy").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "spin_record stats")
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Strategy] = row.Total
	}
	return counts, nil
}
