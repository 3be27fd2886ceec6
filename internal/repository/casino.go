package repository

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	apperrors "github.com/wfunc/casino-builder/internal/errors"
	"github.com/wfunc/casino-builder/internal/models"
	"gorm.io/gorm"
)

// CasinoRepository 赌场配置仓储接口
type CasinoRepository interface {
	BaseRepository
	Create(ctx context.Context, casino *models.Casino) error
	GetByID(ctx context.Context, id string) (*models.Casino, error)
	Update(ctx context.Context, casino *models.Casino) error
	List(ctx context.Context, p *Pagination) ([]*models.Casino, error)
	Delete(ctx context.Context, id string) error
}

// casinoRepo 赌场配置仓储实现
type casinoRepo struct {
	*BaseRepo
}

// NewCasinoRepository 创建赌场配置仓储
func NewCasinoRepository(db *gorm.DB) CasinoRepository {
	return &casinoRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 创建赌场，未指定ID时生成UUID
func (r *casinoRepo) Create(ctx context.Context, casino *models.Casino) error {
	if casino.ID == "" {
		casino.ID = uuid.NewString()
	}
	if casino.Version == 0 {
		casino.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(casino).Error; err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseInsert, "casino")
	}
	return nil
}

// GetByID 根据ID查找
func (r *casinoRepo) GetByID(ctx context.Context, id string) (*models.Casino, error) {
	var casino models.Casino
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&casino).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrCasinoNotFound, id)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "casino")
	}
	return &casino, nil
}

// Update 更新赌场，版本号自增
func (r *casinoRepo) Update(ctx context.Context, casino *models.Casino) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Casino
		if err := tx.Where("id = ?", casino.ID).First(&current).Error; err != nil {
			return err
		}
		casino.Owner = current.Owner
		casino.CreatedAt = current.CreatedAt
		casino.Version = current.Version + 1
		return tx.Save(casino).Error
	})
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.ErrCasinoNotFound, casino.ID)
		}
		return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate, "casino")
	}
	return nil
}

// List 分页列出赌场
func (r *casinoRepo) List(ctx context.Context, p *Pagination) ([]*models.Casino, error) {
	var casinos []*models.Casino

	// 查询总数
	if err := r.db.WithContext(ctx).Model(&models.Casino{}).Count(&p.Total).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "casino count")
	}

	err := r.db.WithContext(ctx).
		Order("created_at desc").
		Scopes(Paginate(p)).
		Find(&casinos).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "casino list")
	}
	return casinos, nil
}

// Delete 软删除赌场
func (r *casinoRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Casino{})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, apperrors.ErrDatabaseDelete, "casino")
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrCasinoNotFound, id)
	}
	return nil
}

// cachedCasinoRepo 带过期LRU读缓存的赌场仓储
type cachedCasinoRepo struct {
	CasinoRepository
	lru *expirable.LRU[string, models.Casino]
}

// NewCachedCasinoRepository 为赌场仓储包装读缓存
func NewCachedCasinoRepository(inner CasinoRepository, size int, ttl time.Duration) CasinoRepository {
	return &cachedCasinoRepo{
		CasinoRepository: inner,
		lru:              expirable.NewLRU[string, models.Casino](size, nil, ttl),
	}
}

// GetByID 优先读缓存
func (r *cachedCasinoRepo) GetByID(ctx context.Context, id string) (*models.Casino, error) {
	if casino, ok := r.lru.Get(id); ok {
		return &casino, nil
	}

	casino, err := r.CasinoRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.lru.Add(id, *casino)
	return casino, nil
}

// Update 更新后失效缓存
func (r *cachedCasinoRepo) Update(ctx context.Context, casino *models.Casino) error {
	defer r.lru.Remove(casino.ID)
	return r.CasinoRepository.Update(ctx, casino)
}

// Delete 删除后失效缓存
func (r *cachedCasinoRepo) Delete(ctx context.Context, id string) error {
	defer r.lru.Remove(id)
	return r.CasinoRepository.Delete(ctx, id)
}
