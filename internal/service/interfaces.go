package service

import (
	"context"

	"github.com/wfunc/casino-builder/internal/models"
	"github.com/wfunc/casino-builder/internal/repository"
)

// CasinoService 赌场配置服务接口
type CasinoService interface {
	Create(ctx context.Context, req *CasinoRequest) (*CreateCasinoResponse, error)
	Get(ctx context.Context, id string) (*models.Casino, error)
	Update(ctx context.Context, id string, req *CasinoRequest) (*models.Casino, error)
	List(ctx context.Context, page, pageSize int) ([]*models.Casino, *repository.Pagination, error)
	Delete(ctx context.Context, id string) error
}

// CasinoRequest 创建或更新赌场的请求体
type CasinoRequest struct {
	Name        string              `json:"name" binding:"required,max=100"`
	Description string              `json:"description" binding:"max=500"`
	Owner       string              `json:"owner" binding:"max=100"`
	Theme       models.CasinoTheme  `json:"theme"`
	Slots       models.SlotSettings `json:"slots"`
}

// CreateCasinoResponse 创建赌场响应，编辑令牌只在创建时返回
type CreateCasinoResponse struct {
	Casino      *models.Casino `json:"casino"`
	EditorToken string         `json:"editor_token"`
	ExpiresIn   int64          `json:"expires_in"` // 秒
}
