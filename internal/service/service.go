package service

import (
	"github.com/wfunc/casino-builder/internal/config"
	"github.com/wfunc/casino-builder/internal/repository"
	"github.com/wfunc/casino-builder/internal/utils"
	"go.uber.org/zap"
)

// Services 服务集合
type Services struct {
	Casino CasinoService
	JWT    *utils.JWTManager
}

// NewServices 创建服务集合
func NewServices(repos *repository.Manager, cfg *config.Config, log *zap.Logger) *Services {
	jwtManager := utils.NewJWTManagerFromConfig(cfg.Security.JWT)

	return &Services{
		Casino: NewCasinoService(repos.Casino(), jwtManager, cfg.Game.Slots, log),
		JWT:    jwtManager,
	}
}
