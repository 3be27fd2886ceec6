package service

import (
	"context"

	"github.com/wfunc/casino-builder/internal/config"
	apperrors "github.com/wfunc/casino-builder/internal/errors"
	"github.com/wfunc/casino-builder/internal/game"
	"github.com/wfunc/casino-builder/internal/models"
	"github.com/wfunc/casino-builder/internal/repository"
	"github.com/wfunc/casino-builder/internal/utils"
	"go.uber.org/zap"
)

// casinoService 赌场配置服务实现
type casinoService struct {
	casinos  repository.CasinoRepository
	jwt      *utils.JWTManager
	defaults game.SlotRules
	log      *zap.Logger
}

// NewCasinoService 创建赌场配置服务
func NewCasinoService(
	casinos repository.CasinoRepository,
	jwt *utils.JWTManager,
	slots config.SlotsConfig,
	log *zap.Logger,
) CasinoService {
	if log == nil {
		log = zap.NewNop()
	}
	return &casinoService{
		casinos:  casinos,
		jwt:      jwt,
		defaults: game.DefaultRules(slots),
		log:      log,
	}
}

// validate 与默认规则合并后必须是一台可运行的老虎机
func (s *casinoService) validate(req *CasinoRequest) error {
	if req.Name == "" {
		return apperrors.New(apperrors.ErrInvalidParam, "赌场名称不能为空")
	}
	return s.defaults.Merge(req.Slots).Validate()
}

// Create 创建赌场并签发编辑令牌
func (s *casinoService) Create(ctx context.Context, req *CasinoRequest) (*CreateCasinoResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	casino := &models.Casino{
		Name:        req.Name,
		Description: req.Description,
		Owner:       req.Owner,
		Theme:       req.Theme,
		Slots:       req.Slots,
	}
	if err := s.casinos.Create(ctx, casino); err != nil {
		s.log.Error("创建赌场失败", zap.Error(err), zap.String("name", req.Name))
		return nil, err
	}

	token, err := s.jwt.GenerateEditorToken(casino.ID, casino.Owner)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown, "签发编辑令牌失败")
	}

	s.log.Info("赌场已创建",
		zap.String("casino_id", casino.ID),
		zap.String("name", casino.Name),
		zap.String("owner", casino.Owner))

	return &CreateCasinoResponse{
		Casino:      casino,
		EditorToken: token,
		ExpiresIn:   int64(s.jwt.GetTokenExpiry().Seconds()),
	}, nil
}

// Get 获取赌场
func (s *casinoService) Get(ctx context.Context, id string) (*models.Casino, error) {
	return s.casinos.GetByID(ctx, id)
}

// Update 整体替换赌场配置，所有者不可修改
func (s *casinoService) Update(ctx context.Context, id string, req *CasinoRequest) (*models.Casino, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	casino := &models.Casino{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Theme:       req.Theme,
		Slots:       req.Slots,
	}
	if err := s.casinos.Update(ctx, casino); err != nil {
		return nil, err
	}

	s.log.Info("赌场已更新", zap.String("casino_id", id), zap.Int("version", casino.Version))
	return s.casinos.GetByID(ctx, id)
}

// List 分页列出赌场
func (s *casinoService) List(ctx context.Context, page, pageSize int) ([]*models.Casino, *repository.Pagination, error) {
	p := repository.NewPagination(page, pageSize)
	casinos, err := s.casinos.List(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	return casinos, p, nil
}

// Delete 删除赌场，已开的会话不受影响
func (s *casinoService) Delete(ctx context.Context, id string) error {
	if err := s.casinos.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("赌场已删除", zap.String("casino_id", id))
	return nil
}
