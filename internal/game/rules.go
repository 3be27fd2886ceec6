package game

import (
	"github.com/wfunc/casino-builder/internal/config"
	apperrors "github.com/wfunc/casino-builder/internal/errors"
	"github.com/wfunc/casino-builder/internal/game/reel"
	"github.com/wfunc/casino-builder/internal/models"
)

// MaxReelCount 单台老虎机最多卷轴数
const MaxReelCount = 10

// SlotRules 一台老虎机的玩法规则
type SlotRules struct {
	ReelCount         int      `json:"reel_count"`
	Symbols           []string `json:"symbols"`
	StripRepeat       int      `json:"strip_repeat"`
	AllowedStrategies []string `json:"allowed_strategies"`
	MinBet            float64  `json:"min_bet"`
	MaxBet            float64  `json:"max_bet"`
}

// DefaultRules 由全局配置得到的默认规则
func DefaultRules(cfg config.SlotsConfig) SlotRules {
	return SlotRules{
		ReelCount:         cfg.ReelCount,
		Symbols:           append([]string(nil), cfg.Symbols...),
		StripRepeat:       cfg.StripRepeat,
		AllowedStrategies: append([]string(nil), cfg.AllowedStrategies...),
		MinBet:            cfg.MinBet,
		MaxBet:            cfg.MaxBet,
	}
}

// Merge 用赌场配置覆盖默认规则，零值字段保留默认
func (r SlotRules) Merge(s models.SlotSettings) SlotRules {
	out := r
	if s.ReelCount > 0 {
		out.ReelCount = s.ReelCount
	}
	if len(s.Symbols) > 0 {
		out.Symbols = append([]string(nil), s.Symbols...)
	}
	if s.StripRepeat > 0 {
		out.StripRepeat = s.StripRepeat
	}
	if len(s.AllowedStrategies) > 0 {
		out.AllowedStrategies = append([]string(nil), s.AllowedStrategies...)
	}
	if s.MinBet > 0 {
		out.MinBet = s.MinBet
	}
	if s.MaxBet > 0 {
		out.MaxBet = s.MaxBet
	}
	return out
}

// Validate 校验规则
func (r SlotRules) Validate() error {
	if r.ReelCount < 1 || r.ReelCount > MaxReelCount {
		return apperrors.Newf(apperrors.ErrInvalidReelConfig, "卷轴数需在1到%d之间: %d", MaxReelCount, r.ReelCount)
	}
	if len(r.Symbols) == 0 {
		return apperrors.New(apperrors.ErrInvalidReelConfig, "符号集为空")
	}
	if r.StripRepeat < 1 {
		return apperrors.Newf(apperrors.ErrInvalidReelConfig, "strip_repeat无效: %d", r.StripRepeat)
	}
	for _, name := range r.AllowedStrategies {
		if _, ok := reel.DefaultStrategies[name]; !ok {
			return apperrors.Newf(apperrors.ErrInvalidReelConfig, "未知的动画策略: %s", name)
		}
	}
	if r.MinBet <= 0 || r.MaxBet < r.MinBet {
		return apperrors.Newf(apperrors.ErrInvalidReelConfig, "投注范围无效: %v-%v", r.MinBet, r.MaxBet)
	}
	return nil
}

// ValidateBet 校验投注金额
func (r SlotRules) ValidateBet(bet float64) error {
	if bet < r.MinBet || bet > r.MaxBet {
		return apperrors.Newf(apperrors.ErrInvalidBet, "投注需在%v到%v之间: %v", r.MinBet, r.MaxBet, bet)
	}
	return nil
}

// TimingFromConfig 转换时序配置
func TimingFromConfig(cfg config.TimingConfig) reel.TimingConfig {
	return reel.TimingConfig{
		BaseDelay:          cfg.BaseDelay,
		Stagger:            cfg.Stagger,
		NearMissPause:      cfg.NearMissPause,
		CascadeInterval:    cfg.CascadeInterval,
		SimultaneousWindow: cfg.SimultaneousWindow,
	}
}
