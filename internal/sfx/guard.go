package sfx

import (
	"strings"
	"sync"
	"time"

	"github.com/wfunc/casino-builder/internal/config"
	"go.uber.org/zap"
)

// Tier 音效档位
type Tier string

const (
	TierSpin     Tier = "spin"
	TierReelStop Tier = "reelStop"
	TierNearMiss Tier = "nearMiss"
	TierWin      Tier = "win"
	TierBigWin   Tier = "bigWin"
	TierJackpot  Tier = "jackpot"
)

// BigWinMultiplier 大奖音效的倍数门槛
const BigWinMultiplier = 10

// DefaultCooldowns 默认冷却时间
var DefaultCooldowns = map[Tier]time.Duration{
	TierSpin:     300 * time.Millisecond,
	TierReelStop: 40 * time.Millisecond,
	TierNearMiss: time.Second,
	TierWin:      500 * time.Millisecond,
	TierBigWin:   2 * time.Second,
	TierJackpot:  5 * time.Second,
}

// tierKey 配置键经过viper会变成小写，统一按小写比较
func tierKey(t Tier) string {
	return strings.ToLower(string(t))
}

// Guard 音效去重，同一档位在冷却时间内只触发一次
type Guard struct {
	mu        sync.Mutex
	enabled   bool
	cooldowns map[string]time.Duration
	last      map[string]time.Time
	now       func() time.Time
}

// NewGuard 创建去重器，未配置的档位使用默认冷却
func NewGuard(cfg config.SFXConfig) *Guard {
	g := &Guard{
		enabled:   cfg.Enabled,
		cooldowns: make(map[string]time.Duration, len(DefaultCooldowns)),
		last:      make(map[string]time.Time),
		now:       time.Now,
	}
	for tier, d := range DefaultCooldowns {
		g.cooldowns[tierKey(tier)] = d
	}
	for name, d := range cfg.Cooldowns {
		g.cooldowns[strings.ToLower(name)] = d
	}
	return g
}

// Trigger 返回true表示应当播放
func (g *Guard) Trigger(tier Tier) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.enabled {
		return false
	}
	key := tierKey(tier)
	now := g.now()
	if last, ok := g.last[key]; ok && now.Sub(last) < g.cooldowns[key] {
		return false
	}
	g.last[key] = now
	return true
}

// Cooldown 档位的冷却时间
func (g *Guard) Cooldown(tier Tier) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cooldowns[tierKey(tier)]
}

// Reset 清空触发记录
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = make(map[string]time.Time)
}

// Service 进程级音效服务，按会话持有去重器
//
// 推送连接断开重连后拿到的仍是同一个去重器。
type Service struct {
	mu     sync.Mutex
	cfg    config.SFXConfig
	guards map[string]*Guard
	logger *zap.Logger
}

// NewService 创建音效服务
func NewService(cfg config.SFXConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:    cfg,
		guards: make(map[string]*Guard),
		logger: logger,
	}
}

// Enabled 是否启用音效
func (s *Service) Enabled() bool {
	return s.cfg.Enabled
}

// For 获取会话的去重器，不存在时创建
func (s *Service) For(sessionID string) *Guard {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.guards[sessionID]
	if !ok {
		g = NewGuard(s.cfg)
		s.guards[sessionID] = g
	}
	return g
}

// Release 会话结束时释放
func (s *Service) Release(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.guards, sessionID)
}

// Count 持有的去重器数量
func (s *Service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.guards)
}
