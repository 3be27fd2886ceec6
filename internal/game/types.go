package game

import (
	"time"

	"github.com/wfunc/casino-builder/internal/game/reel"
)

// SpinRequest 转动请求
type SpinRequest struct {
	Bet float64 `json:"bet" binding:"required,gt=0"`
}

// SpinResult 转动结果
type SpinResult struct {
	SessionID         string         `json:"session_id"`
	TrialID           string         `json:"trial_id"`
	Bet               float64        `json:"bet"`
	Payout            float64        `json:"payout"`             // 结算派彩
	SettledMultiplier float64        `json:"settled_multiplier"` // 结算给出的原始倍数
	Multiplier        float64        `json:"multiplier"`         // 卷轴能展示的最近倍数
	Strategy          string         `json:"strategy"`
	Effect            string         `json:"effect,omitempty"`
	Positions         []int          `json:"positions"`
	Analysis          *reel.Analysis `json:"analysis"`
}

// SessionInfo 会话信息
type SessionInfo struct {
	SessionID    string                 `json:"session_id"`
	CasinoID     string                 `json:"casino_id"`
	State        SessionState           `json:"state"`
	Strategy     string                 `json:"strategy,omitempty"`
	Spins        int                    `json:"spins"`
	Rules        SlotRules              `json:"rules"`
	ReelStates   []reel.ReelState       `json:"reel_states"`
	Context      *reel.AnimationContext `json:"context"`
	LastSpin     *SpinResult            `json:"last_spin,omitempty"`
	ValidEvents  []string               `json:"valid_events"`
	CreatedAt    time.Time              `json:"created_at"`
	LastActivity time.Time              `json:"last_activity"`
}

// CreateSessionResponse 创建会话响应
type CreateSessionResponse struct {
	SessionID string       `json:"session_id"`
	Session   *SessionInfo `json:"session"`
}

// SessionStats 会话统计
type SessionStats struct {
	ActiveSessions int `json:"active_sessions"`
	MaxSessions    int `json:"max_sessions"`
}
