package models

import (
	"time"
)

// SessionState 会话状态模型（用于持久化会话状态机）
type SessionState struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SessionID    string    `gorm:"uniqueIndex;size:64;not null" json:"session_id"`
	CasinoID     string    `gorm:"size:36;index" json:"casino_id"`
	CurrentState string    `gorm:"size:20;not null" json:"current_state"`
	StateData    string    `gorm:"type:text" json:"state_data"` // JSON格式的状态数据
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 指定表名
func (SessionState) TableName() string {
	return "session_states"
}
