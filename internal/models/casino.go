package models

import (
	"time"

	"gorm.io/gorm"
)

// CasinoTheme 赌场外观
type CasinoTheme struct {
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	AccentColor    string `json:"accent_color"`
	Layout         string `json:"layout"`          // classic, neon, minimal
	SoundPack      string `json:"sound_pack"`      // 音效包名称
	AnimationStyle string `json:"animation_style"` // calm, lively, dramatic
}

// SlotSettings 老虎机玩法配置
type SlotSettings struct {
	ReelCount         int      `json:"reel_count"`
	Symbols           []string `json:"symbols"`
	StripRepeat       int      `json:"strip_repeat"`
	AllowedStrategies []string `json:"allowed_strategies"`
	MinBet            float64  `json:"min_bet"`
	MaxBet            float64  `json:"max_bet"`
}

// Casino 用户搭建的赌场配置
type Casino struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	Name        string         `gorm:"size:100;not null" json:"name"`
	Description string         `gorm:"size:500" json:"description"`
	Owner       string         `gorm:"size:100;index" json:"owner"`
	Theme       CasinoTheme    `gorm:"type:text;serializer:json" json:"theme"`
	Slots       SlotSettings   `gorm:"type:text;serializer:json" json:"slots"`
	Version     int            `gorm:"default:1" json:"version"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (Casino) TableName() string {
	return "casinos"
}
