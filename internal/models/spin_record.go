package models

// SpinRecord 单次转动记录
type SpinRecord struct {
	BaseModel
	SessionID  string  `gorm:"size:64;not null;index" json:"session_id"`
	CasinoID   string  `gorm:"size:36;index" json:"casino_id"`
	TrialID    string  `gorm:"size:64;index" json:"trial_id"`
	Bet        float64 `json:"bet"`
	Multiplier float64 `json:"multiplier"`
	Payout     float64 `json:"payout"`
	Strategy   string  `gorm:"size:32;index" json:"strategy"`
	Positions  []int   `gorm:"type:text;serializer:json" json:"positions"`
	IsNearMiss bool    `json:"is_near_miss"`
	IsJackpot  bool    `json:"is_jackpot"`
	Skipped    bool    `json:"skipped"`
	Details    JSONMap `gorm:"type:text" json:"details"`
}

// TableName 指定表名
func (SpinRecord) TableName() string {
	return "spin_records"
}
