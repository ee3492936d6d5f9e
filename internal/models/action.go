package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActionRecord is one backtest, paper-trade or live-trade request.
type ActionRecord struct {
	ID           string `gorm:"type:varchar(36);primaryKey"`
	StrategyType string `gorm:"type:varchar(30);not null;index:idx_action_strategy"`
	StrategyID   string `gorm:"type:varchar(64);not null;index:idx_action_strategy"`
	BotID        string `gorm:"type:varchar(64)"`
	Kind         string `gorm:"type:varchar(20);not null;index"`
	State        string `gorm:"type:varchar(20);not null;index"`
	Endpoint     string `gorm:"type:varchar(255);not null"`
	Message      string `gorm:"type:text"`
	UserID       string `gorm:"type:varchar(64);index"`

	Request  datatypes.JSON `gorm:"type:jsonb"`
	Response datatypes.JSON `gorm:"type:jsonb"`

	StartedAt  time.Time  `gorm:"type:timestamptz;not null;index"`
	FinishedAt *time.Time `gorm:"type:timestamptz"`
}

func (ActionRecord) TableName() string {
	return "action_records"
}
