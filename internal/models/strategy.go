package models

import (
	"time"

	"gorm.io/datatypes"
)

// StrategyRecord is a strategy this desk created upstream.
type StrategyRecord struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	RemoteID    string `gorm:"type:varchar(64);index"`
	Type        string `gorm:"type:varchar(30);not null;index"`
	Name        string `gorm:"type:varchar(200);not null"`
	BrokerageID string `gorm:"type:varchar(64)"`
	UserID      string `gorm:"type:varchar(64);index"`

	Payload datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (StrategyRecord) TableName() string {
	return "strategy_records"
}
