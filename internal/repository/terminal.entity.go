package repository

import (
	"time"

	"github.com/jeongwonlab/possync/internal/model"
)

type TerminalEntity struct {
	ID          string    `db:"id"           gorm:"primaryKey;column:id"`
	PairingCode *string   `db:"pairing_code" gorm:"column:pairing_code;uniqueIndex"`
	CreatedAt   time.Time `db:"created_at"   gorm:"column:created_at"`
}

func (TerminalEntity) TableName() string {
	return "terminals"
}

func toTerminalModel(e *TerminalEntity) *model.Terminal {
	if e == nil {
		return nil
	}
	return &model.Terminal{
		ID:          e.ID,
		PairingCode: e.PairingCode,
		CreatedAt:   e.CreatedAt,
	}
}
