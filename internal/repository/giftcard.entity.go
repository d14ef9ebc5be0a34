package repository

import (
	"time"

	"github.com/jeongwonlab/possync/internal/model"
)

type GiftCardEntity struct {
	Code         string    `db:"code"          gorm:"primaryKey;column:code"`
	DiscountRate int       `db:"discount_rate" gorm:"column:discount_rate;not null"`
	Status       string    `db:"status"        gorm:"column:status;not null;default:active"`
	IssuerID     string    `db:"issuer_id"     gorm:"column:issuer_id"`
	IssuedAt     time.Time `db:"issued_at"     gorm:"column:issued_at;not null"`
}

func (GiftCardEntity) TableName() string {
	return "gift_cards"
}

func toGiftCardEntity(m *model.GiftCard) *GiftCardEntity {
	if m == nil {
		return nil
	}
	return &GiftCardEntity{
		Code:         m.Code,
		DiscountRate: m.DiscountRate,
		Status:       string(m.Status),
		IssuerID:     m.IssuerID,
		IssuedAt:     m.IssuedAt,
	}
}

func toGiftCardModel(e *GiftCardEntity) *model.GiftCard {
	if e == nil {
		return nil
	}
	return &model.GiftCard{
		Code:         e.Code,
		DiscountRate: e.DiscountRate,
		Status:       model.GiftCardStatus(e.Status),
		IssuerID:     e.IssuerID,
		IssuedAt:     e.IssuedAt,
	}
}
