package model

import "time"

type GiftCardStatus string

const (
	GiftCardActive GiftCardStatus = "active"
	GiftCardUsed   GiftCardStatus = "used"
)

// GiftCard is a single-use discount code. Immutable once issued except for
// the active -> used transition, which happens at transaction completion.
type GiftCard struct {
	Code         string         `json:"code"`
	DiscountRate int            `json:"discount_rate"`
	Status       GiftCardStatus `json:"status"`
	IssuerID     string         `json:"issuer_id"`
	IssuedAt     time.Time      `json:"issued_at"`
}
