package model

import "time"

// Terminal is the durable identity of a staffed POS terminal. PairingCode
// is the optional short code displays can use instead of the full id; the
// code <-> id mapping is a bijection.
type Terminal struct {
	ID          string    `json:"id"`
	PairingCode *string   `json:"pairing_code"`
	CreatedAt   time.Time `json:"created_at"`
}
