package models

import (
	"time"
)

// SessionClaims identify the shop and terminal a bearer token was issued for.
type SessionClaims struct {
	ShopID    string    `json:"shop_id"`
	DeviceID  string    `json:"device_id"`
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
