package models

import (
	"time"
)

type Presence struct {
	ShopID   string    `json:"shop_id"`
	DeviceID string    `json:"device_id"`
	Status   string    `json:"status"`
	LastSeen time.Time `json:"last_seen"`
}

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)
