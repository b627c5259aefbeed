package models

import (
	"encoding/json"
	"time"
)

// QueueItem is one local mutation waiting to be pushed to the remote store.
type QueueItem struct {
	ID            string          `json:"id"`
	Collection    Collection      `json:"collection"`
	Operation     Operation       `json:"operation"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"createdAt"`
	RetryCount    int             `json:"retryCount"`
	LastError     string          `json:"lastError,omitempty"`
	NextAttemptAt *time.Time      `json:"nextAttemptAt,omitempty"`
}

// Due reports whether the item may be attempted at now.
func (i QueueItem) Due(now time.Time) bool {
	return i.NextAttemptAt == nil || !now.Before(*i.NextAttemptAt)
}

// DroppedItem is a queue item that exhausted its retries.
type DroppedItem struct {
	Item      QueueItem `json:"item"`
	Reason    string    `json:"reason"`
	DroppedAt time.Time `json:"droppedAt"`
}
