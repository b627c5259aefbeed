package models

import "time"

const (
	ReasonNoConnectivity = "no connectivity"
	ReasonPullFailed     = "failed to read remote data"
)

// FlushReport summarizes one pass over the mutation queue.
type FlushReport struct {
	Skipped   bool `json:"skipped"`
	Attempted int  `json:"attempted"`
	Pushed    int  `json:"pushed"`
	Retried   int  `json:"retried"`
	Dropped   int  `json:"dropped"`
	Deferred  int  `json:"deferred"`
	Remaining int  `json:"remaining"`
}

// SyncResult is what an explicit "sync now" reports back to the caller.
type SyncResult struct {
	Success   bool       `json:"success"`
	Reason    string     `json:"reason,omitempty"`
	Pushed    int        `json:"pushed"`
	Dropped   int        `json:"dropped"`
	Remaining int        `json:"remaining"`
	SyncedAt  *time.Time `json:"syncedAt,omitempty"`
}

func SyncFailure(reason string) SyncResult {
	return SyncResult{Success: false, Reason: reason}
}

// SyncStatus is the read-only view the UI polls for display.
type SyncStatus struct {
	ShopID     string     `json:"shopId"`
	Reachable  bool       `json:"reachable"`
	Pending    int        `json:"pending"`
	Dropped    int        `json:"dropped"`
	LastSyncAt *time.Time `json:"lastSyncAt,omitempty"`
}
