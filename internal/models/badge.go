package models

import (
	"encoding/json"
	"time"
)

type BadgeProgress struct {
	BadgeID   string          `json:"badgeId"`
	Progress  int             `json:"progress"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type UnlockedBadge struct {
	BadgeID    string    `json:"badgeId"`
	UnlockedAt time.Time `json:"unlockedAt"`
	Seen       bool      `json:"seen"`
}

// AdvanceProgress applies a monotonic increment. Progress never decreases, so a negative
// delta leaves the counter where it is.
func AdvanceProgress(current, delta int) int {
	if delta <= 0 {
		return current
	}
	return current + delta
}
