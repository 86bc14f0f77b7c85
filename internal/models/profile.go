package models

import "time"

// UserProfile is a singleton keyed by constants.DefaultUserProfileID.
type UserProfile struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Timezone    string    `json:"timezone,omitempty"`
	WeekStart   int       `json:"weekStart"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MascotCustomization is a singleton keyed by constants.DefaultMascotID.
// Attributes are free-form cosmetic settings the core never interprets.
type MascotCustomization struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}
