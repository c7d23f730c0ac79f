package model

import "time"

// Session is a counseling session record linked to a consultation
// event. The session edit screens own its content; the engine only
// finalizes it when the linked event completes, or creates a skeleton
// from a completed event.
type Session struct {
	ID              int64     `gorm:"primaryKey" json:"id"`
	ClientID        int64     `gorm:"index;not null" json:"clientId"`
	EventID         *int64    `gorm:"index" json:"eventId,omitempty"`
	StartAt         time.Time `gorm:"not null" json:"startTime"`
	DurationMinutes int       `gorm:"not null" json:"duration"`
	Summary         string    `gorm:"size:2048" json:"summary,omitempty"`
	Finalized       bool      `gorm:"not null;default:false" json:"finalized"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
