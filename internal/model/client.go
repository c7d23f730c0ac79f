package model

import "time"

// Client is a counseling client record. The engine only reads clients
// to validate consultation links and resolve display names; the client
// management screens own everything else.
type Client struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	ClientNo  string    `gorm:"size:32;uniqueIndex" json:"clientNo"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
