package models

import "time"

// APIKey grants a user permission to invoke tools through the gateway.
//
// A key is usable iff it has not expired and, when a usage limit is set,
// UsageCount is still below it. UsageCount only ever increments; keys are
// created and revoked out of band, never by the gateway core.
type APIKey struct {
	ID         uint       `gorm:"primaryKey;autoIncrement"`
	Key        string     `gorm:"column:api_key;size:64;uniqueIndex;not null"`
	UserID     string     `gorm:"size:64;index;not null"`
	ExpiresAt  *time.Time // nil = never expires
	UsageLimit *int       // nil = unlimited
	UsageCount int        `gorm:"default:0;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (APIKey) TableName() string { return "api_keys" }
