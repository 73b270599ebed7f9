package models

import "time"

// ContextLog is one stored turn of conversational context for a user.
//
// Entries are append-only; the most recent row by CreatedAt is the
// authoritative context for the next merge. The cache holds a TTL'd mirror
// of the same payload that expires independently.
type ContextLog struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	UserID      string    `gorm:"size:64;index;not null"`
	SessionID   string    `gorm:"size:64;not null"`
	ContextData string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"index"`
}

func (ContextLog) TableName() string { return "context_logs" }
