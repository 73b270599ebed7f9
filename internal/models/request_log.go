package models

import "time"

// RequestLog is the audit record of one attempted tool invocation.
// Exactly one row is written per invocation that reached the gateway call,
// whether or not the call succeeded. Append-only.
type RequestLog struct {
	ID               uint   `gorm:"primaryKey;autoIncrement"`
	UserID           string `gorm:"size:64;index;not null"`
	RequestPayload   string `gorm:"type:json"`
	ResponsePayload  string `gorm:"type:json"`
	ProcessingTimeMs *int
	ToolUsed         string `gorm:"size:32"`
	CreatedAt        time.Time
}

func (RequestLog) TableName() string { return "request_logs" }
