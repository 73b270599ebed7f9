package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/athenahq/toolgate/internal/models"
	"gorm.io/gorm"
)

// GetAPIKey fetches the API-key record matching key, or nil if none exists.
func GetAPIKey(ctx context.Context, db *gorm.DB, key string) (*models.APIKey, error) {
	var rec models.APIKey
	err := db.WithContext(ctx).Where("api_key = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db: get api key: %w", err)
	}
	return &rec, nil
}

// IncrementUsageCount bumps the usage counter for key by one. The update is
// a single SQL statement so concurrent increments don't lose counts.
func IncrementUsageCount(ctx context.Context, db *gorm.DB, key string) error {
	err := db.WithContext(ctx).Model(&models.APIKey{}).
		Where("api_key = ?", key).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error
	if err != nil {
		return fmt.Errorf("db: increment usage count: %w", err)
	}
	return nil
}

// InsertContextLog appends a context entry for userID and returns its row ID.
func InsertContextLog(ctx context.Context, db *gorm.DB, userID, sessionID, payload string) (uint, error) {
	entry := models.ContextLog{
		UserID:      userID,
		SessionID:   sessionID,
		ContextData: payload,
	}
	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		return 0, fmt.Errorf("db: insert context log: %w", err)
	}
	return entry.ID, nil
}

// LatestContextLog returns the most recent context payload for userID, or
// empty string with ok=false when the user has no stored context.
func LatestContextLog(ctx context.Context, db *gorm.DB, userID string) (string, bool, error) {
	var entry models.ContextLog
	err := db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("db: latest context log: %w", err)
	}
	return entry.ContextData, true, nil
}

// InsertRequestLog appends a request audit record and returns its row ID.
func InsertRequestLog(ctx context.Context, db *gorm.DB, entry *models.RequestLog) (uint, error) {
	if err := db.WithContext(ctx).Create(entry).Error; err != nil {
		return 0, fmt.Errorf("db: insert request log: %w", err)
	}
	return entry.ID, nil
}

// RequestLogsByUser returns all request logs for userID, newest first.
func RequestLogsByUser(ctx context.Context, db *gorm.DB, userID string) ([]models.RequestLog, error) {
	var logs []models.RequestLog
	err := db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("db: request logs for %s: %w", userID, err)
	}
	return logs, nil
}

// PurgeRequestLogsBefore deletes request logs older than cutoff and returns
// the number of rows removed. Used only by the operator retention sweep.
func PurgeRequestLogsBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.RequestLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("db: purge request logs: %w", res.Error)
	}
	return res.RowsAffected, nil
}
