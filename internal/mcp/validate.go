package mcp

import (
	"context"
	"time"

	"github.com/athenahq/toolgate/internal/apperr"
	"github.com/athenahq/toolgate/internal/db"
	"github.com/athenahq/toolgate/internal/models"
)

// validateAPIKey loads the key record and enforces expiry and usage-limit
// invariants. Read-only: counting happens only after a successful call.
func (s *Service) validateAPIKey(ctx context.Context, apiKey string) (*models.APIKey, error) {
	rec, err := db.GetAPIKey(ctx, s.db, apiKey)
	if err != nil {
		return nil, apperr.Storage("validate api key", err)
	}
	if rec == nil {
		return nil, apperr.InvalidCredential("invalid API key")
	}
	if rec.ExpiresAt != nil && rec.ExpiresAt.Before(time.Now()) {
		return nil, apperr.CredentialExpired("API key expired").With("userId", rec.UserID)
	}
	if rec.UsageLimit != nil && rec.UsageCount >= *rec.UsageLimit {
		return nil, apperr.QuotaExceeded("API key usage limit exceeded").With("userId", rec.UserID)
	}
	return rec, nil
}
