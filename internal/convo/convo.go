// Package convo manages per-user conversational context: merge of new turns,
// deterministic truncation, and persistence across the durable store and the
// cache. MySQL is authoritative; the cache is a TTL'd write-through mirror.
package convo

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/athenahq/toolgate/internal/cache"
	"github.com/athenahq/toolgate/internal/db"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TruncationMarker joins the head and tail of an over-long context.
const TruncationMarker = "\n... [truncated] ...\n"

// Default bounds for stored context.
const (
	DefaultMaxLength = 500
	DefaultTTL       = 3600 * time.Second
)

// Manager reads and writes conversational context for users.
type Manager struct {
	db        *gorm.DB
	cache     cache.Store
	ttl       time.Duration
	maxLength int
}

// ManagerOpts holds parameters for creating a Manager.
type ManagerOpts struct {
	DB         *gorm.DB
	Cache      cache.Store
	TTLSeconds int // defaults to 3600
	MaxLength  int // defaults to DefaultMaxLength
}

// NewManager creates a context Manager.
func NewManager(opts ManagerOpts) (*Manager, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("convo: db is required")
	}
	if opts.Cache == nil {
		return nil, fmt.Errorf("convo: cache is required")
	}
	ttl := DefaultTTL
	if opts.TTLSeconds > 0 {
		ttl = time.Duration(opts.TTLSeconds) * time.Second
	}
	maxLength := opts.MaxLength
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Manager{db: opts.DB, cache: opts.Cache, ttl: ttl, maxLength: maxLength}, nil
}

// Merge appends a new turn to the existing context. With no existing context
// the result is just the new turn.
func Merge(existing, prompt, response string) string {
	turn := "User: " + prompt + "\nAthena: " + response
	if existing == "" {
		return turn
	}
	return existing + "\n" + turn
}

// Truncate bounds context to roughly maxLength characters, keeping the first
// and last 40% joined by TruncationMarker. Inputs at or under maxLength pass
// through unchanged, which also makes the operation idempotent: a truncated
// string is always shorter than maxLength and survives a second pass intact.
func Truncate(text string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	keep := maxLength * 40 / 100
	return string(runes[:keep]) + TruncationMarker + string(runes[len(runes)-keep:])
}

// GetContext returns the user's most recent context, or empty string when
// none exists. The cache is consulted first; a cache miss or failure falls
// back to the durable store.
func (m *Manager) GetContext(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("convo: user id is required")
	}

	if data, ok, err := m.cache.Get(ctx, cache.ContextKey(userID)); err != nil {
		// Degraded cache is not fatal; the durable store still has the truth.
		log.Printf("convo: cache read for %s failed: %v", userID, err)
	} else if ok {
		return decodePayload(data), nil
	}

	payload, ok, err := db.LatestContextLog(ctx, m.db, userID)
	if err != nil {
		return "", fmt.Errorf("convo: load context for %s: %w", userID, err)
	}
	if !ok {
		return "", nil
	}
	return decodePayload(payload), nil
}

// SaveContext truncates and persists the merged context under a fresh
// session id, appending to the durable log and mirroring into the cache with
// the configured TTL. The cache write is best-effort. Returns the session id.
func (m *Manager) SaveContext(ctx context.Context, userID, merged string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("convo: user id is required")
	}

	truncated := Truncate(merged, m.maxLength)
	payload, err := json.Marshal(truncated)
	if err != nil {
		return "", fmt.Errorf("convo: encode context: %w", err)
	}

	sessionID := uuid.NewString()
	if _, err := db.InsertContextLog(ctx, m.db, userID, sessionID, string(payload)); err != nil {
		return "", fmt.Errorf("convo: save context for %s: %w", userID, err)
	}

	if err := m.cache.Set(ctx, cache.ContextKey(userID), string(payload), m.ttl); err != nil {
		log.Printf("convo: cache write for %s failed: %v", userID, err)
	}
	return sessionID, nil
}

// decodePayload unwraps a JSON-encoded context string. Older rows stored the
// raw string without encoding; those pass through as-is.
func decodePayload(data string) string {
	var s string
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return data
	}
	return s
}
