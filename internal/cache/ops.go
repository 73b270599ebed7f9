package cache

import (
	"context"
	"encoding/json"
	"fmt"
)

// SetLastCommand records the most recent command name, with no expiry.
func SetLastCommand(ctx context.Context, s Store, name string) error {
	return s.Set(ctx, KeyLastCommand, name, 0)
}

// LastCommand returns the most recent command name, with ok=false when no
// command has run since the cache was last cleared.
func LastCommand(ctx context.Context, s Store) (string, bool, error) {
	return s.Get(ctx, KeyLastCommand)
}

// SetMCPConfig stores the JSON-serialized MCP config blob.
func SetMCPConfig(ctx context.Context, s Store, cfg any) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cache: marshal mcp config: %w", err)
	}
	return s.Set(ctx, KeyMCPConfig, string(data), 0)
}

// MCPConfig decodes the cached MCP config blob into out, reporting ok=false
// when nothing is cached.
func MCPConfig(ctx context.Context, s Store, out any) (bool, error) {
	data, ok, err := s.Get(ctx, KeyMCPConfig)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return false, fmt.Errorf("cache: unmarshal mcp config: %w", err)
	}
	return true, nil
}
