// Package mcp implements the command dispatch core of the gateway: API-key
// validation, context lifecycle, tool invocation, request logging, and
// best-effort usage accounting.
package mcp

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/athenahq/toolgate/internal/apperr"
	"github.com/athenahq/toolgate/internal/cache"
	"github.com/athenahq/toolgate/internal/convo"
	"github.com/athenahq/toolgate/internal/tools"
	"gorm.io/gorm"
)

// Tool names accepted by Execute. The original command aliases are also
// accepted for compatibility with older clients.
const (
	ToolAthena = "Athena"
	ToolMoad   = "Moad"

	aliasAskAthena    = "askAthena"
	aliasGenerateDocs = "generateDocs"
)

// Invoker is the tool-gateway contract the dispatcher depends on.
// *tools.Client is the production implementation.
type Invoker interface {
	Ask(ctx context.Context, prompt string, options map[string]any) (*tools.Result, error)
	Ingest(ctx context.Context, up tools.Upload) (*tools.Result, error)
	GenerateDocs(ctx context.Context, projectPath, outputPath string) (*tools.Result, error)
}

// Service orchestrates command execution over the durable store, the cache,
// the context manager, and the tool gateway. It owns no persistent state of
// its own; all clients are injected and shared process-wide.
type Service struct {
	db      *gorm.DB
	cache   cache.Store
	convo   *convo.Manager
	tools   Invoker
	started time.Time

	mu          sync.Mutex
	initialized bool
	shutdown    bool
}

// ServiceOpts holds parameters for creating a Service.
type ServiceOpts struct {
	DB    *gorm.DB
	Cache cache.Store
	Convo *convo.Manager
	Tools Invoker
}

// NewService creates the dispatch Service.
func NewService(opts ServiceOpts) (*Service, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("mcp: db is required")
	}
	if opts.Cache == nil {
		return nil, fmt.Errorf("mcp: cache is required")
	}
	if opts.Convo == nil {
		return nil, fmt.Errorf("mcp: context manager is required")
	}
	if opts.Tools == nil {
		return nil, fmt.Errorf("mcp: tool gateway is required")
	}
	return &Service{
		db:      opts.DB,
		cache:   opts.Cache,
		convo:   opts.Convo,
		tools:   opts.Tools,
		started: time.Now(),
	}, nil
}

// Initialize verifies the store and cache connections. Calling it again
// after a successful run is a no-op.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return apperr.Storage("initialize: durable store handle", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return apperr.Storage("initialize: ping durable store", err)
	}
	if err := s.cache.Ping(ctx); err != nil {
		return apperr.Storage("initialize: ping cache", err)
	}

	// Publish the command catalog so out-of-process readers see the same
	// capabilities as GET /mcp/commands. Best-effort.
	if err := cache.SetMCPConfig(ctx, s.cache, s.ListCommands()); err != nil {
		log.Printf("mcp: cache command catalog failed: %v", err)
	}

	s.initialized = true
	return nil
}

// Status is the coarse health snapshot returned by GetStatus.
type Status struct {
	UptimeSeconds int64  `json:"uptimeSeconds"`
	Status        string `json:"status"`
	LastCommand   string `json:"lastCommand"`
}

// GetStatus reports uptime and the last command run, defaulting to "none"
// when no command has executed since the cache was cleared.
func (s *Service) GetStatus(ctx context.Context) (*Status, error) {
	last, ok, err := cache.LastCommand(ctx, s.cache)
	if err != nil {
		return nil, apperr.Storage("get status: read last command", err)
	}
	if !ok || last == "" {
		last = "none"
	}
	return &Status{
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Status:        "running",
		LastCommand:   last,
	}, nil
}

// CommandInfo describes one supported tool in the static catalog.
type CommandInfo struct {
	Command     string   `json:"command"`
	Description string   `json:"description"`
	Params      []string `json:"params"`
}

// ListCommands returns the static catalog of supported tools.
func (s *Service) ListCommands() []CommandInfo {
	return []CommandInfo{
		{
			Command:     ToolMoad,
			Description: "Generate documentation for project source code",
			Params:      []string{"projectPath", "outputPath", "outputDir"},
		},
		{
			Command:     ToolAthena,
			Description: "Send prompt to Athena model and get response",
			Params:      []string{"prompt", "options", "upload"},
		},
	}
}

// ShutdownResult confirms a completed shutdown.
type ShutdownResult struct {
	Shutdown  bool  `json:"shutdown"`
	Timestamp int64 `json:"timestamp"`
}

// Shutdown releases the cache connection. Idempotent: calling it when
// already shut down returns a fresh confirmation without error.
func (s *Service) Shutdown(ctx context.Context) (*ShutdownResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.shutdown {
		if err := s.cache.Close(); err != nil {
			return nil, apperr.Storage("shutdown: close cache", err)
		}
		s.shutdown = true
	}
	return &ShutdownResult{Shutdown: true, Timestamp: time.Now().UnixMilli()}, nil
}
