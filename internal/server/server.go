// Package server exposes the dispatcher over a thin gin HTTP surface.
// Authentication headers are passed through to the core; everything else
// (routing, response shaping) stays here.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/athenahq/toolgate/internal/config"
	"github.com/athenahq/toolgate/internal/mcp"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// StartOpts holds configuration for the gateway HTTP server.
type StartOpts struct {
	DB         *gorm.DB
	Service    *mcp.Service
	Port       int
	Production bool
	Retention  config.RetentionConfig
	Out        io.Writer
}

// Start launches the gateway HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Service == nil {
		return fmt.Errorf("server: service is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	registerRoutes(router, opts.Service, opts.Production)

	// Optional operator retention sweep for request logs.
	if opts.Retention.Schedule != "" && opts.DB != nil {
		go runRetentionSweep(ctx, opts.DB, opts.Retention, opts.Out)
	}

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Gateway listening on http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
