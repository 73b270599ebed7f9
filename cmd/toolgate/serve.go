package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/athenahq/toolgate/internal/cache"
	"github.com/athenahq/toolgate/internal/config"
	"github.com/athenahq/toolgate/internal/convo"
	"github.com/athenahq/toolgate/internal/db"
	"github.com/athenahq/toolgate/internal/mcp"
	"github.com/athenahq/toolgate/internal/server"
	"github.com/athenahq/toolgate/internal/tools"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway HTTP server",
		Long:  "Connects to MySQL and Redis, wires up the tool gateway, and serves the dispatcher API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "toolgate.yaml", "path to gateway config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port <= 0 {
		port = cfg.Server.Port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	gormDB, err := db.Connect(cfg.MySQL)
	if err != nil {
		return err
	}

	cacheStore, err := cache.Dial(ctx, cfg.Redis.URL)
	if err != nil {
		return err
	}

	toolClient, err := tools.NewClient(tools.ClientOpts{
		Athena: cfg.Athena,
		Moad:   cfg.Moad,
	})
	if err != nil {
		return err
	}

	manager, err := convo.NewManager(convo.ManagerOpts{
		DB:         gormDB,
		Cache:      cacheStore,
		TTLSeconds: cfg.Context.TTLSeconds,
		MaxLength:  cfg.Context.MaxLength,
	})
	if err != nil {
		return err
	}

	svc, err := mcp.NewService(mcp.ServiceOpts{
		DB:    gormDB,
		Cache: cacheStore,
		Convo: manager,
		Tools: toolClient,
	})
	if err != nil {
		return err
	}
	if err := svc.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer svc.Shutdown(context.Background())

	fmt.Fprintf(out, "Connected to MySQL at %s:%d/%s and Redis\n",
		cfg.MySQL.Host, cfg.MySQL.Port, cfg.MySQL.Database)

	return server.Start(ctx, server.StartOpts{
		DB:         gormDB,
		Service:    svc,
		Port:       port,
		Production: cfg.Production(),
		Retention:  cfg.Retention,
		Out:        out,
	})
}
