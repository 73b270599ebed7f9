package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/athenahq/toolgate/internal/config"
	"github.com/athenahq/toolgate/internal/db"
	"github.com/athenahq/toolgate/internal/models"
	"github.com/spf13/cobra"
)

// API keys are provisioned out of band from the dispatcher; this is the
// operator tooling that does it.
func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "API key management commands",
	}

	cmd.AddCommand(newKeysCreateCmd())
	cmd.AddCommand(newKeysListCmd())
	return cmd
}

func newKeysCreateCmd() *cobra.Command {
	var (
		configPath string
		userID     string
		limit      int
		expires    string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeysCreate(cmd, configPath, userID, limit, expires)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "toolgate.yaml", "path to gateway config file")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id the key belongs to (required)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "usage limit (0 = unlimited)")
	cmd.Flags().StringVarP(&expires, "expires", "e", "", "expiry date YYYY-MM-DD (empty = never)")
	cmd.MarkFlagRequired("user")
	return cmd
}

func runKeysCreate(cmd *cobra.Command, configPath, userID string, limit int, expires string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gormDB, err := db.Connect(cfg.MySQL)
	if err != nil {
		return err
	}

	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	rec := models.APIKey{
		Key:    "tg_" + hex.EncodeToString(raw),
		UserID: userID,
	}
	if limit > 0 {
		rec.UsageLimit = &limit
	}
	if expires != "" {
		t, err := time.Parse("2006-01-02", expires)
		if err != nil {
			return fmt.Errorf("parse --expires %q: %w", expires, err)
		}
		rec.ExpiresAt = &t
	}

	if err := gormDB.Create(&rec).Error; err != nil {
		return fmt.Errorf("create api key: %w", err)
	}

	fmt.Fprintf(out, "Created API key for user %s:\n\n  %s\n\n", userID, rec.Key)
	if rec.UsageLimit != nil {
		fmt.Fprintf(out, "Usage limit: %d\n", *rec.UsageLimit)
	}
	if rec.ExpiresAt != nil {
		fmt.Fprintf(out, "Expires: %s\n", rec.ExpiresAt.Format("2006-01-02"))
	}
	return nil
}

func newKeysListCmd() *cobra.Command {
	var (
		configPath string
		userID     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeysList(cmd, configPath, userID)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "toolgate.yaml", "path to gateway config file")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "filter by user id")
	return cmd
}

func runKeysList(cmd *cobra.Command, configPath, userID string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gormDB, err := db.Connect(cfg.MySQL)
	if err != nil {
		return err
	}

	query := gormDB.Order("created_at ASC")
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	var keys []models.APIKey
	if err := query.Find(&keys).Error; err != nil {
		return fmt.Errorf("list api keys: %w", err)
	}

	if len(keys) == 0 {
		fmt.Fprintln(out, "No API keys found.")
		return nil
	}
	for _, k := range keys {
		limit := "unlimited"
		if k.UsageLimit != nil {
			limit = fmt.Sprintf("%d/%d", k.UsageCount, *k.UsageLimit)
		}
		expiry := "never"
		if k.ExpiresAt != nil {
			expiry = k.ExpiresAt.Format("2006-01-02")
		}
		fmt.Fprintf(out, "%s  user=%s  usage=%s  expires=%s\n", k.Key, k.UserID, limit, expiry)
	}
	return nil
}
