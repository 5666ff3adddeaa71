package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/elpasoverse/portal/internal/config"
	"github.com/elpasoverse/portal/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long:  `Create the portal tables if they do not exist. Safe to run repeatedly.`,
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	logger := newLogger(cfg)
	if !cfg.DatabaseConfigured() {
		return errors.New("no database configured: set DB_DRIVER=sqlite or the DB_HOST/DB_NAME variables")
	}
	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		return err
	}
	logger.Info("schema applied", "driver", cfg.DBDriver)
	return nil
}
