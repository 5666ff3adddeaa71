// Command portal runs the El Paso Verse community portal backend.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/elpasoverse/portal/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "portal",
	Short: "El Paso Verse community portal backend",
	Long: `portal serves the member API of El Paso Verse: signup with fraud checks,
the PASO credit ledger, land votes, film ideas and wallet lookups.

Configuration comes from the environment and an optional .env file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger returns a JSON logger in production and text elsewhere, unless
// LOG_FORMAT says otherwise.
func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	if !cfg.IsProd() {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" || (cfg.IsProd() && cfg.LogFormat != "text") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
