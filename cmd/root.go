package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/ecoloop/internal/app"
	"github.com/abhisek/ecoloop/internal/config"
	"github.com/abhisek/ecoloop/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "ecoloop",
	Short: "Level progression service for the EcoLoop learning map",
	Long: "EcoLoop tracks each learner's path across the eco map: lesson videos, " +
		"quizzes, unlocks and rewards.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides ECOLOOP_DB env var)")
	rootCmd.PersistentFlags().String("levels", "", "Path to a YAML level catalog (overrides ECOLOOP_LEVELS_FILE env var)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(levelsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(attemptCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DB = p
	}
	if p, _ := cmd.Flags().GetString("levels"); p != "" {
		cfg.LevelsFile = p
	}
	return cfg, nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then ECOLOOP_DB env var, then the default XDG path.
func resolveDBPath(cfg config.Config) (string, error) {
	if cfg.DB != "" {
		return cfg.DB, store.EnsureDir(cfg.DB)
	}
	return store.DefaultDBPath()
}

// openApp loads configuration, installs the logger as the slog default and
// wires the application.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return app.Open(ctx, app.Options{Config: cfg, DBPath: dbPath, Logger: logger})
}
