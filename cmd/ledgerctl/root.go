package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/infrastructure/config"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/infrastructure/logger"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Operator commands for the invoice ledger",
	Long: `ledgerctl talks to the ledger database directly using the same
configuration as the API server (config.toml plus LEDGER_* environment
variables). A .env file is loaded first when present.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before configuration")
	rootCmd.PersistentFlags().String("log-level", "", "override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("tenant", "", "tenant ID (defaults to ledger.default_tenant_id)")
}

// session bundles what every subcommand needs
type session struct {
	cfg *config.Config
	log *zap.Logger
	db  *persistence.Database
}

func (s *session) Close() {
	if err := s.db.Close(); err != nil {
		s.log.Warn("Error closing database", zap.Error(err))
	}
	_ = s.log.Sync()
}

// bootstrap loads configuration, builds the logger and opens the database
func bootstrap(cmd *cobra.Command) (*session, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}

	logCfg := logger.FromAppConfig(cfg.Log)
	logCfg.Output = "stderr"
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithGormLogger(logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))))
	if err != nil {
		_ = log.Sync()
		return nil, err
	}

	return &session{cfg: cfg, log: log, db: db}, nil
}

// tenantFlag returns --tenant, falling back to the configured default tenant
func tenantFlag(cmd *cobra.Command, cfg *config.Config) (uuid.UUID, error) {
	raw, _ := cmd.Flags().GetString("tenant")
	if raw == "" {
		return cfg.Ledger.DefaultTenant(), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --tenant %q: %w", raw, err)
	}
	return id, nil
}
