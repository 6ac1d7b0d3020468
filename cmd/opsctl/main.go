// Command opsctl runs StaffHub operational tasks against the configured
// database: schema migrations, bulk imports, GDPR requests, dev seeding
// and dev tokens.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgo/staffhub/internal/config"
	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/repository"
	"github.com/forgo/staffhub/internal/service"
)

// cliActor is recorded as the actor on audit entries written by opsctl
const cliActor = "opsctl"

var (
	// Global flags
	configFile string
	timeout    time.Duration
	verbose    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "opsctl",
	Short: "StaffHub operations tool",
	Long: `opsctl runs operational tasks against the StaffHub database.

It reads the same environment (and optional CONFIG_FILE) as the API server.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (overrides CONFIG_FILE)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Operation timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
	gdprCmd.AddCommand(gdprDiscoverCmd, gdprExportCmd, gdprAnonymizeCmd)

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(gdprCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runtime holds what every database-backed command needs
type runtime struct {
	cfg    *config.Config
	db     database.Database
	logger *slog.Logger
	audit  *service.AuditService
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		if err := os.Setenv("CONFIG_FILE", configFile); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// connect loads configuration and opens the database. Callers must call close.
func connect(ctx context.Context) (*runtime, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger()

	db := database.NewSurrealDB(database.Config{
		Host:      cfg.Database.Host,
		Port:      cfg.Database.Port,
		User:      cfg.Database.User,
		Password:  cfg.Database.Password,
		Namespace: cfg.Database.Namespace,
		Database:  cfg.Database.Database,
		SlowQuery: cfg.Database.SlowQuery,
		Logger:    logger,
	})
	if err := db.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Debug("connected to database", "host", cfg.Database.Host, "database", cfg.Database.Database)

	rt := &runtime{
		cfg:    cfg,
		db:     db,
		logger: logger,
		audit: service.NewAuditService(service.AuditServiceConfig{
			Repo:   repository.NewAuditRepository(db),
			Logger: logger,
		}),
	}
	return rt, func() { _ = db.Close() }, nil
}

// commandContext bounds a command by the --timeout flag
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, timeout)
}
