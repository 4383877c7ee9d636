package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rezkam/atlas/internal/config"
	"github.com/rezkam/atlas/internal/infrastructure/persistence/sqlstore"
)

// Version is set at build time.
var Version = "dev"

type globalFlags struct {
	driver string
	dsn    string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "atlasctl",
		Short:         "Administer an Atlas deployment",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.driver, "db-driver", "", "database driver, postgres or sqlite (overrides ATLAS_DB_DRIVER)")
	root.PersistentFlags().StringVar(&flags.dsn, "db-dsn", "", "database DSN or SQLite path (overrides ATLAS_DB_DSN)")

	root.AddCommand(
		migrateCmd(flags),
		apikeyCmd(flags),
		seedCmd(flags),
		metricsCmd(flags),
		reportsCmd(),
	)
	return root
}

// loadConfig reads ATLAS_* settings and applies flag overrides.
func (f *globalFlags) loadConfig() (*config.ToolConfig, error) {
	cfg, err := config.LoadToolConfig()
	if err != nil {
		return nil, err
	}
	if f.driver != "" {
		cfg.Database.Driver = f.driver
	}
	if f.dsn != "" {
		cfg.Database.DSN = f.dsn
	}
	if err := cfg.Database.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore connects to the configured database. autoMigrate applies
// pending migrations first.
func (f *globalFlags) openStore(ctx context.Context, autoMigrate bool) (*sqlstore.Store, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		AutoMigrate:     autoMigrate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return store, nil
}
