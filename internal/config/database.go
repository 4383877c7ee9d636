package config

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDSNRequired is returned when the database DSN is not configured.
	ErrDSNRequired = errors.New("ATLAS_DB_DSN is required")
	// ErrUnknownDriver is returned for an ATLAS_DB_DRIVER other than postgres or sqlite.
	ErrUnknownDriver = errors.New("unknown ATLAS_DB_DRIVER")
)

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Driver selects the backend: "postgres" or "sqlite".
	Driver string `env:"ATLAS_DB_DRIVER" default:"sqlite"`

	// DSN is a PostgreSQL connection string or a SQLite file path.
	DSN string `env:"ATLAS_DB_DSN" default:"atlas.db"`

	// Pool settings apply to PostgreSQL only (zero = use infrastructure defaults).
	MaxOpenConns    int           `env:"ATLAS_DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `env:"ATLAS_DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `env:"ATLAS_DB_CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `env:"ATLAS_DB_CONN_MAX_IDLE_TIME"`

	AutoMigrate bool `env:"ATLAS_DB_AUTO_MIGRATE" default:"true"`
}

// Validate validates the database configuration.
func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Driver)
	}
	if c.DSN == "" {
		return ErrDSNRequired
	}
	return nil
}
