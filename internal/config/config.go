// Package config loads process configuration from ATLAS_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/rezkam/atlas/internal/env"
)

// DefaultShutdownTimeout bounds graceful shutdown when ATLAS_SHUTDOWN_TIMEOUT is unset.
const DefaultShutdownTimeout = 10 * time.Second

// ServerConfig holds all configuration for the server binary.
type ServerConfig struct {
	Database        DatabaseConfig
	HTTP            HTTPConfig
	Auth            AuthConfig
	Pagination      PaginationConfig
	Observability   ObservabilityConfig
	Drafting        DraftingConfig
	Archive         ArchiveConfig
	ShutdownTimeout time.Duration `env:"ATLAS_SHUTDOWN_TIMEOUT" default:"10s"`
}

// ToolConfig is the subset used by atlasctl.
type ToolConfig struct {
	Database DatabaseConfig
	Archive  ArchiveConfig
}

// LoadServerConfig loads and validates server configuration from environment.
func LoadServerConfig() (*ServerConfig, error) {
	cfg := &ServerConfig{}

	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	return cfg, nil
}

// LoadToolConfig loads configuration for the admin CLI.
func LoadToolConfig() (*ToolConfig, error) {
	cfg := &ToolConfig{}

	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}
