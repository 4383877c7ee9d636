package config

import "time"

// HTTPConfig holds HTTP server configuration.
// Zero values fall back to the server's own defaults.
type HTTPConfig struct {
	Host              string        `env:"ATLAS_HTTP_HOST"`
	Port              string        `env:"ATLAS_HTTP_PORT" default:"8080"`
	ReadTimeout       time.Duration `env:"ATLAS_HTTP_READ_TIMEOUT"`
	WriteTimeout      time.Duration `env:"ATLAS_HTTP_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `env:"ATLAS_HTTP_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `env:"ATLAS_HTTP_READ_HEADER_TIMEOUT"`
	MaxHeaderBytes    int           `env:"ATLAS_HTTP_MAX_HEADER_BYTES"`
	MaxBodyBytes      int64         `env:"ATLAS_HTTP_MAX_BODY_BYTES"`

	TLSEnabled  bool   `env:"ATLAS_TLS_ENABLED"`
	TLSCertFile string `env:"ATLAS_TLS_CERT_FILE"`
	TLSKeyFile  string `env:"ATLAS_TLS_KEY_FILE"`
}

// AuthConfig holds authenticator configuration.
type AuthConfig struct {
	OperationTimeout time.Duration `env:"ATLAS_AUTH_OPERATION_TIMEOUT"`
	UpdateQueueSize  int           `env:"ATLAS_AUTH_UPDATE_QUEUE_SIZE"`
}

// PaginationConfig bounds list page sizes.
type PaginationConfig struct {
	DefaultPageSize int `env:"ATLAS_DEFAULT_PAGE_SIZE"`
	MaxPageSize     int `env:"ATLAS_MAX_PAGE_SIZE"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	OTelEnabled bool   `env:"ATLAS_OTEL_ENABLED"`
	ServiceName string `env:"OTEL_SERVICE_NAME" default:"atlas"`
}
