package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rezkam/atlas/internal/application/auth"
	"github.com/rezkam/atlas/internal/application/catalog"
	"github.com/rezkam/atlas/internal/application/cycle"
	"github.com/rezkam/atlas/internal/application/drafting"
	"github.com/rezkam/atlas/internal/application/project"
	"github.com/rezkam/atlas/internal/application/task"
	"github.com/rezkam/atlas/internal/config"
	"github.com/rezkam/atlas/internal/infrastructure/archive/backend"
	"github.com/rezkam/atlas/internal/infrastructure/genai"
	httpserver "github.com/rezkam/atlas/internal/infrastructure/http"
	"github.com/rezkam/atlas/internal/infrastructure/http/handler"
	"github.com/rezkam/atlas/internal/infrastructure/observability"
	"github.com/rezkam/atlas/internal/infrastructure/persistence/sqlstore"
)

func provideStore(ctx context.Context, cfg config.DatabaseConfig) (*sqlstore.Store, error) {
	return sqlstore.Open(ctx, sqlstore.Config{
		Driver:          cfg.Driver,
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		AutoMigrate:     cfg.AutoMigrate,
	})
}

func provideProjectConfig(cfg config.PaginationConfig) project.Config {
	return project.Config{DefaultPageSize: cfg.DefaultPageSize, MaxPageSize: cfg.MaxPageSize}
}

func provideTaskConfig(cfg config.PaginationConfig) task.Config {
	return task.Config{DefaultPageSize: cfg.DefaultPageSize, MaxPageSize: cfg.MaxPageSize}
}

func provideAuthConfig(cfg config.AuthConfig) auth.Config {
	return auth.Config{OperationTimeout: cfg.OperationTimeout, UpdateQueueSize: cfg.UpdateQueueSize}
}

// provideReportSink counts completed cycles and, when an archive is
// configured, writes their reports to it.
func provideReportSink(ctx context.Context, cfg config.ArchiveConfig) (cycle.ReportSink, func(), error) {
	archive, closeArchive, err := backend.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := closeArchive(); err != nil {
			slog.Error("failed to close report archive", slog.String("error", err.Error()))
		}
	}

	var next cycle.ReportSink
	if archive != nil {
		next = archive
	}
	sink, err := observability.NewMeteredSink(next, nil)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to create cycle metrics: %w", err)
	}
	return sink, cleanup, nil
}

func provideCycleService(repo cycle.Repository, reports cycle.ReportSink) *cycle.Service {
	return cycle.NewService(repo, reports)
}

// provideCatalog seeds the built-in task types and templates into an empty catalog.
func provideCatalog(ctx context.Context, repo catalog.Repository) (*catalog.Service, error) {
	svc := catalog.NewService(repo)

	types, err := svc.TaskTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	if len(types) == 0 {
		summary, err := svc.Seed(ctx, catalog.DefaultFixture())
		if err != nil {
			return nil, fmt.Errorf("failed to seed catalog: %w", err)
		}
		slog.InfoContext(ctx, "seeded default catalog", "summary", summary)
	}
	return svc, nil
}

// provideGenerator uses Gemini when a key is configured and the offline
// heuristic otherwise.
func provideGenerator(cfg config.DraftingConfig) drafting.Generator {
	if !cfg.Online() {
		return genai.Heuristic{}
	}
	return genai.NewClient(genai.Config{
		APIKey:      cfg.GeminiAPIKey,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		Timeout:     cfg.Timeout,
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
	})
}

func provideRoutes(h *handler.Handler) http.Handler {
	return h.Routes()
}

// provideAPIServerConfig maps HTTP settings; /ready pings the database.
func provideAPIServerConfig(cfg config.HTTPConfig, store *sqlstore.Store) httpserver.ServerConfig {
	return httpserver.ServerConfig{
		Host:              cfg.Host,
		Port:              cfg.Port,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
		MaxBodyBytes:      cfg.MaxBodyBytes,
		TLSEnabled:        cfg.TLSEnabled,
		TLSCertFile:       cfg.TLSCertFile,
		TLSKeyFile:        cfg.TLSKeyFile,
		Ready:             store.DB().PingContext,
	}
}

// provideAPIServerWithCleanup constructs the server alongside the cleanup
// hook so Wire can inject both results without custom wiring in main().
func provideAPIServerWithCleanup(
	ctx context.Context,
	routes http.Handler,
	authenticator *auth.Authenticator,
	cfg httpserver.ServerConfig,
	store *sqlstore.Store,
) (*httpserver.APIServer, func(), error) {
	server := httpserver.NewAPIServer(routes, authenticator, cfg)
	return server, newCleanup(ctx,
		shutdownStep("authenticator", authenticator),
		closeStep("store", store),
	), nil
}
