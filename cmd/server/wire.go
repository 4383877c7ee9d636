//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/rezkam/atlas/internal/application/auth"
	"github.com/rezkam/atlas/internal/application/catalog"
	"github.com/rezkam/atlas/internal/application/cycle"
	"github.com/rezkam/atlas/internal/application/drafting"
	"github.com/rezkam/atlas/internal/application/project"
	"github.com/rezkam/atlas/internal/application/task"
	"github.com/rezkam/atlas/internal/config"
	httpserver "github.com/rezkam/atlas/internal/infrastructure/http"
	"github.com/rezkam/atlas/internal/infrastructure/http/handler"
	"github.com/rezkam/atlas/internal/infrastructure/persistence/sqlstore"
)

// ConfigSet splits the server config into per-component sections.
var ConfigSet = wire.NewSet(
	wire.FieldsOf(new(*config.ServerConfig),
		"Database",
		"HTTP",
		"Auth",
		"Pagination",
		"Drafting",
		"Archive",
	),
)

// DatabaseSet provides the store. One *sqlstore.Store implements every repository.
var DatabaseSet = wire.NewSet(
	provideStore,
	wire.Bind(new(project.Repository), new(*sqlstore.Store)),
	wire.Bind(new(cycle.Repository), new(*sqlstore.Store)),
	wire.Bind(new(task.Repository), new(*sqlstore.Store)),
	wire.Bind(new(catalog.Repository), new(*sqlstore.Store)),
	wire.Bind(new(drafting.Repository), new(*sqlstore.Store)),
	wire.Bind(new(auth.Repository), new(*sqlstore.Store)),
)

// ServiceSet provides application services.
var ServiceSet = wire.NewSet(
	provideProjectConfig,
	project.NewService,
	provideReportSink,
	provideCycleService,
	provideTaskConfig,
	task.NewService,
	provideCatalog,
	provideGenerator,
	drafting.NewService,
	wire.Bind(new(drafting.TaskCreator), new(*task.Service)),
)

// AuthSet provides authentication components.
var AuthSet = wire.NewSet(
	provideAuthConfig,
	auth.NewAuthenticator,
)

// HTTPSet provides HTTP layer components.
var HTTPSet = wire.NewSet(
	handler.NewHandler,
	provideRoutes,
	provideAPIServerConfig,
	provideAPIServerWithCleanup,
)

// InitializeAPIServer wires everything together for the HTTP server.
func InitializeAPIServer(ctx context.Context, cfg *config.ServerConfig) (*httpserver.APIServer, func(), error) {
	wire.Build(
		ConfigSet,
		DatabaseSet,
		ServiceSet,
		AuthSet,
		HTTPSet,
	)
	return nil, nil, nil
}
