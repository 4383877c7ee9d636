// Package sqlstore implements every application repository over database/sql.
//
// One Store serves PostgreSQL (through pgx) and SQLite (through modernc);
// the differences are confined to a Dialect. Visibility predicates from the
// access package are rendered to SQL here.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/rezkam/atlas/internal/application/auth"
	"github.com/rezkam/atlas/internal/application/catalog"
	"github.com/rezkam/atlas/internal/application/cycle"
	"github.com/rezkam/atlas/internal/application/drafting"
	"github.com/rezkam/atlas/internal/application/project"
	"github.com/rezkam/atlas/internal/application/task"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements the application repositories.
type Store struct {
	db      *sql.DB
	q       querier
	dialect Dialect
	inTx    bool
	onClose []func()
}

// Compile-time verification that Store implements all repository interfaces.
var (
	_ auth.Repository     = (*Store)(nil)
	_ catalog.Repository  = (*Store)(nil)
	_ cycle.Repository    = (*Store)(nil)
	_ drafting.Repository = (*Store)(nil)
	_ project.Repository  = (*Store)(nil)
	_ task.Repository     = (*Store)(nil)
)

// NewStore wraps an open database. Callers normally use Open.
func NewStore(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, q: db, dialect: dialect}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the store's SQL dialect.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database and any pool behind it.
func (s *Store) Close() error {
	err := s.db.Close()
	for _, fn := range s.onClose {
		fn()
	}
	return err
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := s.q.ExecContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, s.dialect.Translate(err)
	}
	return res, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.q.QueryContext(ctx, s.dialect.Rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.q.QueryRowContext(ctx, s.dialect.Rebind(query), args...)
}

// finalizeTx rolls back on error and commits otherwise.
// Panics are handled by the caller before finalizeTx runs.
func finalizeTx(ctx context.Context, tx *sql.Tx, err *error) {
	if *err != nil {
		slog.DebugContext(ctx, "transaction failed, rolling back", "error", *err)
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "rollback failed",
				"original_error", *err,
				"rollback_error", rbErr)
			*err = fmt.Errorf("transaction failed: %w (rollback error: %v)", *err, rbErr)
		}
		return
	}
	if *err = tx.Commit(); *err != nil {
		slog.ErrorContext(ctx, "transaction commit failed", "error", *err)
	}
}

// executeInTransaction runs fn against a store bound to a new transaction,
// with logging and panic recovery. A store already inside a transaction
// runs fn directly so nested Atomic calls share the outer transaction.
func (s *Store) executeInTransaction(ctx context.Context, operationName string, fn func(txStore *Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	start := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		slog.ErrorContext(ctx, "failed to begin transaction",
			"operation", operationName,
			"error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			slog.ErrorContext(ctx, "transaction panic, rolling back",
				"operation", operationName,
				"panic", p)
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.ErrorContext(ctx, "rollback after panic failed",
					"operation", operationName,
					"rollback_error", rbErr)
			}
			panic(p)
		}

		finalizeTx(ctx, tx, &err)
		if err == nil {
			slog.DebugContext(ctx, "transaction completed",
				"operation", operationName,
				"duration_ms", time.Since(start).Milliseconds())
		}
	}()

	err = fn(&Store{db: s.db, q: tx, dialect: s.dialect, inTx: true})
	return
}

// AtomicCycle runs fn with cycle operations in one transaction.
func (s *Store) AtomicCycle(ctx context.Context, fn func(repo cycle.Repository) error) error {
	return s.executeInTransaction(ctx, "atomic_cycle", func(txStore *Store) error {
		return fn(txStore)
	})
}

// AtomicTask runs fn with task operations in one transaction.
func (s *Store) AtomicTask(ctx context.Context, fn func(repo task.Repository) error) error {
	return s.executeInTransaction(ctx, "atomic_task", func(txStore *Store) error {
		return fn(txStore)
	})
}

// AtomicProject runs fn with project operations in one transaction.
func (s *Store) AtomicProject(ctx context.Context, fn func(repo project.Repository) error) error {
	return s.executeInTransaction(ctx, "atomic_project", func(txStore *Store) error {
		return fn(txStore)
	})
}

// AtomicCatalog runs fn with catalog operations in one transaction.
func (s *Store) AtomicCatalog(ctx context.Context, fn func(repo catalog.Repository) error) error {
	return s.executeInTransaction(ctx, "atomic_catalog", func(txStore *Store) error {
		return fn(txStore)
	})
}

// AtomicDrafting runs fn with drafting operations in one transaction.
func (s *Store) AtomicDrafting(ctx context.Context, fn func(repo drafting.Repository) error) error {
	return s.executeInTransaction(ctx, "atomic_drafting", func(txStore *Store) error {
		return fn(txStore)
	})
}
