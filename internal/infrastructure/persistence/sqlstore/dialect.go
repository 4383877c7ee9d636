package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/rezkam/atlas/internal/domain"
)

// Dialect isolates the SQL differences between the supported databases.
// Queries are written with ? placeholders and rebound per dialect.
type Dialect interface {
	// Name is the goose dialect name.
	Name() string

	// Rebind rewrites ? placeholders into the dialect's form.
	Rebind(query string) string

	// ForUpdate is appended to a SELECT that must lock its rows.
	ForUpdate() string

	// LockProject serializes lifecycle writes for one project within the
	// current transaction.
	LockProject(ctx context.Context, q querier, projectID string) error

	// Translate maps constraint violations to domain errors and returns
	// anything else unchanged.
	Translate(err error) error
}

// Postgres is the PostgreSQL dialect.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (Postgres) ForUpdate() string { return " FOR UPDATE" }

func (d Postgres) LockProject(ctx context.Context, q querier, projectID string) error {
	if _, err := q.ExecContext(ctx, d.Rebind("SELECT pg_advisory_xact_lock(hashtext(?))"), projectID); err != nil {
		return fmt.Errorf("failed to lock project: %w", err)
	}
	return nil
}

func (Postgres) Translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, pgErr.ConstraintName)
	case pgerrcode.ForeignKeyViolation:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, pgErr.ConstraintName)
	}
	return err
}

// SQLite is the SQLite dialect. Writers are serialized by the single
// connection and immediate transactions, so LockProject is a no-op.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite3" }

func (SQLite) Rebind(query string) string { return query }

func (SQLite) ForUpdate() string { return "" }

func (SQLite) LockProject(context.Context, querier, string) error { return nil }

func (SQLite) Translate(err error) error {
	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) {
		return err
	}
	switch sqlErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, sqlErr.Error())
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, sqlErr.Error())
	}
	return err
}
