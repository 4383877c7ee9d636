package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rezkam/atlas/internal/access"
	"github.com/rezkam/atlas/internal/domain"
)

const cycleColumns = `cycles.id, cycles.project_id, cycles.name, cycles.sequence, cycles.status,
	cycles.start_date, cycles.end_date, cycles.actual_end_date, cycles.created_at, cycles.updated_at`

func scanCycle(row rowScanner) (*domain.Cycle, error) {
	var (
		c                     domain.Cycle
		status                string
		start, end, actualEnd sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.ProjectID, &c.Name, &c.Sequence, &status,
		&start, &end, &actualEnd, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Status = domain.CycleStatus(status)
	c.StartDate = datePtr(start)
	c.EndDate = datePtr(end)
	c.ActualEndDate = datePtr(actualEnd)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func (s *Store) scanCycles(rows *sql.Rows) ([]domain.Cycle, error) {
	defer rows.Close()
	var cycles []domain.Cycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		cycles = append(cycles, *c)
	}
	return cycles, rows.Err()
}

// CreateCycle inserts a cycle.
func (s *Store) CreateCycle(ctx context.Context, c *domain.Cycle) error {
	if err := checkID(c.ID); err != nil {
		return err
	}
	_, err := s.exec(ctx, `INSERT INTO cycles (id, project_id, name, sequence, status,
		start_date, end_date, actual_end_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ProjectID, c.Name, c.Sequence, string(c.Status),
		nullDate(c.StartDate), nullDate(c.EndDate), nullDate(c.ActualEndDate),
		c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert cycle: %w", err)
	}
	return nil
}

func (s *Store) findCycle(ctx context.Context, scope access.Expr, id, suffix string) (*domain.Cycle, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	where, args, err := renderPredicate(access.ByID(scope, access.CycleID, id))
	if err != nil {
		return nil, err
	}

	c, err := scanCycle(s.queryRow(ctx, `SELECT `+cycleColumns+` FROM cycles WHERE `+where+suffix, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCycleNotFound, id)
		}
		return nil, fmt.Errorf("failed to get cycle: %w", err)
	}
	return c, nil
}

// FindCycleByID retrieves a cycle without visibility checks.
func (s *Store) FindCycleByID(ctx context.Context, id string) (*domain.Cycle, error) {
	return s.findCycle(ctx, access.True, id, "")
}

// FindCycleForUpdate retrieves a cycle and locks its row until the transaction ends.
func (s *Store) FindCycleForUpdate(ctx context.Context, id string) (*domain.Cycle, error) {
	return s.findCycle(ctx, access.True, id, s.dialect.ForUpdate())
}

// FindVisibleCycle retrieves a cycle if scope admits it.
func (s *Store) FindVisibleCycle(ctx context.Context, scope access.Expr, id string) (*domain.Cycle, error) {
	return s.findCycle(ctx, scope, id, "")
}

// ListCycles returns the visible cycles of a project ordered by sequence.
func (s *Store) ListCycles(ctx context.Context, scope access.Expr, projectID string) ([]domain.Cycle, error) {
	where, args, err := renderPredicate(access.AllOf(scope, access.Eq{Field: access.CycleProject, Value: projectID}))
	if err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, `SELECT `+cycleColumns+` FROM cycles WHERE `+where+` ORDER BY cycles.sequence`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cycles: %w", err)
	}
	return s.scanCycles(rows)
}

// FindActiveCycle returns the Active cycle of a project other than excludeID, or nil.
func (s *Store) FindActiveCycle(ctx context.Context, projectID, excludeID string) (*domain.Cycle, error) {
	c, err := scanCycle(s.queryRow(ctx, `SELECT `+cycleColumns+` FROM cycles
		WHERE project_id = ? AND status = ? AND id <> ?
		ORDER BY sequence LIMIT 1`, projectID, string(domain.CycleStatusActive), excludeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active cycle: %w", err)
	}
	return c, nil
}

// FindLatestCycle returns the project's cycle with the highest sequence, or nil.
func (s *Store) FindLatestCycle(ctx context.Context, projectID string) (*domain.Cycle, error) {
	c, err := scanCycle(s.queryRow(ctx, `SELECT `+cycleColumns+` FROM cycles
		WHERE project_id = ? ORDER BY sequence DESC LIMIT 1`, projectID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find latest cycle: %w", err)
	}
	return c, nil
}

// UpdateCycle persists name, status and dates.
func (s *Store) UpdateCycle(ctx context.Context, c *domain.Cycle) error {
	res, err := s.exec(ctx, `UPDATE cycles SET name = ?, status = ?, start_date = ?, end_date = ?,
		actual_end_date = ?, updated_at = ? WHERE id = ?`,
		c.Name, string(c.Status), nullDate(c.StartDate), nullDate(c.EndDate),
		nullDate(c.ActualEndDate), c.UpdatedAt.UTC(), c.ID)
	if err != nil {
		return fmt.Errorf("failed to update cycle: %w", err)
	}
	return checkRowsAffected(res, domain.ErrCycleNotFound, "cycle", c.ID)
}

// DeleteCycle detaches the cycle's tasks and removes it.
func (s *Store) DeleteCycle(ctx context.Context, id string) error {
	if _, err := s.exec(ctx, `UPDATE tasks SET cycle_id = NULL WHERE cycle_id = ?`, id); err != nil {
		return fmt.Errorf("failed to detach cycle tasks: %w", err)
	}
	if _, err := s.exec(ctx, `UPDATE draft_sessions SET cycle_id = NULL WHERE cycle_id = ?`, id); err != nil {
		return fmt.Errorf("failed to detach draft sessions: %w", err)
	}
	res, err := s.exec(ctx, `DELETE FROM cycles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete cycle: %w", err)
	}
	return checkRowsAffected(res, domain.ErrCycleNotFound, "cycle", id)
}

func unfinishedArgs() []any {
	args := make([]any, len(domain.UnfinishedTaskStatuses))
	for i, st := range domain.UnfinishedTaskStatuses {
		args[i] = string(st)
	}
	return args
}

// CountUnfinishedTasks counts tasks of a cycle in Open, Working or Pending Review.
func (s *Store) CountUnfinishedTasks(ctx context.Context, cycleID string) (int, error) {
	var n int
	args := append([]any{cycleID}, unfinishedArgs()...)
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE cycle_id = ? AND status IN (`+
		placeholders(len(domain.UnfinishedTaskStatuses))+`)`, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unfinished tasks: %w", err)
	}
	return n, nil
}

// MoveUnfinishedTasks reassigns unfinished tasks of one cycle to another.
func (s *Store) MoveUnfinishedTasks(ctx context.Context, fromCycleID, toCycleID string) (int, error) {
	args := append([]any{toCycleID, fromCycleID}, unfinishedArgs()...)
	res, err := s.exec(ctx, `UPDATE tasks SET cycle_id = ? WHERE cycle_id = ? AND status IN (`+
		placeholders(len(domain.UnfinishedTaskStatuses))+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to move unfinished tasks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(n), nil
}

// CycleStatusCounts returns task counts per status for a cycle.
func (s *Store) CycleStatusCounts(ctx context.Context, cycleID string) (map[domain.TaskStatus]int, error) {
	rows, err := s.query(ctx, `SELECT status, COUNT(*) FROM tasks WHERE cycle_id = ? GROUP BY status`, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to count cycle tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.TaskStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[domain.TaskStatus(status)] = n
	}
	return counts, rows.Err()
}

// FindCycleTemplate retrieves a cycle template by name.
func (s *Store) FindCycleTemplate(ctx context.Context, name string) (*domain.CycleTemplate, error) {
	var t domain.CycleTemplate
	err := s.queryRow(ctx, `SELECT name, duration_days, cycle_count FROM cycle_templates WHERE name = ?`, name).
		Scan(&t.Name, &t.DurationDays, &t.Count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, name)
		}
		return nil, fmt.Errorf("failed to get cycle template: %w", err)
	}
	return &t, nil
}

// ListCycleTemplates returns every cycle template ordered by name.
func (s *Store) ListCycleTemplates(ctx context.Context) ([]domain.CycleTemplate, error) {
	rows, err := s.query(ctx, `SELECT name, duration_days, cycle_count FROM cycle_templates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cycle templates: %w", err)
	}
	defer rows.Close()

	var templates []domain.CycleTemplate
	for rows.Next() {
		var t domain.CycleTemplate
		if err := rows.Scan(&t.Name, &t.DurationDays, &t.Count); err != nil {
			return nil, fmt.Errorf("failed to scan cycle template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// UpsertCycleTemplate inserts or replaces a cycle template.
func (s *Store) UpsertCycleTemplate(ctx context.Context, t *domain.CycleTemplate) error {
	_, err := s.exec(ctx, `INSERT INTO cycle_templates (name, duration_days, cycle_count) VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET duration_days = excluded.duration_days, cycle_count = excluded.cycle_count`,
		t.Name, t.DurationDays, t.Count)
	if err != nil {
		return fmt.Errorf("failed to upsert cycle template: %w", err)
	}
	return nil
}
