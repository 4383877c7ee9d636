package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rezkam/atlas/internal/domain"
)

// ListTaskTypes returns every registered task type ordered by id, with
// allowed children in their declared order.
func (s *Store) ListTaskTypes(ctx context.Context) ([]domain.TaskType, error) {
	rows, err := s.query(ctx, `SELECT id, description, is_container FROM task_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list task types: %w", err)
	}
	defer rows.Close()

	var types []domain.TaskType
	index := make(map[string]int)
	for rows.Next() {
		var t domain.TaskType
		if err := rows.Scan(&t.ID, &t.Description, &t.IsContainer); err != nil {
			return nil, fmt.Errorf("failed to scan task type: %w", err)
		}
		index[t.ID] = len(types)
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	children, err := s.query(ctx, `SELECT parent_type, child_type FROM task_type_children
		ORDER BY parent_type, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to list task type children: %w", err)
	}
	defer children.Close()

	for children.Next() {
		var parent, child string
		if err := children.Scan(&parent, &child); err != nil {
			return nil, fmt.Errorf("failed to scan task type child: %w", err)
		}
		if i, ok := index[parent]; ok {
			types[i].AllowedChildTypes = append(types[i].AllowedChildTypes, child)
		}
	}
	return types, children.Err()
}

// FindTaskType retrieves a task type with its allowed children.
func (s *Store) FindTaskType(ctx context.Context, id string) (*domain.TaskType, error) {
	var t domain.TaskType
	err := s.queryRow(ctx, `SELECT id, description, is_container FROM task_types WHERE id = ?`, id).
		Scan(&t.ID, &t.Description, &t.IsContainer)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrTaskTypeNotFound, id)
		}
		return nil, fmt.Errorf("failed to get task type: %w", err)
	}

	rows, err := s.query(ctx, `SELECT child_type FROM task_type_children WHERE parent_type = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list task type children: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var child string
		if err := rows.Scan(&child); err != nil {
			return nil, fmt.Errorf("failed to scan task type child: %w", err)
		}
		t.AllowedChildTypes = append(t.AllowedChildTypes, child)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpsertTaskType inserts or replaces a task type and its allowed children.
func (s *Store) UpsertTaskType(ctx context.Context, t *domain.TaskType) error {
	_, err := s.exec(ctx, `INSERT INTO task_types (id, description, is_container) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET description = excluded.description, is_container = excluded.is_container`,
		t.ID, t.Description, t.IsContainer)
	if err != nil {
		return fmt.Errorf("failed to upsert task type: %w", err)
	}

	if _, err := s.exec(ctx, `DELETE FROM task_type_children WHERE parent_type = ?`, t.ID); err != nil {
		return fmt.Errorf("failed to clear task type children: %w", err)
	}
	seen := make(map[string]bool, len(t.AllowedChildTypes))
	for i, child := range t.AllowedChildTypes {
		if seen[child] {
			continue
		}
		seen[child] = true
		_, err := s.exec(ctx, `INSERT INTO task_type_children (parent_type, child_type, position) VALUES (?, ?, ?)`,
			t.ID, child, i)
		if err != nil {
			return fmt.Errorf("failed to add child type %s: %w", child, err)
		}
	}
	return nil
}
