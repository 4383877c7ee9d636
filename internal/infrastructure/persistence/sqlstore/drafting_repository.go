package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rezkam/atlas/internal/domain"
)

// CreateSession inserts a drafting session without its drafts.
func (s *Store) CreateSession(ctx context.Context, ds *domain.DraftSession) error {
	if err := checkID(ds.ID); err != nil {
		return err
	}
	intents, err := encodeStrings(ds.Intents)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, `INSERT INTO draft_sessions (id, project_id, cycle_id, execution_mode, prompt,
		status, blocked_reason, intents, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ds.ID, ds.ProjectID, nullString(ds.CycleID), string(ds.ExecutionMode), ds.Prompt,
		string(ds.Status), ds.BlockedReason, intents, ds.CreatedBy, ds.CreatedAt.UTC(), ds.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert draft session: %w", err)
	}
	return nil
}

// UpdateSession persists status, blocked reason and intents.
func (s *Store) UpdateSession(ctx context.Context, ds *domain.DraftSession) error {
	intents, err := encodeStrings(ds.Intents)
	if err != nil {
		return err
	}
	res, err := s.exec(ctx, `UPDATE draft_sessions SET status = ?, blocked_reason = ?, intents = ?, updated_at = ?
		WHERE id = ?`,
		string(ds.Status), ds.BlockedReason, intents, ds.UpdatedAt.UTC(), ds.ID)
	if err != nil {
		return fmt.Errorf("failed to update draft session: %w", err)
	}
	return checkRowsAffected(res, domain.ErrSessionNotFound, "session", ds.ID)
}

// FindSession retrieves a session with its drafts in creation order.
func (s *Store) FindSession(ctx context.Context, id string) (*domain.DraftSession, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	var (
		ds                    domain.DraftSession
		cycleID               sql.NullString
		mode, status, intents string
	)
	err := s.queryRow(ctx, `SELECT id, project_id, cycle_id, execution_mode, prompt, status,
		blocked_reason, intents, created_by, created_at, updated_at
		FROM draft_sessions WHERE id = ?`, id).
		Scan(&ds.ID, &ds.ProjectID, &cycleID, &mode, &ds.Prompt, &status,
			&ds.BlockedReason, &intents, &ds.CreatedBy, &ds.CreatedAt, &ds.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("failed to get draft session: %w", err)
	}
	ds.CycleID = stringPtr(cycleID)
	ds.ExecutionMode = domain.ExecutionMode(mode)
	ds.Status = domain.DraftSessionStatus(status)
	ds.CreatedAt = ds.CreatedAt.UTC()
	ds.UpdatedAt = ds.UpdatedAt.UTC()
	if ds.Intents, err = decodeStrings(intents); err != nil {
		return nil, err
	}

	drafts, err := s.listDrafts(ctx, id)
	if err != nil {
		return nil, err
	}
	ds.Drafts = drafts
	return &ds, nil
}

func (s *Store) listDrafts(ctx context.Context, sessionID string) ([]domain.TaskDraft, error) {
	rows, err := s.query(ctx, `SELECT id, session_id, subject, priority, weight, confidence, reasoning,
		validation_errors, status, task_id, created_at
		FROM task_drafts WHERE session_id = ? ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	var drafts []domain.TaskDraft
	for rows.Next() {
		var (
			d                      domain.TaskDraft
			priority, errs, status string
			taskID                 sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.SessionID, &d.Subject, &priority, &d.Weight, &d.Confidence,
			&d.Reasoning, &errs, &status, &taskID, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		d.Priority = domain.TaskPriority(priority)
		d.Status = domain.DraftStatus(status)
		d.TaskID = stringPtr(taskID)
		d.CreatedAt = d.CreatedAt.UTC()
		if d.ValidationErrors, err = decodeStrings(errs); err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

// CreateDraft inserts a draft.
func (s *Store) CreateDraft(ctx context.Context, d *domain.TaskDraft) error {
	errs, err := encodeStrings(d.ValidationErrors)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, `INSERT INTO task_drafts (id, session_id, subject, priority, weight, confidence,
		reasoning, validation_errors, status, task_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.SessionID, d.Subject, string(d.Priority), d.Weight, d.Confidence,
		d.Reasoning, errs, string(d.Status), nullString(d.TaskID), d.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert draft: %w", err)
	}
	return nil
}

// UpdateDraft persists a draft's status and created task.
func (s *Store) UpdateDraft(ctx context.Context, d *domain.TaskDraft) error {
	res, err := s.exec(ctx, `UPDATE task_drafts SET status = ?, task_id = ? WHERE id = ?`,
		string(d.Status), nullString(d.TaskID), d.ID)
	if err != nil {
		return fmt.Errorf("failed to update draft: %w", err)
	}
	return checkRowsAffected(res, domain.ErrNotFound, "draft", d.ID)
}
