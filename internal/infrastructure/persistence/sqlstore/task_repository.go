package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rezkam/atlas/internal/access"
	"github.com/rezkam/atlas/internal/domain"
)

const taskColumns = `tasks.id, tasks.subject, tasks.status, tasks.priority, tasks.weight, tasks.origin,
	tasks.project_id, tasks.parent_task_id, tasks.type_id, tasks.cycle_id, tasks.is_group,
	tasks.owner, tasks.created_at, tasks.updated_at`

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t                                domain.Task
		status, priority, origin         string
		projectID, parentID, typeID, cyc sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Subject, &status, &priority, &t.Weight, &origin,
		&projectID, &parentID, &typeID, &cyc, &t.IsGroup,
		&t.Owner, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = domain.TaskStatus(status)
	t.Priority = domain.TaskPriority(priority)
	t.Origin = domain.TaskOrigin(origin)
	t.ProjectID = stringPtr(projectID)
	t.ParentTaskID = stringPtr(parentID)
	t.TypeID = stringPtr(typeID)
	t.CycleID = stringPtr(cyc)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}

func scanTasks(rows *sql.Rows) ([]domain.Task, error) {
	defer rows.Close()
	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// CreateTask inserts a task.
func (s *Store) CreateTask(ctx context.Context, t *domain.Task) error {
	if err := checkID(t.ID); err != nil {
		return err
	}
	_, err := s.exec(ctx, `INSERT INTO tasks (id, subject, status, priority, weight, origin,
		project_id, parent_task_id, type_id, cycle_id, is_group, owner, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Subject, string(t.Status), string(t.Priority), t.Weight, string(t.Origin),
		nullString(t.ProjectID), nullString(t.ParentTaskID), nullString(t.TypeID), nullString(t.CycleID),
		t.IsGroup, t.Owner, t.CreatedAt.UTC(), t.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// FindTaskByID retrieves a task without visibility checks.
func (s *Store) FindTaskByID(ctx context.Context, id string) (*domain.Task, error) {
	return s.FindVisibleTask(ctx, access.True, id)
}

// FindVisibleTask retrieves a task if scope admits it.
func (s *Store) FindVisibleTask(ctx context.Context, scope access.Expr, id string) (*domain.Task, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	where, args, err := renderPredicate(access.ByID(scope, access.TaskID, id))
	if err != nil {
		return nil, err
	}

	t, err := scanTask(s.queryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE `+where, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// ListTasks returns a page of tasks admitted by scope and matching params,
// ordered by id.
func (s *Store) ListTasks(ctx context.Context, scope access.Expr, params domain.ListTasksParams) (*domain.PagedResult[domain.Task], error) {
	where, args, err := renderPredicate(scope)
	if err != nil {
		return nil, err
	}

	conds := []string{where}
	if params.ProjectID != nil {
		conds = append(conds, "tasks.project_id = ?")
		args = append(args, *params.ProjectID)
	}
	if params.CycleID != nil {
		conds = append(conds, "tasks.cycle_id = ?")
		args = append(args, *params.CycleID)
	}
	if params.ParentTaskID != nil {
		conds = append(conds, "tasks.parent_task_id = ?")
		args = append(args, *params.ParentTaskID)
	}
	if params.AssignedTo != nil {
		conds = append(conds, "tasks.id IN (SELECT task_id FROM assignments WHERE allocated_to = ? AND status = ?)")
		args = append(args, *params.AssignedTo, string(domain.AssignmentStatusOpen))
	}
	if len(params.Statuses) > 0 {
		conds = append(conds, "tasks.status IN ("+placeholders(len(params.Statuses))+")")
		for _, st := range params.Statuses {
			args = append(args, string(st))
		}
	}
	if params.BacklogOnly {
		conds = append(conds, "tasks.cycle_id IS NULL", "tasks.status = ?")
		args = append(args, string(domain.TaskStatusOpen))
	}
	filter := strings.Join(conds, " AND ")

	var total int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE `+filter, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	rows, err := s.query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE `+filter+`
		ORDER BY tasks.id LIMIT ? OFFSET ?`, append(args, params.Limit, params.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	items, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Task{}
	}

	return &domain.PagedResult[domain.Task]{
		Items:      items,
		TotalCount: total,
		HasMore:    params.Offset+len(items) < total,
	}, nil
}

// ListProjectTasks returns every task of a project ordered by id.
func (s *Store) ListProjectTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	rows, err := s.query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE tasks.project_id = ? ORDER BY tasks.id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project tasks: %w", err)
	}
	return scanTasks(rows)
}

// UpdateTask persists every mutable task field.
func (s *Store) UpdateTask(ctx context.Context, t *domain.Task) error {
	res, err := s.exec(ctx, `UPDATE tasks SET subject = ?, status = ?, priority = ?, weight = ?,
		project_id = ?, parent_task_id = ?, type_id = ?, cycle_id = ?, is_group = ?, updated_at = ?
		WHERE id = ?`,
		t.Subject, string(t.Status), string(t.Priority), t.Weight,
		nullString(t.ProjectID), nullString(t.ParentTaskID), nullString(t.TypeID), nullString(t.CycleID),
		t.IsGroup, t.UpdatedAt.UTC(), t.ID)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return checkRowsAffected(res, domain.ErrTaskNotFound, "task", t.ID)
}

// DeleteTask removes a task. Assignments and relationships cascade.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if _, err := s.exec(ctx, `UPDATE task_drafts SET task_id = NULL WHERE task_id = ?`, id); err != nil {
		return fmt.Errorf("failed to detach drafts: %w", err)
	}
	res, err := s.exec(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return checkRowsAffected(res, domain.ErrTaskNotFound, "task", id)
}

// CountChildren counts tasks whose parent is taskID.
func (s *Store) CountChildren(ctx context.Context, taskID string) (int, error) {
	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE parent_task_id = ?`, taskID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count children: %w", err)
	}
	return n, nil
}

// ParentOf returns the parent id of a task, or nil for top-level tasks.
func (s *Store) ParentOf(ctx context.Context, taskID string) (*string, error) {
	var parent sql.NullString
	err := s.queryRow(ctx, `SELECT parent_task_id FROM tasks WHERE id = ?`, taskID).Scan(&parent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, taskID)
		}
		return nil, fmt.Errorf("failed to get parent: %w", err)
	}
	return stringPtr(parent), nil
}

// CreateAssignment inserts an assignment.
func (s *Store) CreateAssignment(ctx context.Context, a *domain.Assignment) error {
	_, err := s.exec(ctx, `INSERT INTO assignments (id, task_id, allocated_to, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.TaskID, a.AllocatedTo, string(a.Status), a.CreatedAt.UTC(), a.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert assignment: %w", err)
	}
	return nil
}

// ListAssignments returns the assignments of a task, oldest first.
func (s *Store) ListAssignments(ctx context.Context, taskID string) ([]domain.Assignment, error) {
	rows, err := s.query(ctx, `SELECT id, task_id, allocated_to, status, created_at, updated_at
		FROM assignments WHERE task_id = ? ORDER BY created_at, id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		var (
			a      domain.Assignment
			status string
		)
		if err := rows.Scan(&a.ID, &a.TaskID, &a.AllocatedTo, &status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.Status = domain.AssignmentStatus(status)
		a.CreatedAt = a.CreatedAt.UTC()
		a.UpdatedAt = a.UpdatedAt.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// TransitionAssignments moves a task's assignments from one status to another.
// An empty userID matches every assignee.
func (s *Store) TransitionAssignments(ctx context.Context, taskID, userID string, from, to domain.AssignmentStatus) (int, error) {
	query := `UPDATE assignments SET status = ?, updated_at = ? WHERE task_id = ? AND status = ?`
	args := []any{string(to), time.Now().UTC(), taskID, string(from)}
	if userID != "" {
		query += ` AND allocated_to = ?`
		args = append(args, userID)
	}

	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to transition assignments: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(n), nil
}

// CreateRelationship inserts a relationship.
// A link that already exists is reported as domain.ErrAlreadyExists without
// attempting the insert, so the surrounding transaction stays usable.
func (s *Store) CreateRelationship(ctx context.Context, r *domain.Relationship) error {
	var exists int
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM relationships
		WHERE source_task_id = ? AND target_task_id = ? AND type = ?`,
		r.SourceTaskID, r.TargetTaskID, string(r.Type)).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check relationship: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("%w: relationship %s %s %s", domain.ErrAlreadyExists, r.SourceTaskID, r.Type, r.TargetTaskID)
	}

	_, err = s.exec(ctx, `INSERT INTO relationships (id, source_task_id, target_task_id, type, is_reverse, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.SourceTaskID, r.TargetTaskID, string(r.Type), r.IsReverse, r.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert relationship: %w", err)
	}
	return nil
}

// ListRelationships returns relationships whose source is taskID.
func (s *Store) ListRelationships(ctx context.Context, taskID string) ([]domain.Relationship, error) {
	rows, err := s.query(ctx, `SELECT id, source_task_id, target_task_id, type, is_reverse, created_at
		FROM relationships WHERE source_task_id = ? ORDER BY created_at, id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}
	defer rows.Close()

	var out []domain.Relationship
	for rows.Next() {
		var (
			r   domain.Relationship
			typ string
		)
		if err := rows.Scan(&r.ID, &r.SourceTaskID, &r.TargetTaskID, &typ, &r.IsReverse, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		r.Type = domain.RelationType(typ)
		r.CreatedAt = r.CreatedAt.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Search matches visible tasks by subject and visible projects by name,
// case-insensitively. Tasks come first; at most limit results in total.
func (s *Store) Search(ctx context.Context, taskScope, projectScope access.Expr, query string, limit int) ([]domain.SearchResult, error) {
	pattern := likePattern(query)
	results := make([]domain.SearchResult, 0, limit)

	taskWhere, taskArgs, err := renderPredicate(taskScope)
	if err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, `SELECT tasks.id, tasks.subject FROM tasks
		WHERE `+taskWhere+` AND LOWER(tasks.subject) LIKE ? ESCAPE '\'
		ORDER BY tasks.id LIMIT ?`, append(taskArgs, pattern, limit)...)
	if err != nil {
		return nil, fmt.Errorf("failed to search tasks: %w", err)
	}
	if results, err = appendHits(results, rows, "task"); err != nil {
		return nil, err
	}
	if len(results) >= limit {
		return results, nil
	}

	projectWhere, projectArgs, err := renderPredicate(projectScope)
	if err != nil {
		return nil, err
	}
	rows, err = s.query(ctx, `SELECT projects.id, projects.name FROM projects
		WHERE `+projectWhere+` AND LOWER(projects.name) LIKE ? ESCAPE '\'
		ORDER BY projects.id LIMIT ?`, append(projectArgs, pattern, limit-len(results))...)
	if err != nil {
		return nil, fmt.Errorf("failed to search projects: %w", err)
	}
	return appendHits(results, rows, "project")
}

func appendHits(results []domain.SearchResult, rows *sql.Rows, kind string) ([]domain.SearchResult, error) {
	defer rows.Close()
	for rows.Next() {
		hit := domain.SearchResult{Kind: kind}
		if err := rows.Scan(&hit.ID, &hit.Title); err != nil {
			return nil, fmt.Errorf("failed to scan %s hit: %w", kind, err)
		}
		results = append(results, hit)
	}
	return results, rows.Err()
}
