package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rezkam/atlas/internal/access"
	"github.com/rezkam/atlas/internal/domain"
)

const projectColumns = `projects.id, projects.name, projects.execution_mode, projects.owner,
	projects.cycle_sequence, projects.created_at, projects.updated_at`

func scanProject(row rowScanner) (*domain.Project, error) {
	var p domain.Project
	var mode string
	if err := row.Scan(&p.ID, &p.Name, &mode, &p.Owner, &p.CycleSequence, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.ExecutionMode = domain.ExecutionMode(mode)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

// CreateProject inserts a project.
func (s *Store) CreateProject(ctx context.Context, p *domain.Project) error {
	if err := checkID(p.ID); err != nil {
		return err
	}
	_, err := s.exec(ctx, `INSERT INTO projects (id, name, execution_mode, owner, cycle_sequence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, string(p.ExecutionMode), p.Owner, p.CycleSequence, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// FindProjectByID retrieves a project without visibility checks.
func (s *Store) FindProjectByID(ctx context.Context, id string) (*domain.Project, error) {
	return s.FindVisibleProject(ctx, access.True, id)
}

// FindVisibleProject retrieves a project if scope admits it.
func (s *Store) FindVisibleProject(ctx context.Context, scope access.Expr, id string) (*domain.Project, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	where, args, err := renderPredicate(access.ByID(scope, access.ProjectID, id))
	if err != nil {
		return nil, err
	}

	p, err := scanProject(s.queryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE `+where, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrProjectNotFound, id)
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// ListProjects returns a page of projects admitted by scope, oldest first.
func (s *Store) ListProjects(ctx context.Context, scope access.Expr, params domain.ListProjectsParams) (*domain.PagedResult[domain.Project], error) {
	where, args, err := renderPredicate(scope)
	if err != nil {
		return nil, err
	}

	var total int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM projects WHERE `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}

	rows, err := s.query(ctx, `SELECT `+projectColumns+` FROM projects WHERE `+where+`
		ORDER BY projects.id LIMIT ? OFFSET ?`, append(args, params.Limit, params.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Project, 0, params.Limit)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return &domain.PagedResult[domain.Project]{
		Items:      items,
		TotalCount: total,
		HasMore:    params.Offset+len(items) < total,
	}, nil
}

// UpdateProject persists name and execution mode.
func (s *Store) UpdateProject(ctx context.Context, p *domain.Project) error {
	res, err := s.exec(ctx, `UPDATE projects SET name = ?, execution_mode = ?, updated_at = ? WHERE id = ?`,
		p.Name, string(p.ExecutionMode), p.UpdatedAt.UTC(), p.ID)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return checkRowsAffected(res, domain.ErrProjectNotFound, "project", p.ID)
}

// LockProject serializes lifecycle writes for a project within the transaction.
func (s *Store) LockProject(ctx context.Context, projectID string) error {
	return s.dialect.LockProject(ctx, s.q, projectID)
}

// IncrementCycleSequence bumps the project's cycle counter and returns the new value.
func (s *Store) IncrementCycleSequence(ctx context.Context, projectID string) (int, error) {
	res, err := s.exec(ctx, `UPDATE projects SET cycle_sequence = cycle_sequence + 1 WHERE id = ?`, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to increment cycle sequence: %w", err)
	}
	if err := checkRowsAffected(res, domain.ErrProjectNotFound, "project", projectID); err != nil {
		return 0, err
	}

	var seq int
	if err := s.queryRow(ctx, `SELECT cycle_sequence FROM projects WHERE id = ?`, projectID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to read cycle sequence: %w", err)
	}
	return seq, nil
}

// ListMembers returns the members of a project ordered by user id.
func (s *Store) ListMembers(ctx context.Context, projectID string) ([]domain.ProjectMember, error) {
	rows, err := s.query(ctx, `SELECT project_id, user_id, role, added_at FROM project_users
		WHERE project_id = ? ORDER BY user_id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []domain.ProjectMember
	for rows.Next() {
		var m domain.ProjectMember
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.Role, &m.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.AddedAt = m.AddedAt.UTC()
		members = append(members, m)
	}
	return members, rows.Err()
}

// ReplaceMembers swaps the member set of a project for members.
func (s *Store) ReplaceMembers(ctx context.Context, projectID string, members []domain.ProjectMember) error {
	if _, err := s.exec(ctx, `DELETE FROM project_users WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("failed to clear members: %w", err)
	}
	for _, m := range members {
		_, err := s.exec(ctx, `INSERT INTO project_users (project_id, user_id, role, added_at) VALUES (?, ?, ?, ?)`,
			projectID, m.UserID, m.Role, m.AddedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to add member %s: %w", m.UserID, err)
		}
	}
	return nil
}

// FindUserByID retrieves a user with roles.
func (s *Store) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := s.queryRow(ctx, `SELECT id, full_name FROM users WHERE id = ?`, id).Scan(&u.ID, &u.FullName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, id)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	roles, err := s.userRoles(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	u.Roles = roles[id]
	return &u, nil
}

// ListUsers returns every user ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.query(ctx, `SELECT id, full_name FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.FullName); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	roles, err := s.userRoles(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Roles = roles[users[i].ID]
	}
	return users, nil
}

func (s *Store) userRoles(ctx context.Context, ids []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.query(ctx, `SELECT user_id, role FROM user_roles WHERE user_id IN (`+placeholders(len(ids))+`)
		ORDER BY user_id, role`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID, role string
		if err := rows.Scan(&userID, &role); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		out[userID] = append(out[userID], role)
	}
	return out, rows.Err()
}

// UpsertUser inserts or replaces a user and its roles.
func (s *Store) UpsertUser(ctx context.Context, u *domain.User) error {
	_, err := s.exec(ctx, `INSERT INTO users (id, full_name) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET full_name = excluded.full_name`, u.ID, u.FullName)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	if _, err := s.exec(ctx, `DELETE FROM user_roles WHERE user_id = ?`, u.ID); err != nil {
		return fmt.Errorf("failed to clear roles: %w", err)
	}
	seen := make(map[string]bool, len(u.Roles))
	for _, role := range u.Roles {
		role = strings.TrimSpace(role)
		if role == "" || seen[role] {
			continue
		}
		seen[role] = true
		if _, err := s.exec(ctx, `INSERT INTO user_roles (user_id, role) VALUES (?, ?)`, u.ID, role); err != nil {
			return fmt.Errorf("failed to add role %s: %w", role, err)
		}
	}
	return nil
}
