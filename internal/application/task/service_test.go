package task

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/atlas/internal/access"
	"github.com/rezkam/atlas/internal/domain"
	"github.com/rezkam/atlas/internal/ptr"
)

// fakeRepo is an in-memory Repository. Visibility scopes are ignored.
type fakeRepo struct {
	projects      map[string]*domain.Project
	cycles        map[string]*domain.Cycle
	tasks         map[string]*domain.Task
	users         map[string]*domain.User
	types         []domain.TaskType
	assignments   []domain.Assignment
	relationships []domain.Relationship
	lastList      domain.ListTasksParams
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		projects: map[string]*domain.Project{
			"p1": {ID: "p1", Name: "Alpha", ExecutionMode: domain.ExecutionModeScrum},
			"p2": {ID: "p2", Name: "Beta", ExecutionMode: domain.ExecutionModeScrum},
		},
		cycles: map[string]*domain.Cycle{},
		tasks:  map[string]*domain.Task{},
		users: map[string]*domain.User{
			"alice": {ID: "alice"},
			"bob":   {ID: "bob"},
		},
		types: []domain.TaskType{
			{ID: "Epic", IsContainer: true, AllowedChildTypes: []string{"Story"}},
			{ID: "Story", IsContainer: true},
			{ID: "Bug"},
		},
	}
}

func (r *fakeRepo) FindVisibleProject(_ context.Context, _ access.Expr, id string) (*domain.Project, error) {
	p, ok := r.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) FindCycleByID(_ context.Context, id string) (*domain.Cycle, error) {
	c, ok := r.cycles[id]
	if !ok {
		return nil, domain.ErrCycleNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeRepo) FindActiveCycle(_ context.Context, projectID, excludeID string) (*domain.Cycle, error) {
	for _, c := range r.cycles {
		if c.ProjectID == projectID && c.ID != excludeID && c.Status == domain.CycleStatusActive {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) ListTaskTypes(context.Context) ([]domain.TaskType, error) {
	return r.types, nil
}

func (r *fakeRepo) CreateTask(_ context.Context, t *domain.Task) error {
	cp := *t
	r.tasks[t.ID] = &cp
	return nil
}

func (r *fakeRepo) FindTaskByID(_ context.Context, id string) (*domain.Task, error) {
	t, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeRepo) FindVisibleTask(ctx context.Context, _ access.Expr, id string) (*domain.Task, error) {
	return r.FindTaskByID(ctx, id)
}

func (r *fakeRepo) ListTasks(_ context.Context, _ access.Expr, params domain.ListTasksParams) (*domain.PagedResult[domain.Task], error) {
	r.lastList = params
	var items []domain.Task
	for _, t := range r.tasks {
		items = append(items, *t)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return &domain.PagedResult[domain.Task]{Items: items, TotalCount: len(items)}, nil
}

func (r *fakeRepo) UpdateTask(_ context.Context, t *domain.Task) error {
	if _, ok := r.tasks[t.ID]; !ok {
		return domain.ErrTaskNotFound
	}
	cp := *t
	r.tasks[t.ID] = &cp
	return nil
}

func (r *fakeRepo) DeleteTask(_ context.Context, id string) error {
	if _, ok := r.tasks[id]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *fakeRepo) CountChildren(_ context.Context, taskID string) (int, error) {
	n := 0
	for _, t := range r.tasks {
		if t.ParentTaskID != nil && *t.ParentTaskID == taskID {
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) ParentOf(_ context.Context, taskID string) (*string, error) {
	t, ok := r.tasks[taskID]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return t.ParentTaskID, nil
}

func (r *fakeRepo) FindUserByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeRepo) CreateAssignment(_ context.Context, a *domain.Assignment) error {
	r.assignments = append(r.assignments, *a)
	return nil
}

func (r *fakeRepo) ListAssignments(_ context.Context, taskID string) ([]domain.Assignment, error) {
	var out []domain.Assignment
	for _, a := range r.assignments {
		if a.TaskID == taskID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeRepo) TransitionAssignments(_ context.Context, taskID, userID string, from, to domain.AssignmentStatus) (int, error) {
	n := 0
	for i := range r.assignments {
		a := &r.assignments[i]
		if a.TaskID != taskID || a.Status != from || (userID != "" && a.AllocatedTo != userID) {
			continue
		}
		a.Status = to
		n++
	}
	return n, nil
}

func (r *fakeRepo) CreateRelationship(_ context.Context, rel *domain.Relationship) error {
	for _, existing := range r.relationships {
		if existing.SourceTaskID == rel.SourceTaskID && existing.TargetTaskID == rel.TargetTaskID && existing.Type == rel.Type {
			return domain.ErrAlreadyExists
		}
	}
	r.relationships = append(r.relationships, *rel)
	return nil
}

func (r *fakeRepo) ListRelationships(_ context.Context, taskID string) ([]domain.Relationship, error) {
	var out []domain.Relationship
	for _, rel := range r.relationships {
		if rel.SourceTaskID == taskID {
			out = append(out, rel)
		}
	}
	return out, nil
}

func (r *fakeRepo) Search(_ context.Context, _, _ access.Expr, query string, limit int) ([]domain.SearchResult, error) {
	var out []domain.SearchResult
	for _, t := range r.tasks {
		if strings.Contains(strings.ToLower(t.Subject), strings.ToLower(query)) {
			out = append(out, domain.SearchResult{Kind: "task", ID: t.ID, Title: t.Subject})
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepo) AtomicTask(_ context.Context, fn func(repo Repository) error) error {
	return fn(r)
}

var alice = access.User{ID: "alice"}

func (r *fakeRepo) seedTask(id string, typeID *string, projectID string) {
	now := time.Now().UTC()
	r.tasks[id] = &domain.Task{
		ID:        id,
		Subject:   "seed " + id,
		Status:    domain.TaskStatusOpen,
		Priority:  domain.TaskPriorityMedium,
		TypeID:    typeID,
		ProjectID: ptr.To(projectID),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreate_AppliesDefaults(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, Config{})

	created, err := svc.Create(context.Background(), alice, CreateInput{
		Subject:   "  Write onboarding docs  ",
		ProjectID: ptr.To("p1"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Write onboarding docs", created.Subject)
	assert.Equal(t, domain.TaskStatusOpen, created.Status)
	assert.Equal(t, domain.TaskPriorityMedium, created.Priority)
	assert.Equal(t, domain.TaskOriginHuman, created.Origin)
	assert.Equal(t, "alice", created.Owner)
	assert.False(t, created.IsGroup)
	assert.Contains(t, repo.tasks, created.ID)
}

func TestCreate_RejectsEmptySubject(t *testing.T) {
	svc := NewService(newFakeRepo(), Config{})

	_, err := svc.Create(context.Background(), alice, CreateInput{Subject: "   "})
	assert.ErrorIs(t, err, domain.ErrSubjectRequired)
}

func TestCreate_InheritsParentProject(t *testing.T) {
	repo := newFakeRepo()
	repo.seedTask("epic", ptr.To("Epic"), "p2")
	svc := NewService(repo, Config{})

	created, err := svc.Create(context.Background(), alice, CreateInput{
		Subject:      "Child",
		ParentTaskID: ptr.To("epic"),
		TypeID:       ptr.To("Story"),
	})
	require.NoError(t, err)

	require.NotNil(t, created.ProjectID)
	assert.Equal(t, "p2", *created.ProjectID)
	assert.True(t, created.IsGroup, "Story is a container type")
}

func TestCreate_HierarchyRules(t *testing.T) {
	tests := []struct {
		name       string
		parentType *string
		childType  *string
		wantErr    error
	}{
		{"non-container parent", ptr.To("Bug"), ptr.To("Story"), domain.ErrNotAContainer},
		{"disallowed child", ptr.To("Epic"), ptr.To("Bug"), domain.ErrDisallowedChildType},
		{"allowed child", ptr.To("Epic"), ptr.To("Story"), nil},
		{"container with open list", ptr.To("Story"), ptr.To("Bug"), nil},
		{"untyped parent", nil, ptr.To("Bug"), nil},
		{"untyped child", ptr.To("Bug"), nil, nil},
		{"unknown child type", ptr.To("Epic"), ptr.To("Saga"), domain.ErrUnknownTaskType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			repo.seedTask("parent", tt.parentType, "p1")
			svc := NewService(repo, Config{})

			_, err := svc.Create(context.Background(), alice, CreateInput{
				Subject:      "Child",
				ParentTaskID: ptr.To("parent"),
				TypeID:       tt.childType,
			})
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreate_CycleConflictCarriesActiveCycle(t *testing.T) {
	repo := newFakeRepo()
	repo.seedTask("epic", ptr.To("Epic"), "p1")
	repo.cycles["active"] = &domain.Cycle{ID: "active", ProjectID: "p1", Status: domain.CycleStatusActive}
	repo.cycles["planned"] = &domain.Cycle{ID: "planned", ProjectID: "p1", Status: domain.CycleStatusPlanned}
	svc := NewService(repo, Config{})

	_, err := svc.Create(context.Background(), alice, CreateInput{
		Subject:      "Story",
		ParentTaskID: ptr.To("epic"),
		TypeID:       ptr.To("Story"),
		CycleID:      ptr.To("planned"),
	})
	require.ErrorIs(t, err, domain.ErrCycleConflict)

	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "active", conflict.EntityID)

	_, err = svc.Create(context.Background(), alice, CreateInput{
		Subject:      "Story",
		ParentTaskID: ptr.To("epic"),
		TypeID:       ptr.To("Story"),
		CycleID:      ptr.To("active"),
	})
	assert.NoError(t, err)
}

func TestCreate_CycleMustShareProject(t *testing.T) {
	repo := newFakeRepo()
	repo.cycles["c2"] = &domain.Cycle{ID: "c2", ProjectID: "p2", Status: domain.CycleStatusPlanned}
	svc := NewService(repo, Config{})

	_, err := svc.Create(context.Background(), alice, CreateInput{
		Subject:   "Task",
		ProjectID: ptr.To("p1"),
		CycleID:   ptr.To("c2"),
	})
	assert.ErrorIs(t, err, domain.ErrCycleProjectMismatch)
}

func TestUpdate_AppliesMaskedFieldsOnly(t *testing.T) {
	repo := newFakeRepo()
	repo.seedTask("t1", nil, "p1")
	svc := NewService(repo, Config{})

	updated, err := svc.Update(context.Background(), alice, domain.UpdateTaskParams{
		TaskID:     "t1",
		UpdateMask: []string{domain.FieldStatus},
		Status:     ptr.To(domain.TaskStatusWorking),
		Subject:    ptr.To("ignored"),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TaskStatusWorking, updated.Status)
	assert.Equal(t, "seed t1", updated.Subject)
}

func TestUpdate_RejectsHierarchyLoop(t *testing.T) {
	repo := newFakeRepo()
	repo.seedTask("root", nil, "p1")
	repo.seedTask("child", nil, "p1")
	repo.tasks["child"].ParentTaskID = ptr.To("root")
	svc := NewService(repo, Config{})

	_, err := svc.Update(context.Background(), alice, domain.UpdateTaskParams{
		TaskID:       "root",
		UpdateMask:   []string{domain.FieldParentTask},
		ParentTaskID: ptr.To("child"),
	})
	assert.ErrorIs(t, err, domain.ErrHierarchyLoop)
	assert.Nil(t, repo.tasks["root"].ParentTaskID)
}

func TestUpdate_RederivesIsGroup(t *testing.T) {
	repo := newFakeRepo()
	repo.seedTask("t1", nil, "p1")
	svc := NewService(repo, Config{})

	updated, err := svc.Update(context.Background(), alice, domain.UpdateTaskParams{
		TaskID:     "t1",
		UpdateMask: []string{domain.FieldType},
		TypeID:     ptr.To("Epic"),
	})
	require.NoError(t, err)
	assert.True(t, updated.IsGroup)
}

func TestUpdate_EmptyMask(t *testing.T) {
	svc := NewService(newFakeRepo(), Config{})

	_, err := svc.Update(context.Background(), alice, domain.UpdateTaskParams{TaskID: "t1"})
	assert.ErrorIs(t, err, domain.ErrEmptyUpdateMask)
}

func TestDelete_RefusesTaskWithChildren(t *testing.T) {
	repo := newFakeRepo()
	repo.seedTask("root", nil, "p1")
	repo.seedTask("child", nil, "p1")
	repo.tasks["child"].ParentTaskID = ptr.To("root")
	svc := NewService(repo, Config{})

	err := svc.Delete(context.Background(), alice, "root")
	assert.ErrorIs(t, err, domain.ErrTaskHasChildren)

	require.NoError(t, svc.Delete(context.Background(), alice, "child"))
	assert.NotContains(t, repo.tasks, "child")
}

func TestSwitchAssignee_CancelsOpenAssignments(t *testing.T) {
	repo := newFakeRepo()
	repo.seedTask("t1", nil, "p1")
	svc := NewService(repo, Config{})
	ctx := context.Background()

	_, err := svc.Assign(ctx, alice, "t1", "alice")
	require.NoError(t, err)

	switched, err := svc.SwitchAssignee(ctx, alice, "t1", "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", switched.AllocatedTo)

	assignments, err := svc.Assignments(ctx, alice, "t1")
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.Equal(t, domain.AssignmentStatusCancelled, assignments[0].Status)
	assert.Equal(t, domain.AssignmentStatusOpen, assignments[1].Status)
}

func TestAssign_IsIdempotentForOpenAssignee(t *testing.T) {
	repo := newFakeRepo()
	repo.seedTask("t1", nil, "p1")
	svc := NewService(repo, Config{})
	ctx := context.Background()

	first, err := svc.Assign(ctx, alice, "t1", "bob")
	require.NoError(t, err)
	second, err := svc.Assign(ctx, alice, "t1", "bob")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.assignments, 1)
}

func TestAssign_UnknownUser(t *testing.T) {
	repo := newFakeRepo()
	repo.seedTask("t1", nil, "p1")
	svc := NewService(repo, Config{})

	_, err := svc.Assign(context.Background(), alice, "t1", "mallory")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUnassign_WithoutOpenAssignment(t *testing.T) {
	repo := newFakeRepo()
	repo.seedTask("t1", nil, "p1")
	svc := NewService(repo, Config{})

	err := svc.Unassign(context.Background(), alice, "t1", "bob")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRelate_BlocksRecordsReverseLink(t *testing.T) {
	repo := newFakeRepo()
	repo.seedTask("a", nil, "p1")
	repo.seedTask("b", nil, "p1")
	svc := NewService(repo, Config{})
	ctx := context.Background()

	rel, err := svc.Relate(ctx, alice, "a", "b", domain.RelationBlocks)
	require.NoError(t, err)
	assert.False(t, rel.IsReverse)

	back, err := svc.Relationships(ctx, alice, "b")
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, domain.RelationIsBlockedBy, back[0].Type)
	assert.Equal(t, "a", back[0].TargetTaskID)
	assert.True(t, back[0].IsReverse)
}

func TestRelate_RelatesToHasNoReverse(t *testing.T) {
	repo := newFakeRepo()
	repo.seedTask("a", nil, "p1")
	repo.seedTask("b", nil, "p1")
	svc := NewService(repo, Config{})

	_, err := svc.Relate(context.Background(), alice, "a", "b", domain.RelationRelatesTo)
	require.NoError(t, err)
	assert.Len(t, repo.relationships, 1)
}

func TestRelate_RejectsSelf(t *testing.T) {
	svc := NewService(newFakeRepo(), Config{})

	_, err := svc.Relate(context.Background(), alice, "a", "a", domain.RelationBlocks)
	assert.ErrorIs(t, err, domain.ErrSelfRelation)
}

func TestList_ClampsPageSize(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, Config{DefaultPageSize: 10, MaxPageSize: 50})
	ctx := context.Background()

	_, err := svc.List(ctx, alice, domain.ListTasksParams{})
	require.NoError(t, err)
	assert.Equal(t, 10, repo.lastList.Limit)

	_, err = svc.List(ctx, alice, domain.ListTasksParams{Limit: 500, Offset: -3})
	require.NoError(t, err)
	assert.Equal(t, 50, repo.lastList.Limit)
	assert.Equal(t, 0, repo.lastList.Offset)
}

func TestSearch_BlankQuery(t *testing.T) {
	repo := newFakeRepo()
	repo.seedTask("t1", nil, "p1")
	svc := NewService(repo, Config{})

	results, err := svc.Search(context.Background(), alice, "  ", 0)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = svc.Search(context.Background(), alice, "SEED", 0)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
