package catalog

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/atlas/internal/access"
	"github.com/rezkam/atlas/internal/domain"
)

type fakeRepo struct {
	types     map[string]domain.TaskType
	templates map[string]domain.CycleTemplate
	users     map[string]domain.User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		types:     map[string]domain.TaskType{},
		templates: map[string]domain.CycleTemplate{},
		users:     map[string]domain.User{},
	}
}

func (r *fakeRepo) ListTaskTypes(context.Context) ([]domain.TaskType, error) {
	out := make([]domain.TaskType, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) FindTaskType(_ context.Context, id string) (*domain.TaskType, error) {
	t, ok := r.types[id]
	if !ok {
		return nil, domain.ErrTaskTypeNotFound
	}
	return &t, nil
}

func (r *fakeRepo) UpsertTaskType(_ context.Context, t *domain.TaskType) error {
	r.types[t.ID] = *t
	return nil
}

func (r *fakeRepo) ListCycleTemplates(context.Context) ([]domain.CycleTemplate, error) {
	out := make([]domain.CycleTemplate, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeRepo) UpsertCycleTemplate(_ context.Context, t *domain.CycleTemplate) error {
	r.templates[t.Name] = *t
	return nil
}

func (r *fakeRepo) ListUsers(context.Context) ([]domain.User, error) {
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *fakeRepo) UpsertUser(_ context.Context, u *domain.User) error {
	r.users[u.ID] = *u
	return nil
}

func (r *fakeRepo) AtomicCatalog(_ context.Context, fn func(repo Repository) error) error {
	return fn(r)
}

var admin = access.User{ID: domain.AdministratorUserID}

func TestSeed_DefaultFixture(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	summary, err := svc.Seed(context.Background(), DefaultFixture())
	require.NoError(t, err)

	assert.Equal(t, 5, summary.TaskTypes)
	assert.Equal(t, 2, summary.CycleTemplates)
	assert.Equal(t, 1, summary.Users)

	epic := repo.types["Epic"]
	assert.True(t, epic.IsContainer)
	assert.Equal(t, []string{"Story", "Spike"}, epic.AllowedChildTypes)
	assert.Equal(t, 14, repo.templates["Two-week sprints"].DurationDays)
}

func TestSeed_ForwardReferences(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	doc := `
task_types:
  - id: Parent
    is_container: true
    allowed_child_types: [Child]
  - id: Child
`
	_, err := svc.Seed(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)
	assert.Len(t, repo.types, 2)
}

func TestSeed_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{
			name: "unknown child",
			doc: `
task_types:
  - id: Parent
    is_container: true
    allowed_child_types: [Ghost]
`,
			wantErr: domain.ErrUnknownTaskType,
		},
		{
			name: "zero duration template",
			doc: `
cycle_templates:
  - name: Broken
    duration_days: 0
    count: 3
`,
			wantErr: domain.ErrInvalidTemplate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newFakeRepo())
			_, err := svc.Seed(context.Background(), strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSeed_UnknownFieldFails(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Seed(context.Background(), strings.NewReader("task_kinds: []\n"))
	assert.Error(t, err)
}

func TestCreateTaskType(t *testing.T) {
	repo := newFakeRepo()
	repo.types["Bug"] = domain.TaskType{ID: "Bug"}
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.CreateTaskType(ctx, access.User{ID: "alice"}, domain.TaskType{ID: "Epic"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	created, err := svc.CreateTaskType(ctx, admin, domain.TaskType{
		ID:                " Epic ",
		IsContainer:       true,
		AllowedChildTypes: []string{"Bug", "Bug", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "Epic", created.ID)
	assert.Equal(t, []string{"Bug"}, created.AllowedChildTypes)

	_, err = svc.CreateTaskType(ctx, admin, domain.TaskType{ID: "Bug"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestUpdateTaskType_Missing(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.UpdateTaskType(context.Background(), admin, domain.TaskType{ID: "Ghost"})
	assert.ErrorIs(t, err, domain.ErrTaskTypeNotFound)
}
