package sqlstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/atlas/internal/access"
	"github.com/rezkam/atlas/internal/application/project"
	"github.com/rezkam/atlas/internal/application/task"
	"github.com/rezkam/atlas/internal/domain"
	"github.com/rezkam/atlas/internal/infrastructure/persistence/sqlstore"
)

func newStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	store, err := sqlstore.OpenSQLite(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newID(t *testing.T) string {
	t.Helper()
	return uuid.Must(uuid.NewV7()).String()
}

func seedUser(t *testing.T, store *sqlstore.Store, id string, roles ...string) access.User {
	t.Helper()
	require.NoError(t, store.UpsertUser(context.Background(), &domain.User{ID: id, FullName: id, Roles: roles}))
	return access.User{ID: id, Roles: roles}
}

func seedProject(t *testing.T, store *sqlstore.Store, owner string, mode domain.ExecutionMode, members ...string) *domain.Project {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	p := &domain.Project{
		ID:            newID(t),
		Name:          "Project " + owner,
		ExecutionMode: mode,
		Owner:         owner,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, store.CreateProject(ctx, p))

	var ms []domain.ProjectMember
	for _, m := range members {
		ms = append(ms, domain.ProjectMember{ProjectID: p.ID, UserID: m, Role: "Member", AddedAt: now})
	}
	require.NoError(t, store.ReplaceMembers(ctx, p.ID, ms))
	return p
}

func seedTask(t *testing.T, store *sqlstore.Store, subject, owner string, projectID, cycleID *string, status domain.TaskStatus) *domain.Task {
	t.Helper()
	now := time.Now().UTC()
	task := &domain.Task{
		ID:        newID(t),
		Subject:   subject,
		Status:    status,
		Priority:  domain.TaskPriorityMedium,
		Origin:    domain.TaskOriginHuman,
		ProjectID: projectID,
		CycleID:   cycleID,
		Owner:     owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.CreateTask(context.Background(), task))
	return task
}

func seedCycle(t *testing.T, store *sqlstore.Store, projectID string, status domain.CycleStatus) *domain.Cycle {
	t.Helper()
	ctx := context.Background()
	seq, err := store.IncrementCycleSequence(ctx, projectID)
	require.NoError(t, err)

	now := time.Now().UTC()
	c := &domain.Cycle{
		ID:        newID(t),
		ProjectID: projectID,
		Name:      "Cycle",
		Sequence:  seq,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == domain.CycleStatusActive {
		start := now.AddDate(0, 0, -1)
		end := now.AddDate(0, 0, 13)
		c.StartDate, c.EndDate = &start, &end
	}
	require.NoError(t, store.CreateCycle(ctx, c))
	return c
}

func ptr[T any](v T) *T { return &v }

func TestAtomic_RollsBackOnError(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	owner := seedUser(t, store, "owner")

	id := newID(t)
	boom := errors.New("boom")
	err := store.AtomicProject(ctx, func(repo project.Repository) error {
		now := time.Now().UTC()
		if err := repo.CreateProject(ctx, &domain.Project{
			ID: id, Name: "Doomed", ExecutionMode: domain.ExecutionModeKanban,
			Owner: owner.ID, CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.FindProjectByID(ctx, id)
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestAtomic_RollsBackOnPanic(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	owner := seedUser(t, store, "owner")

	id := newID(t)
	assert.Panics(t, func() {
		_ = store.AtomicProject(ctx, func(repo project.Repository) error {
			now := time.Now().UTC()
			if err := repo.CreateProject(ctx, &domain.Project{
				ID: id, Name: "Doomed", ExecutionMode: domain.ExecutionModeKanban,
				Owner: owner.ID, CreatedAt: now, UpdatedAt: now,
			}); err != nil {
				return err
			}
			panic("simulated panic")
		})
	})

	_, err := store.FindProjectByID(ctx, id)
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestVisibility(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	manager := seedUser(t, store, "pm", domain.RoleProjectManager)
	member := seedUser(t, store, "member")
	outsider := seedUser(t, store, "outsider")
	admin := access.User{ID: domain.AdministratorUserID}

	owned := seedProject(t, store, manager.ID, domain.ExecutionModeScrum)
	shared := seedProject(t, store, outsider.ID, domain.ExecutionModeKanban, member.ID)

	ownedTask := seedTask(t, store, "Owned work", manager.ID, &owned.ID, nil, domain.TaskStatusOpen)
	sharedTask := seedTask(t, store, "Shared work", outsider.ID, &shared.ID, nil, domain.TaskStatusOpen)
	loose := seedTask(t, store, "Loose work", outsider.ID, nil, nil, domain.TaskStatusOpen)

	now := time.Now().UTC()
	require.NoError(t, store.CreateAssignment(ctx, &domain.Assignment{
		ID: newID(t), TaskID: loose.ID, AllocatedTo: member.ID,
		Status: domain.AssignmentStatusOpen, CreatedAt: now, UpdatedAt: now,
	}))

	projectIDs := func(u access.User) []string {
		res, err := store.ListProjects(ctx, access.Projects(u), domain.ListProjectsParams{Limit: 10})
		require.NoError(t, err)
		var ids []string
		for _, p := range res.Items {
			ids = append(ids, p.ID)
		}
		return ids
	}
	taskIDs := func(u access.User) []string {
		res, err := store.ListTasks(ctx, access.Tasks(u), domain.ListTasksParams{Limit: 10})
		require.NoError(t, err)
		var ids []string
		for _, task := range res.Items {
			ids = append(ids, task.ID)
		}
		return ids
	}

	t.Run("projects", func(t *testing.T) {
		assert.ElementsMatch(t, []string{owned.ID}, projectIDs(manager))
		assert.ElementsMatch(t, []string{shared.ID}, projectIDs(member))
		assert.Empty(t, projectIDs(outsider))
		assert.ElementsMatch(t, []string{owned.ID, shared.ID}, projectIDs(admin))
	})

	t.Run("tasks", func(t *testing.T) {
		assert.ElementsMatch(t, []string{ownedTask.ID}, taskIDs(manager))
		assert.ElementsMatch(t, []string{sharedTask.ID, loose.ID}, taskIDs(member))
		assert.Empty(t, taskIDs(outsider))
		assert.Len(t, taskIDs(admin), 3)
	})

	t.Run("point reads agree with lists", func(t *testing.T) {
		_, err := store.FindVisibleProject(ctx, access.Projects(member), owned.ID)
		assert.ErrorIs(t, err, domain.ErrProjectNotFound)

		_, err = store.FindVisibleTask(ctx, access.Tasks(outsider), sharedTask.ID)
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)

		got, err := store.FindVisibleTask(ctx, access.Tasks(member), loose.ID)
		require.NoError(t, err)
		assert.Equal(t, "Loose work", got.Subject)
	})

	t.Run("cancelled assignment hides task", func(t *testing.T) {
		n, err := store.TransitionAssignments(ctx, loose.ID, member.ID,
			domain.AssignmentStatusOpen, domain.AssignmentStatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.ElementsMatch(t, []string{sharedTask.ID}, taskIDs(member))
	})
}

func TestInvalidID(t *testing.T) {
	store := newStore(t)
	_, err := store.FindTaskByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestCycles_OneActivePerProject(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	owner := seedUser(t, store, "owner")
	p := seedProject(t, store, owner.ID, domain.ExecutionModeScrum)

	active := seedCycle(t, store, p.ID, domain.CycleStatusActive)
	planned := seedCycle(t, store, p.ID, domain.CycleStatusPlanned)
	assert.Equal(t, 1, active.Sequence)
	assert.Equal(t, 2, planned.Sequence)

	planned.Status = domain.CycleStatusActive
	start := time.Now().UTC()
	planned.StartDate, planned.EndDate = &start, &start
	err := store.UpdateCycle(ctx, planned)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	found, err := store.FindActiveCycle(ctx, p.ID, "")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, active.ID, found.ID)

	found, err = store.FindActiveCycle(ctx, p.ID, active.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestCycles_DatesRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	owner := seedUser(t, store, "owner")
	p := seedProject(t, store, owner.ID, domain.ExecutionModeScrum)
	c := seedCycle(t, store, p.ID, domain.CycleStatusPlanned)

	start := time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC)
	end := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	c.StartDate, c.EndDate = &start, &end
	require.NoError(t, store.UpdateCycle(ctx, c))

	got, err := store.FindCycleByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.StartDate)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), *got.StartDate)
	assert.Equal(t, end, *got.EndDate)
	assert.Nil(t, got.ActualEndDate)
}

func TestCycles_MoveAndDelete(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	owner := seedUser(t, store, "owner")
	p := seedProject(t, store, owner.ID, domain.ExecutionModeScrum)
	from := seedCycle(t, store, p.ID, domain.CycleStatusActive)
	to := seedCycle(t, store, p.ID, domain.CycleStatusPlanned)

	seedTask(t, store, "Open task", owner.ID, &p.ID, &from.ID, domain.TaskStatusOpen)
	seedTask(t, store, "Review task", owner.ID, &p.ID, &from.ID, domain.TaskStatusPendingReview)
	done := seedTask(t, store, "Done task", owner.ID, &p.ID, &from.ID, domain.TaskStatusCompleted)

	n, err := store.CountUnfinishedTasks(ctx, from.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	moved, err := store.MoveUnfinishedTasks(ctx, from.ID, to.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	counts, err := store.CycleStatusCounts(ctx, from.ID)
	require.NoError(t, err)
	assert.Equal(t, map[domain.TaskStatus]int{domain.TaskStatusCompleted: 1}, counts)

	require.NoError(t, store.DeleteCycle(ctx, from.ID))
	got, err := store.FindTaskByID(ctx, done.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CycleID)

	err = store.DeleteCycle(ctx, from.ID)
	assert.ErrorIs(t, err, domain.ErrCycleNotFound)

	latest, err := store.FindLatestCycle(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, to.ID, latest.ID)
}

func TestTasks_Filters(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	owner := seedUser(t, store, "owner")
	p := seedProject(t, store, owner.ID, domain.ExecutionModeScrum)
	c := seedCycle(t, store, p.ID, domain.CycleStatusPlanned)

	backlog := seedTask(t, store, "Backlog item", owner.ID, &p.ID, nil, domain.TaskStatusOpen)
	seedTask(t, store, "Working item", owner.ID, &p.ID, nil, domain.TaskStatusWorking)
	seedTask(t, store, "Planned item", owner.ID, &p.ID, &c.ID, domain.TaskStatusOpen)

	res, err := store.ListTasks(ctx, access.True, domain.ListTasksParams{ProjectID: &p.ID, BacklogOnly: true, Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, backlog.ID, res.Items[0].ID)

	res, err = store.ListTasks(ctx, access.True, domain.ListTasksParams{
		Statuses: []domain.TaskStatus{domain.TaskStatusOpen}, Limit: 1,
	})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
	assert.Equal(t, 2, res.TotalCount)
	assert.True(t, res.HasMore)

	res, err = store.ListTasks(ctx, access.True, domain.ListTasksParams{CycleID: &c.ID, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
}

func TestTasks_ChildrenAndDelete(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	owner := seedUser(t, store, "owner")

	parent := seedTask(t, store, "Parent task", owner.ID, nil, nil, domain.TaskStatusOpen)
	child := seedTask(t, store, "Child task", owner.ID, nil, nil, domain.TaskStatusOpen)
	child.ParentTaskID = &parent.ID
	child.IsGroup = false
	require.NoError(t, store.UpdateTask(ctx, child))

	n, err := store.CountChildren(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.ParentOf(ctx, child.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, parent.ID, *got)

	now := time.Now().UTC()
	require.NoError(t, store.CreateRelationship(ctx, &domain.Relationship{
		ID: newID(t), SourceTaskID: child.ID, TargetTaskID: parent.ID,
		Type: domain.RelationRelatesTo, CreatedAt: now,
	}))
	require.NoError(t, store.DeleteTask(ctx, child.ID))

	rels, err := store.ListRelationships(ctx, child.ID)
	require.NoError(t, err)
	assert.Empty(t, rels)

	err = store.DeleteTask(ctx, child.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestRelationships_DuplicateKeepsTransactionUsable(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	owner := seedUser(t, store, "owner")
	a := seedTask(t, store, "Task A", owner.ID, nil, nil, domain.TaskStatusOpen)
	b := seedTask(t, store, "Task B", owner.ID, nil, nil, domain.TaskStatusOpen)

	rel := func() *domain.Relationship {
		return &domain.Relationship{
			ID: newID(t), SourceTaskID: a.ID, TargetTaskID: b.ID,
			Type: domain.RelationBlocks, CreatedAt: time.Now().UTC(),
		}
	}
	require.NoError(t, store.CreateRelationship(ctx, rel()))

	err := store.AtomicTask(ctx, func(repo task.Repository) error {
		if err := repo.CreateRelationship(ctx, rel()); !errors.Is(err, domain.ErrAlreadyExists) {
			return err
		}
		return repo.CreateRelationship(ctx, &domain.Relationship{
			ID: newID(t), SourceTaskID: b.ID, TargetTaskID: a.ID,
			Type: domain.RelationIsBlockedBy, IsReverse: true, CreatedAt: time.Now().UTC(),
		})
	})
	require.NoError(t, err)

	rels, err := store.ListRelationships(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.True(t, rels[0].IsReverse)
}

func TestSearch(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	owner := seedUser(t, store, "owner")
	p := seedProject(t, store, owner.ID, domain.ExecutionModeKanban)
	p.Name = "Migration 100% plan"
	require.NoError(t, store.UpdateProject(ctx, p))

	seedTask(t, store, "Plan the MIGRATION", owner.ID, &p.ID, nil, domain.TaskStatusOpen)
	seedTask(t, store, "Unrelated", owner.ID, &p.ID, nil, domain.TaskStatusOpen)

	hits, err := store.Search(ctx, access.True, access.True, "migration", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "task", hits[0].Kind)
	assert.Equal(t, "project", hits[1].Kind)

	hits, err = store.Search(ctx, access.True, access.True, "100%", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, p.ID, hits[0].ID)

	hits, err = store.Search(ctx, access.True, access.True, "migration", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestCatalog(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertTaskType(ctx, &domain.TaskType{
		ID: "Epic", IsContainer: true, AllowedChildTypes: []string{"Story", "Bug"},
	}))
	require.NoError(t, store.UpsertTaskType(ctx, &domain.TaskType{ID: "Story"}))
	require.NoError(t, store.UpsertTaskType(ctx, &domain.TaskType{
		ID: "Epic", Description: "Large", IsContainer: true, AllowedChildTypes: []string{"Story"},
	}))

	types, err := store.ListTaskTypes(ctx)
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "Epic", types[0].ID)
	assert.Equal(t, "Large", types[0].Description)
	assert.Equal(t, []string{"Story"}, types[0].AllowedChildTypes)

	_, err = store.FindTaskType(ctx, "Saga")
	assert.ErrorIs(t, err, domain.ErrTaskTypeNotFound)

	require.NoError(t, store.UpsertCycleTemplate(ctx, &domain.CycleTemplate{Name: "Sprints", DurationDays: 14, Count: 4}))
	require.NoError(t, store.UpsertCycleTemplate(ctx, &domain.CycleTemplate{Name: "Sprints", DurationDays: 7, Count: 2}))
	tmpl, err := store.FindCycleTemplate(ctx, "Sprints")
	require.NoError(t, err)
	assert.Equal(t, 7, tmpl.DurationDays)

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, domain.AdministratorUserID, users[0].ID)
	assert.Equal(t, []string{domain.RoleSystemUser}, users[0].Roles)
}

func TestDraftSessions(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	owner := seedUser(t, store, "owner")
	p := seedProject(t, store, owner.ID, domain.ExecutionModeKanban)

	now := time.Now().UTC()
	session := &domain.DraftSession{
		ID: newID(t), ProjectID: p.ID, ExecutionMode: p.ExecutionMode,
		Prompt: "Build the billing page", Status: domain.DraftSessionDecomposing,
		CreatedBy: owner.ID, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, store.CreateSession(ctx, session))

	session.Status = domain.DraftSessionReviewing
	session.Intents = []string{"Billing page", "Invoices"}
	require.NoError(t, store.UpdateSession(ctx, session))

	draft := &domain.TaskDraft{
		ID:               newID(t),
		SessionID:        session.ID,
		Subject:          "Design",
		Priority:         domain.TaskPriorityHigh,
		Weight:           2,
		Confidence:       0.8,
		ValidationErrors: []string{"Subject must be at least 5 characters"},
		Status:           domain.DraftStatusDraft,
		CreatedAt:        now,
	}
	require.NoError(t, store.CreateDraft(ctx, draft))

	got, err := store.FindSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DraftSessionReviewing, got.Status)
	assert.Equal(t, []string{"Billing page", "Invoices"}, got.Intents)
	require.Len(t, got.Drafts, 1)
	assert.False(t, got.Drafts[0].IsValid())
	assert.Nil(t, got.Drafts[0].TaskID)

	task := seedTask(t, store, "Design billing", owner.ID, &p.ID, nil, domain.TaskStatusOpen)
	draft.Status = domain.DraftStatusAccepted
	draft.TaskID = &task.ID
	require.NoError(t, store.UpdateDraft(ctx, draft))

	got, err = store.FindSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, ptr(task.ID), got.Drafts[0].TaskID)

	_, err = store.FindSession(ctx, newID(t))
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestAPIKeys(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	owner := seedUser(t, store, "owner")

	key := &domain.APIKey{
		ID: newID(t), UserID: owner.ID, KeyType: "sk", Service: "atlas", Version: "v1",
		ShortToken: "abc123", LongSecretHash: "hash", Name: "ci", IsActive: true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateAPIKey(ctx, key))

	got, err := store.FindByShortToken(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, got.UserID)
	assert.Nil(t, got.LastUsedAt)

	later := time.Now().UTC().Add(time.Minute)
	require.NoError(t, store.UpdateLastUsed(ctx, key.ID, later))
	require.NoError(t, store.UpdateLastUsed(ctx, key.ID, later.Add(-time.Hour)))

	got, err = store.FindByShortToken(ctx, "abc123")
	require.NoError(t, err)
	require.NotNil(t, got.LastUsedAt)
	assert.WithinDuration(t, later, *got.LastUsedAt, time.Second)

	err = store.UpdateLastUsed(ctx, newID(t), later)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.FindByShortToken(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	dup := *key
	dup.ID = newID(t)
	assert.ErrorIs(t, store.CreateAPIKey(ctx, &dup), domain.ErrAlreadyExists)
}
