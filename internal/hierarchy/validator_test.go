package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/atlas/internal/domain"
	"github.com/rezkam/atlas/internal/ptr"
)

func testRegistry() *Registry {
	return NewRegistry([]domain.TaskType{
		{ID: "Epic", IsContainer: true, AllowedChildTypes: []string{"Story", "Bug"}},
		{ID: "Story", IsContainer: true},
		{ID: "Bug"},
		{ID: "Task"},
	})
}

func TestValidate_PassesWithoutParentOrType(t *testing.T) {
	reg := testRegistry()

	assert.NoError(t, Validate(reg, Proposal{TypeID: ptr.To("Bug")}))
	assert.NoError(t, Validate(reg, Proposal{Parent: &domain.Task{TypeID: ptr.To("Bug")}}))
	// Untyped parent skips every check, including the cycle check.
	assert.NoError(t, Validate(reg, Proposal{
		TypeID:        ptr.To("Task"),
		Parent:        &domain.Task{},
		CycleID:       ptr.To("c-2"),
		ActiveCycleID: ptr.To("c-1"),
	}))
}

func TestValidate_NotAContainer(t *testing.T) {
	err := Validate(testRegistry(), Proposal{
		TypeID: ptr.To("Task"),
		Parent: &domain.Task{TypeID: ptr.To("Bug")},
	})
	assert.ErrorIs(t, err, domain.ErrNotAContainer)
}

func TestValidate_DisallowedChildType(t *testing.T) {
	err := Validate(testRegistry(), Proposal{
		TypeID: ptr.To("Task"),
		Parent: &domain.Task{TypeID: ptr.To("Epic")},
	})
	assert.ErrorIs(t, err, domain.ErrDisallowedChildType)
}

func TestValidate_EmptyAllowListAcceptsAnyChild(t *testing.T) {
	err := Validate(testRegistry(), Proposal{
		TypeID: ptr.To("Task"),
		Parent: &domain.Task{TypeID: ptr.To("Story")},
	})
	assert.NoError(t, err)
}

func TestValidate_EmptyAllowListAcceptsRandomChildTypes(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 42))
	types := []domain.TaskType{{ID: "Container", IsContainer: true}}
	for i := range 200 {
		types = append(types, domain.TaskType{
			ID:          fmt.Sprintf("type-%d-%x", i, rng.Uint64()),
			IsContainer: rng.IntN(2) == 0,
		})
	}
	reg := NewRegistry(types)
	parent := &domain.Task{TypeID: ptr.To("Container")}

	for _, child := range types {
		err := Validate(reg, Proposal{TypeID: ptr.To(child.ID), Parent: parent})
		assert.NoError(t, err, "child type %s", child.ID)
		assert.NotErrorIs(t, err, domain.ErrDisallowedChildType)
	}
}

func TestValidate_CycleConflict(t *testing.T) {
	reg := testRegistry()
	parent := &domain.Task{TypeID: ptr.To("Epic")}

	err := Validate(reg, Proposal{
		TypeID:        ptr.To("Story"),
		Parent:        parent,
		CycleID:       ptr.To("cycle-planned"),
		ActiveCycleID: ptr.To("cycle-active"),
	})
	require.ErrorIs(t, err, domain.ErrCycleConflict)

	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "cycle-active", conflict.EntityID)

	// Same cycle or no cycle passes.
	assert.NoError(t, Validate(reg, Proposal{
		TypeID: ptr.To("Story"), Parent: parent,
		CycleID: ptr.To("cycle-active"), ActiveCycleID: ptr.To("cycle-active"),
	}))
	assert.NoError(t, Validate(reg, Proposal{
		TypeID: ptr.To("Story"), Parent: parent, ActiveCycleID: ptr.To("cycle-active"),
	}))
}

func TestValidate_UnknownType(t *testing.T) {
	err := Validate(testRegistry(), Proposal{
		TypeID: ptr.To("Spike"),
		Parent: &domain.Task{TypeID: ptr.To("Epic")},
	})
	assert.ErrorIs(t, err, domain.ErrUnknownTaskType)
}

func TestIsGroup(t *testing.T) {
	reg := testRegistry()

	group, err := IsGroup(reg, ptr.To("Epic"))
	require.NoError(t, err)
	assert.True(t, group)

	group, err = IsGroup(reg, ptr.To("Bug"))
	require.NoError(t, err)
	assert.False(t, group)

	group, err = IsGroup(reg, nil)
	require.NoError(t, err)
	assert.False(t, group)

	_, err = IsGroup(reg, ptr.To("Nope"))
	assert.ErrorIs(t, err, domain.ErrUnknownTaskType)
}

func TestRegistry_SnapshotIsIsolated(t *testing.T) {
	types := []domain.TaskType{{ID: "Epic", IsContainer: true, AllowedChildTypes: []string{"Story"}}}
	reg := NewRegistry(types)

	types[0].AllowedChildTypes[0] = "Bug"

	epic, err := reg.Lookup("Epic")
	require.NoError(t, err)
	assert.Equal(t, []string{"Story"}, epic.AllowedChildTypes)
	assert.Equal(t, 1, reg.Len())
}

type mapParents map[string]string

func (m mapParents) ParentOf(_ context.Context, id string) (*string, error) {
	if p, ok := m[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func TestCheckNoLoop(t *testing.T) {
	ctx := context.Background()
	parents := mapParents{"c": "b", "b": "a"}

	assert.NoError(t, CheckNoLoop(ctx, parents, "d", "c"))
	assert.ErrorIs(t, CheckNoLoop(ctx, parents, "a", "c"), domain.ErrHierarchyLoop)
	assert.ErrorIs(t, CheckNoLoop(ctx, parents, "a", "a"), domain.ErrHierarchyLoop)
}
