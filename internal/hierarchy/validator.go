package hierarchy

import (
	"context"
	"fmt"

	"github.com/rezkam/atlas/internal/domain"
)

// maxDepth bounds ancestor walks so corrupted data cannot spin forever.
const maxDepth = 1000

// Proposal is the state a task would have after a write.
type Proposal struct {
	// TypeID is the proposed task type (nil = untyped).
	TypeID *string

	// CycleID is the proposed cycle (nil = not in a cycle).
	CycleID *string

	// Parent is the proposed parent task, loaded by the caller (nil = top level).
	Parent *domain.Task

	// ActiveCycleID is the Active cycle of the task's project, if any.
	ActiveCycleID *string
}

// Validate checks a proposal against the containment rules.
//
// Nothing is checked when the task has no parent, no type, or the parent
// has no type. Otherwise the parent type must be a container, must allow
// the child's type, and a task may not target a cycle other than the
// project's active one.
//
// Returns domain.ErrNotAContainer, domain.ErrDisallowedChildType,
// domain.ErrCycleConflict (as *domain.ConflictError carrying the active
// cycle id) or domain.ErrUnknownTaskType.
func Validate(reg *Registry, p Proposal) error {
	if p.Parent == nil || p.TypeID == nil {
		return nil
	}
	if p.Parent.TypeID == nil {
		return nil
	}

	parentType, err := reg.Lookup(*p.Parent.TypeID)
	if err != nil {
		return err
	}
	childType, err := reg.Lookup(*p.TypeID)
	if err != nil {
		return err
	}

	if !parentType.IsContainer {
		return fmt.Errorf("%w: %s cannot have child tasks", domain.ErrNotAContainer, parentType.ID)
	}

	if !parentType.AllowsChild(childType.ID) {
		return fmt.Errorf("%w: %s cannot be child of %s", domain.ErrDisallowedChildType, childType.ID, parentType.ID)
	}

	if p.ActiveCycleID != nil && p.CycleID != nil && *p.CycleID != *p.ActiveCycleID {
		return domain.NewConflictError(domain.ErrCycleConflict, *p.ActiveCycleID)
	}

	return nil
}

// IsGroup derives the is_group flag for a task of the given type.
// Untyped tasks are never groups.
func IsGroup(reg *Registry, typeID *string) (bool, error) {
	if typeID == nil {
		return false, nil
	}
	t, err := reg.Lookup(*typeID)
	if err != nil {
		return false, err
	}
	return t.IsContainer, nil
}

// ParentLookup resolves a task's parent for ancestor walks.
type ParentLookup interface {
	// ParentOf returns the parent id of taskID, or nil for a top-level task.
	ParentOf(ctx context.Context, taskID string) (*string, error)
}

// CheckNoLoop verifies that placing taskID under parentID does not make the
// task its own ancestor. Returns domain.ErrHierarchyLoop on a cycle.
func CheckNoLoop(ctx context.Context, lookup ParentLookup, taskID, parentID string) error {
	current := &parentID
	for depth := 0; current != nil; depth++ {
		if *current == taskID {
			return fmt.Errorf("%w: %s", domain.ErrHierarchyLoop, taskID)
		}
		if depth >= maxDepth {
			return fmt.Errorf("%w: ancestry deeper than %d", domain.ErrHierarchyLoop, maxDepth)
		}
		next, err := lookup.ParentOf(ctx, *current)
		if err != nil {
			return fmt.Errorf("failed to walk ancestors: %w", err)
		}
		current = next
	}
	return nil
}
