// Package hierarchy enforces task containment rules.
//
// A Registry is a read-only snapshot of task types. Validate checks a proposed
// parent/type/cycle combination against it before a task is persisted.
package hierarchy

import (
	"fmt"

	"github.com/rezkam/atlas/internal/domain"
)

// Registry maps task type identifiers to their containment rules.
// It is immutable after construction and safe for concurrent use.
type Registry struct {
	types map[string]domain.TaskType
}

// NewRegistry builds a registry snapshot. Later duplicates replace earlier ones.
func NewRegistry(types []domain.TaskType) *Registry {
	m := make(map[string]domain.TaskType, len(types))
	for _, t := range types {
		allowed := make([]string, len(t.AllowedChildTypes))
		copy(allowed, t.AllowedChildTypes)
		t.AllowedChildTypes = allowed
		m[t.ID] = t
	}
	return &Registry{types: m}
}

// Lookup returns the task type with the given identifier.
// Returns domain.ErrUnknownTaskType if no such type is registered.
func (r *Registry) Lookup(typeID string) (domain.TaskType, error) {
	t, ok := r.types[typeID]
	if !ok {
		return domain.TaskType{}, fmt.Errorf("%w: %s", domain.ErrUnknownTaskType, typeID)
	}
	return t, nil
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	return len(r.types)
}
