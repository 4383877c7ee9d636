package access

import (
	"slices"

	"github.com/rezkam/atlas/internal/domain"
)

// User is the principal a predicate is built for.
// It is always passed explicitly; there is no ambient current user.
type User struct {
	ID    string
	Roles []string
}

// HasRole reports whether the user holds role.
func (u User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// HasFullAccess reports whether visibility rules are bypassed for the user.
func (u User) HasFullAccess() bool {
	return u.ID == domain.AdministratorUserID || u.HasRole(domain.RoleSystemUser)
}

// IsProjectManager reports whether the user holds the Project Manager role.
func (u User) IsProjectManager() bool {
	return u.HasRole(domain.RoleProjectManager)
}

// Kind selects the entity a predicate scopes.
type Kind string

const (
	KindProject Kind = "project"
	KindTask    Kind = "task"
	KindCycle   Kind = "cycle"
)

// PredicateFor returns the visibility predicate of kind for user.
// Predicates are built per call and never cached.
func PredicateFor(kind Kind, user User) Expr {
	switch kind {
	case KindProject:
		return Projects(user)
	case KindTask:
		return Tasks(user)
	case KindCycle:
		return Cycles(user)
	default:
		return Literal{Value: false}
	}
}

// Projects scopes the projects table.
//
// Project managers see projects they own or belong to; everyone else sees
// projects they belong to.
func Projects(user User) Expr {
	if user.HasFullAccess() {
		return True
	}
	member := In{Field: ProjectID, Sub: memberProjects(user)}
	if user.IsProjectManager() {
		return AnyOf(Eq{Field: ProjectOwner, Value: user.ID}, member)
	}
	return member
}

// Tasks scopes the tasks table.
//
// Project managers see tasks they own, tasks openly assigned to them and
// tasks of projects they can see. Everyone else sees tasks openly assigned
// to them and tasks of projects they belong to.
func Tasks(user User) Expr {
	if user.HasFullAccess() {
		return True
	}
	assigned := In{Field: TaskID, Sub: openAssignments(user)}
	if user.IsProjectManager() {
		return AnyOf(
			Eq{Field: TaskOwner, Value: user.ID},
			assigned,
			In{Field: TaskProject, Sub: Select{Field: ProjectID, Where: Projects(user)}},
		)
	}
	return AnyOf(
		assigned,
		In{Field: TaskProject, Sub: memberProjects(user)},
	)
}

// Cycles scopes the cycles table. A cycle is visible when its project is.
func Cycles(user User) Expr {
	if user.HasFullAccess() {
		return True
	}
	return In{Field: CycleProject, Sub: Select{Field: ProjectID, Where: Projects(user)}}
}

// ByID narrows a list predicate to a single row so that point reads and
// lists agree on visibility.
func ByID(scope Expr, id Field, value string) Expr {
	return AllOf(scope, Eq{Field: id, Value: value})
}

func memberProjects(user User) Select {
	return Select{
		Field: ProjectUserProject,
		Where: Eq{Field: ProjectUserUser, Value: user.ID},
	}
}

func openAssignments(user User) Select {
	return Select{
		Field: AssignmentTask,
		Where: AllOf(
			Eq{Field: AssignmentUser, Value: user.ID},
			Eq{Field: AssignmentStatus, Value: string(domain.AssignmentStatusOpen)},
		),
	}
}
