package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/atlas/internal/domain"
)

func TestFullAccessAlwaysUnconditional(t *testing.T) {
	users := []User{
		{ID: domain.AdministratorUserID},
		{ID: "ops@example.com", Roles: []string{domain.RoleSystemUser}},
		{ID: "ops@example.com", Roles: []string{domain.RoleSystemUser, domain.RoleProjectManager}},
	}
	for _, u := range users {
		for _, kind := range []Kind{KindProject, KindTask, KindCycle} {
			assert.True(t, IsUnconditional(PredicateFor(kind, u)), "user %s kind %s", u.ID, kind)
		}
	}
}

func TestProjects_RegularUserIsMembershipOnly(t *testing.T) {
	pred := Projects(User{ID: "alice"})

	in, ok := pred.(In)
	require.True(t, ok)
	assert.Equal(t, ProjectID, in.Field)
	assert.Equal(t, ProjectUserProject, in.Sub.Field)
	assert.Equal(t, Eq{Field: ProjectUserUser, Value: "alice"}, in.Sub.Where)
}

func TestProjects_ManagerAddsOwnership(t *testing.T) {
	pred := Projects(User{ID: "pm", Roles: []string{domain.RoleProjectManager}})

	or, ok := pred.(Or)
	require.True(t, ok)
	require.Len(t, or.Terms, 2)
	assert.Equal(t, Eq{Field: ProjectOwner, Value: "pm"}, or.Terms[0])
}

func TestTasks_RegularUser(t *testing.T) {
	pred := Tasks(User{ID: "bob"})

	or, ok := pred.(Or)
	require.True(t, ok)
	require.Len(t, or.Terms, 2)

	assigned := or.Terms[0].(In)
	assert.Equal(t, TaskID, assigned.Field)
	assert.Equal(t, And{Terms: []Expr{
		Eq{Field: AssignmentUser, Value: "bob"},
		Eq{Field: AssignmentStatus, Value: "Open"},
	}}, assigned.Sub.Where)

	member := or.Terms[1].(In)
	assert.Equal(t, TaskProject, member.Field)
}

func TestTasks_ManagerIncludesOwnedAndVisibleProjects(t *testing.T) {
	pm := User{ID: "pm", Roles: []string{domain.RoleProjectManager}}
	or, ok := Tasks(pm).(Or)
	require.True(t, ok)
	require.Len(t, or.Terms, 3)

	assert.Equal(t, Eq{Field: TaskOwner, Value: "pm"}, or.Terms[0])
	projects := or.Terms[2].(In)
	assert.Equal(t, TaskProject, projects.Field)
	assert.Equal(t, Projects(pm), projects.Sub.Where)
}

func TestCycles_FollowProjectVisibility(t *testing.T) {
	u := User{ID: "carol"}
	in, ok := Cycles(u).(In)
	require.True(t, ok)
	assert.Equal(t, CycleProject, in.Field)
	assert.Equal(t, Projects(u), in.Sub.Where)
}

func TestByID(t *testing.T) {
	assert.Equal(t, Eq{Field: TaskID, Value: "t1"}, ByID(True, TaskID, "t1"))

	scoped := ByID(Tasks(User{ID: "bob"}), TaskID, "t1")
	and, ok := scoped.(And)
	require.True(t, ok)
	assert.Len(t, and.Terms, 2)
}

func TestCombinators(t *testing.T) {
	eq := Eq{Field: TaskOwner, Value: "x"}

	assert.Equal(t, Literal{Value: false}, AnyOf())
	assert.Equal(t, True, AllOf())
	assert.Equal(t, True, AnyOf(eq, True))
	assert.Equal(t, Literal{Value: false}, AllOf(eq, Literal{Value: false}))
	assert.Equal(t, eq, AllOf(True, eq))
	assert.Equal(t, eq, AnyOf(Literal{Value: false}, eq))
}

func TestPredicateFor_UnknownKindDeniesAll(t *testing.T) {
	assert.Equal(t, Literal{Value: false}, PredicateFor(Kind("report"), User{ID: "a"}))
}
