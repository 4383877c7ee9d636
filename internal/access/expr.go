// Package access builds row-visibility predicates for projects, tasks and cycles.
//
// Predicates are typed expression trees rather than SQL text. The persistence
// layer renders them into its query language with bind parameters, so user
// identifiers never reach the query string.
package access

// Entity names a table-like source a predicate can reference.
type Entity string

const (
	EntityProject     Entity = "projects"
	EntityProjectUser Entity = "project_users"
	EntityTask        Entity = "tasks"
	EntityCycle       Entity = "cycles"
	EntityAssignment  Entity = "assignments"
)

// Field is a column of an Entity.
type Field struct {
	Entity Entity
	Column string
}

// Fields referenced by the visibility rules.
var (
	ProjectID    = Field{EntityProject, "id"}
	ProjectOwner = Field{EntityProject, "owner"}

	ProjectUserProject = Field{EntityProjectUser, "project_id"}
	ProjectUserUser    = Field{EntityProjectUser, "user_id"}

	TaskID      = Field{EntityTask, "id"}
	TaskOwner   = Field{EntityTask, "owner"}
	TaskProject = Field{EntityTask, "project_id"}

	CycleID      = Field{EntityCycle, "id"}
	CycleProject = Field{EntityCycle, "project_id"}

	AssignmentTask   = Field{EntityAssignment, "task_id"}
	AssignmentUser   = Field{EntityAssignment, "allocated_to"}
	AssignmentStatus = Field{EntityAssignment, "status"}
)

// Expr is a node of a predicate tree. The set of node types is closed:
// Literal, Eq, In, And and Or.
type Expr interface {
	isExpr()
}

// Literal is a constant truth value.
type Literal struct {
	Value bool
}

// Eq compares a field to a bound value.
type Eq struct {
	Field Field
	Value string
}

// In tests membership of a field in the result of a sub-select.
type In struct {
	Field Field
	Sub   Select
}

// Select projects one field of an entity filtered by Where.
type Select struct {
	Field Field
	Where Expr
}

// And is true when every term is true. An empty And is true.
type And struct {
	Terms []Expr
}

// Or is true when any term is true. An empty Or is false.
type Or struct {
	Terms []Expr
}

func (Literal) isExpr() {}
func (Eq) isExpr()      {}
func (In) isExpr()      {}
func (And) isExpr()     {}
func (Or) isExpr()      {}

// True is the unconditional predicate.
var True Expr = Literal{Value: true}

// AllOf combines terms with And, flattening trivial cases.
func AllOf(terms ...Expr) Expr {
	out := make([]Expr, 0, len(terms))
	for _, t := range terms {
		if lit, ok := t.(Literal); ok {
			if !lit.Value {
				return Literal{Value: false}
			}
			continue
		}
		out = append(out, t)
	}
	switch len(out) {
	case 0:
		return True
	case 1:
		return out[0]
	}
	return And{Terms: out}
}

// AnyOf combines terms with Or, flattening trivial cases.
func AnyOf(terms ...Expr) Expr {
	out := make([]Expr, 0, len(terms))
	for _, t := range terms {
		if lit, ok := t.(Literal); ok {
			if lit.Value {
				return True
			}
			continue
		}
		out = append(out, t)
	}
	switch len(out) {
	case 0:
		return Literal{Value: false}
	case 1:
		return out[0]
	}
	return Or{Terms: out}
}

// IsUnconditional reports whether e is the literal true predicate.
func IsUnconditional(e Expr) bool {
	lit, ok := e.(Literal)
	return ok && lit.Value
}
