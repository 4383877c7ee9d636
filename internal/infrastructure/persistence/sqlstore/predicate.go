package sqlstore

import (
	"fmt"
	"strings"

	"github.com/rezkam/atlas/internal/access"
)

// columns whitelists every field a predicate may reference. Rendering an
// unlisted field is an error, so a predicate can never name arbitrary SQL.
var columns = map[access.Entity]map[string]bool{
	access.EntityProject:     {"id": true, "owner": true},
	access.EntityProjectUser: {"project_id": true, "user_id": true},
	access.EntityTask:        {"id": true, "owner": true, "project_id": true},
	access.EntityCycle:       {"id": true, "project_id": true},
	access.EntityAssignment:  {"task_id": true, "allocated_to": true, "status": true},
}

// renderPredicate turns a visibility predicate into a SQL boolean
// expression with ? placeholders and its bind arguments.
func renderPredicate(e access.Expr) (string, []any, error) {
	var r predicateRenderer
	if err := r.expr(e); err != nil {
		return "", nil, err
	}
	return r.b.String(), r.args, nil
}

type predicateRenderer struct {
	b    strings.Builder
	args []any
}

func (r *predicateRenderer) expr(e access.Expr) error {
	switch n := e.(type) {
	case access.Literal:
		if n.Value {
			r.b.WriteString("1=1")
		} else {
			r.b.WriteString("1=0")
		}
	case access.Eq:
		col, err := qualify(n.Field)
		if err != nil {
			return err
		}
		r.b.WriteString(col)
		r.b.WriteString(" = ?")
		r.args = append(r.args, n.Value)
	case access.In:
		col, err := qualify(n.Field)
		if err != nil {
			return err
		}
		sub, err := qualify(n.Sub.Field)
		if err != nil {
			return err
		}
		fmt.Fprintf(&r.b, "%s IN (SELECT %s FROM %s WHERE ", col, sub, n.Sub.Field.Entity)
		if err := r.expr(n.Sub.Where); err != nil {
			return err
		}
		r.b.WriteString(")")
	case access.And:
		return r.join(n.Terms, " AND ", "1=1")
	case access.Or:
		return r.join(n.Terms, " OR ", "1=0")
	case nil:
		return fmt.Errorf("nil predicate")
	default:
		return fmt.Errorf("unsupported predicate node %T", e)
	}
	return nil
}

func (r *predicateRenderer) join(terms []access.Expr, sep, empty string) error {
	if len(terms) == 0 {
		r.b.WriteString(empty)
		return nil
	}
	r.b.WriteString("(")
	for i, t := range terms {
		if i > 0 {
			r.b.WriteString(sep)
		}
		if err := r.expr(t); err != nil {
			return err
		}
	}
	r.b.WriteString(")")
	return nil
}

func qualify(f access.Field) (string, error) {
	if !columns[f.Entity][f.Column] {
		return "", fmt.Errorf("predicate references unknown column %s.%s", f.Entity, f.Column)
	}
	return string(f.Entity) + "." + f.Column, nil
}
