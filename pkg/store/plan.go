package store

import (
	"fmt"
	"strings"
)

// Op is a comparison operator allowed in a predicate.
type Op string

const (
	OpEq  Op = "="
	OpGte Op = ">="
	OpLte Op = "<="
)

// Predicate is a single column comparison.
type Predicate struct {
	Column string
	Op     Op
	Value  any
}

// Plan describes a filtered, ordered and capped listing query.
type Plan struct {
	Predicates []Predicate
	// Text is matched case-insensitively as a substring of title, address or description.
	Text string
	// When RestrictIDs is set only listings in IDs are returned; an empty IDs
	// slice then yields no rows.
	RestrictIDs bool
	IDs         []string
	Limit       int
}

var planColumns = map[string]string{
	"rent":      "l.rent",
	"rooms":     "l.rooms",
	"furnished": "l.furnished",
	"city":      "l.city",
}

var planOps = map[Op]bool{OpEq: true, OpGte: true, OpLte: true}

// where renders the plan's WHERE clause and arguments.
func (p Plan) where() (string, []any, error) {
	clauses := []string{"l.available = 1"}
	var args []any

	for _, pr := range p.Predicates {
		col, ok := planColumns[pr.Column]
		if !ok {
			return "", nil, fmt.Errorf("unsupported column %q", pr.Column)
		}
		if !planOps[pr.Op] {
			return "", nil, fmt.Errorf("unsupported operator %q", pr.Op)
		}
		if pr.Column == "city" && pr.Op == OpEq {
			clauses = append(clauses, col+" = ? COLLATE NOCASE")
		} else {
			clauses = append(clauses, fmt.Sprintf("%s %s ?", col, pr.Op))
		}
		args = append(args, pr.Value)
	}

	if p.Text != "" {
		pattern := "%" + escapeLike(strings.ToLower(p.Text)) + "%"
		clauses = append(clauses,
			`(LOWER(l.title) LIKE ? ESCAPE '\' OR LOWER(l.address) LIKE ? ESCAPE '\' OR LOWER(l.description) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}

	if p.RestrictIDs {
		if len(p.IDs) == 0 {
			clauses = append(clauses, "0")
		} else {
			clauses = append(clauses, "l.id IN ("+placeholders(len(p.IDs))+")")
			for _, id := range p.IDs {
				args = append(args, id)
			}
		}
	}

	return strings.Join(clauses, " AND "), args, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
