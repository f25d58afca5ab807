package query

import (
	"strconv"
	"strings"
)

// SetBuilder assembles the SET clause of a partial UPDATE from fields that
// were actually present in the request.
type SetBuilder struct {
	cols []string
	args []any
}

// Set records an assignment. A nil value clears the column.
func (s *SetBuilder) Set(column string, value any) {
	s.cols = append(s.cols, column)
	s.args = append(s.args, value)
}

// Apply records an assignment for a present Optional field: skipped when the
// field was omitted, NULL when it was explicitly null.
func Apply[T any](s *SetBuilder, column string, o Optional[T]) {
	if !o.Present {
		return
	}
	if o.Null {
		s.Set(column, nil)
		return
	}
	s.Set(column, o.Value)
}

// Empty reports whether no field was present. Callers fall back to a plain
// read instead of issuing an UPDATE with an empty SET list.
func (s *SetBuilder) Empty() bool {
	return len(s.cols) == 0
}

// Clause renders the assignments starting at placeholder index start and
// always appends updated_at = now(). Returns the clause, the parameter list,
// and the next unused placeholder index.
func (s *SetBuilder) Clause(start int) (string, []any, int) {
	parts := make([]string, 0, len(s.cols)+1)
	n := start
	for _, col := range s.cols {
		parts = append(parts, col+" = $"+strconv.Itoa(n))
		n++
	}
	parts = append(parts, "updated_at = now()")
	return strings.Join(parts, ", "), s.args, n
}
