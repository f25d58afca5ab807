// Package query builds parameterized SQL fragments shared by the count and
// data halves of every paginated listing.
package query

import (
	"strconv"
	"strings"
	"time"
)

// Builder accumulates WHERE fragments with positional placeholders. It is
// seeded with a base predicate (the tenant check) and hands out placeholder
// indices in append order, so the same Builder value can back both the
// COUNT(*) query and the data query without the indices drifting apart.
type Builder struct {
	frags []string
	args  []any
	next  int
}

// NewBuilder starts a builder from a base predicate. The base predicate must
// reference $1..$len(args) in order.
func NewBuilder(base string, args ...any) *Builder {
	return &Builder{
		frags: []string{base},
		args:  append([]any{}, args...),
		next:  len(args) + 1,
	}
}

// Equal appends `column = $n`.
func (b *Builder) Equal(column string, value any) {
	b.frags = append(b.frags, column+" = $"+strconv.Itoa(b.next))
	b.args = append(b.args, value)
	b.next++
}

// Search appends a case-insensitive substring match across columns, all
// sharing one placeholder. SQL wildcard characters in the term are passed
// through unescaped; `%` in user input matches everything. Escaping would
// change observable behavior for existing callers, so it is left as is.
func (b *Builder) Search(term string, columns ...string) {
	placeholder := "$" + strconv.Itoa(b.next)
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = col + " ILIKE " + placeholder
	}
	b.frags = append(b.frags, "("+strings.Join(parts, " OR ")+")")
	b.args = append(b.args, "%"+term+"%")
	b.next++
}

// From appends `column >= $n` for the lower bound of a date range.
func (b *Builder) From(column string, t time.Time) {
	b.frags = append(b.frags, column+" >= $"+strconv.Itoa(b.next))
	b.args = append(b.args, t)
	b.next++
}

// Until appends `column <= $n` for the upper bound of a date range.
func (b *Builder) Until(column string, t time.Time) {
	b.frags = append(b.frags, column+" <= $"+strconv.Itoa(b.next))
	b.args = append(b.args, t)
	b.next++
}

// IsNull appends `column IS NULL` without consuming a placeholder.
func (b *Builder) IsNull(column string) {
	b.frags = append(b.frags, column+" IS NULL")
}

// IsNotNull appends `column IS NOT NULL` without consuming a placeholder.
func (b *Builder) IsNotNull(column string) {
	b.frags = append(b.frags, column+" IS NOT NULL")
}

// Where returns the conjoined predicate and its parameter list. The slice is
// shared with the builder; callers append further values (limit, offset)
// starting at Next.
func (b *Builder) Where() (string, []any) {
	return strings.Join(b.frags, " AND "), b.args
}

// Next reports the next unused placeholder index.
func (b *Builder) Next() int {
	return b.next
}
