package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptionalDistinguishesOmittedAndNull(t *testing.T) {
	var body struct {
		Name    Optional[string] `json:"name"`
		EndDate Optional[string] `json:"end_date"`
		Status  Optional[string] `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Dock 4","end_date":null}`), &body))

	require.True(t, body.Name.Present)
	require.False(t, body.Name.Null)
	require.Equal(t, "Dock 4", body.Name.Value)

	require.True(t, body.EndDate.Present)
	require.True(t, body.EndDate.Null)
	require.Nil(t, body.EndDate.Ptr())

	require.False(t, body.Status.Present)
}

func TestSetBuilderClause(t *testing.T) {
	var s SetBuilder
	Apply(&s, "name", Optional[string]{Present: true, Value: "Dock 4"})
	Apply(&s, "end_date", Optional[string]{Present: true, Null: true})
	Apply(&s, "status", Optional[string]{})

	require.False(t, s.Empty())
	clause, args, next := s.Clause(1)
	require.Equal(t, "name = $1, end_date = $2, updated_at = now()", clause)
	require.Equal(t, []any{"Dock 4", nil}, args)
	require.Equal(t, 3, next)
}

func TestSetBuilderEmpty(t *testing.T) {
	var s SetBuilder
	require.True(t, s.Empty())

	clause, args, next := s.Clause(4)
	require.Equal(t, "updated_at = now()", clause)
	require.Empty(t, args)
	require.Equal(t, 4, next)
}
