package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestBuildRandomQuery_CategoryPlaceholders(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		inClause string
		random   string
	}{
		{"postgres numbers placeholders", DialectPostgres, `"type" IN ($1, $2)`, "RANDOM()"},
		{"mysql uses question marks", DialectMySQL, "`type` IN (?, ?)", "RAND()"},
		{"sqlite uses question marks", DialectSQLite, "`type` IN (?, ?)", "RANDOM()"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := BuildRandomQuery(Filter{Categories: []string{"k", "a"}}, tt.dialect)
			require.NoError(t, err)

			assert.Contains(t, query, tt.inClause)
			assert.Contains(t, query, "ORDER BY "+tt.random)
			assert.Contains(t, query, "LIMIT")
			require.GreaterOrEqual(t, len(args), 2)
			assert.Equal(t, []any{"k", "a"}, args[:2])
		})
	}
}

func TestBuildRandomQuery_KeepsCallerOrder(t *testing.T) {
	_, args, err := BuildRandomQuery(Filter{Categories: []string{"c", "a", "b"}}, DialectPostgres)
	require.NoError(t, err)
	assert.Equal(t, []any{"c", "a", "b"}, args[:3])
}

func TestBuildRandomQuery_LengthBounds(t *testing.T) {
	f := Filter{Categories: []string{"a"}, MinLength: intPtr(10), MaxLength: intPtr(20)}
	query, args, err := BuildRandomQuery(f, DialectPostgres)
	require.NoError(t, err)

	assert.Contains(t, query, `"length" >= $2`)
	assert.Contains(t, query, `"length" <= $3`)
	require.GreaterOrEqual(t, len(args), 3)
	assert.Equal(t, "a", args[0])
	assert.EqualValues(t, 10, args[1])
	assert.EqualValues(t, 20, args[2])
}

func TestBuildRandomQuery_ValuesNeverInlined(t *testing.T) {
	hostile := "a'); DROP TABLE hitokoto; --"
	query, args, err := BuildRandomQuery(Filter{Categories: []string{hostile}}, DialectMySQL)
	require.NoError(t, err)

	assert.NotContains(t, query, "DROP TABLE")
	assert.Equal(t, hostile, args[0])
}

func TestBuildRandomQuery_EmptyFilterHasNoWhere(t *testing.T) {
	query, _, err := BuildRandomQuery(Filter{}, DialectSQLite)
	require.NoError(t, err)
	assert.NotContains(t, query, "WHERE")
	assert.Contains(t, query, "ORDER BY RANDOM()")
}

func TestBuildRandomQuery_Deterministic(t *testing.T) {
	f := Filter{Categories: []string{"a", "b"}, MinLength: intPtr(3)}
	for _, d := range []Dialect{DialectPostgres, DialectMySQL, DialectSQLite} {
		first, firstArgs, err := BuildRandomQuery(f, d)
		require.NoError(t, err)
		second, secondArgs, err := BuildRandomQuery(f, d)
		require.NoError(t, err)

		assert.Equal(t, first, second, "dialect %s", d)
		assert.Equal(t, firstArgs, secondArgs, "dialect %s", d)
		assert.Equal(t, 1, strings.Count(first, "SELECT"), "dialect %s", d)
		assert.NotContains(t, first, ";", "dialect %s", d)
	}
}

func TestFilter_IsEmpty(t *testing.T) {
	tests := []struct {
		name     string
		filter   Filter
		expected bool
	}{
		{"zero value", Filter{}, true},
		{"empty category slice", Filter{Categories: []string{}}, true},
		{"category", Filter{Categories: []string{"a"}}, false},
		{"min length", Filter{MinLength: intPtr(1)}, false},
		{"max length", Filter{MaxLength: intPtr(1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.filter.IsEmpty())
		})
	}
}
