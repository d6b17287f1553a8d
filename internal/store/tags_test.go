package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notely/internal/models"
)

func TestPlanTags(t *testing.T) {
	tests := []struct {
		name       string
		current    []models.Tag
		desired    []string
		wantAttach []string
		wantDetach []int64
	}{
		{
			name:       "fresh note attaches everything",
			desired:    []string{"work", "urgent"},
			wantAttach: []string{"work", "urgent"},
		},
		{
			name:       "replace a,b with b,c",
			current:    []models.Tag{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}},
			desired:    []string{"b", "c"},
			wantAttach: []string{"c"},
			wantDetach: []int64{1},
		},
		{
			name:       "duplicates in desired collapse",
			desired:    []string{"work", "work", "urgent", "work"},
			wantAttach: []string{"work", "urgent"},
		},
		{
			name:       "empty desired detaches all",
			current:    []models.Tag{{ID: 7, Name: "x"}, {ID: 8, Name: "y"}},
			desired:    nil,
			wantDetach: []int64{7, 8},
		},
		{
			name:    "unchanged set is a no-op",
			current: []models.Tag{{ID: 3, Name: "go"}},
			desired: []string{"go"},
		},
		{
			name:       "names are case-sensitive",
			current:    []models.Tag{{ID: 4, Name: "Go"}},
			desired:    []string{"go"},
			wantAttach: []string{"go"},
			wantDetach: []int64{4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := planTags(tt.current, tt.desired)
			assert.Equal(t, tt.wantAttach, plan.Attach)
			assert.Equal(t, tt.wantDetach, plan.Detach)
			assert.Equal(t, len(tt.wantAttach) == 0 && len(tt.wantDetach) == 0, plan.empty())
		})
	}
}

func TestContainsPatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, "%100!%!_done!!%", containsPattern("100%_Done!"))
	assert.Equal(t, "%foo%", containsPattern("FOO"))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}

func TestDialectFor(t *testing.T) {
	d, err := dialectFor("")
	assert.NoError(t, err)
	assert.Equal(t, DriverSQLite, d.name)

	d, err = dialectFor(DriverMySQL)
	assert.NoError(t, err)
	assert.Equal(t, " ON DUPLICATE KEY UPDATE name = name", d.ignoreDuplicate("name"))

	_, err = dialectFor("oracle")
	assert.Error(t, err)
}

func TestMySQLDSNForcesParseTime(t *testing.T) {
	dsn, err := mysqlDialect.dsn("notes:secret@tcp(localhost:3306)/notes")
	assert.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")
}

// skipInserts drops every write so INSERTs never create rows.
type skipInserts struct {
	querier
}

func (skipInserts) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, nil
}

func TestEnsureTagsRejectsPartialLookup(t *testing.T) {
	s, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "tags.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	ids, err := s.ensureTags(ctx, s.conn, []string{"existing"})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	_, err = s.ensureTags(ctx, skipInserts{s.conn}, []string{"existing", "missing"})
	assert.ErrorContains(t, err, "found 1 of 2")
}

func TestMySQLTagLookupIsLockingRead(t *testing.T) {
	assert.Equal(t, " FOR SHARE", mysqlDialect.lockingRead)
	assert.Empty(t, sqliteDialect.lockingRead)
}
