package tabular

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"My Data-2024.csv", "my_data_2024"},
		{"sales.csv", "sales"},
		{"Weird!@#Name.csv", "weirdname"},
		{"already_clean.xlsx", "already_clean"},
		{"UPPER CASE.CSV", "upper_case"},
	}
	for _, tt := range tests {
		got := TableName(tt.filename)
		assert.Equal(t, tt.want, got)
		assert.Regexp(t, "^[a-z0-9_]*$", got)
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sql_data.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSchemaSentinelBeforeAnyUpload(t *testing.T) {
	s := openTestStore(t)
	schema := s.Schema(context.Background())
	assert.Equal(t, SchemaNoDatabase, schema)
	assert.True(t, SchemaMissing(schema))
}

func TestIngestCSVAndQuery(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	csvData := []byte("name,age,score\nalice,30,91.5\nbob,25,88.0\n")
	res, err := s.IngestTable(ctx, csvData, "My Data-2024.csv")
	require.NoError(t, err)
	assert.Equal(t, "my_data_2024", res.Table)
	assert.Equal(t, 2, res.RowsInserted)
	assert.Equal(t, []string{"name", "age", "score"}, res.Columns)

	schema := s.Schema(ctx)
	assert.False(t, SchemaMissing(schema))
	assert.Contains(t, schema, "my_data_2024")

	cols, rows, err := s.Execute(ctx, `SELECT name, age FROM my_data_2024 ORDER BY age`)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age"}, cols)
	require.Len(t, rows, 2)
	assert.Equal(t, "bob", rows[0]["name"])
	assert.EqualValues(t, 25, rows[0]["age"])
}

func TestIngestReplacesTableWholesale(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.IngestTable(ctx, []byte("a,b\n1,2\n3,4\n"), "data.csv")
	require.NoError(t, err)

	res, err := s.IngestTable(ctx, []byte("a,b\n9,9\n"), "data.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowsInserted)

	_, rows, err := s.Execute(ctx, `SELECT * FROM data`)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "re-upload must replace, not append")
}

func TestColumnTypeInference(t *testing.T) {
	rows := [][]string{
		{"1", "1.5", "hello", ""},
		{"2", "2", "3", "x"},
	}
	types := inferColumnTypes([]string{"a", "b", "c", "d"}, rows)
	assert.Equal(t, []string{"INTEGER", "REAL", "TEXT", "TEXT"}, types)
}

func TestIngestEmptyFile(t *testing.T) {
	s := openTestStore(t)
	_, err := s.IngestTable(context.Background(), []byte(""), "empty.csv")
	assert.Error(t, err)
}

func TestFormatMarkdownTable(t *testing.T) {
	out := FormatMarkdownTable([]string{"name", "age"}, []map[string]any{
		{"name": "alice", "age": int64(30)},
	})
	assert.Contains(t, out, "| name | age |")
	assert.Contains(t, out, "|---|---|")
	assert.Contains(t, out, "| alice | 30 |")

	assert.Equal(t, "*(no results)*", FormatMarkdownTable([]string{"a"}, nil))
}
