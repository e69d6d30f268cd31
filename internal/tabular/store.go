package tabular

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/xuri/excelize/v2"
)

// Sentinel schema strings, inspected downstream to short-circuit SQL
// generation when there is nothing to query.
const (
	SchemaNoDatabase = "No database found. Upload a CSV first."
	SchemaEmpty      = "Database is empty. Upload CSV data first."
)

// SchemaMissing reports whether a schema string is one of the no-data
// sentinels.
func SchemaMissing(schema string) bool {
	return strings.Contains(schema, "No database found") ||
		strings.Contains(schema, "Database is empty")
}

// Store keeps uploaded tabular data in a single sqlite file.
type Store struct {
	db   *bun.DB
	path string
}

// Open attaches to the sqlite file at path. The file itself is only
// created on first ingestion, so Schema can distinguish "never uploaded"
// from "empty".
func Open(path string, verbose bool) (*Store, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+path+"?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(verbose)))
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// IngestResult reports what a tabular upload created.
type IngestResult struct {
	Table        string
	RowsInserted int
	Columns      []string
}

var tableNameStrip = regexp.MustCompile(`[^a-z0-9_]`)

// TableName derives a sqlite table name from an uploaded filename:
// extension dropped, lower-cased, spaces and hyphens folded to
// underscores, everything else outside [a-z0-9_] removed.
func TableName(filename string) string {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")
	return tableNameStrip.ReplaceAllString(name, "")
}

// IngestTable parses CSV or XLSX bytes and replaces the derived table
// wholesale: same filename twice means drop and recreate, never merge.
func (s *Store) IngestTable(ctx context.Context, data []byte, filename string) (*IngestResult, error) {
	log.Info().Str("file", filename).Msg("processing tabular upload")

	var records [][]string
	var err error
	if strings.HasSuffix(strings.ToLower(filename), ".xlsx") {
		records, err = parseXLSX(data)
	} else {
		records, err = parseCSV(data)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("file %s has no rows", filename)
	}

	table := TableName(filename)
	if table == "" {
		return nil, fmt.Errorf("filename %s yields an empty table name", filename)
	}

	columns := normalizeHeader(records[0])
	rows := records[1:]
	types := inferColumnTypes(columns, rows)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin ingest tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %q`, table)); err != nil {
		return nil, fmt.Errorf("drop table %s: %w", table, err)
	}

	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = fmt.Sprintf("%q %s", col, types[i])
	}
	ddl := fmt.Sprintf(`CREATE TABLE %q (%s)`, table, strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}

	placeholders := "(" + strings.TrimRight(strings.Repeat("?, ", len(columns)), ", ") + ")"
	insert := fmt.Sprintf(`INSERT INTO %q VALUES %s`, table, placeholders)
	for _, row := range rows {
		args := make([]any, len(columns))
		for i := range columns {
			if i < len(row) {
				args[i] = typedValue(row[i], types[i])
			}
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return nil, fmt.Errorf("insert into %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit ingest: %w", err)
	}

	log.Info().Str("table", table).Int("rows", len(rows)).Msg("tabular upload stored")
	return &IngestResult{Table: table, RowsInserted: len(rows), Columns: columns}, nil
}

// Schema returns the creation statements of every user table, or a
// sentinel when there is no data to query. Errors fail closed into the
// empty sentinel.
func (s *Store) Schema(ctx context.Context) string {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return SchemaNoDatabase
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT sql FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		log.Error().Err(err).Msg("schema query failed")
		return SchemaEmpty
	}
	defer rows.Close()

	var stmts []string
	for rows.Next() {
		var stmt sql.NullString
		if err := rows.Scan(&stmt); err != nil {
			log.Error().Err(err).Msg("schema scan failed")
			return SchemaEmpty
		}
		if stmt.Valid {
			stmts = append(stmts, stmt.String+";")
		}
	}
	if err := rows.Err(); err != nil {
		log.Error().Err(err).Msg("schema rows failed")
		return SchemaEmpty
	}
	if len(stmts) == 0 {
		return SchemaEmpty
	}
	return strings.Join(stmts, "\n\n")
}

// Execute runs a (already safety-checked) query and returns the ordered
// column names plus the result rows.
func (s *Store) Execute(ctx context.Context, query string) ([]string, []map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("execute sql: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("read columns: %w", err)
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

func parseCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	var records [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

func parseXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("xlsx has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	return rows, nil
}

func normalizeHeader(header []string) []string {
	cols := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		cols[i] = h
	}
	return cols
}

// inferColumnTypes scans the values of each column: all integers gives
// INTEGER, all numeric gives REAL, anything else TEXT. Empty cells do not
// vote.
func inferColumnTypes(columns []string, rows [][]string) []string {
	types := make([]string, len(columns))
	for i := range columns {
		isInt, isFloat, seen := true, true, false
		for _, row := range rows {
			if i >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[i])
			if v == "" {
				continue
			}
			seen = true
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isFloat = false
			}
		}
		switch {
		case seen && isInt:
			types[i] = "INTEGER"
		case seen && isFloat:
			types[i] = "REAL"
		default:
			types[i] = "TEXT"
		}
	}
	return types
}

func typedValue(raw, colType string) any {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	switch colType {
	case "INTEGER":
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	case "REAL":
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return raw
}
