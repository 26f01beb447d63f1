// Package store is the relational home of ingested telemetry: a thin layer
// over SQLite offering table materialization, name-prefixed listing, schema
// introspection, and arbitrary query execution with typed result sets.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/20arjuna/UAVLogViewer-AppServer/internal/sqlitedriver"
)

// TablePrefix namespaces every telemetry table.
const TablePrefix = "log_"

// Column is an ordered (name, declared type) pair in a materialized table.
type Column struct {
	Name string
	Type string // INTEGER, REAL, or TEXT
}

// QueryResult is the structured envelope for query execution.
type QueryResult struct {
	Columns  []string
	Rows     [][]interface{}
	RowCount int
}

// Store wraps a SQLite database handle. SQLite provides its own concurrency
// control; table creation during ingestion tolerates concurrent reads against
// already-ingested files (WAL mode).
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the store database at path.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for components that share the database
// file (conversation history).
func (s *Store) DB() *sql.DB {
	return s.db
}

// SanitizeIdentifier replaces characters that are illegal in table
// identifiers (brackets, hyphens) with underscores. Telemetry message types
// like "GPS[0]" become "GPS_0_".
func SanitizeIdentifier(s string) string {
	r := strings.NewReplacer("[", "_", "]", "_", "-", "_")
	return r.Replace(s)
}

// TableName derives the deterministic table name for a message type within a
// file's namespace.
func TableName(fileID, messageType string) string {
	return SanitizeIdentifier(TablePrefix + fileID + "_" + messageType)
}

// FilePrefix returns the table-name prefix owning all of a file's tables.
func FilePrefix(fileID string) string {
	return SanitizeIdentifier(TablePrefix + fileID + "_")
}

// CreateTable materializes a table with the given columns and row-major
// values in a single transaction. Fails if the table already exists.
func (s *Store) CreateTable(ctx context.Context, name string, cols []Column, rows [][]interface{}) error {
	if len(cols) == 0 {
		return fmt.Errorf("create table %s: no columns", name)
	}

	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%s %s", quoteIdent(c.Name), c.Type)
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(defs, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",")
	stmt, err := tx.PrepareContext(ctx,
		fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(name), placeholders))
	if err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("insert into %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	return nil
}

// Tables lists tables whose name starts with prefix, sorted by name.
func (s *Store) Tables(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master
		 WHERE type = 'table' AND name LIKE ? ESCAPE '\'
		 ORDER BY name`,
		escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Describe returns the ordered (column name, declared type) pairs of a table.
// An unknown table name is an error.
func (s *Store) Describe(ctx context.Context, name string) ([]Column, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(name)))
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", name, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			cid        int
			colName    string
			colType    string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("describe %s: %w", name, err)
		}
		cols = append(cols, Column{Name: colName, Type: colType})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("describe %s: %w", name, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("no such table: %s", name)
	}
	return cols, nil
}

// Query executes arbitrary SQL and returns the full typed result set.
func (s *Store) Query(ctx context.Context, query string) (*QueryResult, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &QueryResult{Columns: columns}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			// Driver-level byte slices become strings for JSON friendliness.
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	result.RowCount = len(result.Rows)
	return result, nil
}

// DropTables drops every table whose name starts with prefix. Returns the
// number of tables dropped.
func (s *Store) DropTables(ctx context.Context, prefix string) (int, error) {
	names, err := s.Tables(ctx, prefix)
	if err != nil {
		return 0, err
	}
	for i, name := range names {
		if _, err := s.db.ExecContext(ctx,
			fmt.Sprintf("DROP TABLE %s", quoteIdent(name))); err != nil {
			return i, fmt.Errorf("drop table %s: %w", name, err)
		}
	}
	return len(names), nil
}

// quoteIdent wraps an identifier in double quotes, doubling embedded quotes.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// escapeLike escapes LIKE metacharacters so prefixes match literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
