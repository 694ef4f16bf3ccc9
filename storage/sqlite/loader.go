package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/candlekeep/oracle/core"
	"github.com/candlekeep/oracle/schema"
	_ "modernc.org/sqlite"
)

// Loader is the writable counterpart of Executor, used by the seeder and by
// tests to populate a monster store. The engine never touches it.
type Loader struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenLoader opens a writable database at path. An empty path opens an
// in-memory database pinned to a single connection so every statement sees
// the same store.
func OpenLoader(path string) (*Loader, error) {
	dsn := ":memory:"
	if path != "" {
		dsn = fmt.Sprintf("file:%s", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if path == "" {
		db.SetMaxOpenConns(1)
	}

	return &Loader{
		db:     db,
		logger: slog.Default().With("component", "sqlite-loader"),
	}, nil
}

// DB exposes the underlying handle so an Executor can share an in-memory
// store with the loader that populated it.
func (l *Loader) DB() *sql.DB {
	return l.db
}

// Close closes the database handle.
func (l *Loader) Close() error {
	return l.db.Close()
}

// CreateTable creates the table declared by the descriptor if it does not
// already exist. Field types map directly onto SQLite column types.
func (l *Loader) CreateTable(ctx context.Context, descriptor *schema.Descriptor) error {
	if err := descriptor.Validate(); err != nil {
		return err
	}

	columns := make([]string, len(descriptor.Fields))
	for i, field := range descriptor.Fields {
		columns[i] = fmt.Sprintf("%s %s", field.Name, field.Type)
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		descriptor.Table, strings.Join(columns, ", "))
	if _, err := l.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating table %s: %w", descriptor.Table, err)
	}

	l.logger.Debug("table created", "table", descriptor.Table)
	return nil
}

// Insert adds rows to the descriptor's table inside one transaction.
// Row keys outside the declared schema are rejected.
func (l *Loader) Insert(ctx context.Context, descriptor *schema.Descriptor, rows core.Rows) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, row := range rows {
		columns := make([]string, 0, len(row))
		placeholders := make([]string, 0, len(row))
		values := make([]any, 0, len(row))
		for _, name := range descriptor.FieldNames() {
			value, ok := row[name]
			if !ok {
				continue
			}
			columns = append(columns, name)
			placeholders = append(placeholders, "?")
			values = append(values, value)
		}
		for name := range row {
			if !descriptor.HasField(name) {
				return fmt.Errorf("row field %q is not declared in schema %s", name, descriptor.Table)
			}
		}
		if len(columns) == 0 {
			continue
		}

		statement := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			descriptor.Table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
		if _, err := tx.ExecContext(ctx, statement, values...); err != nil {
			return fmt.Errorf("inserting into %s: %w", descriptor.Table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	l.logger.Debug("rows inserted", "table", descriptor.Table, "count", len(rows))
	return nil
}
