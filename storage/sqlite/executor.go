package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/candlekeep/oracle/core"
	"github.com/candlekeep/oracle/storage"
	_ "modernc.org/sqlite"
)

// Executor implements storage.TabularExecutor over an SQLite database.
// Every statement passes a lexical read-only guard before reaching the
// store, and the connection itself is opened in query-only mode, so the
// executor can never mutate the database regardless of what the language
// model generates.
type Executor struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ storage.TabularExecutor = (*Executor)(nil)

// Open opens a read-only executor over the database at path.
func Open(path string) (*Executor, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=query_only(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	return &Executor{
		db:     db,
		logger: slog.Default().With("component", "sqlite-executor"),
	}, nil
}

// NewExecutor wraps an existing database handle. Used by tests and by the
// facade when the loader and executor share one in-memory database.
func NewExecutor(db *sql.DB) *Executor {
	return &Executor{
		db:     db,
		logger: slog.Default().With("component", "sqlite-executor"),
	}
}

// Close closes the database handle.
func (e *Executor) Close() error {
	return e.db.Close()
}

// Execute runs a read-only statement and returns its rows.
// Zero rows with a nil error is a valid outcome. Failures are returned as
// *storage.QueryError with the store's error text preserved verbatim.
func (e *Executor) Execute(ctx context.Context, statement string) (core.Rows, error) {
	if err := validateReadOnly(statement); err != nil {
		e.logger.Warn("statement rejected by read-only guard", "err", err)
		return nil, err
	}

	rows, err := e.db.QueryContext(ctx, statement)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, classifyError(err)
	}

	var results core.Rows
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, classifyError(err)
		}

		row := make(core.Row, len(columns))
		for i, column := range columns {
			value := values[i]
			// Text columns come back as []byte from database/sql
			if b, ok := value.([]byte); ok {
				value = string(b)
			}
			row[column] = value
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err)
	}

	e.logger.Debug("statement executed", "rows", len(results))
	return results, nil
}

// classifyError maps a driver error to a typed storage.QueryError.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return storage.NewTimeoutError(err.Error())
	}

	message := err.Error()
	lowered := strings.ToLower(message)
	if strings.Contains(lowered, "syntax error") ||
		strings.Contains(lowered, "unrecognized token") ||
		strings.Contains(lowered, "incomplete input") {
		return storage.NewSyntaxError(message)
	}

	return storage.NewExecutionError(message)
}
