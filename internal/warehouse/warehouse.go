// Package warehouse defines the execution interface to the hosted SQL
// warehouse and the common database/sql plumbing shared by the concrete
// adapters in its subpackages.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/glacierhq/glacier/internal/config"
)

// Result is a fully materialized query result.
type Result struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

// RowCount returns the number of materialized rows.
func (r *Result) RowCount() int {
	return len(r.Rows)
}

// Adapter is the contract every warehouse backend implements. The
// rewritten SQL text arrives here as an opaque string; adapters have no
// visibility into how it was produced.
type Adapter interface {
	// Connect establishes the connection described by cfg.
	Connect(ctx context.Context, cfg config.ConnectionConfig) error

	// Close releases the connection.
	Close() error

	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error

	// Query executes a statement that returns rows.
	Query(ctx context.Context, stmt string) (*Result, error)

	// Exec executes a statement that returns no rows and reports the
	// affected row count.
	Exec(ctx context.Context, stmt string) (int64, error)

	// Info returns a human-readable server description.
	Info(ctx context.Context) (string, error)
}

// Introspector is an optional adapter capability. The REPL dot-commands
// use it when the adapter provides it.
type Introspector interface {
	// ListTables returns the table names visible in the current schema.
	ListTables(ctx context.Context) ([]string, error)

	// DescribeTable returns the column layout of one table.
	DescribeTable(ctx context.Context, name string) (*Result, error)
}

// BaseSQLAdapter provides the database/sql implementations of Close,
// Ping, Query, Exec, and Info. Concrete adapters embed it, supply
// Connect, and set VersionQuery for Info.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Logger *slog.Logger

	// VersionQuery is a single-row, single-column statement returning
	// the server description.
	VersionQuery string
}

// Close closes the connection if one is open.
func (b *BaseSQLAdapter) Close() error {
	if b.DB == nil {
		return nil
	}
	if b.Logger != nil {
		b.Logger.Debug("closing warehouse connection")
	}
	return b.DB.Close()
}

// Ping verifies the connection.
func (b *BaseSQLAdapter) Ping(ctx context.Context) error {
	if b.DB == nil {
		return fmt.Errorf("not connected")
	}
	return b.DB.PingContext(ctx)
}

// Query runs the statement and materializes every row.
func (b *BaseSQLAdapter) Query(ctx context.Context, stmt string) (*Result, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("not connected")
	}

	start := time.Now()
	rows, err := b.DB.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	result := &Result{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// Exec runs the statement and returns the affected row count.
func (b *BaseSQLAdapter) Exec(ctx context.Context, stmt string) (int64, error) {
	if b.DB == nil {
		return 0, fmt.Errorf("not connected")
	}
	res, err := b.DB.ExecContext(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("executing statement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		// Some drivers cannot report the count; the statement still
		// succeeded.
		return 0, nil
	}
	return affected, nil
}

// Info returns the server description via VersionQuery.
func (b *BaseSQLAdapter) Info(ctx context.Context) (string, error) {
	if b.DB == nil {
		return "", fmt.Errorf("not connected")
	}
	if b.VersionQuery == "" {
		return "unknown", nil
	}
	var version string
	if err := b.DB.QueryRowContext(ctx, b.VersionQuery).Scan(&version); err != nil {
		return "", fmt.Errorf("reading server version: %w", err)
	}
	return version, nil
}

// IsConnected reports whether a connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}
