// Package sqlite provides a local SQLite warehouse adapter, used for
// offline development and tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/glacierhq/glacier/internal/config"
	"github.com/glacierhq/glacier/internal/warehouse"
)

func init() {
	warehouse.Register("sqlite", func(logger *slog.Logger) warehouse.Adapter {
		return New(logger)
	})
}

// Adapter implements warehouse.Adapter over the pure-Go sqlite driver.
type Adapter struct {
	warehouse.BaseSQLAdapter
}

// New creates a SQLite adapter. A nil logger discards output.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Adapter{BaseSQLAdapter: warehouse.BaseSQLAdapter{
		Logger:       logger,
		VersionQuery: "SELECT 'SQLite ' || sqlite_version()",
	}}
}

// ListTables returns the user tables in the database.
func (a *Adapter) ListTables(ctx context.Context) ([]string, error) {
	result, err := a.Query(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		names = append(names, fmt.Sprint(row[0]))
	}
	return names, nil
}

// DescribeTable returns the column layout of the given table.
func (a *Adapter) DescribeTable(ctx context.Context, name string) (*warehouse.Result, error) {
	rows, err := a.DB.QueryContext(ctx,
		`SELECT name, type, CASE WHEN "notnull" = 0 THEN 'YES' ELSE 'NO' END
		 FROM pragma_table_info(?)`, name)
	if err != nil {
		return nil, fmt.Errorf("describing table %s: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	out := &warehouse.Result{Columns: []string{"column", "type", "nullable"}}
	for rows.Next() {
		var column, dataType, nullable string
		if err := rows.Scan(&column, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("describing table %s: %w", name, err)
		}
		out.Rows = append(out.Rows, []any{column, dataType, nullable})
	}
	return out, rows.Err()
}

// Connect opens the database file, or an in-memory database when the
// configured path is empty or ":memory:".
func (a *Adapter) Connect(ctx context.Context, cfg config.ConnectionConfig) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("opening sqlite database", slog.String("path", path))

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("opening sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("pinging sqlite database: %w", err)
	}

	a.DB = db
	return nil
}
