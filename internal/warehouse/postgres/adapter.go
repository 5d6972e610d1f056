// Package postgres provides the PostgreSQL warehouse adapter.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/glacierhq/glacier/internal/config"
	"github.com/glacierhq/glacier/internal/warehouse"
)

func init() {
	warehouse.Register("postgres", func(logger *slog.Logger) warehouse.Adapter {
		return New(logger)
	})
}

// Adapter implements warehouse.Adapter over the pgx stdlib driver.
type Adapter struct {
	warehouse.BaseSQLAdapter
}

// New creates a PostgreSQL adapter. A nil logger discards output.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Adapter{BaseSQLAdapter: warehouse.BaseSQLAdapter{
		Logger:       logger,
		VersionQuery: "SELECT version()",
	}}
}

// ListTables returns the table names visible in the current search path.
func (a *Adapter) ListTables(ctx context.Context) ([]string, error) {
	result, err := a.Query(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema()
		ORDER BY table_name`)
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
	result, err := a.DB.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`, name)
	if err != nil {
		return nil, fmt.Errorf("describing table %s: %w", name, err)
	}
	defer func() { _ = result.Close() }()

	out := &warehouse.Result{Columns: []string{"column", "type", "nullable"}}
	for result.Next() {
		var column, dataType, nullable string
		if err := result.Scan(&column, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("describing table %s: %w", name, err)
		}
		out.Rows = append(out.Rows, []any{column, dataType, nullable})
	}
	return out, result.Err()
}

// Connect opens and verifies the connection.
func (a *Adapter) Connect(ctx context.Context, cfg config.ConnectionConfig) error {
	dsn := buildDSN(cfg)

	a.Logger.Debug("connecting to postgres",
		slog.String("host", cfg.Host),
		slog.String("database", cfg.Database),
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("opening postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("pinging postgres: %w", err)
	}

	a.DB = db
	return nil
}

// buildDSN constructs a key=value connection string.
func buildDSN(cfg config.ConnectionConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=prefer", host, port, cfg.Database)
	if cfg.User != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.User)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	if cfg.Schema != "" {
		dsn += fmt.Sprintf(" search_path=%s", cfg.Schema)
	}
	return dsn
}
