// Package history persists executed queries and named favorites in a
// local SQLite database under the glacier state directory.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one executed query.
type Entry struct {
	ID           int64
	Query        string
	ExecutedAt   time.Time
	Duration     time.Duration
	RowsReturned int
	ColumnCount  int
	Success      bool
	ErrorMessage string
}

// Favorite is a named, reusable query.
type Favorite struct {
	ID          int64
	Name        string
	Query       string
	Description string
	Tags        []string
	CreatedAt   time.Time
	UseCount    int
}

// Store is the SQLite-backed history and favorites store. Safe for use
// from a single process; the schema is managed by embedded migrations.
type Store struct {
	db         *sql.DB
	logger     *slog.Logger
	maxEntries int
}

// Open opens (or creates) the store at path and runs pending
// migrations. Use ":memory:" for tests. maxEntries bounds the history
// table; zero keeps everything.
func Open(path string, maxEntries int, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging history database: %w", err)
	}

	s := &Store{db: db, logger: logger, maxEntries: maxEntries}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends an executed query and prunes the table down to the
// configured maximum.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if e.ExecutedAt.IsZero() {
		e.ExecutedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO query_history
			(query, executed_at, execution_ms, rows_returned, column_count, success, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Query, e.ExecutedAt.Format(time.RFC3339Nano), e.Duration.Milliseconds(),
		e.RowsReturned, e.ColumnCount, e.Success, e.ErrorMessage,
	)
	if err != nil {
		return 0, fmt.Errorf("recording history entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading inserted id: %w", err)
	}

	if s.maxEntries > 0 {
		if err := s.prune(ctx); err != nil {
			s.logger.Warn("history prune failed", "error", err)
		}
	}
	return id, nil
}

func (s *Store) prune(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM query_history
		WHERE id NOT IN (
			SELECT id FROM query_history ORDER BY id DESC LIMIT ?
		)`, s.maxEntries)
	return err
}

// List returns the most recent entries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query, executed_at, execution_ms, rows_returned, column_count, success, error_message
		FROM query_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEntries(rows)
}

// Search returns entries whose text contains the given substring,
// newest first.
func (s *Store) Search(ctx context.Context, term string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query, executed_at, execution_ms, rows_returned, column_count, success, error_message
		FROM query_history
		WHERE query LIKE '%' || ? || '%'
		ORDER BY id DESC LIMIT ?`, term, limit)
	if err != nil {
		return nil, fmt.Errorf("searching history: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEntries(rows)
}

// Get returns one entry by id.
func (s *Store) Get(ctx context.Context, id int64) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, query, executed_at, execution_ms, rows_returned, column_count, success, error_message
		FROM query_history WHERE id = ?`, id)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("history entry %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading history entry: %w", err)
	}
	return e, nil
}

// Clear deletes the entire history.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM query_history`); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var e Entry
	var executedAt string
	var ms int64
	if err := row.Scan(&e.ID, &e.Query, &executedAt, &ms,
		&e.RowsReturned, &e.ColumnCount, &e.Success, &e.ErrorMessage); err != nil {
		return nil, err
	}
	if t, err := time.Parse(time.RFC3339Nano, executedAt); err == nil {
		e.ExecutedAt = t
	}
	e.Duration = time.Duration(ms) * time.Millisecond
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history entries: %w", err)
	}
	return entries, nil
}

// encodeTags serializes a tag list for storage.
func encodeTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encoding tags: %w", err)
	}
	return string(raw), nil
}

func decodeTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}
