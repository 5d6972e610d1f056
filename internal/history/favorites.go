package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SaveFavorite stores a named query. The name must be unique; saving an
// existing name replaces its query, description, and tags.
func (s *Store) SaveFavorite(ctx context.Context, f Favorite) error {
	tags, err := encodeTags(f.Tags)
	if err != nil {
		return err
	}
	createdAt := f.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO query_favorites (name, query, description, tags, created_at, use_count)
		VALUES (?, ?, ?, ?, ?, 0)
		ON CONFLICT(name) DO UPDATE SET
			query = excluded.query,
			description = excluded.description,
			tags = excluded.tags`,
		f.Name, f.Query, f.Description, tags, createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving favorite %q: %w", f.Name, err)
	}
	return nil
}

// GetFavorite returns the favorite with the given name.
func (s *Store) GetFavorite(ctx context.Context, name string) (*Favorite, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, query, description, tags, created_at, use_count
		FROM query_favorites WHERE name = ?`, name)

	f, err := scanFavorite(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("favorite %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading favorite %q: %w", name, err)
	}
	return f, nil
}

// ListFavorites returns all favorites ordered by use count, then name.
func (s *Store) ListFavorites(ctx context.Context) ([]Favorite, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, query, description, tags, created_at, use_count
		FROM query_favorites ORDER BY use_count DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var favorites []Favorite
	for rows.Next() {
		f, err := scanFavorite(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning favorite: %w", err)
		}
		favorites = append(favorites, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating favorites: %w", err)
	}
	return favorites, nil
}

// SearchFavorites returns favorites whose name, query, or description
// contains the term, ordered by use count, then name.
func (s *Store) SearchFavorites(ctx context.Context, term string) ([]Favorite, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, query, description, tags, created_at, use_count
		FROM query_favorites
		WHERE name LIKE '%' || ? || '%'
		   OR query LIKE '%' || ? || '%'
		   OR description LIKE '%' || ? || '%'
		ORDER BY use_count DESC, name ASC`, term, term, term)
	if err != nil {
		return nil, fmt.Errorf("searching favorites: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var favorites []Favorite
	for rows.Next() {
		f, err := scanFavorite(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning favorite: %w", err)
		}
		favorites = append(favorites, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating favorites: %w", err)
	}
	return favorites, nil
}

// DeleteFavorite removes the favorite with the given name.
func (s *Store) DeleteFavorite(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM query_favorites WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting favorite %q: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("favorite %q not found", name)
	}
	return nil
}

// TouchFavorite increments the favorite's use counter.
func (s *Store) TouchFavorite(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE query_favorites SET use_count = use_count + 1 WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("updating favorite %q: %w", name, err)
	}
	return nil
}

func scanFavorite(row rowScanner) (*Favorite, error) {
	var f Favorite
	var tags, createdAt string
	if err := row.Scan(&f.ID, &f.Name, &f.Query, &f.Description,
		&tags, &createdAt, &f.UseCount); err != nil {
		return nil, err
	}
	f.Tags = decodeTags(tags)
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		f.CreatedAt = t
	}
	return &f, nil
}
