// Package counter runs a background COUNT(*) for a just-executed
// SELECT so the client can show the total row count next to a
// truncated result set without delaying the first page.
package counter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/glacierhq/glacier/internal/warehouse"
)

// Job is one in-flight background count.
type Job struct {
	group *errgroup.Group
	total int64
}

// Start launches the count for stmt on its own goroutine. The
// statement must be the rewritten SELECT exactly as it was executed.
func Start(ctx context.Context, adapter warehouse.Adapter, stmt string, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	job := &Job{}
	g, ctx := errgroup.WithContext(ctx)
	job.group = g

	g.Go(func() error {
		countStmt := wrapCount(stmt)
		logger.Debug("starting background count")

		result, err := adapter.Query(ctx, countStmt)
		if err != nil {
			return fmt.Errorf("counting rows: %w", err)
		}
		if result.RowCount() == 0 || len(result.Rows[0]) == 0 {
			return fmt.Errorf("count query returned no rows")
		}

		total, err := toInt64(result.Rows[0][0])
		if err != nil {
			return err
		}
		job.total = total
		return nil
	})

	return job
}

// Wait blocks until the count finishes and returns the total.
func (j *Job) Wait() (int64, error) {
	if err := j.group.Wait(); err != nil {
		return 0, err
	}
	return j.total, nil
}

// wrapCount wraps the statement as a derived table. Trailing
// semicolons would break the wrapping and are stripped.
func wrapCount(stmt string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(stmt), ";")
	return fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS glacier_count", trimmed)
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case []byte:
		var total int64
		if _, err := fmt.Sscanf(string(n), "%d", &total); err != nil {
			return 0, fmt.Errorf("unexpected count value %q", n)
		}
		return total, nil
	case string:
		var total int64
		if _, err := fmt.Sscanf(n, "%d", &total); err != nil {
			return 0, fmt.Errorf("unexpected count value %q", n)
		}
		return total, nil
	default:
		return 0, fmt.Errorf("unexpected count type %T", v)
	}
}
