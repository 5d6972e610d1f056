package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/glacierhq/glacier/internal/audit"
	"github.com/glacierhq/glacier/internal/config"
	"github.com/glacierhq/glacier/internal/history"
	"github.com/glacierhq/glacier/internal/security"
	"github.com/glacierhq/glacier/internal/warehouse"
	"github.com/glacierhq/glacier/pkg/parser"
)

// Session wires the query pipeline together: parser, policy evaluator,
// audit sink, history store, and the warehouse connection.
type Session struct {
	Cfg       *config.Config
	Logger    *slog.Logger
	Adapter   warehouse.Adapter
	Store     *history.Store
	Evaluator *security.Evaluator

	sink *audit.FileSink
}

// DeniedError is returned when the security policy rejects a
// statement. It carries the decision for rendering.
type DeniedError struct {
	Decision security.Decision
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("query denied: %s %v", e.Decision.Reason, e.Decision.OffendingItems)
}

// OpenSession builds a session from the loaded config. When connect is
// false the warehouse connection is skipped; parsing, validation, and
// history still work.
func OpenSession(ctx context.Context, cfg *config.Config, logger *slog.Logger, connect bool) (*Session, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Session{Cfg: cfg, Logger: logger}

	var sink audit.Sink = audit.NopSink{}
	if cfg.Security.AuditLogging {
		fileSink, err := audit.NewFileSink(cfg.AuditPath, logger)
		if err != nil {
			return nil, err
		}
		s.sink = fileSink
		sink = fileSink
		fileSink.Record(audit.Event{Type: audit.TypeSessionStarted, Allowed: true})
	}
	s.Evaluator = security.NewEvaluator(cfg.Security, sink, logger)

	if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0o755); err != nil {
		s.Close()
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	store, err := history.Open(cfg.History.Path, cfg.History.MaxEntries, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Store = store

	if connect {
		adapter, err := warehouse.New(cfg.Connection.Type, logger)
		if err != nil {
			s.Close()
			return nil, err
		}
		if err := adapter.Connect(ctx, cfg.Connection); err != nil {
			s.Close()
			return nil, err
		}
		s.Adapter = adapter
	}

	return s, nil
}

// Close releases every resource the session holds.
func (s *Session) Close() {
	if s.Adapter != nil {
		_ = s.Adapter.Close()
	}
	if s.Store != nil {
		_ = s.Store.Close()
	}
	if s.sink != nil {
		s.sink.Record(audit.Event{Type: audit.TypeSessionEnded, Allowed: true})
		_ = s.sink.Close()
	}
}

// Prepare parses and evaluates the statement, then rewrites bare table
// names with the configured prefix. It returns a DeniedError when the
// policy rejects the statement. The returned string is what should be
// sent to the warehouse.
func (s *Session) Prepare(stmt string) (*parser.QueryInfo, string, error) {
	info, err := parser.Parse(stmt)
	if err != nil {
		return nil, "", err
	}

	decision := s.Evaluator.Evaluate(info)
	if !decision.Allowed {
		return info, "", &DeniedError{Decision: decision}
	}

	rewritten := parser.Rewrite(stmt, info, s.Cfg.Rewrite.TablePrefix)
	if rewritten != stmt {
		s.Logger.Debug("rewrote statement",
			"prefix", s.Cfg.Rewrite.TablePrefix,
			"rewritten", rewritten,
		)
	}
	return info, rewritten, nil
}

// Execute runs the full pipeline for one statement and records it in
// the history. Read statements return a materialized result; write
// statements return a nil result and the affected row count.
func (s *Session) Execute(ctx context.Context, stmt string) (*warehouse.Result, int64, error) {
	info, rewritten, err := s.Prepare(stmt)
	if err != nil {
		return nil, 0, err
	}
	return s.Run(ctx, stmt, info, rewritten)
}

// Run executes an already prepared statement. Callers that need the
// parse result or the rewritten text call Prepare themselves and pass
// both here; the statement is evaluated against the policy exactly
// once either way.
func (s *Session) Run(ctx context.Context, stmt string, info *parser.QueryInfo, rewritten string) (*warehouse.Result, int64, error) {
	if s.Adapter == nil {
		return nil, 0, fmt.Errorf("not connected to a warehouse")
	}

	start := time.Now()
	var (
		result   *warehouse.Result
		affected int64
		err      error
	)

	if info.Type.IsRead() {
		result, err = s.Adapter.Query(ctx, rewritten)
	} else {
		affected, err = s.Adapter.Exec(ctx, rewritten)
	}
	elapsed := time.Since(start)

	entry := history.Entry{
		Query:    stmt,
		Duration: elapsed,
		Success:  err == nil,
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}
	if result != nil {
		entry.RowsReturned = result.RowCount()
		entry.ColumnCount = len(result.Columns)
	} else {
		entry.RowsReturned = int(affected)
	}
	if _, herr := s.Store.Record(ctx, entry); herr != nil {
		s.Logger.Warn("recording history failed", "error", herr)
	}

	if err != nil {
		return nil, 0, err
	}
	return result, affected, nil
}
