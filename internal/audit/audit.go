// Package audit records security evaluations as append-only JSONL
// events. The sink is fire and forget: a write failure is logged and
// never blocks or fails the query path.
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeQueryEvaluated    = "query_evaluated"
	TypeSecurityViolation = "security_violation"
	TypeSessionStarted    = "session_started"
	TypeSessionEnded      = "session_ended"
)

// Event is one immutable audit record.
type Event struct {
	Time      time.Time `json:"time"`
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	Query     string    `json:"query,omitempty"`
	Statement string    `json:"statement_type,omitempty"`
	Allowed   bool      `json:"allowed"`
	Reason    string    `json:"reason,omitempty"`
	Offending []string  `json:"offending_items,omitempty"`
}

// Sink accepts audit events. Implementations own their durability and
// ordering guarantees.
type Sink interface {
	Record(ev Event)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Record(Event) {}

// FileSink appends events as JSON lines to a single file. Safe for
// concurrent use.
type FileSink struct {
	mu        sync.Mutex
	f         *os.File
	enc       *json.Encoder
	logger    *slog.Logger
	sessionID string
}

// NewFileSink opens (or creates) the audit log at path, creating parent
// directories as needed. Each FileSink carries a fresh session id that
// is stamped onto every event it records.
func NewFileSink(path string, logger *slog.Logger) (*FileSink, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return &FileSink{
		f:         f,
		enc:       json.NewEncoder(f),
		logger:    logger,
		sessionID: uuid.NewString(),
	}, nil
}

// SessionID returns the id stamped onto this sink's events.
func (s *FileSink) SessionID() string {
	return s.sessionID
}

// Record appends the event. Failures are logged, not returned.
func (s *FileSink) Record(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	if ev.SessionID == "" {
		ev.SessionID = s.sessionID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(ev); err != nil {
		s.logger.Warn("audit write failed", "error", err)
	}
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

// ReadLast returns up to n events from the end of the audit log at
// path, oldest first. Reading stops at the first malformed line.
func ReadLast(path string, n int) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer func() { _ = f.Close() }()

	var events []Event
	dec := json.NewDecoder(f)
	for {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			break
		}
		events = append(events, ev)
	}
	if n > 0 && len(events) > n {
		events = events[len(events)-n:]
	}
	return events, nil
}
