package audit_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glacierhq/glacier/internal/audit"
)

func TestFileSinkAppendsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.jsonl")

	sink, err := audit.NewFileSink(path, nil)
	require.NoError(t, err)

	sink.Record(audit.Event{
		Type:      audit.TypeQueryEvaluated,
		Query:     "SELECT * FROM users",
		Statement: "SELECT",
		Allowed:   true,
		Reason:    "OK",
	})
	sink.Record(audit.Event{
		Type:      audit.TypeSecurityViolation,
		Query:     "DELETE FROM users",
		Statement: "DELETE",
		Reason:    "STATEMENT_TYPE_DENIED",
		Offending: []string{"DELETE"},
	})
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"type":"query_evaluated"`)
	assert.Contains(t, lines[1], `"type":"security_violation"`)
}

func TestFileSinkStampsSessionAndTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	sink, err := audit.NewFileSink(path, nil)
	require.NoError(t, err)
	require.NotEmpty(t, sink.SessionID())

	sink.Record(audit.Event{Type: audit.TypeSessionStarted, Allowed: true})
	require.NoError(t, sink.Close())

	events, err := audit.ReadLast(path, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, sink.SessionID(), events[0].SessionID)
	assert.False(t, events[0].Time.IsZero())
	assert.WithinDuration(t, time.Now().UTC(), events[0].Time, time.Minute)
}

func TestReadLastReturnsTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	sink, err := audit.NewFileSink(path, nil)
	require.NoError(t, err)
	for _, q := range []string{"q1", "q2", "q3", "q4", "q5"} {
		sink.Record(audit.Event{Type: audit.TypeQueryEvaluated, Query: q, Allowed: true})
	}
	require.NoError(t, sink.Close())

	events, err := audit.ReadLast(path, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "q4", events[0].Query)
	assert.Equal(t, "q5", events[1].Query)
}

func TestReadLastMissingFile(t *testing.T) {
	_, err := audit.ReadLast(filepath.Join(t.TempDir(), "nope.jsonl"), 10)
	require.Error(t, err)
}

func TestNopSinkDiscards(t *testing.T) {
	audit.NopSink{}.Record(audit.Event{Query: "SELECT 1"})
}
