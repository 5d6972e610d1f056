package security_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/glacierhq/glacier/internal/audit"
	"github.com/glacierhq/glacier/internal/security"
	"github.com/glacierhq/glacier/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, sql string) *parser.QueryInfo {
	t.Helper()
	info, err := parser.Parse(sql)
	require.NoError(t, err)
	return info
}

func TestEvaluateStatementType(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		policy  security.Policy
		allowed bool
		reason  security.Reason
	}{
		{
			name:    "select allowed by default",
			sql:     "SELECT * FROM users",
			policy:  security.Policy{},
			allowed: true,
			reason:  security.ReasonOK,
		},
		{
			name:   "delete denied when select only",
			sql:    "DELETE FROM users WHERE id = 1",
			policy: security.Policy{},
			reason: security.ReasonStatementTypeDenied,
		},
		{
			name:    "delete allowed when all types permitted",
			sql:     "DELETE FROM users WHERE id = 1",
			policy:  security.Policy{AllowAllQueryTypes: true},
			allowed: true,
			reason:  security.ReasonOK,
		},
		{
			name:   "show denied when select only",
			sql:    "SHOW TABLES",
			policy: security.Policy{},
			reason: security.ReasonStatementTypeDenied,
		},
		{
			name:   "describe denied when select only",
			sql:    "DESCRIBE users",
			policy: security.Policy{},
			reason: security.ReasonStatementTypeDenied,
		},
		{
			name:   "explain denied when select only",
			sql:    "EXPLAIN SELECT 1",
			policy: security.Policy{},
			reason: security.ReasonStatementTypeDenied,
		},
		{
			name:    "show allowed when all types permitted",
			sql:     "SHOW TABLES",
			policy:  security.Policy{AllowAllQueryTypes: true},
			allowed: true,
			reason:  security.ReasonOK,
		},
		{
			name:   "unknown statement denied when select only",
			sql:    "GRANT SELECT ON t TO role",
			policy: security.Policy{},
			reason: security.ReasonStatementTypeDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := security.Evaluate(parse(t, tt.sql), tt.policy)
			assert.Equal(t, tt.allowed, decision.Allowed)
			assert.Equal(t, tt.reason, decision.Reason)
		})
	}
}

func TestEvaluateSchemaChecks(t *testing.T) {
	tests := []struct {
		name      string
		sql       string
		policy    security.Policy
		reason    security.Reason
		offending []string
	}{
		{
			name:      "schema outside allow list",
			sql:       "SELECT * FROM analytics.events",
			policy:    security.Policy{AllowedSchemas: []string{"PUBLIC"}},
			reason:    security.ReasonSchemaNotAllowed,
			offending: []string{"analytics"},
		},
		{
			name:      "blocked schema",
			sql:       "SELECT * FROM finance.salaries",
			policy:    security.Policy{BlockedSchemas: []string{"finance"}},
			reason:    security.ReasonSchemaBlocked,
			offending: []string{"finance"},
		},
		{
			name:   "blocked wins over allowed",
			sql:    "SELECT * FROM finance.salaries",
			policy: security.Policy{AllowedSchemas: []string{"finance"}, BlockedSchemas: []string{"finance"}},
			reason: security.ReasonSchemaBlocked,
		},
		{
			name:   "schema in allow list passes",
			sql:    "SELECT * FROM public.users",
			policy: security.Policy{AllowedSchemas: []string{"PUBLIC"}},
			reason: security.ReasonOK,
		},
		{
			name:   "bare references are not schema checked",
			sql:    "SELECT * FROM users",
			policy: security.Policy{AllowedSchemas: []string{"PUBLIC"}},
			reason: security.ReasonOK,
		},
		{
			name:   "comparison is case insensitive",
			sql:    "SELECT * FROM FINANCE.salaries",
			policy: security.Policy{BlockedSchemas: []string{"finance"}},
			reason: security.ReasonSchemaBlocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := security.Evaluate(parse(t, tt.sql), tt.policy)
			assert.Equal(t, tt.reason, decision.Reason)
			assert.Equal(t, decision.Reason == security.ReasonOK, decision.Allowed)
			if tt.offending != nil {
				assert.Equal(t, tt.offending, decision.OffendingItems)
			}
		})
	}
}

func TestEvaluateDangerousFunctions(t *testing.T) {
	policy := security.Policy{
		AllowAllQueryTypes:      true,
		BlockedFunctionPatterns: []string{"SYSTEM$", "EXECUTE IMMEDIATE"},
	}

	decision := security.Evaluate(parse(t, "SELECT SYSTEM$CANCEL_ALL_QUERIES(1)"), policy)
	assert.False(t, decision.Allowed)
	assert.Equal(t, security.ReasonDangerousFunction, decision.Reason)
	assert.Equal(t, []string{"SYSTEM$"}, decision.OffendingItems)

	decision = security.Evaluate(parse(t, "select * from t where x = 'execute immediate'"), policy)
	assert.False(t, decision.Allowed, "patterns match literals too")

	decision = security.Evaluate(parse(t, "SELECT * FROM t"), policy)
	assert.True(t, decision.Allowed)
}

func TestEvaluateQueryLength(t *testing.T) {
	long := "SELECT '" + strings.Repeat("x", 100) + "'"

	decision := security.Evaluate(parse(t, long), security.Policy{MaxQueryLength: 50})
	assert.False(t, decision.Allowed)
	assert.Equal(t, security.ReasonQueryTooLong, decision.Reason)

	decision = security.Evaluate(parse(t, long), security.Policy{MaxQueryLength: 0})
	assert.True(t, decision.Allowed, "zero disables the length check")
}

// The type check fires before any schema or pattern check.
func TestEvaluateCheckOrdering(t *testing.T) {
	policy := security.Policy{
		BlockedSchemas:          []string{"finance"},
		BlockedFunctionPatterns: []string{"TRUNCATE"},
	}
	decision := security.Evaluate(parse(t, "TRUNCATE TABLE finance.salaries"), policy)
	assert.Equal(t, security.ReasonStatementTypeDenied, decision.Reason)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	info := parse(t, "SELECT * FROM analytics.events")
	policy := security.Policy{AllowedSchemas: []string{"PUBLIC"}}

	first := security.Evaluate(info, policy)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, security.Evaluate(info, policy))
	}
}

// ---------- Evaluator with audit sink ----------

type captureSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *captureSink) Record(ev audit.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func TestEvaluatorRecordsAuditEvents(t *testing.T) {
	sink := &captureSink{}
	policy := security.Policy{AuditLogging: true}
	eval := security.NewEvaluator(policy, sink, nil)

	eval.Evaluate(parse(t, "SELECT * FROM users"))
	eval.Evaluate(parse(t, "DELETE FROM users"))

	require.Len(t, sink.events, 2)
	assert.True(t, sink.events[0].Allowed)
	assert.Equal(t, audit.TypeQueryEvaluated, sink.events[0].Type)
	assert.Equal(t, "OK", sink.events[0].Reason)
	assert.False(t, sink.events[1].Allowed)
	assert.Equal(t, audit.TypeSecurityViolation, sink.events[1].Type)
	assert.Equal(t, "STATEMENT_TYPE_DENIED", sink.events[1].Reason)
	assert.Equal(t, "DELETE FROM users", sink.events[1].Query)
}

func TestEvaluatorSkipsAuditWhenDisabled(t *testing.T) {
	sink := &captureSink{}
	eval := security.NewEvaluator(security.Policy{AuditLogging: false}, sink, nil)

	eval.Evaluate(parse(t, "SELECT 1"))
	assert.Empty(t, sink.events)
}

func TestDefaultPolicyIsRestrictive(t *testing.T) {
	policy := security.DefaultPolicy()
	assert.False(t, policy.AllowAllQueryTypes)
	assert.True(t, policy.AuditLogging)
	assert.NotEmpty(t, policy.BlockedFunctionPatterns)

	decision := security.Evaluate(parse(t, "DROP TABLE users"), policy)
	assert.False(t, decision.Allowed)
}
