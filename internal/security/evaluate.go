package security

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/glacierhq/glacier/internal/audit"
	"github.com/glacierhq/glacier/pkg/parser"
)

// Reason is the machine-readable outcome category of an evaluation.
type Reason string

const (
	ReasonOK                  Reason = "OK"
	ReasonQueryTooLong        Reason = "QUERY_TOO_LONG"
	ReasonStatementTypeDenied Reason = "STATEMENT_TYPE_DENIED"
	ReasonSchemaBlocked       Reason = "SCHEMA_BLOCKED"
	ReasonSchemaNotAllowed    Reason = "SCHEMA_NOT_ALLOWED"
	ReasonDangerousFunction   Reason = "DANGEROUS_FUNCTION"
)

// Decision is the outcome of one policy evaluation. A denied decision
// is a normal result, not an error.
type Decision struct {
	Allowed        bool
	Reason         Reason
	OffendingItems []string
}

// Evaluate applies the policy to a parsed statement. Checks run in a
// fixed order and the first failure wins:
//
//  1. statement length (when MaxQueryLength > 0)
//  2. statement type (only SELECT passes unless AllowAllQueryTypes)
//  3. schema qualifiers against BlockedSchemas, then AllowedSchemas
//  4. BlockedFunctionPatterns over the raw text
//
// Identical inputs always yield the identical decision.
func Evaluate(info *parser.QueryInfo, policy Policy) Decision {
	if policy.MaxQueryLength > 0 && len(info.Statement) > policy.MaxQueryLength {
		return Decision{
			Reason: ReasonQueryTooLong,
			OffendingItems: []string{
				fmt.Sprintf("length %d exceeds maximum %d", len(info.Statement), policy.MaxQueryLength),
			},
		}
	}

	// Restrictive mode passes SELECT only; other read statements
	// (SHOW, DESCRIBE, EXPLAIN) are denied as well.
	if !policy.AllowAllQueryTypes && info.Type != parser.StatementSelect {
		return Decision{
			Reason:         ReasonStatementTypeDenied,
			OffendingItems: []string{string(info.Type)},
		}
	}

	blocked := newSchemaSet(policy.BlockedSchemas)
	allowed := newSchemaSet(policy.AllowedSchemas)
	for _, ref := range info.References {
		if ref.Schema == "" {
			continue
		}
		if blocked.contains(ref.Schema) {
			return Decision{
				Reason:         ReasonSchemaBlocked,
				OffendingItems: []string{ref.Schema},
			}
		}
		if allowed != nil && !allowed.contains(ref.Schema) {
			return Decision{
				Reason:         ReasonSchemaNotAllowed,
				OffendingItems: []string{ref.Schema},
			}
		}
	}

	if matched := matchPatterns(info.Statement, policy.BlockedFunctionPatterns); len(matched) > 0 {
		return Decision{
			Reason:         ReasonDangerousFunction,
			OffendingItems: matched,
		}
	}

	return Decision{Allowed: true, Reason: ReasonOK}
}

// matchPatterns returns every pattern that occurs in the statement,
// case-insensitively. Patterns match the raw text, literals included:
// a dangerous call smuggled into a string is still reported.
func matchPatterns(statement string, patterns []string) []string {
	if len(patterns) == 0 {
		return nil
	}
	upper := strings.ToUpper(statement)
	var matched []string
	for _, pat := range patterns {
		if pat == "" {
			continue
		}
		if strings.Contains(upper, strings.ToUpper(pat)) {
			matched = append(matched, pat)
		}
	}
	return matched
}

// Evaluator binds a policy evaluation to its audit sink.
type Evaluator struct {
	policy Policy
	sink   audit.Sink
	logger *slog.Logger
}

// NewEvaluator returns an Evaluator reporting to sink. A nil sink
// disables auditing regardless of policy.
func NewEvaluator(policy Policy, sink audit.Sink, logger *slog.Logger) *Evaluator {
	if sink == nil {
		sink = audit.NopSink{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Evaluator{policy: policy, sink: sink, logger: logger}
}

// Policy returns the evaluator's immutable policy value.
func (e *Evaluator) Policy() Policy {
	return e.policy
}

// Evaluate applies the policy and, when audit logging is enabled,
// records the decision before returning it.
func (e *Evaluator) Evaluate(info *parser.QueryInfo) Decision {
	decision := Evaluate(info, e.policy)

	if e.policy.AuditLogging {
		evType := audit.TypeQueryEvaluated
		if !decision.Allowed {
			evType = audit.TypeSecurityViolation
		}
		e.sink.Record(audit.Event{
			Time:      time.Now().UTC(),
			Type:      evType,
			Query:     info.Statement,
			Statement: string(info.Type),
			Allowed:   decision.Allowed,
			Reason:    string(decision.Reason),
			Offending: decision.OffendingItems,
		})
	}

	if !decision.Allowed {
		e.logger.Info("query denied",
			"reason", decision.Reason,
			"offending", decision.OffendingItems,
		)
	}

	return decision
}
