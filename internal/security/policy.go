// Package security decides whether a parsed statement may be executed.
// Evaluation is a pure function over the parse result and an immutable
// policy value; the only side effect is reporting the decision to an
// audit sink when the policy asks for it.
package security

import "strings"

// Policy is the immutable security configuration one evaluation runs
// against. Schema names compare case-insensitively, matching the
// warehouse's identifier folding.
type Policy struct {
	// AllowAllQueryTypes permits non-SELECT statements. When false only
	// SELECT (and other read-only statements) may run.
	AllowAllQueryTypes bool `koanf:"allow_all_query_types"`

	// MaxQueryLength rejects statements longer than this many bytes.
	// Zero disables the check.
	MaxQueryLength int `koanf:"max_query_length"`

	// AllowedSchemas, when non-empty, is the only set of schemas that
	// qualified references may name.
	AllowedSchemas []string `koanf:"allowed_schemas"`

	// BlockedSchemas are denied regardless of AllowedSchemas.
	BlockedSchemas []string `koanf:"blocked_schemas"`

	// BlockedFunctionPatterns are case-insensitive substrings that deny
	// a statement wherever they appear in the raw text.
	BlockedFunctionPatterns []string `koanf:"blocked_function_patterns"`

	// AuditLogging reports every evaluation to the audit sink.
	AuditLogging bool `koanf:"audit_logging"`
}

// DefaultPolicy is the restrictive out-of-the-box configuration:
// SELECT-only, with the warehouse's administrative and
// dynamic-execution entry points blocked.
func DefaultPolicy() Policy {
	return Policy{
		AllowAllQueryTypes: false,
		MaxQueryLength:     10000,
		BlockedFunctionPatterns: []string{
			"SYSTEM$",
			"EXECUTE IMMEDIATE",
		},
		AuditLogging: true,
	}
}

// schemaSet folds a schema list for case-insensitive membership tests.
type schemaSet map[string]struct{}

func newSchemaSet(names []string) schemaSet {
	if len(names) == 0 {
		return nil
	}
	set := make(schemaSet, len(names))
	for _, name := range names {
		set[strings.ToUpper(name)] = struct{}{}
	}
	return set
}

func (s schemaSet) contains(name string) bool {
	_, ok := s[strings.ToUpper(name)]
	return ok
}
