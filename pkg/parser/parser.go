// Package parser analyzes warehouse SQL statements: it tokenizes the
// text, locates the clauses that name tables, extracts every table
// reference with its byte span, classifies the statement, and supports
// prefix rewriting of unqualified names. It is deliberately not a full
// SQL grammar: it understands exactly enough structure to find table
// names and leave everything else untouched.
package parser

import "github.com/glacierhq/glacier/pkg/token"

// QueryInfo is the result of analyzing one statement.
type QueryInfo struct {
	// Type is the statement's coarse category.
	Type StatementType

	// References are the table references found, in source order.
	References []TableReference

	// CTEs are the folded names declared by the statement's WITH
	// clauses, at any nesting depth.
	CTEs CteNames

	// Statement is the original text, unchanged.
	Statement string

	// Warnings are non-fatal oddities seen during extraction. The
	// statement is still usable.
	Warnings []string
}

// Tables returns the distinct non-CTE, non-derived table names in the
// statement, folded, in first-seen order.
func (q *QueryInfo) Tables() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, ref := range q.References {
		if ref.IsCTE || ref.Name == "" {
			continue
		}
		folded := token.Fold(ref.Name, ref.Quoted)
		if _, ok := seen[folded]; ok {
			continue
		}
		seen[folded] = struct{}{}
		names = append(names, folded)
	}
	return names
}

// Parse analyzes a single SQL statement. It fails only on lexical
// errors (unterminated literals or comments) and unbalanced
// parentheses; any statement that tokenizes cleanly produces a
// QueryInfo, possibly with warnings.
func Parse(statement string) (*QueryInfo, error) {
	tokens, err := Tokenize(statement)
	if err != nil {
		return nil, err
	}

	depths, err := tokenDepths(tokens)
	if err != nil {
		return nil, err
	}

	// The CTE registry is fully populated before extraction so that a
	// reference to a CTE declared later in the WITH list still
	// resolves.
	ctes := collectCTEs(tokens, depths)
	spans := locateClauses(tokens, depths)
	refs, warnings := extractReferences(tokens, depths, spans, ctes)

	return &QueryInfo{
		Type:       classify(tokens, depths),
		References: refs,
		CTEs:       ctes,
		Statement:  statement,
		Warnings:   warnings,
	}, nil
}
