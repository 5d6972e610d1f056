package parser

import (
	"fmt"

	"github.com/glacierhq/glacier/pkg/token"
)

// TableReference is one table named in a statement, with enough
// positional detail to splice a rewritten name back into the original
// text.
type TableReference struct {
	// Database and Schema are the explicit qualifiers, empty when the
	// reference does not carry them.
	Database string
	Schema   string

	// Name is the table name as written, without quotes. Empty for a
	// derived table (subquery in a FROM position).
	Name string

	// Quoted is true when the name was a double-quoted identifier.
	Quoted bool

	// Alias is the AS alias or bare trailing alias, empty when absent.
	Alias string

	// Clause is where the reference appeared.
	Clause ClauseContext

	// Start and End are the byte span [Start, End) of the name token in
	// the original statement text.
	Start int
	End   int

	// IsCTE is true when Name resolves to a CTE declared in the same
	// statement. CTE references are never rewritten.
	IsCTE bool

	// Derived is true for a parenthesized subquery in a table position.
	Derived bool
}

// Qualified returns the reference's full dotted form as written.
func (r TableReference) Qualified() string {
	switch {
	case r.Database != "":
		return fmt.Sprintf("%s.%s.%s", r.Database, r.Schema, r.Name)
	case r.Schema != "":
		return fmt.Sprintf("%s.%s", r.Schema, r.Name)
	}
	return r.Name
}

// Rewritable reports whether the prefix rewriter may touch this
// reference: no explicit qualifier, not a CTE, and a non-empty name.
func (r TableReference) Rewritable() bool {
	return r.Database == "" && r.Schema == "" && !r.IsCTE && r.Name != ""
}

// extractReferences pulls every table reference out of the located
// clause spans. Fragments it cannot make sense of are skipped with a
// warning rather than failing the parse.
func extractReferences(tokens []token.Token, depths []int, spans []clauseSpan, ctes CteNames) ([]TableReference, []string) {
	var refs []TableReference
	var warnings []string

	for _, span := range spans {
		for _, frag := range splitFragments(tokens, depths, span) {
			ref, warn, ok := parseFragment(tokens, frag, span)
			if warn != "" {
				warnings = append(warnings, warn)
			}
			if !ok {
				continue
			}
			if ref.Name != "" && ref.Database == "" && ref.Schema == "" {
				ref.IsCTE = ctes.Contains(ref.Name, ref.Quoted)
			}
			refs = append(refs, ref)
		}
	}

	return refs, warnings
}

// fragment is a half-open token range holding one table factor of a
// clause.
type fragment struct {
	start, end int
}

// splitFragments divides a clause span on the commas at the span's own
// depth. Commas inside subqueries or column lists sit deeper and are
// ignored.
func splitFragments(tokens []token.Token, depths []int, span clauseSpan) []fragment {
	var frags []fragment
	start := span.Start
	for i := span.Start; i < span.End; i++ {
		if depths[i] == span.Depth && tokens[i].Type == token.COMMA {
			frags = append(frags, fragment{start, i})
			start = i + 1
		}
	}
	if start < span.End {
		frags = append(frags, fragment{start, span.End})
	}
	return frags
}

// parseFragment reads one table factor:
//
//	[LATERAL] ( subquery ) [AS] [alias]
//	[LATERAL] name[.name[.name]] [AS] [alias]
//	name ( args )                   -- table function, skipped
//
// Qualifier parts bind right to left: the last part is the table name,
// the one before it the schema, the one before that the database.
func parseFragment(tokens []token.Token, frag fragment, span clauseSpan) (TableReference, string, bool) {
	i := frag.start
	if i >= frag.end {
		return TableReference{}, "", false
	}

	if tokens[i].Type == token.LATERAL {
		i++
		if i >= frag.end {
			return TableReference{}, "", false
		}
	}

	ref := TableReference{Clause: span.Context}

	// Derived table: (SELECT ...) alias
	if tokens[i].Type == token.LPAREN {
		i = skipBalanced(tokens, i)
		ref.Derived = true
		ref.Alias = readAlias(tokens, i, frag.end)
		return ref, "", true
	}

	if tokens[i].Type != token.IDENT {
		return TableReference{}, "", false
	}

	// Dotted identifier chain.
	var parts []token.Token
	parts = append(parts, tokens[i])
	i++
	for i+1 < frag.end && tokens[i].Type == token.DOT && tokens[i+1].Type == token.IDENT {
		parts = append(parts, tokens[i+1])
		i += 2
	}

	// In a FROM or JOIN position a call immediately after the chain is
	// a table function, not a table name. In an INSERT target the paren
	// group is the column list.
	if i < frag.end && tokens[i].Type == token.LPAREN &&
		(span.Context == ClauseFrom || span.Context == ClauseJoin) {
		return TableReference{}, "", false
	}

	var warn string
	if len(parts) > 3 {
		warn = fmt.Sprintf("reference %q has more than three qualifier parts, using the last three",
			tokens[frag.start].Value)
		parts = parts[len(parts)-3:]
	}

	name := parts[len(parts)-1]
	ref.Name = name.Value
	ref.Quoted = name.Quoted
	ref.Start = name.Start.Offset
	ref.End = name.End.Offset
	if len(parts) >= 2 {
		ref.Schema = parts[len(parts)-2].Value
	}
	if len(parts) == 3 {
		ref.Database = parts[0].Value
	}

	ref.Alias = readAlias(tokens, i, frag.end)
	return ref, warn, true
}

// readAlias reads an optional `AS ident` or bare trailing identifier
// alias at index i. Anything after the alias (sampling clauses, hints)
// is left alone.
func readAlias(tokens []token.Token, i, end int) string {
	if i < end && tokens[i].Type == token.AS {
		i++
	}
	if i < end && tokens[i].Type == token.IDENT {
		return tokens[i].Value
	}
	return ""
}
