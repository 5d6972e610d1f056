package parser

import (
	"sort"

	"github.com/glacierhq/glacier/pkg/token"
)

// ClauseContext identifies the clause a table reference was found in.
type ClauseContext int

const (
	// ClauseFrom is a FROM list entry.
	ClauseFrom ClauseContext = iota
	// ClauseJoin is the table factor of a JOIN.
	ClauseJoin
	// ClauseUpdateTarget is the target of an UPDATE statement.
	ClauseUpdateTarget
	// ClauseInsertTarget is the target of an INSERT INTO statement.
	ClauseInsertTarget
	// ClauseDeleteTarget is the target of a DELETE FROM statement.
	ClauseDeleteTarget
	// ClauseTruncateTarget is the target of a TRUNCATE TABLE statement.
	ClauseTruncateTarget
)

func (c ClauseContext) String() string {
	switch c {
	case ClauseFrom:
		return "FROM"
	case ClauseJoin:
		return "JOIN"
	case ClauseUpdateTarget:
		return "UPDATE"
	case ClauseInsertTarget:
		return "INSERT"
	case ClauseDeleteTarget:
		return "DELETE"
	case ClauseTruncateTarget:
		return "TRUNCATE"
	}
	return "UNKNOWN"
}

// clauseSpan is a half-open token range [Start, End) holding the table
// references of one clause, tagged with the paren depth it sits at.
type clauseSpan struct {
	Context ClauseContext
	Start   int
	End     int
	Depth   int
}

// tokenDepths computes the paren nesting depth of each token. The
// parens themselves sit at the depth of the enclosing level. Returns a
// ParseError when nesting is unbalanced.
func tokenDepths(tokens []token.Token) ([]int, error) {
	depths := make([]int, len(tokens))
	depth := 0
	for i, tok := range tokens {
		switch tok.Type {
		case token.LPAREN:
			depths[i] = depth
			depth++
		case token.RPAREN:
			depth--
			if depth < 0 {
				return nil, &ParseError{
					Code:    ErrUnbalancedParentheses,
					Pos:     tok.Start,
					Message: "unexpected closing parenthesis",
				}
			}
			depths[i] = depth
		default:
			depths[i] = depth
		}
	}
	if depth != 0 {
		pos := token.Position{Line: 1, Column: 1}
		if len(tokens) > 0 {
			pos = tokens[len(tokens)-1].End
		}
		return nil, &ParseError{
			Code:    ErrUnbalancedParentheses,
			Pos:     pos,
			Message: "unclosed parenthesis",
		}
	}
	return depths, nil
}

// clauseTerminators are keywords that end a table-list clause when they
// appear at the clause's own nesting depth.
var clauseTerminators = map[token.Type]bool{
	token.WHERE:     true,
	token.ON:        true,
	token.USING:     true,
	token.SET:       true,
	token.VALUES:    true,
	token.SELECT:    true,
	token.GROUP:     true,
	token.ORDER:     true,
	token.HAVING:    true,
	token.QUALIFY:   true,
	token.LIMIT:     true,
	token.OFFSET:    true,
	token.WINDOW:    true,
	token.UNION:     true,
	token.INTERSECT: true,
	token.EXCEPT:    true,
	token.JOIN:      true,
	token.INNER:     true,
	token.LEFT:      true,
	token.RIGHT:     true,
	token.FULL:      true,
	token.CROSS:     true,
	token.SEMI:      true,
}

// locateClauses walks the token stream and returns every clause span
// holding table references, at any nesting depth. Subquery clauses are
// found by the same walk because introducer keywords are matched at the
// depth they occur.
func locateClauses(tokens []token.Token, depths []int) []clauseSpan {
	var spans []clauseSpan

	for i := 0; i < len(tokens); i++ {
		switch tokens[i].Type {
		case token.FROM:
			// DELETE FROM is the delete-target clause, a plain FROM
			// opens a from-list.
			ctx := ClauseFrom
			if prev := prevToken(tokens, i); prev != nil && prev.Type == token.DELETE {
				ctx = ClauseDeleteTarget
			}
			spans = append(spans, clauseAt(tokens, depths, i+1, ctx))
		case token.JOIN:
			spans = append(spans, clauseAt(tokens, depths, i+1, ClauseJoin))
		case token.UPDATE:
			// Only statement-initial UPDATE opens a target clause.
			if isStatementStart(tokens, i) {
				spans = append(spans, clauseAt(tokens, depths, i+1, ClauseUpdateTarget))
			}
		case token.INSERT:
			if i+1 < len(tokens) && tokens[i+1].Type == token.INTO {
				spans = append(spans, clauseAt(tokens, depths, i+2, ClauseInsertTarget))
			}
		case token.TRUNCATE:
			start := i + 1
			if start < len(tokens) && tokens[start].Type == token.TABLE {
				start++
			}
			spans = append(spans, clauseAt(tokens, depths, start, ClauseTruncateTarget))
		}
	}

	return spans
}

// clauseAt builds the clause span beginning at token index start. The
// span runs until a terminator keyword at the same depth, a token at a
// shallower depth (the subquery's closing paren), or end of input.
func clauseAt(tokens []token.Token, depths []int, start int, ctx ClauseContext) clauseSpan {
	depth := 0
	if start < len(tokens) {
		depth = depths[start]
	} else if len(tokens) > 0 {
		depth = depths[len(tokens)-1]
	}

	end := start
	for ; end < len(tokens); end++ {
		if depths[end] < depth {
			break
		}
		if depths[end] == depth && clauseTerminators[tokens[end].Type] {
			break
		}
	}

	return clauseSpan{Context: ctx, Start: start, End: end, Depth: depth}
}

// prevToken returns the token before index i, or nil.
func prevToken(tokens []token.Token, i int) *token.Token {
	if i == 0 {
		return nil
	}
	return &tokens[i-1]
}

// isStatementStart reports whether the token at index i begins a
// statement: input start, after a semicolon, or right after an opening
// paren (a parenthesized statement).
func isStatementStart(tokens []token.Token, i int) bool {
	prev := prevToken(tokens, i)
	return prev == nil || prev.Type == token.SEMI || prev.Type == token.LPAREN
}

// CteNames is the set of Common Table Expression names declared by the
/// WITH clauses of one parse call. Names are stored folded: uppercase
// for bare identifiers, verbatim for quoted ones. The set is scoped to
// a single Parse call and never persisted.
type CteNames map[string]struct{}

func (c CteNames) add(name string, quoted bool) {
	c[token.Fold(name, quoted)] = struct{}{}
}

// Contains reports whether the given identifier names a CTE, using the
// warehouse's identifier-folding rules.
func (c CteNames) Contains(name string, quoted bool) bool {
	_, ok := c[token.Fold(name, quoted)]
	return ok
}

// Names returns the folded CTE names in sorted order.
func (c CteNames) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// collectCTEs registers every `name AS (` entry of every WITH list in
// the token stream, at any nesting depth. The registry is fully
// populated before any reference extraction runs, so declaration order
// does not matter and a CTE referencing another CTE resolves correctly.
func collectCTEs(tokens []token.Token, depths []int) CteNames {
	ctes := make(CteNames)

	for i := 0; i < len(tokens); i++ {
		if tokens[i].Type != token.WITH || !isStatementStart(tokens, i) {
			continue
		}

		j := i + 1
		if j < len(tokens) && tokens[j].Type == token.RECURSIVE {
			j++
		}

		// WITH list: name [(columns)] AS (body) [, ...]
		for j < len(tokens) {
			if tokens[j].Type != token.IDENT {
				break
			}
			name := tokens[j]
			j++

			// Optional column list.
			if j < len(tokens) && tokens[j].Type == token.LPAREN {
				j = skipBalanced(tokens, j)
			}

			if j >= len(tokens) || tokens[j].Type != token.AS {
				break
			}
			j++

			if j >= len(tokens) || tokens[j].Type != token.LPAREN {
				break
			}
			ctes.add(name.Value, name.Quoted)
			j = skipBalanced(tokens, j)

			if j < len(tokens) && tokens[j].Type == token.COMMA && depths[j] == depths[i] {
				j++
				continue
			}
			break
		}
	}

	return ctes
}

// skipBalanced returns the index just past the parenthesized group that
// opens at index i. Callers have already verified balanced nesting.
func skipBalanced(tokens []token.Token, i int) int {
	depth := 0
	for ; i < len(tokens); i++ {
		switch tokens[i].Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return i
}
