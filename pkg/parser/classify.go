package parser

import "github.com/glacierhq/glacier/pkg/token"

// StatementType is the coarse category of a SQL statement, used by the
// security policy and the audit log.
type StatementType string

const (
	StatementSelect   StatementType = "SELECT"
	StatementInsert   StatementType = "INSERT"
	StatementUpdate   StatementType = "UPDATE"
	StatementDelete   StatementType = "DELETE"
	StatementCreate   StatementType = "CREATE"
	StatementDrop     StatementType = "DROP"
	StatementAlter    StatementType = "ALTER"
	StatementTruncate StatementType = "TRUNCATE"
	StatementMerge    StatementType = "MERGE"
	StatementCall     StatementType = "CALL"
	StatementShow     StatementType = "SHOW"
	StatementDescribe StatementType = "DESCRIBE"
	StatementExplain  StatementType = "EXPLAIN"
	StatementUnknown  StatementType = "UNKNOWN"
)

// IsRead reports whether the statement only reads data.
func (t StatementType) IsRead() bool {
	switch t {
	case StatementSelect, StatementShow, StatementDescribe, StatementExplain:
		return true
	}
	return false
}

// IsDDL reports whether the statement changes schema objects rather
// than rows.
func (t StatementType) IsDDL() bool {
	switch t {
	case StatementCreate, StatementDrop, StatementAlter:
		return true
	}
	return false
}

var statementKeywords = map[token.Type]StatementType{
	token.SELECT:   StatementSelect,
	token.INSERT:   StatementInsert,
	token.UPDATE:   StatementUpdate,
	token.DELETE:   StatementDelete,
	token.CREATE:   StatementCreate,
	token.DROP:     StatementDrop,
	token.ALTER:    StatementAlter,
	token.TRUNCATE: StatementTruncate,
	token.MERGE:    StatementMerge,
	token.CALL:     StatementCall,
	token.SHOW:     StatementShow,
	token.DESCRIBE: StatementDescribe,
	token.DESC:     StatementDescribe,
	token.EXPLAIN:  StatementExplain,
}

// classify determines the statement type from the first significant
// keyword. A leading WITH list is skipped so that a CTE-prefixed
// statement classifies by its body: WITH x AS (...) DELETE FROM y is a
// DELETE, not a SELECT.
func classify(tokens []token.Token, depths []int) StatementType {
	i := 0
	if i < len(tokens) && tokens[i].Type == token.WITH {
		i = skipWithList(tokens, depths, i)
	}
	if i >= len(tokens) {
		return StatementUnknown
	}
	if t, ok := statementKeywords[tokens[i].Type]; ok {
		return t
	}
	return StatementUnknown
}

// skipWithList advances past the WITH list starting at index i and
// returns the index of the statement body. On a malformed list it
// returns i unchanged so classification falls through to UNKNOWN.
func skipWithList(tokens []token.Token, depths []int, i int) int {
	j := i + 1
	if j < len(tokens) && tokens[j].Type == token.RECURSIVE {
		j++
	}
	for j < len(tokens) {
		if tokens[j].Type != token.IDENT {
			return i
		}
		j++
		if j < len(tokens) && tokens[j].Type == token.LPAREN {
			j = skipBalanced(tokens, j)
		}
		if j >= len(tokens) || tokens[j].Type != token.AS {
			return i
		}
		j++
		if j >= len(tokens) || tokens[j].Type != token.LPAREN {
			return i
		}
		j = skipBalanced(tokens, j)
		if j < len(tokens) && tokens[j].Type == token.COMMA && depths[j] == depths[i] {
			j++
			continue
		}
		return j
	}
	return i
}
