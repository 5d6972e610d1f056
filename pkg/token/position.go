package token

import "strings"

// Position represents a location in the source text.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
	Offset int // 0-based byte offset
}

// IsValid returns true if the position is valid (line > 0).
func (p Position) IsValid() bool {
	return p.Line > 0
}

// Fold normalizes an identifier for comparison per the warehouse's
// default folding rules: bare identifiers fold to uppercase, quoted
// identifiers compare verbatim.
func Fold(name string, quoted bool) string {
	if quoted {
		return name
	}
	return strings.ToUpper(name)
}
