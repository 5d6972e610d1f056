package parser

import (
	"fmt"

	"github.com/glacierhq/glacier/pkg/token"
)

// ErrorCode identifies the category of a parse failure.
type ErrorCode int

const (
	// ErrUnterminatedLiteral reports a string literal, quoted
	// identifier, or block comment that is not closed before EOF.
	ErrUnterminatedLiteral ErrorCode = iota

	// ErrUnbalancedParentheses reports mismatched parenthesis nesting.
	ErrUnbalancedParentheses
)

func (c ErrorCode) String() string {
	switch c {
	case ErrUnterminatedLiteral:
		return "unterminated literal"
	case ErrUnbalancedParentheses:
		return "unbalanced parentheses"
	}
	return "parse error"
}

// ParseError is a fatal lexical or structural error. A statement that
// fails to parse is never rewritten or executed.
type ParseError struct {
	Code    ErrorCode
	Pos     token.Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}
