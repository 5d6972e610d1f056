package parser

import (
	"strings"
	"unicode"

	"github.com/glacierhq/glacier/pkg/token"
)

// Lexer tokenizes SQL input. It skips whitespace and comments but
// records the exact byte span of every token it emits, so callers can
// splice rewritten spans back into the original text verbatim.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// currentPos returns the current position.
func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// NextToken returns the next token. It returns a *ParseError when a
// string literal, quoted identifier, or block comment is unterminated.
func (l *Lexer) NextToken() (token.Token, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return token.Token{}, err
	}

	pos := l.currentPos()

	var tok token.Token
	tok.Start = pos

	switch l.ch {
	case 0:
		// Do not advance past the end of input; NextToken stays safe
		// to call again and keeps returning EOF.
		tok.Type = token.EOF
		tok.End = pos
		return tok, nil
	case '+':
		tok.Type = token.PLUS
	case '-':
		tok.Type = token.MINUS
	case '*':
		tok.Type = token.STAR
	case '/':
		tok.Type = token.SLASH
	case '%':
		tok.Type = token.PERCENT
	case '=':
		tok.Type = token.EQ
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok.Type = token.LE
		case '>':
			l.readChar()
			tok.Type = token.NE
		default:
			tok.Type = token.LT
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type = token.GE
		} else {
			tok.Type = token.GT
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type = token.NE
		} else {
			tok.Type = token.ILLEGAL
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			tok.Type = token.DPIPE
		} else {
			tok.Type = token.ILLEGAL
		}
	case ':':
		if l.peekChar() == ':' {
			l.readChar()
			tok.Type = token.DCOLON
		} else {
			tok.Type = token.COLON
		}
	case '.':
		tok.Type = token.DOT
	case ',':
		tok.Type = token.COMMA
	case ';':
		tok.Type = token.SEMI
	case '(':
		tok.Type = token.LPAREN
	case ')':
		tok.Type = token.RPAREN
	case '[':
		tok.Type = token.LBRACKET
	case ']':
		tok.Type = token.RBRACKET
	case '?':
		tok.Type = token.QUESTION
	case '\'':
		value, err := l.readString()
		if err != nil {
			return token.Token{}, err
		}
		tok.Type = token.STRING
		tok.Value = value
		tok.Text = l.input[pos.Offset:l.pos]
		tok.End = l.currentPos()
		return tok, nil
	case '"':
		value, err := l.readQuotedIdentifier()
		if err != nil {
			return token.Token{}, err
		}
		tok.Type = token.IDENT
		tok.Value = value
		tok.Quoted = true
		tok.Text = l.input[pos.Offset:l.pos]
		tok.End = l.currentPos()
		return tok, nil
	default:
		switch {
		case isLetter(l.ch) || l.ch == '_':
			ident := l.readIdentifier()
			tok.Type = token.LookupIdent(strings.ToLower(ident))
			tok.Value = ident
			tok.Text = ident
			tok.End = l.currentPos()
			return tok, nil
		case isDigit(l.ch):
			num := l.readNumber()
			tok.Type = token.NUMBER
			tok.Value = num
			tok.Text = num
			tok.End = l.currentPos()
			return tok, nil
		default:
			tok.Type = token.ILLEGAL
		}
	}

	l.readChar()
	tok.Text = l.input[pos.Offset:l.pos]
	tok.Value = tok.Text
	tok.End = l.currentPos()
	return tok, nil
}

// skipWhitespaceAndComments skips whitespace, line comments, and block
// comments. Comment contents are never surfaced as SQL tokens, so a
// keyword inside a comment cannot misfire downstream.
func (l *Lexer) skipWhitespaceAndComments() error {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		// Line comment (-- ...)
		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}

		// Block comment (/* ... */)
		if l.ch == '/' && l.peekChar() == '*' {
			start := l.currentPos()
			l.readChar() // skip '/'
			l.readChar() // skip '*'

			closed := false
			for l.ch != 0 {
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar() // skip '*'
					l.readChar() // skip '/'
					closed = true
					break
				}
				l.readChar()
			}
			if !closed {
				return &ParseError{
					Code:    ErrUnterminatedLiteral,
					Pos:     start,
					Message: "unterminated block comment",
				}
			}
			continue
		}

		return nil
	}
}

// readString reads a single-quoted string literal.
// Handles doubled single quotes as escape: 'it''s' -> it's
func (l *Lexer) readString() (string, error) {
	start := l.currentPos()
	l.readChar() // skip opening quote

	var result strings.Builder
	for {
		if l.ch == 0 {
			return "", &ParseError{
				Code:    ErrUnterminatedLiteral,
				Pos:     start,
				Message: "unterminated string literal",
			}
		}
		if l.ch == '\'' {
			if l.peekChar() == '\'' {
				result.WriteByte('\'')
				l.readChar() // skip first quote
				l.readChar() // skip second quote
				continue
			}
			l.readChar() // skip closing quote
			return result.String(), nil
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
}

// readQuotedIdentifier reads a double-quoted identifier.
// Handles doubled double quotes as escape: "col""name" -> col"name
func (l *Lexer) readQuotedIdentifier() (string, error) {
	start := l.currentPos()
	l.readChar() // skip opening quote

	var result strings.Builder
	for {
		if l.ch == 0 {
			return "", &ParseError{
				Code:    ErrUnterminatedLiteral,
				Pos:     start,
				Message: "unterminated quoted identifier",
			}
		}
		if l.ch == '"' {
			if l.peekChar() == '"' {
				result.WriteByte('"')
				l.readChar() // skip first quote
				l.readChar() // skip second quote
				continue
			}
			l.readChar() // skip closing quote
			return result.String(), nil
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
}

// readIdentifier reads an unquoted identifier.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '$' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // skip '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if l.ch == 'e' || l.ch == 'E' {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[start:l.pos]
}

// isLetter returns true if ch is a letter.
func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch))
}

// isDigit returns true if ch is a digit.
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Tokenize returns all tokens from the input, excluding the trailing
// EOF token.
func Tokenize(input string) ([]token.Token, error) {
	l := NewLexer(input)
	var tokens []token.Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == token.EOF {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}
