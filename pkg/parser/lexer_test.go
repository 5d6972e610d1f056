package parser_test

import (
	"testing"

	"github.com/glacierhq/glacier/pkg/parser"
	"github.com/glacierhq/glacier/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeBasics(t *testing.T) {
	tests := []struct {
		name      string
		sql       string
		wantTypes []token.Type
	}{
		{
			name: "simple select",
			sql:  "SELECT id FROM users",
			wantTypes: []token.Type{
				token.SELECT, token.IDENT, token.FROM, token.IDENT,
			},
		},
		{
			name: "qualified reference",
			sql:  "SELECT * FROM analytics.events",
			wantTypes: []token.Type{
				token.SELECT, token.STAR, token.FROM,
				token.IDENT, token.DOT, token.IDENT,
			},
		},
		{
			name: "cast and bind parameter",
			sql:  "SELECT id::text FROM t WHERE id = ?",
			wantTypes: []token.Type{
				token.SELECT, token.IDENT, token.DCOLON, token.IDENT,
				token.FROM, token.IDENT, token.WHERE, token.IDENT,
				token.EQ, token.QUESTION,
			},
		},
		{
			name: "keywords are case insensitive",
			sql:  "select * from t",
			wantTypes: []token.Type{
				token.SELECT, token.STAR, token.FROM, token.IDENT,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := parser.Tokenize(tt.sql)
			require.NoError(t, err)
			require.Len(t, tokens, len(tt.wantTypes))
			for i, want := range tt.wantTypes {
				assert.Equal(t, want, tokens[i].Type, "token %d", i)
			}
		})
	}
}

func TestTokenSpansAreVerbatim(t *testing.T) {
	sql := `SELECT "Name", 'it''s' FROM users -- trailing`
	tokens, err := parser.Tokenize(sql)
	require.NoError(t, err)

	for _, tok := range tokens {
		start, end := tok.Span()
		assert.Equal(t, tok.Text, sql[start:end], "span of %s", tok.Type)
	}
}

func TestTokenizeQuotedIdentifier(t *testing.T) {
	tokens, err := parser.Tokenize(`SELECT * FROM "Order Items"`)
	require.NoError(t, err)
	require.Len(t, tokens, 4)

	ident := tokens[3]
	assert.Equal(t, token.IDENT, ident.Type)
	assert.True(t, ident.Quoted)
	assert.Equal(t, "Order Items", ident.Value)
	assert.Equal(t, `"Order Items"`, ident.Text)
}

func TestTokenizeStringEscapes(t *testing.T) {
	tokens, err := parser.Tokenize(`SELECT 'it''s'`)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, token.STRING, tokens[1].Type)
	assert.Equal(t, "it's", tokens[1].Value)
	assert.Equal(t, `'it''s'`, tokens[1].Text)
}

func TestTokenizeSkipsComments(t *testing.T) {
	sql := "SELECT * -- FROM commented_out\nFROM real_table /* FROM another */"
	tokens, err := parser.Tokenize(sql)
	require.NoError(t, err)
	require.Len(t, tokens, 4)
	assert.Equal(t, "real_table", tokens[3].Value)
}

// Keywords inside string literals must not be surfaced as keyword
// tokens.
func TestTokenizeKeywordInsideLiteral(t *testing.T) {
	sql := "SELECT * FROM logs WHERE message = 'SELECT FROM fake'"
	tokens, err := parser.Tokenize(sql)
	require.NoError(t, err)

	fromCount := 0
	for _, tok := range tokens {
		if tok.Type == token.FROM {
			fromCount++
		}
	}
	assert.Equal(t, 1, fromCount)
}

func TestTokenizeUnterminated(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{name: "string literal", sql: "SELECT 'oops"},
		{name: "quoted identifier", sql: `SELECT "oops`},
		{name: "block comment", sql: "SELECT 1 /* oops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Tokenize(tt.sql)
			require.Error(t, err)

			var perr *parser.ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, parser.ErrUnterminatedLiteral, perr.Code)
		})
	}
}

func TestTokenizeNumbers(t *testing.T) {
	tokens, err := parser.Tokenize("SELECT 42, 3.14, 1e10, 2.5e-3")
	require.NoError(t, err)

	var nums []string
	for _, tok := range tokens {
		if tok.Type == token.NUMBER {
			nums = append(nums, tok.Text)
		}
	}
	assert.Equal(t, []string{"42", "3.14", "1e10", "2.5e-3"}, nums)
}

func TestNextTokenStopsAtEOF(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{name: "empty input", sql: ""},
		{name: "whitespace only", sql: "   \n\t"},
		{name: "comment only", sql: "-- nothing here"},
		{name: "statement", sql: "SELECT id FROM users"},
		{name: "no trailing whitespace", sql: "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := parser.NewLexer(tt.sql)
			for {
				tok, err := l.NextToken()
				require.NoError(t, err)
				if tok.Type == token.EOF {
					assert.Equal(t, len(tt.sql), tok.Start.Offset)
					break
				}
			}

			// EOF is sticky: further calls keep returning it.
			for i := 0; i < 3; i++ {
				tok, err := l.NextToken()
				require.NoError(t, err)
				assert.Equal(t, token.EOF, tok.Type)
			}
		})
	}
}
