package parser_test

import (
	"testing"

	"github.com/glacierhq/glacier/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------- Reference Extraction ----------

func TestParseExtractsReferences(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []parser.TableReference
	}{
		{
			name: "bare table",
			sql:  "SELECT * FROM users",
			want: []parser.TableReference{
				{Name: "users", Clause: parser.ClauseFrom},
			},
		},
		{
			name: "schema qualified",
			sql:  "SELECT * FROM analytics.events",
			want: []parser.TableReference{
				{Schema: "analytics", Name: "events", Clause: parser.ClauseFrom},
			},
		},
		{
			name: "database qualified",
			sql:  "SELECT * FROM warehouse.analytics.events e",
			want: []parser.TableReference{
				{Database: "warehouse", Schema: "analytics", Name: "events", Alias: "e", Clause: parser.ClauseFrom},
			},
		},
		{
			name: "comma separated from list",
			sql:  "SELECT * FROM users u, orders o",
			want: []parser.TableReference{
				{Name: "users", Alias: "u", Clause: parser.ClauseFrom},
				{Name: "orders", Alias: "o", Clause: parser.ClauseFrom},
			},
		},
		{
			name: "join",
			sql:  "SELECT * FROM users u JOIN orders o ON u.id = o.user_id",
			want: []parser.TableReference{
				{Name: "users", Alias: "u", Clause: parser.ClauseFrom},
				{Name: "orders", Alias: "o", Clause: parser.ClauseJoin},
			},
		},
		{
			name: "left outer join",
			sql:  "SELECT * FROM a LEFT OUTER JOIN b ON a.id = b.id",
			want: []parser.TableReference{
				{Name: "a", Clause: parser.ClauseFrom},
				{Name: "b", Clause: parser.ClauseJoin},
			},
		},
		{
			name: "explicit AS alias",
			sql:  "SELECT * FROM users AS u",
			want: []parser.TableReference{
				{Name: "users", Alias: "u", Clause: parser.ClauseFrom},
			},
		},
		{
			name: "update target",
			sql:  "UPDATE users SET active = false WHERE id = 1",
			want: []parser.TableReference{
				{Name: "users", Clause: parser.ClauseUpdateTarget},
			},
		},
		{
			name: "insert target with column list",
			sql:  "INSERT INTO users (id, name) VALUES (1, 'a')",
			want: []parser.TableReference{
				{Name: "users", Clause: parser.ClauseInsertTarget},
			},
		},
		{
			name: "delete target",
			sql:  "DELETE FROM users WHERE id = 1",
			want: []parser.TableReference{
				{Name: "users", Clause: parser.ClauseDeleteTarget},
			},
		},
		{
			name: "truncate target",
			sql:  "TRUNCATE TABLE staging_events",
			want: []parser.TableReference{
				{Name: "staging_events", Clause: parser.ClauseTruncateTarget},
			},
		},
		{
			name: "truncate without table keyword",
			sql:  "TRUNCATE staging_events",
			want: []parser.TableReference{
				{Name: "staging_events", Clause: parser.ClauseTruncateTarget},
			},
		},
		{
			name: "quoted table name",
			sql:  `SELECT * FROM "Order Items"`,
			want: []parser.TableReference{
				{Name: "Order Items", Quoted: true, Clause: parser.ClauseFrom},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := parser.Parse(tt.sql)
			require.NoError(t, err)
			require.Len(t, info.References, len(tt.want))

			for i, want := range tt.want {
				got := info.References[i]
				assert.Equal(t, want.Database, got.Database, "ref %d database", i)
				assert.Equal(t, want.Schema, got.Schema, "ref %d schema", i)
				assert.Equal(t, want.Name, got.Name, "ref %d name", i)
				assert.Equal(t, want.Alias, got.Alias, "ref %d alias", i)
				assert.Equal(t, want.Clause, got.Clause, "ref %d clause", i)
				assert.Equal(t, want.Quoted, got.Quoted, "ref %d quoted", i)
			}
		})
	}
}

func TestParseReferenceSpansCoverNameToken(t *testing.T) {
	sql := "SELECT * FROM analytics.events e JOIN users u ON e.user_id = u.id"
	info, err := parser.Parse(sql)
	require.NoError(t, err)
	require.Len(t, info.References, 2)

	for _, ref := range info.References {
		got := sql[ref.Start:ref.End]
		assert.Equal(t, ref.Name, got)
	}
}

func TestParseDerivedTable(t *testing.T) {
	sql := "SELECT * FROM (SELECT id FROM orders) recent WHERE id > 5"
	info, err := parser.Parse(sql)
	require.NoError(t, err)
	require.Len(t, info.References, 2)

	derived := info.References[0]
	assert.True(t, derived.Derived)
	assert.Empty(t, derived.Name)
	assert.Equal(t, "recent", derived.Alias)
	assert.False(t, derived.Rewritable())

	inner := info.References[1]
	assert.Equal(t, "orders", inner.Name)
	assert.Equal(t, parser.ClauseFrom, inner.Clause)
}

func TestParseTableFunctionIsNotAReference(t *testing.T) {
	info, err := parser.Parse("SELECT * FROM generate_series(1, 10)")
	require.NoError(t, err)
	assert.Empty(t, info.References)
}

func TestParseSubqueryInWhere(t *testing.T) {
	sql := "SELECT * FROM users WHERE id IN (SELECT user_id FROM orders)"
	info, err := parser.Parse(sql)
	require.NoError(t, err)
	require.Len(t, info.References, 2)
	assert.Equal(t, "users", info.References[0].Name)
	assert.Equal(t, "orders", info.References[1].Name)
}

// ---------- CTE Registry ----------

func TestParseRegistersCTEs(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		wantCTEs []string
	}{
		{
			name:     "single cte",
			sql:      "WITH recent AS (SELECT * FROM orders) SELECT * FROM recent",
			wantCTEs: []string{"RECENT"},
		},
		{
			name:     "multiple ctes",
			sql:      "WITH a AS (SELECT 1), b AS (SELECT 2) SELECT * FROM a JOIN b ON true",
			wantCTEs: []string{"A", "B"},
		},
		{
			name:     "recursive cte",
			sql:      "WITH RECURSIVE tree AS (SELECT 1) SELECT * FROM tree",
			wantCTEs: []string{"TREE"},
		},
		{
			name:     "cte with column list",
			sql:      "WITH t (x, y) AS (SELECT 1, 2) SELECT * FROM t",
			wantCTEs: []string{"T"},
		},
		{
			name:     "quoted cte folds verbatim",
			sql:      `WITH "Recent" AS (SELECT 1) SELECT * FROM "Recent"`,
			wantCTEs: []string{"Recent"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := parser.Parse(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCTEs, info.CTEs.Names())
		})
	}
}

func TestParseCTEReferencesAreMarked(t *testing.T) {
	sql := "WITH recent AS (SELECT * FROM orders) SELECT * FROM recent r JOIN users u ON r.id = u.id"
	info, err := parser.Parse(sql)
	require.NoError(t, err)
	require.Len(t, info.References, 3)

	byName := map[string]parser.TableReference{}
	for _, ref := range info.References {
		byName[ref.Name] = ref
	}

	assert.False(t, byName["orders"].IsCTE)
	assert.True(t, byName["recent"].IsCTE)
	assert.False(t, byName["users"].IsCTE)
}

// A CTE referencing a CTE declared after it still resolves, because
// the registry is populated before extraction.
func TestParseCTEForwardReference(t *testing.T) {
	sql := "WITH a AS (SELECT * FROM b), b AS (SELECT * FROM users) SELECT * FROM a"
	info, err := parser.Parse(sql)
	require.NoError(t, err)

	for _, ref := range info.References {
		switch ref.Name {
		case "a", "b":
			assert.True(t, ref.IsCTE, "%s should resolve as a CTE", ref.Name)
		case "users":
			assert.False(t, ref.IsCTE)
		}
	}
}

// Nearest lexical scope wins: a physical table sharing a CTE's name is
// treated as the CTE for the whole statement.
func TestParseCTEShadowsPhysicalTable(t *testing.T) {
	sql := "WITH users AS (SELECT * FROM raw_users) SELECT * FROM users"
	info, err := parser.Parse(sql)
	require.NoError(t, err)

	for _, ref := range info.References {
		if ref.Name == "users" {
			assert.True(t, ref.IsCTE)
		}
	}
}

func TestParseCTEFoldingIsCaseInsensitive(t *testing.T) {
	sql := "WITH Recent AS (SELECT 1) SELECT * FROM RECENT"
	info, err := parser.Parse(sql)
	require.NoError(t, err)
	require.Len(t, info.References, 1)
	assert.True(t, info.References[0].IsCTE)
}

func TestParseNestedCTE(t *testing.T) {
	sql := "SELECT * FROM (WITH inner_cte AS (SELECT * FROM orders) SELECT * FROM inner_cte) x"
	info, err := parser.Parse(sql)
	require.NoError(t, err)
	assert.True(t, info.CTEs.Contains("inner_cte", false))

	for _, ref := range info.References {
		if ref.Name == "inner_cte" {
			assert.True(t, ref.IsCTE)
		}
	}
}

// ---------- Classification ----------

func TestParseClassifiesStatements(t *testing.T) {
	tests := []struct {
		sql  string
		want parser.StatementType
	}{
		{"SELECT 1", parser.StatementSelect},
		{"select * from t", parser.StatementSelect},
		{"INSERT INTO t VALUES (1)", parser.StatementInsert},
		{"UPDATE t SET x = 1", parser.StatementUpdate},
		{"DELETE FROM t", parser.StatementDelete},
		{"TRUNCATE TABLE t", parser.StatementTruncate},
		{"CREATE TABLE t (id int)", parser.StatementCreate},
		{"DROP TABLE t", parser.StatementDrop},
		{"ALTER TABLE t ADD COLUMN x int", parser.StatementAlter},
		{"MERGE INTO t USING s ON t.id = s.id WHEN MATCHED THEN UPDATE SET x = 1", parser.StatementMerge},
		{"CALL my_proc()", parser.StatementCall},
		{"SHOW TABLES", parser.StatementShow},
		{"DESCRIBE TABLE t", parser.StatementDescribe},
		{"DESC TABLE t", parser.StatementDescribe},
		{"EXPLAIN SELECT 1", parser.StatementExplain},
		{"GRANT SELECT ON t TO role", parser.StatementUnknown},
		{"", parser.StatementUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			info, err := parser.Parse(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.Type)
		})
	}
}

// A leading WITH clause never changes the classification; the statement
// that consumes the CTEs decides.
func TestParseClassifiesThroughWithClause(t *testing.T) {
	tests := []struct {
		sql  string
		want parser.StatementType
	}{
		{"WITH x AS (SELECT 1) SELECT * FROM x", parser.StatementSelect},
		{"WITH x AS (SELECT id FROM users) DELETE FROM orders WHERE id IN (SELECT id FROM x)", parser.StatementDelete},
		{"WITH x AS (SELECT 1), y AS (SELECT 2) INSERT INTO t SELECT * FROM x", parser.StatementInsert},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			info, err := parser.Parse(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.Type)
		})
	}
}

func TestStatementTypePredicates(t *testing.T) {
	assert.True(t, parser.StatementSelect.IsRead())
	assert.True(t, parser.StatementShow.IsRead())
	assert.False(t, parser.StatementDelete.IsRead())

	assert.True(t, parser.StatementCreate.IsDDL())
	assert.True(t, parser.StatementDrop.IsDDL())
	assert.False(t, parser.StatementSelect.IsDDL())
}

// ---------- Errors and Warnings ----------

func TestParseUnbalancedParentheses(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{name: "unclosed", sql: "SELECT * FROM (SELECT 1"},
		{name: "extra close", sql: "SELECT 1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(tt.sql)
			require.Error(t, err)

			var perr *parser.ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, parser.ErrUnbalancedParentheses, perr.Code)
		})
	}
}

func TestParseWarnsOnOverlongQualifierChain(t *testing.T) {
	info, err := parser.Parse("SELECT * FROM a.b.c.d")
	require.NoError(t, err)
	assert.NotEmpty(t, info.Warnings)
	require.Len(t, info.References, 1)
	assert.Equal(t, "d", info.References[0].Name)
	assert.Equal(t, "c", info.References[0].Schema)
	assert.Equal(t, "b", info.References[0].Database)
}

// ---------- QueryInfo helpers ----------

func TestQueryInfoTables(t *testing.T) {
	sql := "WITH recent AS (SELECT * FROM orders) SELECT * FROM recent r JOIN users u ON r.id = u.id JOIN orders o ON o.id = u.id"
	info, err := parser.Parse(sql)
	require.NoError(t, err)
	assert.Equal(t, []string{"ORDERS", "USERS"}, info.Tables())
}

func TestTableReferenceQualified(t *testing.T) {
	tests := []struct {
		ref  parser.TableReference
		want string
	}{
		{parser.TableReference{Name: "t"}, "t"},
		{parser.TableReference{Schema: "s", Name: "t"}, "s.t"},
		{parser.TableReference{Database: "d", Schema: "s", Name: "t"}, "d.s.t"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.ref.Qualified())
	}
}
