package builder

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identitymgmt/squery/ast"
)

func TestBuildSimpleSelect(t *testing.T) {
	st := New()
	st.From = "[dbo].[UM_Requests] r"
	st.SelectList = []string{"r.Id"}
	sql := st.Build()
	assert.Equal(t, "SELECT r.Id\nFROM [dbo].[UM_Requests] r", sql)
}

func TestBuildSelectStarWhenEmpty(t *testing.T) {
	st := New()
	st.From = "[dbo].[UM_Requests] r"
	sql := st.Build()
	assert.Contains(t, sql, "SELECT *")
}

func TestBuildInlinesParamsLongestKeyFirst(t *testing.T) {
	st := New()
	st.From = "[dbo].[T] t"
	var placeholders []string
	for i := 0; i < 11; i++ {
		placeholders = append(placeholders, st.NextParam(ast.Number{Int: int64(i)}))
	}
	st.Where = placeholders[9] + " = " + placeholders[0] // @p10 = @p1
	sql := st.Build()
	assert.Contains(t, sql, "WHERE 9 = 0")
}

func TestBuildTopIsRendered(t *testing.T) {
	st := New()
	st.From = "[dbo].[T] t"
	st.Top = 25
	sql := st.Build()
	assert.Contains(t, sql, "SELECT TOP 25 ")
}

func TestBuildOffsetWithoutOrderBySynthesizesNullOrder(t *testing.T) {
	st := New()
	st.From = "[dbo].[T] t"
	st.Offset = 20
	st.Limit = 10
	sql := st.Build()
	assert.Contains(t, sql, "ORDER BY (SELECT NULL)\nOFFSET 20 ROWS\nFETCH NEXT 10 ROWS ONLY")
}

func TestBuildOffsetWithOrderByUsesIt(t *testing.T) {
	st := New()
	st.From = "[dbo].[T] t"
	st.OrderBy = []string{"t.Id ASC"}
	st.Offset = 5
	sql := st.Build()
	assert.Contains(t, sql, "ORDER BY t.Id ASC\nOFFSET 5 ROWS")
	assert.NotContains(t, sql, "FETCH NEXT")
}

func TestBuildTopSuppressesOffsetFetch(t *testing.T) {
	st := New()
	st.From = "[dbo].[T] t"
	st.Top = 5
	st.Offset = 10
	sql := st.Build()
	assert.NotContains(t, sql, "OFFSET")
	assert.NotContains(t, sql, "FETCH")
}

func TestLiteralQuoteDoublesEmbeddedQuotes(t *testing.T) {
	assert.Equal(t, "'O''Brien'", Literal(ast.Str("O'Brien")))
}

func TestLiteralBooleanRendersAsOneZero(t *testing.T) {
	assert.Equal(t, "1", Literal(ast.Bool(true)))
	assert.Equal(t, "0", Literal(ast.Bool(false)))
}

func TestLiteralNull(t *testing.T) {
	assert.Equal(t, "NULL", Literal(ast.Null{}))
}

func TestLiteralBigIntRoundTrips(t *testing.T) {
	big, _ := new(big.Int).SetString("99999999999999999999", 10)
	n := ast.Number{Big: big}
	assert.Equal(t, "99999999999999999999", Literal(n))
}

func TestNextParamNumberingIsMonotonic(t *testing.T) {
	st := New()
	p1 := st.NextParam(ast.Str("a"))
	p2 := st.NextParam(ast.Str("b"))
	require.Equal(t, "@p1", p1)
	require.Equal(t, "@p2", p2)
}
