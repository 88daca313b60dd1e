package lang

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/dfq/internal/frame"
)

func testTable(t *testing.T) *frame.Frame {
	t.Helper()
	f, err := frame.NewBuilder(nil).
		Float64("x", 1, 2, 3).
		String("y", "a", "b", "a").
		Bool("flag", true, false, true).
		NullableFloat64("v", []float64{1, 0, 3}, []bool{true, false, true}).
		String("payload", `{"user":{"age":25}}`, `{"user":{"age":31}}`, `not json`).
		Build()
	require.NoError(t, err)
	t.Cleanup(f.Release)
	return f
}

func TestParser_Filter(t *testing.T) {
	t.Parallel()
	tbl := testTable(t)

	tests := []struct {
		name string
		expr string
		want []bool
	}{
		{"greater than", `("x" > "1");`, []bool{false, true, true}},
		{"and", `("x" > "1") and ("y" == "a");`, []bool{false, false, true}},
		{"or", `("x" > "2") or ("y" == "b");`, []bool{false, true, true}},
		{"xor", `("x" > "1") xor ("y" == "a");`, []bool{true, true, false}},
		{"three clauses fold left", `("x" >= "1") and ("y" == "a") or ("x" == "2");`, []bool{true, true, true}},
		{"less or equal", `("x" <= "2");`, []bool{true, true, false}},
		{"string ordering", `("y" < "b");`, []bool{true, false, true}},
		{"boolean column", `("flag" == "true");`, []bool{true, false, true}},
		{"number never equals text", `("x" == "abc");`, []bool{false, false, false}},
		{"number differs from text", `("x" != "abc");`, []bool{true, true, true}},
		{"null only matches not equal", `("v" != "1");`, []bool{false, true, true}},
		{"null never matches equal", `("v" == "0");`, []bool{false, false, false}},
		{"json path column", `("payload{$.user.age}" > "30");`, []bool{false, true, false}},
		{"no terminator", `"y" == "b"`, []bool{false, true, false}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := New().Run(tt.expr, tbl)
			require.NoError(t, err)
			assert.Equal(t, KindFilter, res.Kind)
			assert.Equal(t, tt.want, res.Mask)
		})
	}
}

func TestParser_Calc(t *testing.T) {
	t.Parallel()
	single, err := frame.NewBuilder(nil).Float64("x", 5).Build()
	require.NoError(t, err)
	t.Cleanup(single.Release)
	tbl := testTable(t)

	tests := []struct {
		name   string
		expr   string
		tbl    Table
		legacy bool
		want   []float64
	}{
		{"fold left to right", `("x" - "1") * "2";`, single, false, []float64{8}},
		{"fold left to right with legacy plus", `("x" - "1") * "2";`, single, true, []float64{8}},
		{"plus adds", `("x" + "1") * "2";`, single, false, []float64{12}},
		{"legacy plus multiplies", `("x" + "1") * "2";`, single, true, []float64{10}},
		{"column with column", `("x" * "x") - "x";`, tbl, false, []float64{0, 2, 6}},
		{"scalar on the left", `("10" / "x");`, tbl, false, []float64{10, 5, 10.0 / 3}},
		{"long chain", `("x" + "1") * "2" - "4" / "2";`, tbl, false, []float64{0, 1, 2}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := New(WithLegacyPlus(tt.legacy)).Run(tt.expr, tt.tbl)
			require.NoError(t, err)
			assert.Equal(t, KindCalc, res.Kind)
			assert.False(t, res.IsScalar)
			assert.InDeltaSlice(t, tt.want, res.Values, 1e-9)
		})
	}
}

func TestParser_CalcScalar(t *testing.T) {
	t.Parallel()

	res, err := New().Run(`("3" + "4") / "2";`, nil)
	require.NoError(t, err)
	assert.True(t, res.IsScalar)
	assert.Equal(t, 3.5, res.Scalar)

	res, err = New().Run(`"1" / "0";`, nil)
	require.NoError(t, err)
	assert.True(t, math.IsInf(res.Scalar, 1))
}

func TestParser_NullBecomesNaN(t *testing.T) {
	t.Parallel()
	res, err := New().Run(`"v" + "1";`, testTable(t))
	require.NoError(t, err)
	require.Len(t, res.Values, 3)
	assert.Equal(t, 2.0, res.Values[0])
	assert.True(t, math.IsNaN(res.Values[1]))
	assert.Equal(t, 4.0, res.Values[2])
}

func TestParser_Errors(t *testing.T) {
	t.Parallel()
	tbl := testTable(t)

	tests := []struct {
		name string
		expr string
		want error
	}{
		{"only literals", `"a" "b";`, ErrUnclassifiedExpression},
		{"single literal", `"a";`, ErrUnclassifiedExpression},
		{"nothing at all", `;`, ErrUnclassifiedExpression},
		{"numeric operator in a filter", `("x" > "1") and ("x" + "1");`, ErrUnsupportedOperator},
		{"relation operator in a calculation", `("x" + "1") > "2";`, ErrUnsupportedOperator},
		{"unknown operand", `"nonexistent_col" + "abc";`, ErrOperandResolution},
		{"string column operand", `"y" + "1";`, ErrOperandResolution},
		{"unbalanced quote", `("x" > "1);`, ErrUnbalancedQuote},
		{"clause without logical operator", `("x" > "1") ("y" == "a");`, ErrUnexpectedToken},
		{"logical operator first", `and ("x" > "1");`, ErrUnexpectedToken},
		{"two logical operators", `("x" > "1") and or ("y" == "a");`, ErrUnexpectedToken},
		{"logical operator in a calculation", `("x" - "1") and "2";`, ErrUnexpectedToken},
		{"operator instead of operand", `("x" > "1") and (> "1");`, ErrUnexpectedToken},
		{"dangling logical operator", `("x" > "1") and;`, ErrIncompleteExpression},
		{"half window", `"x" >`, ErrIncompleteExpression},
		{"unknown filter column", `("z" == "1");`, ErrUnknownColumn},
		{"ordering a number against text", `("x" < "abc");`, ErrIncomparable},
		{"ordering booleans", `("flag" > "true");`, ErrIncomparable},
		{"invalid utf-8", "\"x\" > \"\xff\"", ErrInvalidInput},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := New().Run(tt.expr, tbl)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParser_ErrorPosition(t *testing.T) {
	t.Parallel()
	_, err := New().Run(`("x" > "1") and ("zz" == "1");`, testTable(t))
	require.ErrorIs(t, err, ErrUnknownColumn)

	pos, ok := Position(err)
	require.True(t, ok)
	assert.Equal(t, 17, pos)
}

// rowsTable reports a row count that differs from its columns.
type rowsTable struct {
	*frame.Frame
	rows int
}

func (t rowsTable) NumRows() int { return t.rows }

func TestParser_ColumnMustCoverTable(t *testing.T) {
	t.Parallel()
	tbl := rowsTable{Frame: testTable(t), rows: 5}

	tests := []struct {
		name string
		expr string
		pos  int
	}{
		{"filter column", `("x" > "1");`, 1},
		{"calc column", `"2" * "x";`, 6},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := New().Run(tt.expr, tbl)
			assert.Nil(t, res)
			require.ErrorIs(t, err, ErrRowCount)

			pos, ok := Position(err)
			require.True(t, ok)
			assert.Equal(t, tt.pos, pos)
		})
	}
}

func TestParser_ClassificationIsIdempotent(t *testing.T) {
	t.Parallel()
	p := New()
	p.Bind(testTable(t))

	feed := []Token{
		{Kind: TokenLiteral, Text: "x"},
		{Kind: TokenOperator, Op: OpGt, Text: ">"},
		{Kind: TokenLiteral, Text: "1"},
		{Kind: TokenLogical, Op: OpOr, Text: "or"},
		{Kind: TokenLiteral, Text: "x"},
		{Kind: TokenOperator, Op: OpAdd, Text: "+"},
	}
	for _, tok := range feed {
		require.NoError(t, p.AppendToken(tok))
		assert.Equal(t, KindFilter, p.Kind())
	}

	err := p.AppendToken(Token{Kind: TokenLiteral, Text: "1"})
	assert.ErrorIs(t, err, ErrUnsupportedOperator)
	assert.Equal(t, KindFilter, p.Kind())
}

func TestParser_RunStartsFresh(t *testing.T) {
	t.Parallel()
	tbl := testTable(t)
	p := New()

	res, err := p.Run(`("x" - "1") * "2";`, tbl)
	require.NoError(t, err)
	assert.Equal(t, KindCalc, res.Kind)

	res, err = p.Run(`("x" > "1");`, tbl)
	require.NoError(t, err)
	assert.Equal(t, KindFilter, res.Kind)
	assert.Equal(t, []bool{false, true, true}, res.Mask)
	assert.Len(t, p.History(), 6)
}

func TestParser_ResetClearsState(t *testing.T) {
	t.Parallel()
	p := New()
	p.Bind(testTable(t))
	require.NoError(t, p.AppendToken(Token{Kind: TokenLiteral, Text: "x"}))
	require.NoError(t, p.AppendToken(Token{Kind: TokenOperator, Op: OpMul, Text: "*"}))
	assert.Equal(t, KindCalc, p.Kind())

	p.Reset()
	assert.Equal(t, KindUnclassified, p.Kind())
	assert.Empty(t, p.History())

	_, err := p.Finish()
	assert.ErrorIs(t, err, ErrUnclassifiedExpression)
}

func TestResult_Rows(t *testing.T) {
	t.Parallel()
	r := &Result{Kind: KindFilter, Mask: []bool{true, false, true}}
	assert.Equal(t, 2, r.Count())
	assert.Equal(t, []int{0, 2}, r.Rows())
}
