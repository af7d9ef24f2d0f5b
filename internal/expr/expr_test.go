package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() *Context {
	ctx := NewContext()
	ctx.SetGroup("rsi14", map[string]Value{"value": Number(28.5), "period": Number(14)})
	ctx.SetGroup("adx14", map[string]Value{"value": Number(32.0), "period": Number(14)})
	ctx.SetGroup("cfg", map[string]Value{"capital": Number(10000), "risk_per_trade": Number(0.01)})
	ctx.SetGroup("price", map[string]Value{"close": Number(105.5), "open": Number(104.0)})
	return ctx
}

func evalText(t *testing.T, text string, ctx *Context) Value {
	t.Helper()
	compiled, err := Compile(text)
	require.NoError(t, err)
	v, err := compiled.Eval(ctx)
	require.NoError(t, err)
	return v
}

func TestCompile_ParseErrors(t *testing.T) {
	cases := []string{
		"rsi14.value <",
		"(rsi14.value > 30",
		"rsi14.value = 30",      // assignment is disallowed
		"a & b",                 // single ampersand
		"a | b",                 // single pipe
		"foo(1)",                // unknown function
		"a.b.c",                 // too many path segments
		"1 < 2 < 3",             // chained comparison
		"",                      // empty expression
		"rsi14.value > 30 30",   // trailing token
		"'unterminated",         // bad string
		"@",                     // unknown character
	}

	for _, text := range cases {
		_, err := Compile(text)
		assert.Error(t, err, "expected parse error for %q", text)
		var perr *ParseError
		assert.ErrorAs(t, err, &perr, "expected *ParseError for %q", text)
	}
}

func TestEval_Arithmetic(t *testing.T) {
	ctx := testContext()

	v := evalText(t, "1 + 2 * 3", ctx)
	f, err := v.AsNumber()
	require.NoError(t, err)
	assert.InDelta(t, 7.0, f, 1e-9)

	v = evalText(t, "(1 + 2) * 3", ctx)
	f, _ = v.AsNumber()
	assert.InDelta(t, 9.0, f, 1e-9)

	v = evalText(t, "-price.close + price.open", ctx)
	f, _ = v.AsNumber()
	assert.InDelta(t, -1.5, f, 1e-9)

	v = evalText(t, "10 % 3", ctx)
	f, _ = v.AsNumber()
	assert.InDelta(t, 1.0, f, 1e-9)
}

func TestEval_DivisionByZero(t *testing.T) {
	compiled, err := Compile("1 / (price.close - price.close)")
	require.NoError(t, err)

	_, err = compiled.Eval(testContext())
	require.Error(t, err)
	var eerr *EvalError
	assert.ErrorAs(t, err, &eerr)
}

func TestEval_SpecRuleExpression(t *testing.T) {
	compiled, err := Compile("rsi14.value < 30 && adx14.value > 25")
	require.NoError(t, err)

	// rsi14=28.5, adx14=32.0 -> true
	got, err := compiled.EvalBool(testContext())
	require.NoError(t, err)
	assert.True(t, got)

	// rsi14=35 -> false
	ctx := testContext()
	ctx.SetGroup("rsi14", map[string]Value{"value": Number(35)})
	got, err = compiled.EvalBool(ctx)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestEval_StrictLogicalOperands(t *testing.T) {
	// Both operands are evaluated: a missing field on the right side fails
	// even when the left side alone would decide the result.
	compiled, err := Compile("rsi14.value > 100 && trade.entry_price > 0")
	require.NoError(t, err)

	_, err = compiled.Eval(testContext())
	require.Error(t, err)
	assert.True(t, IsMissingField(err))
}

func TestEval_MissingFieldWithoutGuard(t *testing.T) {
	compiled, err := Compile("trade.entry_price > 100")
	require.NoError(t, err)

	_, err = compiled.Eval(testContext())
	require.Error(t, err)
	var eerr *EvalError
	require.ErrorAs(t, err, &eerr)
	assert.True(t, IsMissingField(err))
}

func TestEval_NullGuards(t *testing.T) {
	ctx := testContext() // no "trade" group at all

	v := evalText(t, "isnull(trade.entry_price)", ctx)
	b, err := v.AsBool()
	require.NoError(t, err)
	assert.True(t, b)

	v = evalText(t, "nz(trade.entry_price)", ctx)
	f, err := v.AsNumber()
	require.NoError(t, err)
	assert.Zero(t, f)

	v = evalText(t, "nz(trade.entry_price, -1)", ctx)
	f, _ = v.AsNumber()
	assert.InDelta(t, -1.0, f, 1e-9)

	v = evalText(t, "coalesce(trade.entry_price, price.close)", ctx)
	f, _ = v.AsNumber()
	assert.InDelta(t, 105.5, f, 1e-9)

	// With a trade group present, the guards pass the real value through
	ctx.SetGroup("trade", map[string]Value{"entry_price": Number(100)})
	v = evalText(t, "nz(trade.entry_price)", ctx)
	f, _ = v.AsNumber()
	assert.InDelta(t, 100.0, f, 1e-9)

	v = evalText(t, "isnull(trade.entry_price)", ctx)
	b, _ = v.AsBool()
	assert.False(t, b)
}

func TestEval_Pctl(t *testing.T) {
	ctx := NewContext()
	ctx.SetGroup("hist", map[string]Value{
		"atr": Series([]float64{1, 2, 3, 4, 5}),
	})

	v := evalText(t, "pctl(hist.atr, 50)", ctx)
	f, err := v.AsNumber()
	require.NoError(t, err)
	assert.InDelta(t, 3.0, f, 1e-9)

	// Linear interpolation between ranks
	v = evalText(t, "pctl(hist.atr, 90)", ctx)
	f, _ = v.AsNumber()
	assert.InDelta(t, 4.6, f, 1e-9)

	v = evalText(t, "pctl(hist.atr, 0)", ctx)
	f, _ = v.AsNumber()
	assert.InDelta(t, 1.0, f, 1e-9)

	v = evalText(t, "pctl(hist.atr, 100)", ctx)
	f, _ = v.AsNumber()
	assert.InDelta(t, 5.0, f, 1e-9)

	// Percentile out of range is an eval error
	compiled, _ := Compile("pctl(hist.atr, 101)")
	_, err = compiled.Eval(ctx)
	assert.Error(t, err)
}

func TestEval_NumericBuiltins(t *testing.T) {
	ctx := testContext()

	cases := map[string]float64{
		"abs(-3.5)":       3.5,
		"floor(2.9)":      2,
		"ceil(2.1)":       3,
		"round(2.5)":      3,
		"sqrt(16)":        4,
		"min(3, 1, 2)":    1,
		"max(3, 1, 2)":    3,
		"min(1, 2) + 1":   2,
	}
	for text, want := range cases {
		v := evalText(t, text, ctx)
		f, err := v.AsNumber()
		require.NoError(t, err, text)
		assert.InDelta(t, want, f, 1e-9, text)
	}

	// Domain faults
	for _, text := range []string{"sqrt(-1)", "log(0)"} {
		compiled, err := Compile(text)
		require.NoError(t, err)
		_, err = compiled.Eval(ctx)
		assert.Error(t, err, text)
	}
}

func TestEval_EqualitySemantics(t *testing.T) {
	ctx := testContext()

	b, err := Number(1).AsBool()
	_ = b
	assert.Error(t, err)

	v := evalText(t, "null == null", ctx)
	eq, _ := v.AsBool()
	assert.True(t, eq)

	v = evalText(t, "nz(trade.side, 'none') == 'none'", ctx)
	eq, _ = v.AsBool()
	assert.True(t, eq)

	v = evalText(t, "1 == true", ctx)
	eq, _ = v.AsBool()
	assert.False(t, eq, "values of different kinds are never equal")
}

func TestCompile_Idempotence(t *testing.T) {
	// Compiling the same text twice and evaluating both against an
	// identical context yields identical results.
	text := "rsi14.value < 30 && adx14.value > 25"
	first, err := Compile(text)
	require.NoError(t, err)
	second, err := Compile(text)
	require.NoError(t, err)

	ctx := testContext()
	v1, err1 := first.Eval(ctx)
	v2, err2 := second.Eval(ctx)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.True(t, v1.Equal(v2))
}

func TestCache_GetAndInvalidate(t *testing.T) {
	cache := NewCache()

	first, err := cache.Get("rsi14.value < 30")
	require.NoError(t, err)
	second, err := cache.Get("rsi14.value < 30")
	require.NoError(t, err)
	assert.Same(t, first, second, "cache should return the same compiled instance")
	assert.Equal(t, 1, cache.Len())

	cache.Invalidate()
	assert.Equal(t, 0, cache.Len())

	third, err := cache.Get("rsi14.value < 30")
	require.NoError(t, err)
	assert.NotSame(t, first, third)

	// Compile failures are not cached
	_, err = cache.Get("((")
	assert.Error(t, err)
	assert.Equal(t, 1, cache.Len())
}
