package values_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/corelang/internal/values"
)

func TestAddIntAndFloatPromotion(t *testing.T) {
	sum, err := values.Add(values.Int(2), values.Int(3))
	require.NoError(t, err)
	assert.Equal(t, values.Int(5), sum)

	mixed, err := values.Add(values.Int(2), values.Float(1.5))
	require.NoError(t, err)
	assert.Equal(t, values.Float(3.5), mixed)
}

func TestAddStringConcatenation(t *testing.T) {
	sum, err := values.Add(values.Str("foo"), values.Str("bar"))
	require.NoError(t, err)
	assert.Equal(t, values.Str("foobar"), sum)
}

func TestDivByZeroReturnsSentinel(t *testing.T) {
	_, err := values.Div(values.Int(1), values.Int(0))
	require.ErrorIs(t, err, values.ErrDivByZero)
}

func TestModByZeroReturnsSentinel(t *testing.T) {
	_, err := values.Mod(values.Int(5), values.Int(0))
	require.ErrorIs(t, err, values.ErrModByZero)
}

func TestUnsupportedOperandsReturnArithError(t *testing.T) {
	_, err := values.Add(values.Int(1), values.Bool(true))
	var arithErr *values.ArithError
	require.ErrorAs(t, err, &arithErr)
}

func TestDivIntegerTruncates(t *testing.T) {
	result, err := values.Div(values.Int(7), values.Int(2))
	require.NoError(t, err)
	assert.Equal(t, values.Int(3), result)
}

func TestComparisonOperators(t *testing.T) {
	lt, err := values.Lt(values.Int(1), values.Int(2))
	require.NoError(t, err)
	assert.True(t, lt.AsBool())

	ge, err := values.Ge(values.Float(2.0), values.Int(2))
	require.NoError(t, err)
	assert.True(t, ge.AsBool())
}

func TestEqualityAcrossContainers(t *testing.T) {
	a := values.NewArray([]values.Value{values.Int(1), values.Int(2)})
	b := values.NewArray([]values.Value{values.Int(1), values.Int(2)})
	assert.False(t, values.Equal(a, b))
	assert.True(t, values.Equal(a, a))

	c := values.NewArray([]values.Value{values.Int(1), values.Int(3)})
	assert.False(t, values.Equal(a, c))
}

func TestNegAndNot(t *testing.T) {
	neg, err := values.Neg(values.Int(5))
	require.NoError(t, err)
	assert.Equal(t, values.Int(-5), neg)

	assert.True(t, values.Not(values.Bool(false)).AsBool())
}

func TestBitwiseOperators(t *testing.T) {
	and, err := values.BitAnd(values.Int(0b110), values.Int(0b011))
	require.NoError(t, err)
	assert.Equal(t, values.Int(0b010), and)

	shl, err := values.Shl(values.Int(1), values.Int(4))
	require.NoError(t, err)
	assert.Equal(t, values.Int(16), shl)
}
