package builtins_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/corelang/internal/builtins"
	"github.com/wudi/corelang/internal/values"
)

// funcCaller implements builtins.Caller by applying a plain Go function,
// standing in for the VM's real CallValue in higher-order method tests.
type funcCaller struct {
	fn func([]values.Value) (values.Value, error)
}

func (c funcCaller) CallValue(_ values.Value, args []values.Value) (values.Value, error) {
	return c.fn(args)
}

func arr(nums ...int64) values.Value {
	elems := make([]values.Value, len(nums))
	for i, n := range nums {
		elems[i] = values.Int(n)
	}
	return values.NewArray(elems)
}

func TestArrayLengthAndEmptiness(t *testing.T) {
	v, err := builtins.Invoke(arr(1, 2, 3), "length", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, values.Int(3), v)

	v, err = builtins.Invoke(arr(), "isEmpty", nil, nil)
	require.NoError(t, err)
	assert.True(t, v.AsBool())
}

func TestArrayPushMutatesBackingArray(t *testing.T) {
	a := arr(1, 2)
	_, err := builtins.Invoke(a, "push", []values.Value{values.Int(3)}, nil)
	require.NoError(t, err)
	assert.Equal(t, []values.Value{values.Int(1), values.Int(2), values.Int(3)}, a.Elements())
}

func TestArrayPopReturnsLastAndShrinks(t *testing.T) {
	a := arr(1, 2, 3)
	v, err := builtins.Invoke(a, "pop", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, values.Int(3), v)
	assert.Equal(t, []values.Value{values.Int(1), values.Int(2)}, a.Elements())
}

func TestArrayReduceSum(t *testing.T) {
	sumFn := values.Value{Kind: values.KindFunction}
	caller := funcCaller{fn: func(args []values.Value) (values.Value, error) {
		return values.Add(args[0], args[1])
	}}
	result, err := builtins.Invoke(arr(1, 2, 3, 4), "reduce", []values.Value{sumFn, values.Int(0)}, caller)
	require.NoError(t, err)
	assert.Equal(t, values.Int(10), result)
}

func TestArrayMapRequiresCaller(t *testing.T) {
	_, err := builtins.Invoke(arr(1), "map", []values.Value{{Kind: values.KindFunction}}, nil)
	assert.Error(t, err)
}

func TestArrayFilterKeepsTruthyResults(t *testing.T) {
	isEven := funcCaller{fn: func(args []values.Value) (values.Value, error) {
		return values.Bool(args[0].AsInt()%2 == 0), nil
	}}
	result, err := builtins.Invoke(arr(1, 2, 3, 4), "filter", []values.Value{{Kind: values.KindFunction}}, isEven)
	require.NoError(t, err)
	assert.Equal(t, []values.Value{values.Int(2), values.Int(4)}, result.Elements())
}

func TestArrayIndexOfAndContains(t *testing.T) {
	a := arr(10, 20, 30)
	v, err := builtins.Invoke(a, "indexOf", []values.Value{values.Int(20)}, nil)
	require.NoError(t, err)
	assert.Equal(t, values.Int(1), v)

	v, err = builtins.Invoke(a, "contains", []values.Value{values.Int(99)}, nil)
	require.NoError(t, err)
	assert.False(t, v.AsBool())
}

func TestArrayUnknownMethodIsError(t *testing.T) {
	_, err := builtins.Invoke(arr(1), "bogus", nil, nil)
	assert.Error(t, err)
}
