package exception_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/corelang/internal/exception"
	"github.com/wudi/corelang/internal/values"
)

func TestIsThrowableName(t *testing.T) {
	assert.True(t, exception.IsThrowableName("NullPointerException"))
	assert.False(t, exception.IsThrowableName("NotARealException"))
}

func TestChainReachesThrowable(t *testing.T) {
	parents := map[string]string{
		"CustomError": "RuntimeException",
	}
	resolve := func(name string) (string, bool) {
		p, ok := parents[name]
		return p, ok
	}
	assert.True(t, exception.ChainReachesThrowable("CustomError", resolve))
	assert.False(t, exception.ChainReachesThrowable("UnrelatedClass", resolve))
}

func TestChainReachesThrowableDetectsCycle(t *testing.T) {
	parents := map[string]string{
		"A": "B",
		"B": "A",
	}
	resolve := func(name string) (string, bool) {
		p, ok := parents[name]
		return p, ok
	}
	assert.False(t, exception.ChainReachesThrowable("A", resolve))
}

func TestParseLegacyThrow(t *testing.T) {
	class, msg, ok := exception.ParseLegacyThrow("RuntimeException: boom")
	require.True(t, ok)
	assert.Equal(t, "RuntimeException", class)
	assert.Equal(t, "boom", msg)

	_, _, ok = exception.ParseLegacyThrow("not a throwable: whatever")
	assert.False(t, ok)

	_, _, ok = exception.ParseLegacyThrow("no colon here")
	assert.False(t, ok)
}

func TestNewInstanceBuildsFieldsAndCauseChain(t *testing.T) {
	cause := &exception.Instance{ClassTag: "IOException", Message: "disk full"}
	v := exception.NewInstance("RuntimeException", "wrapped", cause, []exception.Frame{{FunctionName: "main"}})

	msg, ok := exception.MessageOf(v)
	require.True(t, ok)
	assert.Equal(t, "wrapped", msg)

	causeField, ok := v.AsClass().Fields.Get("cause")
	require.True(t, ok)
	causeMsg, ok := exception.MessageOf(causeField)
	require.True(t, ok)
	assert.Equal(t, "disk full", causeMsg)

	trace, ok := v.AsClass().Fields.Get("stackTrace")
	require.True(t, ok)
	assert.Equal(t, []values.Value{values.Str("main")}, trace.Elements())
}

func TestNewInstanceWithoutCauseIsNull(t *testing.T) {
	v := exception.NewInstance("RuntimeException", "oops", nil, nil)
	causeField, ok := v.AsClass().Fields.Get("cause")
	require.True(t, ok)
	assert.True(t, causeField.IsNull())
}

func TestMessageOfRejectsNonClassValues(t *testing.T) {
	_, ok := exception.MessageOf(values.Int(5))
	assert.False(t, ok)
}
