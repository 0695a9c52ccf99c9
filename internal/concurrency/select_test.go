package concurrency_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/corelang/internal/concurrency"
	"github.com/wudi/corelang/internal/values"
)

func TestSelectPrefersReadyRecvOverDefault(t *testing.T) {
	ch := concurrency.NewChannel(1)
	require.True(t, ch.TrySend(values.Int(5)))

	sel := concurrency.NewSelector()
	recvIdx := sel.AddRecv(ch)
	sel.AddDefault()

	res := sel.Exec()
	assert.Equal(t, concurrency.CaseRecv, res.Kind)
	assert.Equal(t, recvIdx, res.Index)
	assert.Equal(t, values.Int(5), res.Value)
}

func TestSelectFallsBackToDefaultWhenNothingReady(t *testing.T) {
	ch := concurrency.NewChannel(1)

	sel := concurrency.NewSelector()
	sel.AddRecv(ch)
	defaultIdx := sel.AddDefault()

	res, ok := sel.TryExec()
	require.True(t, ok)
	assert.Equal(t, concurrency.CaseDefault, res.Kind)
	assert.Equal(t, defaultIdx, res.Index)
}

func TestSelectTryExecFailsWithoutDefaultOrReadyCase(t *testing.T) {
	ch := concurrency.NewChannel(1)

	sel := concurrency.NewSelector()
	sel.AddRecv(ch)

	_, ok := sel.TryExec()
	assert.False(t, ok)
}

func TestSelectRecvOnClosedChannelReportsClosed(t *testing.T) {
	ch := concurrency.NewChannel(1)
	ch.Close()

	sel := concurrency.NewSelector()
	sel.AddRecv(ch)

	res := sel.Exec()
	assert.Equal(t, concurrency.CaseRecvClosed, res.Kind)
}

func TestSelectSendCase(t *testing.T) {
	ch := concurrency.NewChannel(1)

	sel := concurrency.NewSelector()
	sendIdx := sel.AddSend(ch, values.Int(42))

	res := sel.Exec()
	assert.Equal(t, concurrency.CaseSend, res.Kind)
	assert.Equal(t, sendIdx, res.Index)

	v, ok := ch.TryReceive()
	require.True(t, ok)
	assert.Equal(t, values.Int(42), v)
}
