package concurrency_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/corelang/internal/concurrency"
	"github.com/wudi/corelang/internal/values"
)

func TestBufferedChannelSendReceiveFIFO(t *testing.T) {
	ch := concurrency.NewChannel(2)
	require.True(t, ch.TrySend(values.Int(1)))
	require.True(t, ch.TrySend(values.Int(2)))
	assert.False(t, ch.TrySend(values.Int(3)))

	v, ok := ch.TryReceive()
	require.True(t, ok)
	assert.Equal(t, values.Int(1), v)

	v, ok = ch.TryReceive()
	require.True(t, ok)
	assert.Equal(t, values.Int(2), v)
}

func TestUnbufferedChannelRendezvousBlocksUntilReceived(t *testing.T) {
	ch := concurrency.NewChannel(0)
	done := make(chan struct{})
	go func() {
		require.NoError(t, ch.Send(values.Int(7)))
		close(done)
	}()

	v, ok := ch.Receive()
	require.True(t, ok)
	assert.Equal(t, values.Int(7), v)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sender did not unblock after rendezvous")
	}
}

func TestSendOnClosedChannelFails(t *testing.T) {
	ch := concurrency.NewChannel(1)
	ch.Close()
	err := ch.Send(values.Int(1))
	assert.ErrorIs(t, err, concurrency.ErrClosedChannelSend)
}

func TestReceiveOnClosedDrainedChannelReturnsFalse(t *testing.T) {
	ch := concurrency.NewChannel(1)
	require.True(t, ch.TrySend(values.Int(9)))
	ch.Close()

	v, ok := ch.TryReceive()
	require.True(t, ok)
	assert.Equal(t, values.Int(9), v)

	v, ok = ch.TryReceive()
	assert.False(t, ok)
	assert.True(t, v.IsNull())
}

func TestBufferedSnapshotForGCRoots(t *testing.T) {
	ch := concurrency.NewChannel(2)
	require.True(t, ch.TrySend(values.Int(1)))
	require.True(t, ch.TrySend(values.Int(2)))

	snap := ch.Buffered()
	assert.Equal(t, []values.Value{values.Int(1), values.Int(2)}, snap)

	// Mutating the snapshot must not affect the channel's internal buffer.
	snap[0] = values.Int(99)
	v, _ := ch.TryReceive()
	assert.Equal(t, values.Int(1), v)
}
