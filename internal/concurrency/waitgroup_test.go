package concurrency_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/corelang/internal/concurrency"
)

func TestWaitGroupBlocksUntilZero(t *testing.T) {
	wg := concurrency.NewWaitGroup()
	require.NoError(t, wg.Add(2))

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before counter reached zero")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, wg.Done())
	require.NoError(t, wg.Done())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not unblock after counter reached zero")
	}
}

func TestWaitGroupRejectsNegativeCounter(t *testing.T) {
	wg := concurrency.NewWaitGroup()
	err := wg.Done()
	assert.ErrorIs(t, err, concurrency.ErrNegativeCounter)
}

func TestWaitGroupWaitReturnsImmediatelyWhenAlreadyZero(t *testing.T) {
	wg := concurrency.NewWaitGroup()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait blocked despite a zero counter")
	}
}
