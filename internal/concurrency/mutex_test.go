package concurrency_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wudi/corelang/internal/concurrency"
	"github.com/wudi/corelang/internal/values"
)

func TestMutexGuardReadWrite(t *testing.T) {
	m := concurrency.NewMutex(values.Int(0))

	g := m.Lock()
	assert.Equal(t, values.Int(0), g.Value())
	g.Set(values.Int(1))
	g.Unlock()

	g2 := m.Lock()
	assert.Equal(t, values.Int(1), g2.Value())
	g2.Unlock()
}

func TestMutexUnlockIsIdempotent(t *testing.T) {
	m := concurrency.NewMutex(values.Null())
	g := m.Lock()
	g.Unlock()
	assert.NotPanics(t, func() { g.Unlock() })
}

func TestMutexSerializesConcurrentIncrement(t *testing.T) {
	m := concurrency.NewMutex(values.Int(0))
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g := m.Lock()
			g.Set(values.Int(g.Value().AsInt() + 1))
			g.Unlock()
		}()
	}
	wg.Wait()

	g := m.Lock()
	defer g.Unlock()
	assert.Equal(t, values.Int(100), g.Value())
}
