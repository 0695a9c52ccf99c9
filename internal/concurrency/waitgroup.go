package concurrency

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/wudi/corelang/internal/values"
)

// WaitGroup is a counter with Add/Done/Wait, implemented as an atomic
// counter plus a park-on-zero fast path.
type WaitGroup struct {
	counter int64
	mu      sync.Mutex
	waiters []chan struct{}
}

func NewWaitGroup() *WaitGroup { return &WaitGroup{} }

// ErrNegativeCounter is returned when Add/Done would drive the counter
// below zero — a program error, since the counter must stay >= 0 at all
// observable points.
var ErrNegativeCounter = fmt.Errorf("wait group counter went negative")

// Add adjusts the counter by delta. A delta that would take the counter
// negative is rejected instead of silently clamped, preserving the ">= 0
// at all observable points" invariant.
func (w *WaitGroup) Add(delta int64) error {
	for {
		cur := atomic.LoadInt64(&w.counter)
		next := cur + delta
		if next < 0 {
			return ErrNegativeCounter
		}
		if atomic.CompareAndSwapInt64(&w.counter, cur, next) {
			if next == 0 {
				w.wake()
			}
			return nil
		}
	}
}

// Done is Add(-1).
func (w *WaitGroup) Done() error { return w.Add(-1) }

func (w *WaitGroup) wake() {
	w.mu.Lock()
	waiters := w.waiters
	w.waiters = nil
	w.mu.Unlock()
	for _, ch := range waiters {
		close(ch)
	}
}

// Wait blocks until the counter reaches zero.
func (w *WaitGroup) Wait() {
	if atomic.LoadInt64(&w.counter) == 0 {
		return
	}
	w.mu.Lock()
	if atomic.LoadInt64(&w.counter) == 0 {
		w.mu.Unlock()
		return
	}
	ch := make(chan struct{})
	w.waiters = append(w.waiters, ch)
	w.mu.Unlock()
	<-ch
}

func NewWaitGroupValue() values.Value {
	return values.Value{Kind: values.KindWaitGroup, Data: NewWaitGroup()}
}

func AsWaitGroup(v values.Value) *WaitGroup {
	wg, _ := v.Data.(*WaitGroup)
	return wg
}
