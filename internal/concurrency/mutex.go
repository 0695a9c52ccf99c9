package concurrency

import (
	"sync"

	"github.com/wudi/corelang/internal/values"
)

// Mutex carries an inner Value protected by mutual exclusion. mutex_lock
// acquires the lock and returns a Guard whose Unlock releases it — the
// spec leaves the choice between an explicit unlock opcode and a
// scope-exit guard open; this implementation exposes both since an
// interpreter using structured try/finally regions naturally wants the
// guard form while a flatter bytecode sequence wants an explicit unlock.
type Mutex struct {
	mu      sync.Mutex
	Protected values.Value
}

func NewMutex(initial values.Value) *Mutex {
	return &Mutex{Protected: initial}
}

// Guard is returned by Lock; Unlock releases the underlying mutex exactly
// once.
type Guard struct {
	m        *Mutex
	released bool
}

// Lock acquires the mutex and returns a Guard wrapping the protected value.
func (m *Mutex) Lock() *Guard {
	m.mu.Lock()
	return &Guard{m: m}
}

// Value returns the protected value while the guard is held.
func (g *Guard) Value() values.Value { return g.m.Protected }

// Set updates the protected value while the guard is held.
func (g *Guard) Set(v values.Value) { g.m.Protected = v }

// Unlock releases the mutex. Calling it more than once is a no-op.
func (g *Guard) Unlock() {
	if g.released {
		return
	}
	g.released = true
	g.m.mu.Unlock()
}

func NewMutexValue(initial values.Value) values.Value {
	return values.Value{Kind: values.KindMutex, Data: NewMutex(initial)}
}

func AsMutex(v values.Value) *Mutex {
	m, _ := v.Data.(*Mutex)
	return m
}
