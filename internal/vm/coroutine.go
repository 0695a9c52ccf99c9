package vm

import (
	"github.com/google/uuid"

	"github.com/wudi/corelang/internal/values"
	"github.com/wudi/corelang/internal/vtable"
)

// spawnChild builds a fresh VM instance sharing this VM's immutable chunk,
// method registry, stdlib host, locale catalog, and static-field table,
// but with its own operand stack, frame stack, inline-cache table, and
// preempt flag — no two coroutines ever share mutable per-call state.
func (vm *VM) spawnChild() *VM {
	return &VM{
		chunk:       vm.chunk,
		stack:       make([]values.Value, 0, defaultStackCapacity),
		registry:    vm.registry,
		caches:      make(map[int]*vtable.InlineCache),
		statics:     vm.statics,
		host:        vm.host,
		locale:      vm.locale,
		maxFrames:   vm.maxFrames,
		preempt:     new(int32),
		debugLevel:  vm.debugLevel,
		debugWriter: vm.debugWriter,
		coroutineID: uuid.NewString(),
	}
}
