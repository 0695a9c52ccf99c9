// Package vm implements the interpreter dispatch loop, call-frame
// machinery, and coroutine driver: a stack-based bytecode interpreter
// with inline method caches, fused super-instructions, and goroutine-
// style concurrency.
package vm

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/wudi/corelang/internal/bytecode"
	"github.com/wudi/corelang/internal/concurrency"
	"github.com/wudi/corelang/internal/exception"
	"github.com/wudi/corelang/internal/locale"
	"github.com/wudi/corelang/internal/values"
	"github.com/wudi/corelang/internal/vtable"
)

// DebugLevel controls verbosity of runtime diagnostics, grounded on the
// teacher's VirtualMachine.debugLevel field.
type DebugLevel int

const (
	DebugNone DebugLevel = iota
	DebugBasic
	DebugDetailed
)

const (
	defaultStackCapacity = 1024
	defaultMaxFrames     = 64
)

// Options configures a VM at construction time.
type Options struct {
	MaxFrames       int
	StackCapacity   int
	DebugLevel      DebugLevel
	Locale          string
	DebugWriter     io.Writer
	Host            StdlibHost
}

// StdlibHost is the narrow interface the VM calls into for built-in
// functions/classes belonging to a standard-library module.
type StdlibHost interface {
	Call(module, function string, args []values.Value) (values.Value, error)
	HasClass(module, className string) bool
	CreateClassInstance(className string, args []values.Value) (values.Value, error)
	CallClassMethod(receiver values.Value, method string, args []values.Value) (values.Value, error)
}

// VM is the bytecode interpreter. Each coroutine runs its own VM instance
// sharing the same immutable Chunk; parent and child never share operand
// or frame stacks.
type VM struct {
	chunk *bytecode.Chunk

	stack  []values.Value
	frames []Frame

	handlers []ExceptionHandler

	ip int // current instruction pointer within the active frame's code

	registry *vtable.Registry
	caches   map[int]*vtable.InlineCache // call-site IP -> inline cache

	statics *staticsTable // shared across every coroutine of the same program

	host   StdlibHost
	locale *locale.Catalog

	maxFrames int
	halted    bool
	result    values.Value

	coroutineID string

	selectors []*concurrency.Selector // select_begin/add_*/exec operand stack

	preempt *int32 // shared atomic flag polled at safe-points

	debugLevel  DebugLevel
	debugWriter io.Writer

	// Root-scan support: allocated channels/mutexes/wait groups reachable
	// from the stack are visible via stack scanning. This slice is not
	// written by any opcode and is not read by the gcroot walker.
	retained []values.Value
}

// New constructs a VM bound to chunk, sharing registry across coroutines
// spawned from the same program.
func New(chunk *bytecode.Chunk, registry *vtable.Registry, opts Options) *VM {
	if opts.MaxFrames <= 0 {
		opts.MaxFrames = defaultMaxFrames
	}
	cap := opts.StackCapacity
	if cap <= 0 {
		cap = defaultStackCapacity
	}
	cat, _ := locale.Load(opts.Locale)
	v := &VM{
		chunk:       chunk,
		stack:       make([]values.Value, 0, cap),
		registry:    registry,
		caches:      make(map[int]*vtable.InlineCache),
		statics:     newStaticsTable(),
		host:        opts.Host,
		locale:      cat,
		maxFrames:   opts.MaxFrames,
		preempt:     new(int32),
		debugLevel:  opts.DebugLevel,
		debugWriter: opts.DebugWriter,
		coroutineID: uuid.NewString(),
	}
	return v
}

// staticsTable is the shared ClassName::field storage visible to every
// coroutine spawned from the same program; unlike the operand/frame
// stacks it is process-wide, not per-coroutine.
type staticsTable struct {
	mu     sync.RWMutex
	fields map[string]values.Value
}

func newStaticsTable() *staticsTable {
	return &staticsTable{fields: make(map[string]values.Value)}
}

// CoroutineID returns this VM instance's diagnostic identifier.
func (vm *VM) CoroutineID() string { return vm.coroutineID }

// RequestPreempt sets the shared preempt flag; the interpreter observes
// it only at safe-points (backward branches, calls, and the blocking
// concurrency opcodes listed in sched.go).
func (vm *VM) RequestPreempt() { atomic.StoreInt32(vm.preempt, 1) }

func (vm *VM) checkPreempt() {
	if atomic.CompareAndSwapInt32(vm.preempt, 1, 0) {
		// Cooperative yield: clear flag and give the Go scheduler a
		// chance to run another coroutine's VM instance.
		runtimeGosched()
	}
}

// push/pop/peek are the hot-path stack primitives. Bounds checks are kept
// on every call rather than trusting the emitting compiler.
func (vm *VM) push(v values.Value) error {
	if len(vm.stack) >= cap(vm.stack) && cap(vm.stack) > 0 && len(vm.stack) >= defaultStackCapacity*1024 {
		return vm.newFault(ErrStackOverflow, "stack exceeded hard limit")
	}
	vm.stack = append(vm.stack, v)
	return nil
}

func (vm *VM) pop() (values.Value, error) {
	if len(vm.stack) == 0 {
		return values.Value{}, vm.newFault(ErrStackUnderflow, "pop on empty stack")
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

func (vm *VM) peek(fromTop int) (values.Value, error) {
	idx := len(vm.stack) - 1 - fromTop
	if idx < 0 {
		return values.Value{}, vm.newFault(ErrStackUnderflow, "peek out of range")
	}
	return vm.stack[idx], nil
}

func (vm *VM) truncate(to int) {
	vm.stack = vm.stack[:to]
}

func (vm *VM) currentFrame() *Frame {
	if len(vm.frames) == 0 {
		return nil
	}
	return &vm.frames[len(vm.frames)-1]
}

func (vm *VM) pushFrame(f Frame) error {
	if len(vm.frames) >= vm.maxFrames {
		return vm.newFault(ErrFrameOverflow, "max frames %d exceeded", vm.maxFrames)
	}
	vm.frames = append(vm.frames, f)
	return nil
}

func (vm *VM) popFrame() Frame {
	f := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]
	return f
}

// StaticField reads ClassName::FieldName, lazily initializing from the
// chunk's TypeInfo.StaticFields constant on first read and memoizing.
func (vm *VM) StaticField(className, fieldName string) (values.Value, error) {
	key := className + "::" + fieldName
	vm.statics.mu.RLock()
	v, ok := vm.statics.fields[key]
	vm.statics.mu.RUnlock()
	if ok {
		return v, nil
	}

	ti, ok := vm.chunk.Types[className]
	if !ok {
		return values.Value{}, vm.newFault(ErrFieldNotFound, "class %s", className)
	}
	constIdx, ok := ti.StaticFields[fieldName]
	if !ok {
		return values.Value{}, vm.newFault(ErrFieldNotFound, "static field %s::%s", className, fieldName)
	}
	if constIdx < 0 || constIdx >= len(vm.chunk.Constants) {
		return values.Value{}, vm.newFault(ErrFieldNotFound, "static field initializer out of range")
	}
	init := vm.chunk.Constants[constIdx]

	vm.statics.mu.Lock()
	vm.statics.fields[key] = init
	vm.statics.mu.Unlock()
	return init, nil
}

// SetStaticField assigns value to ClassName::FieldName: assign the
// top-of-stack to the named static slot, after enforcing that the field
// is not in the const-field set.
func (vm *VM) SetStaticField(className, fieldName string, value values.Value) error {
	if ti, ok := vm.chunk.Types[className]; ok {
		if _, isConst := ti.ConstFields[fieldName]; isConst {
			return vm.newFault(ErrConstFieldAssign, "%s::%s", className, fieldName)
		}
	}
	key := className + "::" + fieldName
	vm.statics.mu.Lock()
	vm.statics.fields[key] = value
	vm.statics.mu.Unlock()
	return nil
}

// Result returns the final value left on the operand stack after halt.
func (vm *VM) Result() values.Value { return vm.result }

// Stack exposes the live operand stack for GC root scanning. Callers must
// not mutate the returned slice.
func (vm *VM) Stack() []values.Value { return vm.stack }

// StaticFieldSnapshot exposes the static-field map for GC root scanning.
func (vm *VM) StaticFieldSnapshot() map[string]values.Value {
	vm.statics.mu.RLock()
	defer vm.statics.mu.RUnlock()
	out := make(map[string]values.Value, len(vm.statics.fields))
	for k, v := range vm.statics.fields {
		out[k] = v
	}
	return out
}

func (vm *VM) recordDebug(format string, args ...interface{}) {
	if vm.debugLevel == DebugNone || vm.debugWriter == nil {
		return
	}
	fmt.Fprintf(vm.debugWriter, format+"\n", args...)
}

// describeUncaught renders a class-instance exception value for a fault
// that escaped every handler, using the locale catalog's "uncaught"
// template when configured.
func (vm *VM) describeUncaught(excValue values.Value) string {
	msg, _ := exception.MessageOf(excValue)
	if vm.locale != nil {
		return vm.locale.Format("uncaught_exception", map[string]string{
			"Type":    excValue.TypeName(),
			"Message": msg,
		})
	}
	return fmt.Sprintf("uncaught %s: %s", excValue.TypeName(), msg)
}
