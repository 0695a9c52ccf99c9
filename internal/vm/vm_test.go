package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/corelang/internal/bytecode"
	"github.com/wudi/corelang/internal/concurrency"
	"github.com/wudi/corelang/internal/values"
	"github.com/wudi/corelang/internal/vm"
	"github.com/wudi/corelang/internal/vtable"
)

func newVM(chunk *bytecode.Chunk) *vm.VM {
	return vm.New(chunk, vtable.NewRegistry(), vm.Options{})
}

// Scenario 1: arithmetic + halt.
func TestArithmeticAndHalt(t *testing.T) {
	b := bytecode.NewBuilder()
	b.OpI8(bytecode.OpPushSmallInt, 2)
	b.OpI8(bytecode.OpPushSmallInt, 3)
	b.Op(bytecode.OpAdd)
	b.Op(bytecode.OpHalt)

	v := newVM(b.Chunk())
	require.NoError(t, v.Run())
	assert.Equal(t, values.Int(5), v.Result())
}

// Scenario 2: recursive factorial via call.
func TestRecursiveFactorialViaCall(t *testing.T) {
	b := bytecode.NewBuilder()

	fn := &values.Function{Name: "fact", Arity: 1, RequiredParams: 1}
	funcIdx := b.AddConstant(values.NewFunction(fn))

	b.OpU16(bytecode.OpConst, funcIdx)
	b.OpI8(bytecode.OpPushSmallInt, 5)
	b.OpU8(bytecode.OpCall, 1)
	b.Op(bytecode.OpHalt)

	fn.ChunkIndex = b.Here()
	b.OpU16(bytecode.OpGetLocal, 0)
	b.OpI8(bytecode.OpPushSmallInt, 1)
	b.Op(bytecode.OpLe)
	jmp := b.OpU16(bytecode.OpJumpIfFalse, 0)
	b.Op(bytecode.OpPop)
	b.OpI8(bytecode.OpPushSmallInt, 1)
	b.Op(bytecode.OpReturn)
	elseLabel := b.Here()
	b.PatchU16(jmp, uint16(elseLabel-(jmp+3)))
	b.Op(bytecode.OpPop)
	b.OpU16(bytecode.OpGetLocal, 0)
	b.OpU16(bytecode.OpConst, funcIdx)
	b.OpU16(bytecode.OpGetLocal, 0)
	b.OpI8(bytecode.OpPushSmallInt, 1)
	b.Op(bytecode.OpSub)
	b.OpU8(bytecode.OpCall, 1)
	b.Op(bytecode.OpMul)
	b.Op(bytecode.OpReturn)

	v := newVM(b.Chunk())
	require.NoError(t, v.Run())
	assert.Equal(t, values.Int(120), v.Result())
}

// Scenario 3: array.reduce closure summation.
func TestArrayReduceSummation(t *testing.T) {
	b := bytecode.NewBuilder()

	sum := &values.Function{Name: "sum", Arity: 2, RequiredParams: 2}
	sumIdx := b.AddConstant(values.NewFunction(sum))
	methodIdx := b.AddConstant(values.Str("reduce"))

	b.OpI8(bytecode.OpPushSmallInt, 1)
	b.OpI8(bytecode.OpPushSmallInt, 2)
	b.OpI8(bytecode.OpPushSmallInt, 3)
	b.OpI8(bytecode.OpPushSmallInt, 4)
	b.OpU16(bytecode.OpNewArray, 4)
	b.OpU16(bytecode.OpConst, sumIdx)
	b.OpI8(bytecode.OpPushSmallInt, 0)
	b.OpU16U8(bytecode.OpInvokeMethod, methodIdx, 2)
	b.Op(bytecode.OpHalt)

	sum.ChunkIndex = b.Here()
	b.OpU16(bytecode.OpGetLocal, 0)
	b.OpU16(bytecode.OpGetLocal, 1)
	b.Op(bytecode.OpAdd)
	b.Op(bytecode.OpReturn)

	v := newVM(b.Chunk())
	require.NoError(t, v.Run())
	assert.Equal(t, values.Int(10), v.Result())
}

// Scenario 4: exception round trip via setup_try/throw/getExceptionMessage.
func TestExceptionRoundTrip(t *testing.T) {
	b := bytecode.NewBuilder()

	msgIdx := b.AddConstant(values.Str("RuntimeException: boom"))
	fieldIdx := b.AddConstant(values.Str("message"))

	setupPos := b.OpU16(bytecode.OpSetupTry, 0)
	b.OpU16(bytecode.OpConst, msgIdx)
	b.Op(bytecode.OpThrow)
	catchLabel := b.Here()
	b.PatchU16(setupPos, uint16(catchLabel-(setupPos+3)))
	b.OpU16(bytecode.OpGetField, fieldIdx)
	b.Op(bytecode.OpHalt)

	v := newVM(b.Chunk())
	require.NoError(t, v.Run())
	assert.Equal(t, values.Str("boom"), v.Result())
}

// Scenario 5: channel rendezvous via go_spawn.
func TestChannelRendezvousViaGoSpawn(t *testing.T) {
	b := bytecode.NewBuilder()

	sender := &values.Function{Name: "sender", Arity: 1, RequiredParams: 1}
	senderIdx := b.AddConstant(values.NewFunction(sender))

	// slot 0 = channel
	b.OpU16(bytecode.OpChannelNew, 0)
	b.OpU16(bytecode.OpConst, senderIdx)
	b.OpU16(bytecode.OpGetLocal, 0)
	b.OpU8(bytecode.OpGoSpawn, 1)
	b.OpU16(bytecode.OpGetLocal, 0)
	b.Op(bytecode.OpChannelReceive)
	b.Op(bytecode.OpHalt)

	sender.ChunkIndex = b.Here()
	b.OpU16(bytecode.OpGetLocal, 0)
	b.OpI8(bytecode.OpPushSmallInt, 42)
	b.Op(bytecode.OpChannelSend)
	b.Op(bytecode.OpReturn)

	v := newVM(b.Chunk())
	require.NoError(t, v.Run())

	stack := v.Stack()
	require.Len(t, stack, 3)
	assert.Equal(t, values.Int(42), stack[1])
	assert.Equal(t, values.Bool(true), stack[2])
}

// Scenario 6: select with a default case and nothing else ready.
func TestSelectWithDefault(t *testing.T) {
	b := bytecode.NewBuilder()

	b.OpU16(bytecode.OpChannelNew, 0)
	b.Op(bytecode.OpSelectBegin)
	b.Op(bytecode.OpSelectAddRecv)
	b.Op(bytecode.OpSelectAddDefault)
	b.Op(bytecode.OpSelectExec)
	b.Op(bytecode.OpHalt)

	v := newVM(b.Chunk())
	require.NoError(t, v.Run())

	stack := v.Stack()
	require.Len(t, stack, 3) // [case_type, case_index, value]; select_add_recv consumed the channel
	assert.Equal(t, values.Int(int64(concurrency.CaseDefault)), stack[0])
}

// Division by zero converts to a catchable ArithmeticException via
// tryHandleFault's synthesis path rather than the explicit-throw one.
func TestDivisionByZeroIsCatchable(t *testing.T) {
	b := bytecode.NewBuilder()
	fieldIdx := b.AddConstant(values.Str("message"))

	setupPos := b.OpU16(bytecode.OpSetupTry, 0)
	b.OpI8(bytecode.OpPushSmallInt, 1)
	b.OpI8(bytecode.OpPushSmallInt, 0)
	b.Op(bytecode.OpDiv)
	b.Op(bytecode.OpPop)
	catchLabel := b.Here()
	b.PatchU16(setupPos, uint16(catchLabel-(setupPos+3)))
	b.OpU16(bytecode.OpGetField, fieldIdx)
	b.Op(bytecode.OpHalt)

	v := newVM(b.Chunk())
	require.NoError(t, v.Run())
	assert.Equal(t, "division by zero", v.Result().AsString())
}

// A setup_try region that completes normally retires its handler: a
// later, unguarded throw in the same frame must propagate uncaught
// rather than being caught by the stale handler from the first region.
func TestHandlerRetiresOnNormalCompletion(t *testing.T) {
	b := bytecode.NewBuilder()
	msgIdx := b.AddConstant(values.Str("RuntimeException: boom"))

	setupPos := b.OpU16(bytecode.OpSetupTry, 0)
	b.OpI8(bytecode.OpPushSmallInt, 1)
	b.Op(bytecode.OpPop)
	jmp := b.OpU16(bytecode.OpJump, 0)
	catchLabel := b.Here()
	b.PatchU16(setupPos, uint16(catchLabel-(setupPos+3)))
	b.Op(bytecode.OpPop) // catch body; must never execute
	afterTry := b.Here()
	b.PatchU16(jmp, uint16(afterTry-(jmp+3)))

	b.OpU16(bytecode.OpConst, msgIdx)
	b.Op(bytecode.OpThrow)
	b.Op(bytecode.OpHalt)

	v := newVM(b.Chunk())
	err := v.Run()
	require.Error(t, err)
	var fault *vm.Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "RuntimeException: boom", fault.Message)
}

// Arithmetic on a class operand falls back to its operator_add method
// once the built-in numeric/string fast path rejects the operands.
func TestOperatorOverloadDispatchesToClassMethod(t *testing.T) {
	b := bytecode.NewBuilder()

	op := &values.Function{Name: "operator_add", Arity: 1, RequiredParams: 1}
	opIdx := b.AddConstant(values.NewFunction(op))
	vecIdx := b.AddConstant(values.NewClass("Vec"))

	b.OpU16(bytecode.OpConst, vecIdx)
	b.OpI8(bytecode.OpPushSmallInt, 3)
	b.Op(bytecode.OpAdd)
	b.Op(bytecode.OpHalt)

	op.ChunkIndex = b.Here()
	b.OpU16(bytecode.OpGetLocal, 1) // the right-hand operand, arg 0
	b.OpI8(bytecode.OpPushSmallInt, 100)
	b.Op(bytecode.OpAdd)
	b.Op(bytecode.OpReturn)

	b.Chunk().Types["Vec"] = &bytecode.TypeInfo{
		Name:    "Vec",
		Methods: map[string]int{"operator_add": int(opIdx)},
	}

	v := newVM(b.Chunk())
	require.NoError(t, v.Run())
	assert.Equal(t, values.Int(103), v.Result())
}

// An uncaught fault propagates to the host unchanged.
func TestUncaughtFaultPropagates(t *testing.T) {
	b := bytecode.NewBuilder()
	b.Op(bytecode.OpPop) // stack underflow, no handler installed
	b.Op(bytecode.OpHalt)

	v := newVM(b.Chunk())
	err := v.Run()
	require.Error(t, err)
	var fault *vm.Fault
	require.ErrorAs(t, err, &fault)
	assert.ErrorIs(t, fault, vm.ErrStackUnderflow)
}
