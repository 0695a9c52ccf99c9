package vm

import (
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/wudi/corelang/internal/bytecode"
	"github.com/wudi/corelang/internal/concurrency"
	"github.com/wudi/corelang/internal/values"
)

// dispatch executes exactly one instruction at vm.ip, advancing vm.ip past
// its operands (and, for control-flow/call opcodes, to the instruction's
// target). It is the single switch every execution path — Run, RunFunction,
// and CallValue — drives.
func (vm *VM) dispatch(op bytecode.Op) error {
	vm.ip++
	switch op {

	// Stack & constants ----------------------------------------------------
	case bytecode.OpNop:
		return nil
	case bytecode.OpConst:
		idx := vm.readU16()
		v, err := vm.constant(idx)
		if err != nil {
			return err
		}
		return vm.push(v)
	case bytecode.OpPop:
		_, err := vm.pop()
		return err
	case bytecode.OpDup:
		v, err := vm.peek(0)
		if err != nil {
			return err
		}
		return vm.push(v)
	case bytecode.OpPushSmallInt:
		imm := vm.readI8()
		return vm.push(values.Int(int64(imm)))
	case bytecode.OpHalt:
		vm.halted = true
		if v, err := vm.peek(0); err == nil {
			vm.result = v
		}
		return nil
	case bytecode.OpPrintln:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		if vm.debugWriter != nil {
			_, _ = vm.debugWriter.Write([]byte(values.Stringify(v) + "\n"))
		}
		return nil

	// Arithmetic & comparison ----------------------------------------------
	case bytecode.OpAdd:
		return vm.binaryArith("add", values.Add)
	case bytecode.OpSub:
		return vm.binaryArith("sub", values.Sub)
	case bytecode.OpMul:
		return vm.binaryArith("mul", values.Mul)
	case bytecode.OpDiv:
		return vm.binaryArithDiv("div", values.Div)
	case bytecode.OpMod:
		return vm.binaryArithDiv("mod", values.Mod)
	case bytecode.OpPow:
		return vm.binaryArith("pow", values.Pow)
	case bytecode.OpNeg:
		a, err := vm.pop()
		if err != nil {
			return err
		}
		r, err := values.Neg(a)
		if err != nil {
			return vm.newFault(ErrTypeMismatch, "%s", err.Error())
		}
		return vm.push(r)
	case bytecode.OpEq:
		return vm.binaryBool(func(a, b values.Value) (values.Value, error) { return values.Eq(a, b), nil })
	case bytecode.OpNe:
		return vm.binaryBool(func(a, b values.Value) (values.Value, error) { return values.Ne(a, b), nil })
	case bytecode.OpLt:
		return vm.binaryOrdered(values.Lt)
	case bytecode.OpLe:
		return vm.binaryOrdered(values.Le)
	case bytecode.OpGt:
		return vm.binaryOrdered(values.Gt)
	case bytecode.OpGe:
		return vm.binaryOrdered(values.Ge)
	case bytecode.OpNot:
		a, err := vm.pop()
		if err != nil {
			return err
		}
		return vm.push(values.Not(a))
	case bytecode.OpBitAnd:
		return vm.binaryArith("bitand", values.BitAnd)
	case bytecode.OpBitOr:
		return vm.binaryArith("bitor", values.BitOr)
	case bytecode.OpBitXor:
		return vm.binaryArith("bitxor", values.BitXor)
	case bytecode.OpBitNot:
		a, err := vm.pop()
		if err != nil {
			return err
		}
		r, err := values.BitNot(a)
		if err != nil {
			return vm.newFault(ErrTypeMismatch, "%s", err.Error())
		}
		return vm.push(r)
	case bytecode.OpShl:
		return vm.binaryArith("shl", values.Shl)
	case bytecode.OpShr:
		return vm.binaryArith("shr", values.Shr)

	// Typed-int fast paths: identical results to their polymorphic
	// counterparts when both operands already are ints; the compiler emits
	// these only when it has proven that, so no extra type check is done
	// here beyond what the underlying helper already performs.
	case bytecode.OpAddInt:
		return vm.binaryArith("add", values.Add)
	case bytecode.OpSubInt:
		return vm.binaryArith("sub", values.Sub)
	case bytecode.OpMulInt:
		return vm.binaryArith("mul", values.Mul)
	case bytecode.OpLtInt:
		return vm.binaryOrdered(values.Lt)
	case bytecode.OpLeInt:
		return vm.binaryOrdered(values.Le)
	case bytecode.OpGtInt:
		return vm.binaryOrdered(values.Gt)
	case bytecode.OpGeInt:
		return vm.binaryOrdered(values.Ge)
	case bytecode.OpEqInt:
		return vm.binaryBool(func(a, b values.Value) (values.Value, error) { return values.Eq(a, b), nil })

	// Variables --------------------------------------------------------
	case bytecode.OpGetLocal:
		slot := vm.readU16()
		return vm.pushLocal(slot)
	case bytecode.OpSetLocal:
		slot := vm.readU16()
		v, err := vm.pop()
		if err != nil {
			return err
		}
		return vm.setLocal(slot, v)
	case bytecode.OpGetUpvalue, bytecode.OpSetUpvalue, bytecode.OpCloseUpvalue:
		// Upvalues require a closure-conversion pass the compiler front end
		// performs; this execution core has no closed-over environment to
		// read from, so these opcodes are accepted but are no-ops.
		// OpGetUpvalue still pushes null so stack shape stays predictable.
		if op == bytecode.OpGetUpvalue {
			vm.readU16()
			return vm.push(values.Null())
		}
		if op == bytecode.OpSetUpvalue {
			vm.readU16()
			_, err := vm.pop()
			return err
		}
		vm.readU16()
		return nil

	// Control flow -------------------------------------------------------
	case bytecode.OpJump:
		offset := vm.readU16()
		vm.ip += int(offset)
		return nil
	case bytecode.OpJumpIfFalse:
		offset := vm.readU16()
		v, err := vm.peek(0)
		if err != nil {
			return err
		}
		if !values.Truthy(v) {
			vm.ip += int(offset)
		}
		return nil
	case bytecode.OpJumpIfTrue:
		offset := vm.readU16()
		v, err := vm.peek(0)
		if err != nil {
			return err
		}
		if values.Truthy(v) {
			vm.ip += int(offset)
		}
		return nil
	case bytecode.OpJumpIfFalsePop:
		offset := vm.readU16()
		v, err := vm.pop()
		if err != nil {
			return err
		}
		if !values.Truthy(v) {
			vm.ip += int(offset)
		}
		return nil
	case bytecode.OpLoop:
		offset := vm.readU16()
		vm.ip -= int(offset)
		vm.checkPreempt() // backward branches are the coroutine safe-point
		return nil

	// Aggregates ---------------------------------------------------------
	case bytecode.OpNewArray:
		n := int(vm.readU16())
		return vm.opNewArray(n)
	case bytecode.OpNewMap:
		n := int(vm.readU16())
		return vm.opNewMap(n)
	case bytecode.OpNewSet:
		n := int(vm.readU16())
		return vm.opNewSet(n)
	case bytecode.OpNewRange:
		return vm.opNewRange(false)
	case bytecode.OpNewRangeInclusive:
		return vm.opNewRange(true)
	case bytecode.OpArraySlice:
		return vm.opArraySlice()
	case bytecode.OpGetIndex:
		return vm.opGetIndex()
	case bytecode.OpSetIndex:
		return vm.opSetIndex()
	case bytecode.OpIterInit:
		return vm.opIterInit()
	case bytecode.OpIterNext:
		return vm.opIterNext()
	case bytecode.OpNewStruct:
		idx := vm.readU16()
		return vm.opNewStructOp(idx)

	// Fields/classes already implemented in methods.go.
	case bytecode.OpGetField:
		idx := vm.readU16()
		return vm.opGetField(idx, invokeNormal)
	case bytecode.OpSafeGetField:
		idx := vm.readU16()
		return vm.opGetField(idx, invokeSafe)
	case bytecode.OpNonNullGetField:
		idx := vm.readU16()
		return vm.opGetField(idx, invokeNonNull)
	case bytecode.OpSetField:
		idx := vm.readU16()
		return vm.opSetField(idx)
	case bytecode.OpNewClass:
		typeIdx := vm.readU16()
		argCount := int(vm.readU8())
		return vm.opNewClass(typeIdx, argCount)
	case bytecode.OpInvokeMethod:
		methodIdx := vm.readU16()
		argCount := int(vm.readU8())
		vm.checkPreempt()
		return vm.opInvokeMethod(methodIdx, argCount, invokeNormal)
	case bytecode.OpSafeInvokeMethod:
		methodIdx := vm.readU16()
		argCount := int(vm.readU8())
		vm.checkPreempt()
		return vm.opInvokeMethod(methodIdx, argCount, invokeSafe)
	case bytecode.OpNonNullInvokeMethod:
		methodIdx := vm.readU16()
		argCount := int(vm.readU8())
		vm.checkPreempt()
		return vm.opInvokeMethod(methodIdx, argCount, invokeNonNull)
	case bytecode.OpGetStatic:
		idx := vm.readU16()
		return vm.opGetStatic(idx)
	case bytecode.OpSetStatic:
		idx := vm.readU16()
		return vm.opSetStatic(idx)
	case bytecode.OpInvokeStatic:
		methodIdx := vm.readU16()
		argCount := int(vm.readU8())
		vm.checkPreempt()
		return vm.opInvokeStatic(methodIdx, argCount)
	case bytecode.OpInvokeSuper:
		typeIdx := vm.readU16()
		methodIdx := vm.readU16()
		argCount := int(vm.readU8())
		vm.checkPreempt()
		return vm.opInvokeSuper(typeIdx, methodIdx, argCount)

	// Calls & exceptions ---------------------------------------------------
	case bytecode.OpCall:
		argCount := int(vm.readU8())
		vm.checkPreempt()
		return vm.opCall(argCount)
	case bytecode.OpTailCall:
		argCount := int(vm.readU8())
		vm.checkPreempt()
		return vm.opTailCall(argCount)
	case bytecode.OpReturn:
		return vm.opReturn()
	case bytecode.OpSetupTry:
		offset := vm.readU16()
		vm.handlers = append(vm.handlers, ExceptionHandler{
			CatchIP:           vm.ip + int(offset),
			StackDepthAtEntry: len(vm.stack),
			FrameDepthAtEntry: len(vm.frames),
		})
		return nil
	case bytecode.OpThrow:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		return vm.throwValue(v)
	case bytecode.OpPanic:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		return vm.newFault(ErrUncaughtException, "panic: %s", values.Stringify(v))

	// Concurrency ----------------------------------------------------------
	case bytecode.OpGoSpawn:
		argCount := int(vm.readU8())
		return vm.opGoSpawn(argCount)
	case bytecode.OpChannelNew:
		capacity := int(vm.readU16())
		return vm.push(concurrency.NewChannelValue(capacity))
	case bytecode.OpChannelSend:
		return vm.opChannelSend(true)
	case bytecode.OpChannelTrySend:
		return vm.opChannelSend(false)
	case bytecode.OpChannelReceive:
		vm.checkPreempt()
		return vm.opChannelReceive(true)
	case bytecode.OpChannelTryReceive:
		return vm.opChannelReceive(false)
	case bytecode.OpChannelClose:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		ch := concurrency.AsChannel(v)
		if ch == nil {
			return vm.newFault(ErrTypeMismatch, "channel_close on non-channel")
		}
		ch.Close()
		return nil
	case bytecode.OpMutexNew:
		return vm.push(concurrency.NewMutexValue(values.Null()))
	case bytecode.OpMutexLock:
		return vm.opMutexLock()
	case bytecode.OpWaitGroupNew:
		return vm.push(concurrency.NewWaitGroupValue())
	case bytecode.OpWaitGroupAdd:
		return vm.opWaitGroupAdd()
	case bytecode.OpWaitGroupDone:
		return vm.opWaitGroupDelta(-1)
	case bytecode.OpWaitGroupWait:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		wg := concurrency.AsWaitGroup(v)
		if wg == nil {
			return vm.newFault(ErrTypeMismatch, "wait_group_wait on non-wait-group")
		}
		vm.checkPreempt()
		wg.Wait()
		return nil
	case bytecode.OpSelectBegin:
		vm.selectors = append(vm.selectors, concurrency.NewSelector())
		return nil
	case bytecode.OpSelectAddSend:
		return vm.opSelectAddSend()
	case bytecode.OpSelectAddRecv:
		return vm.opSelectAddRecv()
	case bytecode.OpSelectAddDefault:
		sel := vm.topSelector()
		if sel == nil {
			return vm.newFault(ErrTypeMismatch, "select_add_default without select_begin")
		}
		sel.AddDefault()
		return nil
	case bytecode.OpSelectExec:
		vm.checkPreempt()
		return vm.opSelectFinish(true)
	case bytecode.OpSelectTryExec:
		return vm.opSelectFinish(false)

	// Enums ------------------------------------------------------------
	case bytecode.OpNewEnumSimple:
		enumIdx := vm.readU16()
		variantIdx := vm.readU16()
		return vm.opNewEnumSimple(enumIdx, variantIdx)
	case bytecode.OpNewEnumValue:
		enumIdx := vm.readU16()
		variantIdx := vm.readU16()
		return vm.opNewEnumValue(enumIdx, variantIdx)
	case bytecode.OpNewEnumFields:
		enumIdx := vm.readU16()
		variantIdx := vm.readU16()
		fieldCount := int(vm.readU16())
		return vm.opNewEnumFields(enumIdx, variantIdx, fieldCount)
	case bytecode.OpEnumVariantName:
		return vm.opEnumVariantName()
	case bytecode.OpEnumGetValue:
		return vm.opEnumGetValue()
	case bytecode.OpEnumGetField:
		idx := vm.readU16()
		return vm.opEnumGetField(idx)
	case bytecode.OpEnumMatch:
		idx := vm.readU16()
		return vm.opEnumMatch(idx)

	// Super-instructions: fused equivalents of primitive sequences. Each
	// must leave the stack/ip exactly where the corresponding primitive
	// sequence would have.
	case bytecode.OpGetLocalAddInt:
		return vm.opGetLocalArithImm(func(x, y int64) int64 { return x + y })
	case bytecode.OpGetLocalSubInt:
		return vm.opGetLocalArithImm(func(x, y int64) int64 { return x - y })
	case bytecode.OpGetLocalLeInt:
		return vm.opGetLocalCompareImm(func(x, y int64) bool { return x <= y })
	case bytecode.OpAddLocals:
		return vm.opLocalsArith(func(x, y int64) int64 { return x + y }, func(x, y float64) float64 { return x + y })
	case bytecode.OpSubLocals:
		return vm.opLocalsArith(func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y })
	case bytecode.OpJumpIfLocalLeConst:
		return vm.opJumpIfLocalCmpConst(func(x, y int64) bool { return x <= y })
	case bytecode.OpJumpIfLocalLtConst:
		return vm.opJumpIfLocalCmpConst(func(x, y int64) bool { return x < y })
	case bytecode.OpReturnLocal:
		slot := vm.readU16()
		v, err := vm.localAt(slot)
		if err != nil {
			return err
		}
		if err := vm.push(v); err != nil {
			return err
		}
		return vm.opReturn()
	case bytecode.OpReturnInt:
		imm := vm.readI8()
		if err := vm.push(values.Int(int64(imm))); err != nil {
			return err
		}
		return vm.opReturn()
	case bytecode.OpLoadLocals2:
		slotA := vm.readU16()
		slotB := vm.readU16()
		a, err := vm.localAt(slotA)
		if err != nil {
			return err
		}
		b, err := vm.localAt(slotB)
		if err != nil {
			return err
		}
		if err := vm.push(a); err != nil {
			return err
		}
		return vm.push(b)

	case bytecode.OpTime:
		return vm.opTime()

	default:
		return vm.newFault(ErrInvalidBytecode, "opcode %d", byte(op))
	}
}

// binaryArith pops (b, a) and pushes fn(a, b), wrapping arithmetic errors
// into a TypeMismatch fault. When opName is non-empty and fn rejects the
// operands, a class/struct left operand gets one more chance via its
// operator_<opName> method before the fault is raised.
func (vm *VM) binaryArith(opName string, fn func(a, b values.Value) (values.Value, error)) error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}
	r, err := fn(a, b)
	if err != nil {
		if opName != "" {
			if result, handled, operr := vm.tryOperatorOverload(opName, a, b); handled {
				if operr != nil {
					return operr
				}
				return vm.push(result)
			}
		}
		return vm.newFault(ErrTypeMismatch, "%s", err.Error())
	}
	return vm.push(r)
}

// binaryArithDiv is binaryArith specialized for Div/Mod, which may also
// fail with the values package's by-zero sentinels, mapped onto the vm
// package's single ErrDivByZero fault kind.
func (vm *VM) binaryArithDiv(opName string, fn func(a, b values.Value) (values.Value, error)) error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}
	r, err := fn(a, b)
	if err != nil {
		if err == values.ErrDivByZero || err == values.ErrModByZero {
			return vm.newFault(ErrDivByZero, "%s", err.Error())
		}
		if result, handled, operr := vm.tryOperatorOverload(opName, a, b); handled {
			if operr != nil {
				return operr
			}
			return vm.push(result)
		}
		return vm.newFault(ErrTypeMismatch, "%s", err.Error())
	}
	return vm.push(r)
}

func (vm *VM) binaryBool(fn func(a, b values.Value) (values.Value, error)) error {
	return vm.binaryArith("", fn)
}

func (vm *VM) binaryOrdered(fn func(a, b values.Value) (values.Value, error)) error {
	return vm.binaryArith("", fn)
}

func (vm *VM) pushLocal(slot uint16) error {
	v, err := vm.localAt(slot)
	if err != nil {
		return err
	}
	return vm.push(v)
}

func (vm *VM) localAt(slot uint16) (values.Value, error) {
	frame := vm.currentFrame()
	if frame == nil {
		return values.Value{}, vm.newFault(ErrStackUnderflow, "no active frame")
	}
	idx := int(frame.BaseSlot) + int(slot)
	if idx < 0 || idx >= len(vm.stack) {
		return values.Value{}, vm.newFault(ErrIndexOutOfBounds, "local slot %d", slot)
	}
	return vm.stack[idx], nil
}

func (vm *VM) setLocal(slot uint16, v values.Value) error {
	frame := vm.currentFrame()
	if frame == nil {
		return vm.newFault(ErrStackUnderflow, "no active frame")
	}
	idx := int(frame.BaseSlot) + int(slot)
	if idx < 0 || idx >= len(vm.stack) {
		return vm.newFault(ErrIndexOutOfBounds, "local slot %d", slot)
	}
	vm.stack[idx] = v
	return nil
}

// opTime implements the deprecated TIME opcode: push milliseconds since
// the Unix epoch. go-strftime is wired in only to format the debug trace
// line; the opcode itself always returns a raw integer.
func (vm *VM) opTime() error {
	now := time.Now()
	vm.recordDebug("time: %s", strftime.Format("%Y-%m-%d %H:%M:%S", now))
	return vm.push(values.Int(now.UnixMilli()))
}
