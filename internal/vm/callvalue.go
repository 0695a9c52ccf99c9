package vm

import (
	"github.com/wudi/corelang/internal/bytecode"
	"github.com/wudi/corelang/internal/values"
)

// CallValue synchronously invokes fn with args and returns its result,
// used by built-in higher-order methods (array.reduce, array.filter, …);
// operator-overload dispatch uses callMethodSync below. Rather than keeping
// a second, partial "execute one instruction" path for these callers,
// this drives the very same dispatch routine in a depth-bounded loop: it
// runs until the pushed frame — and only that frame — has returned.
func (vm *VM) CallValue(fn values.Value, args []values.Value) (values.Value, error) {
	if fn.Kind != values.KindFunction {
		return values.Value{}, vm.newFault(ErrTypeMismatch, "call target is not a function")
	}
	f := fn.AsFunction()
	resolved, err := vm.resolveCallable(f, args)
	if err != nil {
		return values.Value{}, err
	}

	savedIP := vm.ip
	if err := vm.push(fn); err != nil {
		return values.Value{}, err
	}
	baseSlot := len(vm.stack)
	for _, a := range resolved {
		if err := vm.push(a); err != nil {
			return values.Value{}, err
		}
	}

	targetDepth := len(vm.frames)
	if err := vm.pushFrame(Frame{
		ReturnIP:     uint32(savedIP),
		BaseSlot:     uint16(baseSlot),
		FunctionName: f.Name,
	}); err != nil {
		return values.Value{}, err
	}
	vm.ip = f.ChunkIndex

	return vm.runFrameToCompletion(targetDepth, savedIP)
}

// callMethodSync is CallValue's counterpart for bound method calls: the
// receiver occupies base slot 0 and the frame is marked IsMethodCall so
// opReturn applies the method-call cleanup rule instead of the plain-call
// one. Used by operator-overload dispatch, which needs a method result
// back synchronously rather than as a continuation of the main loop.
func (vm *VM) callMethodSync(fn *values.Function, receiver values.Value, args []values.Value) (values.Value, error) {
	resolved, err := vm.resolveCallable(fn, args)
	if err != nil {
		return values.Value{}, err
	}

	savedIP := vm.ip
	if err := vm.push(receiver); err != nil {
		return values.Value{}, err
	}
	baseSlot := len(vm.stack) - 1
	for _, a := range resolved {
		if err := vm.push(a); err != nil {
			return values.Value{}, err
		}
	}

	targetDepth := len(vm.frames)
	if err := vm.pushFrame(Frame{
		ReturnIP:     uint32(savedIP),
		BaseSlot:     uint16(baseSlot),
		IsMethodCall: true,
		FunctionName: fn.Name,
	}); err != nil {
		return values.Value{}, err
	}
	vm.ip = fn.ChunkIndex

	return vm.runFrameToCompletion(targetDepth, savedIP)
}

// runFrameToCompletion drives the shared dispatch loop until the frame
// stack unwinds back to targetDepth, then restores ip to savedIP and
// returns the callee's result. Faults that a setup_try region inside the
// callee can absorb are handled in place; anything else propagates to
// the caller of CallValue/callMethodSync.
func (vm *VM) runFrameToCompletion(targetDepth int, savedIP int) (values.Value, error) {
	for len(vm.frames) > targetDepth {
		vm.pruneStaleHandlers()
		if vm.ip < 0 || vm.ip >= len(vm.chunk.Code) {
			return values.Value{}, vm.newFault(ErrInvalidBytecode, "ip %d out of range", vm.ip)
		}
		op := bytecode.Op(vm.chunk.Code[vm.ip])
		if err := vm.dispatch(op); err != nil {
			if n := len(vm.handlers); n > 0 && vm.handlers[n-1].FrameDepthAtEntry > targetDepth {
				if handled, herr := vm.tryHandleFault(err); handled {
					if herr != nil {
						return values.Value{}, herr
					}
					continue
				}
			}
			return values.Value{}, err
		}
	}

	result, err := vm.pop()
	if err != nil {
		return values.Value{}, err
	}
	vm.ip = savedIP
	return result, nil
}
