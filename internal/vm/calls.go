package vm

import (
	"github.com/wudi/corelang/internal/values"
	"github.com/wudi/corelang/internal/vtable"
)

// resolveCallable validates and defaults arguments for a function value,
// returning the final argument slice (with variadic gathering and
// default-filling applied) ready to sit contiguously above the
// callee/receiver on the stack.
func (vm *VM) resolveCallable(fn *values.Function, args []values.Value) ([]values.Value, error) {
	n := len(args)
	if n < fn.RequiredParams {
		return nil, vm.newFault(ErrTypeMismatch, "%s: expected at least %d args, got %d", fn.Name, fn.RequiredParams, n)
	}
	if !fn.Variadic {
		if n > fn.Arity {
			return nil, vm.newFault(ErrTypeMismatch, "%s: expected at most %d args, got %d", fn.Name, fn.Arity, n)
		}
		out := append([]values.Value(nil), args...)
		for len(out) < fn.Arity {
			idx := len(out) - fn.RequiredParams
			if idx < 0 || idx >= len(fn.Defaults) {
				out = append(out, values.Null())
				continue
			}
			out = append(out, fn.Defaults[idx])
		}
		return out, nil
	}

	// Variadic: gather trailing N-(arity-1) arguments into a fresh array.
	fixed := fn.Arity - 1
	if fixed < 0 {
		fixed = 0
	}
	out := append([]values.Value(nil), args...)
	for len(out) < fixed {
		idx := len(out) - fn.RequiredParams
		if idx < 0 || idx >= len(fn.Defaults) {
			out = append(out, values.Null())
			continue
		}
		out = append(out, fn.Defaults[idx])
	}
	var rest []values.Value
	if len(out) > fixed {
		rest = append([]values.Value(nil), out[fixed:]...)
		out = out[:fixed]
	}
	out = append(out, values.NewArray(rest))
	return out, nil
}

// opCall implements `call N`.
func (vm *VM) opCall(argCount int) error {
	args := make([]values.Value, argCount)
	for i := argCount - 1; i >= 0; i-- {
		v, err := vm.pop()
		if err != nil {
			return err
		}
		args[i] = v
	}
	callee, err := vm.pop()
	if err != nil {
		return err
	}
	if callee.Kind != values.KindFunction {
		return vm.newFault(ErrTypeMismatch, "call target is not a function")
	}
	fn := callee.AsFunction()
	resolved, err := vm.resolveCallable(fn, args)
	if err != nil {
		return err
	}

	// Re-push callee then resolved args so the stack layout is
	// [..., callee, a1..aN], keeping callee as the implicit "slot -1"
	// the return truncation relies on.
	if err := vm.push(callee); err != nil {
		return err
	}
	baseSlot := len(vm.stack)
	for _, a := range resolved {
		if err := vm.push(a); err != nil {
			return err
		}
	}

	if err := vm.pushFrame(Frame{
		ReturnIP:     uint32(vm.ip),
		BaseSlot:     uint16(baseSlot),
		IsMethodCall: false,
		FunctionName: fn.Name,
	}); err != nil {
		return err
	}
	vm.ip = fn.ChunkIndex
	return nil
}

// opTailCall implements `tail_call N`: reuses the current frame by
// sliding the N arguments down to the current base_slot and jumping
// without growing the frame stack.
func (vm *VM) opTailCall(argCount int) error {
	args := make([]values.Value, argCount)
	for i := argCount - 1; i >= 0; i-- {
		v, err := vm.pop()
		if err != nil {
			return err
		}
		args[i] = v
	}
	callee, err := vm.pop()
	if err != nil {
		return err
	}
	if callee.Kind != values.KindFunction {
		return vm.newFault(ErrTypeMismatch, "tail_call target is not a function")
	}
	fn := callee.AsFunction()
	resolved, err := vm.resolveCallable(fn, args)
	if err != nil {
		return err
	}

	frame := vm.currentFrame()
	base := int(frame.BaseSlot)
	vm.stack = vm.stack[:base]
	vm.stack = append(vm.stack, resolved...)
	frame.FunctionName = fn.Name
	vm.ip = fn.ChunkIndex
	return nil
}

// opReturn implements `return`: pop the return value, pop the frame,
// truncate the stack per the function-call/method-call cleanup rule, push
// the return value, restore ip and base slot.
func (vm *VM) opReturn() error {
	return vm.handleReturn()
}

func (vm *VM) handleReturn() error {
	var retVal values.Value
	var err error
	if len(vm.stack) > 0 {
		retVal, err = vm.pop()
		if err != nil {
			return err
		}
	} else {
		retVal = values.Null()
	}

	frame := vm.popFrame()
	cleanupTo := int(frame.BaseSlot)
	if !frame.IsMethodCall {
		cleanupTo--
	}
	if cleanupTo < 0 {
		cleanupTo = 0
	}
	if cleanupTo > len(vm.stack) {
		cleanupTo = len(vm.stack)
	}
	vm.truncate(cleanupTo)

	if frame.ReturnIP == sentinelReturnIP {
		// Coroutine root frame returning: terminate this VM instance.
		vm.halted = true
		vm.result = retVal
		if err := vm.push(retVal); err != nil {
			return err
		}
		return nil
	}

	if err := vm.push(retVal); err != nil {
		return err
	}
	vm.ip = int(frame.ReturnIP)

	if len(vm.frames) == 0 {
		vm.halted = true
		vm.result = retVal
	}
	return nil
}

// inlineCacheFor returns (creating if absent) the single-entry inline
// cache for the call site at ip.
func (vm *VM) inlineCacheFor(ip int) *vtable.InlineCache {
	c, ok := vm.caches[ip]
	if !ok {
		c = &vtable.InlineCache{}
		vm.caches[ip] = c
	}
	return c
}
