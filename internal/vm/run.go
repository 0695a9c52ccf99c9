package vm

import (
	"encoding/binary"

	"github.com/wudi/corelang/internal/bytecode"
	"github.com/wudi/corelang/internal/values"
)

// Run executes the VM's chunk from byte offset 0 until halt or a fault.
// It installs the root frame ({main}) and drives the dispatch loop: a
// one-time setup step followed by a tight per-instruction loop.
func (vm *VM) Run() error {
	vm.frames = append(vm.frames, Frame{
		ReturnIP:     sentinelReturnIP,
		BaseSlot:     0,
		FunctionName: "{main}",
	})
	vm.ip = 0
	return vm.loop()
}

// RunFunction is the coroutine entry point: it pushes a single sentinel
// frame over args already placed on the stack and begins execution at
// the function's chunk offset, terminating the coroutine (rather than
// returning to a caller) when that frame returns.
func (vm *VM) RunFunction(fn *values.Function, args []values.Value) error {
	baseSlot := len(vm.stack)
	for _, a := range args {
		vm.stack = append(vm.stack, a)
	}
	if err := vm.pushFrame(Frame{
		ReturnIP:     sentinelReturnIP,
		BaseSlot:     uint16(baseSlot),
		FunctionName: fn.Name,
	}); err != nil {
		return err
	}
	vm.ip = fn.ChunkIndex
	return vm.loop()
}

// loop drives dispatch, the single routine that handles every opcode, for
// Run and the coroutine driver; nested synchronous callers (CallValue for
// builtin higher-order methods, callMethodSync for operator-overload
// dispatch) drive the same dispatch through runFrameToCompletion instead
// of keeping a second, partial duplicate of it.
func (vm *VM) loop() error {
	for {
		if vm.halted {
			return nil
		}
		frame := vm.currentFrame()
		if frame == nil {
			vm.halted = true
			return nil
		}
		vm.pruneStaleHandlers()
		if vm.ip < 0 || vm.ip >= len(vm.chunk.Code) {
			return vm.newFault(ErrInvalidBytecode, "ip %d out of range", vm.ip)
		}

		op := bytecode.Op(vm.chunk.Code[vm.ip])
		vm.recordDebug("ip=%d op=%s stack=%d frames=%d", vm.ip, op, len(vm.stack), len(vm.frames))

		if err := vm.dispatch(op); err != nil {
			if handled, herr := vm.tryHandleFault(err); handled {
				if herr != nil {
					return herr
				}
				continue
			}
			return err
		}
	}
}

// operand readers: the instruction stream is big-endian, variable-width.

func (vm *VM) readU8() uint8 {
	b := vm.chunk.Code[vm.ip]
	vm.ip++
	return b
}

func (vm *VM) readI8() int8 { return int8(vm.readU8()) }

func (vm *VM) readU16() uint16 {
	v := binary.BigEndian.Uint16(vm.chunk.Code[vm.ip : vm.ip+2])
	vm.ip += 2
	return v
}

func (vm *VM) constant(idx uint16) (values.Value, error) {
	if int(idx) >= len(vm.chunk.Constants) {
		return values.Value{}, vm.newFault(ErrIndexOutOfBounds, "constant index %d", idx)
	}
	return vm.chunk.Constants[idx], nil
}

func (vm *VM) constantString(idx uint16) (string, error) {
	v, err := vm.constant(idx)
	if err != nil {
		return "", err
	}
	if v.Kind != values.KindString {
		return "", vm.newFault(ErrTypeMismatch, "constant %d is not a string", idx)
	}
	return v.AsString(), nil
}
