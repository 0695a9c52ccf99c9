package vm

import (
	"errors"

	"github.com/wudi/corelang/internal/exception"
	"github.com/wudi/corelang/internal/values"
)

// faultClassName maps a sentinel fault kind onto the fixed Throwable
// hierarchy name a matching setup_try region should catch.
func faultClassName(base error) string {
	switch {
	case errors.Is(base, ErrDivByZero):
		return "ArithmeticException"
	case errors.Is(base, ErrIndexOutOfBounds):
		return "IndexOutOfBoundsException"
	case errors.Is(base, ErrNullReceiver):
		return "NullPointerException"
	case errors.Is(base, ErrCastFailure):
		return "ClassCastException"
	case errors.Is(base, ErrTypeMismatch):
		return "IllegalArgumentException"
	case errors.Is(base, ErrMethodNotFound), errors.Is(base, ErrFieldNotFound):
		return "UnsupportedOperationException"
	case errors.Is(base, ErrConstFieldAssign):
		return "IllegalStateException"
	case errors.Is(base, ErrClosedChannelSend):
		return "IllegalStateException"
	case errors.Is(base, ErrNegativeWaitGroup):
		return "IllegalStateException"
	case errors.Is(base, ErrStackOverflow), errors.Is(base, ErrFrameOverflow):
		return "StackOverflowError"
	default:
		return "RuntimeException"
	}
}

func (vm *VM) traceFrames() []exception.Frame {
	entries := vm.captureTrace()
	out := make([]exception.Frame, len(entries))
	for i, e := range entries {
		out[i] = exception.Frame{FunctionName: e.FunctionName, Line: e.Line}
	}
	return out
}

// throwValue implements `throw`: accepts either an already-constructed
// Throwable class instance or the legacy "TypeName: message" string form,
// and produces a Fault the nearest setup_try region can catch.
func (vm *VM) throwValue(v values.Value) error {
	if v.Kind == values.KindClass {
		tag := v.AsClass().Tag
		if exception.ChainReachesThrowable(tag, vm.resolveParentName) {
			return &Fault{
				Base:           ErrUncaughtException,
				Message:        tag,
				IP:             vm.ip,
				Line:           vm.chunk.LineAt(vm.ip),
				Trace:          vm.captureTrace(),
				ExceptionValue: v,
				HasValue:       true,
			}
		}
	}

	if v.Kind == values.KindString {
		if className, message, ok := exception.ParseLegacyThrow(v.AsString()); ok {
			inst := exception.NewInstance(className, message, nil, vm.traceFrames())
			return &Fault{
				Base:           ErrUncaughtException,
				Message:        className + ": " + message,
				IP:             vm.ip,
				Line:           vm.chunk.LineAt(vm.ip),
				Trace:          vm.captureTrace(),
				ExceptionValue: inst,
				HasValue:       true,
			}
		}
		inst := exception.NewInstance("RuntimeException", v.AsString(), nil, vm.traceFrames())
		return &Fault{
			Base:           ErrUncaughtException,
			Message:        v.AsString(),
			IP:             vm.ip,
			Line:           vm.chunk.LineAt(vm.ip),
			Trace:          vm.captureTrace(),
			ExceptionValue: inst,
			HasValue:       true,
		}
	}

	inst := exception.NewInstance("RuntimeException", values.Stringify(v), nil, vm.traceFrames())
	return &Fault{
		Base:           ErrUncaughtException,
		Message:        values.Stringify(v),
		IP:             vm.ip,
		Line:           vm.chunk.LineAt(vm.ip),
		Trace:          vm.captureTrace(),
		ExceptionValue: inst,
		HasValue:       true,
	}
}

func (vm *VM) resolveParentName(name string) (string, bool) {
	if ti, ok := vm.chunk.Types[name]; ok {
		return ti.Parent, true
	}
	if parent, ok := exception.Parents[name]; ok {
		return parent, true
	}
	return "", false
}

// pruneStaleHandlers drops handlers from the top of vm.handlers whose try
// region can no longer be entered by a throw: either the frame that
// installed them has already returned, or execution in that same frame
// has fallen through past the region's catch_ip without ever faulting.
// setup_try has no matching "end try" opcode, so this is the only place
// a handler is retired on the normal-completion path; tryHandleFault
// remains the only place one is retired on the throw path. Called once
// per dispatch-loop iteration, before the next instruction runs.
func (vm *VM) pruneStaleHandlers() {
	for len(vm.handlers) > 0 {
		h := vm.handlers[len(vm.handlers)-1]
		switch {
		case h.FrameDepthAtEntry > len(vm.frames):
			// Owning frame already returned.
		case h.FrameDepthAtEntry == len(vm.frames) && vm.ip >= h.CatchIP:
			// Same frame, control has moved past the protected region
			// without a throw reaching it.
		default:
			return
		}
		vm.handlers = vm.handlers[:len(vm.handlers)-1]
	}
}

// tryHandleFault pops the innermost setup_try handler (if any), unwinds the
// stack/frames to the depths recorded at setup_try time, pushes the
// exception value, and jumps to the handler's catch_ip. handled reports
// whether a handler absorbed the fault; a non-nil returned error means the
// handler itself failed to install (e.g. the stack push overflowed).
func (vm *VM) tryHandleFault(err error) (handled bool, herr error) {
	if len(vm.handlers) == 0 {
		return false, nil
	}
	h := vm.handlers[len(vm.handlers)-1]
	vm.handlers = vm.handlers[:len(vm.handlers)-1]

	if h.FrameDepthAtEntry > len(vm.frames) {
		// The handler's own frame already unwound past it (e.g. the fault
		// crossed a function-return boundary); it cannot catch here.
		return false, nil
	}
	vm.frames = vm.frames[:h.FrameDepthAtEntry]
	if h.StackDepthAtEntry > len(vm.stack) {
		h.StackDepthAtEntry = len(vm.stack)
	}
	vm.truncate(h.StackDepthAtEntry)

	var excValue values.Value
	if f, ok := err.(*Fault); ok {
		if f.HasValue {
			excValue = f.ExceptionValue
		} else {
			excValue = exception.NewInstance(faultClassName(f.Base), f.Message, nil, vm.traceFrames())
		}
	} else {
		excValue = exception.NewInstance("RuntimeException", err.Error(), nil, vm.traceFrames())
	}

	if perr := vm.push(excValue); perr != nil {
		return true, perr
	}
	vm.ip = h.CatchIP
	return true, nil
}
