// Package builtins implements the hard-coded method surface for built-in
// receiver kinds: array, string, map, range, set.
package builtins

import (
	"fmt"

	"github.com/wudi/corelang/internal/values"
)

// Caller is the minimal VM capability higher-order methods (collect,
// filter, reduce, forEach, sort with a comparator, …) need: invoking a
// function value with arguments and getting its result back.
type Caller interface {
	CallValue(fn values.Value, args []values.Value) (values.Value, error)
}

// Invoke dispatches methodName on receiver with args, returning the
// method's result. Dispatch is purely by (receiver kind, method name); an
// unknown combination is reported as an error the VM wraps into a
// MethodNotFound fault.
func Invoke(receiver values.Value, method string, args []values.Value, caller Caller) (values.Value, error) {
	switch receiver.Kind {
	case values.KindArray, values.KindArraySlice:
		return invokeArray(receiver, method, args, caller)
	case values.KindString:
		return invokeString(receiver, method, args)
	case values.KindMap:
		return invokeMap(receiver, method, args)
	case values.KindRange:
		return invokeRange(receiver, method, args)
	case values.KindSet:
		return invokeSet(receiver, method, args)
	default:
		return values.Value{}, fmt.Errorf("no built-in methods for %s", receiver.Kind)
	}
}

func arity(args []values.Value, n int) error {
	if len(args) != n {
		return fmt.Errorf("expected %d arguments, got %d", n, len(args))
	}
	return nil
}

func errUnknownMethod(receiverKind, method string) error {
	return fmt.Errorf("%s has no method %q", receiverKind, method)
}

func errNotMutable(method string) error {
	return fmt.Errorf("%s requires a mutable receiver", method)
}

func errNoCaller(method string) error {
	return fmt.Errorf("%s requires a function argument but no caller is available", method)
}

func errArgType(method, want string) error {
	return fmt.Errorf("%s: argument must be %s", method, want)
}
