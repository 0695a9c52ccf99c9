package builtins

import (
	"sort"

	"github.com/wudi/corelang/internal/values"
)

func invokeArray(receiver values.Value, method string, args []values.Value, caller Caller) (values.Value, error) {
	elems := receiver.Elements()

	switch method {
	case "length", "size":
		if err := arity(args, 0); err != nil {
			return values.Value{}, err
		}
		return values.Int(int64(len(elems))), nil

	case "isEmpty":
		if err := arity(args, 0); err != nil {
			return values.Value{}, err
		}
		return values.Bool(len(elems) == 0), nil

	case "first":
		if len(elems) == 0 {
			return values.Null(), nil
		}
		return elems[0], nil

	case "last":
		if len(elems) == 0 {
			return values.Null(), nil
		}
		return elems[len(elems)-1], nil

	case "push", "append":
		arr := backingArray(receiver)
		if arr == nil {
			return values.Value{}, errNotMutable("push")
		}
		arr.Elems = append(arr.Elems, args...)
		return receiver, nil

	case "pop":
		arr := backingArray(receiver)
		if arr == nil || len(arr.Elems) == 0 {
			return values.Null(), nil
		}
		last := arr.Elems[len(arr.Elems)-1]
		arr.Elems = arr.Elems[:len(arr.Elems)-1]
		return last, nil

	case "contains":
		if err := arity(args, 1); err != nil {
			return values.Value{}, err
		}
		for _, e := range elems {
			if values.Equal(e, args[0]) {
				return values.Bool(true), nil
			}
		}
		return values.Bool(false), nil

	case "indexOf":
		if err := arity(args, 1); err != nil {
			return values.Value{}, err
		}
		for i, e := range elems {
			if values.Equal(e, args[0]) {
				return values.Int(int64(i)), nil
			}
		}
		return values.Int(-1), nil

	case "reverse":
		out := make([]values.Value, len(elems))
		for i, e := range elems {
			out[len(elems)-1-i] = e
		}
		return values.NewArray(out), nil

	case "clone":
		out := append([]values.Value(nil), elems...)
		return values.NewArray(out), nil

	case "join":
		sep := ""
		if len(args) == 1 && args[0].Kind == values.KindString {
			sep = args[0].AsString()
		}
		out := ""
		for i, e := range elems {
			if i > 0 {
				out += sep
			}
			out += values.Stringify(e)
		}
		return values.Str(out), nil

	case "slice":
		if err := arity(args, 2); err != nil {
			return values.Value{}, err
		}
		if args[0].Kind != values.KindInt || args[1].Kind != values.KindInt {
			return values.Value{}, errArgType("slice", "int")
		}
		s, e := int(args[0].AsInt()), int(args[1].AsInt())
		if s < 0 || e > len(elems) || s > e {
			return values.Value{}, errArgType("slice", "in-range")
		}
		out := append([]values.Value(nil), elems[s:e]...)
		return values.NewArray(out), nil

	case "sort":
		out := append([]values.Value(nil), elems...)
		if len(args) == 1 && args[0].Kind == values.KindFunction && caller != nil {
			var sortErr error
			sort.SliceStable(out, func(i, j int) bool {
				if sortErr != nil {
					return false
				}
				r, err := caller.CallValue(args[0], []values.Value{out[i], out[j]})
				if err != nil {
					sortErr = err
					return false
				}
				return values.Truthy(r)
			})
			if sortErr != nil {
				return values.Value{}, sortErr
			}
			return values.NewArray(out), nil
		}
		sort.SliceStable(out, func(i, j int) bool {
			cmp, ok := values.Compare(out[i], out[j])
			return ok && cmp < 0
		})
		return values.NewArray(out), nil

	case "map", "collect":
		if err := arity(args, 1); err != nil {
			return values.Value{}, err
		}
		if caller == nil {
			return values.Value{}, errNoCaller("map")
		}
		out := make([]values.Value, len(elems))
		for i, e := range elems {
			r, err := caller.CallValue(args[0], []values.Value{e})
			if err != nil {
				return values.Value{}, err
			}
			out[i] = r
		}
		return values.NewArray(out), nil

	case "filter":
		if err := arity(args, 1); err != nil {
			return values.Value{}, err
		}
		if caller == nil {
			return values.Value{}, errNoCaller("filter")
		}
		var out []values.Value
		for _, e := range elems {
			r, err := caller.CallValue(args[0], []values.Value{e})
			if err != nil {
				return values.Value{}, err
			}
			if values.Truthy(r) {
				out = append(out, e)
			}
		}
		return values.NewArray(out), nil

	case "reduce":
		if err := arity(args, 2); err != nil {
			return values.Value{}, err
		}
		if caller == nil {
			return values.Value{}, errNoCaller("reduce")
		}
		acc := args[1]
		for _, e := range elems {
			r, err := caller.CallValue(args[0], []values.Value{acc, e})
			if err != nil {
				return values.Value{}, err
			}
			acc = r
		}
		return acc, nil

	case "forEach":
		if err := arity(args, 1); err != nil {
			return values.Value{}, err
		}
		if caller == nil {
			return values.Value{}, errNoCaller("forEach")
		}
		for _, e := range elems {
			if _, err := caller.CallValue(args[0], []values.Value{e}); err != nil {
				return values.Value{}, err
			}
		}
		return values.Null(), nil

	default:
		return values.Value{}, errUnknownMethod("array", method)
	}
}

func backingArray(v values.Value) *values.Array {
	if v.Kind == values.KindArray {
		return v.AsArray()
	}
	return nil
}
