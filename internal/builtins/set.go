package builtins

import "github.com/wudi/corelang/internal/values"

func invokeSet(receiver values.Value, method string, args []values.Value) (values.Value, error) {
	s := receiver.AsSet()

	switch method {
	case "length", "size":
		return values.Int(int64(s.Len())), nil

	case "isEmpty":
		return values.Bool(s.Len() == 0), nil

	case "contains":
		if err := arity(args, 1); err != nil {
			return values.Value{}, err
		}
		return values.Bool(s.Contains(args[0])), nil

	case "add":
		if err := arity(args, 1); err != nil {
			return values.Value{}, err
		}
		return values.Bool(s.Add(args[0])), nil

	case "remove":
		if err := arity(args, 1); err != nil {
			return values.Value{}, err
		}
		return values.Bool(s.Remove(args[0])), nil

	case "toArray":
		out := append([]values.Value(nil), s.Elems()...)
		return values.NewArray(out), nil

	case "union":
		if err := arity(args, 1); err != nil || args[0].Kind != values.KindSet {
			return values.Value{}, errArgType("union", "set")
		}
		out := values.NewSetData()
		for _, e := range s.Elems() {
			out.Add(e)
		}
		for _, e := range args[0].AsSet().Elems() {
			out.Add(e)
		}
		return values.NewSet(out), nil

	case "intersect":
		if err := arity(args, 1); err != nil || args[0].Kind != values.KindSet {
			return values.Value{}, errArgType("intersect", "set")
		}
		other := args[0].AsSet()
		out := values.NewSetData()
		for _, e := range s.Elems() {
			if other.Contains(e) {
				out.Add(e)
			}
		}
		return values.NewSet(out), nil

	default:
		return values.Value{}, errUnknownMethod("set", method)
	}
}
