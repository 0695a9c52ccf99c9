package builtins

import "github.com/wudi/corelang/internal/values"

func invokeRange(receiver values.Value, method string, args []values.Value) (values.Value, error) {
	r := receiver.AsRange()

	switch method {
	case "length", "size":
		n := r.End - r.Start
		if r.Inclusive {
			n++
		}
		if n < 0 {
			n = 0
		}
		return values.Int(n), nil

	case "contains":
		if err := arity(args, 1); err != nil || args[0].Kind != values.KindInt {
			return values.Value{}, errArgType("contains", "int")
		}
		v := args[0].AsInt()
		if r.Inclusive {
			return values.Bool(v >= r.Start && v <= r.End), nil
		}
		return values.Bool(v >= r.Start && v < r.End), nil

	case "toArray":
		end := r.End
		if r.Inclusive {
			end++
		}
		var out []values.Value
		for i := r.Start; i < end; i++ {
			out = append(out, values.Int(i))
		}
		return values.NewArray(out), nil

	default:
		return values.Value{}, errUnknownMethod("range", method)
	}
}
