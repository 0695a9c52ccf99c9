package builtins

import "github.com/wudi/corelang/internal/values"

func invokeMap(receiver values.Value, method string, args []values.Value) (values.Value, error) {
	m := receiver.AsMap()

	switch method {
	case "length", "size":
		return values.Int(int64(m.Len())), nil

	case "isEmpty":
		return values.Bool(m.Len() == 0), nil

	case "keys":
		keys := m.Keys()
		out := make([]values.Value, len(keys))
		for i, k := range keys {
			out[i] = values.Str(k)
		}
		return values.NewArray(out), nil

	case "values":
		keys := m.Keys()
		out := make([]values.Value, len(keys))
		for i, k := range keys {
			v, _ := m.Get(k)
			out[i] = v
		}
		return values.NewArray(out), nil

	case "containsKey":
		if err := arity(args, 1); err != nil || args[0].Kind != values.KindString {
			return values.Value{}, errArgType("containsKey", "string")
		}
		_, ok := m.Get(args[0].AsString())
		return values.Bool(ok), nil

	case "get":
		if err := arity(args, 1); err != nil || args[0].Kind != values.KindString {
			return values.Value{}, errArgType("get", "string")
		}
		v, ok := m.Get(args[0].AsString())
		if !ok {
			return values.Null(), nil
		}
		return v, nil

	case "set":
		if err := arity(args, 2); err != nil || args[0].Kind != values.KindString {
			return values.Value{}, errArgType("set", "(string, value)")
		}
		m.Set(args[0].AsString(), args[1])
		return values.Null(), nil

	case "remove":
		if err := arity(args, 1); err != nil || args[0].Kind != values.KindString {
			return values.Value{}, errArgType("remove", "string")
		}
		return values.Bool(m.Remove(args[0].AsString())), nil

	case "clear":
		m.Clear()
		return values.Null(), nil

	default:
		return values.Value{}, errUnknownMethod("map", method)
	}
}
