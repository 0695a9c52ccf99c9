package builtins

import (
	"strconv"
	"strings"

	"github.com/wudi/corelang/internal/values"
)

func invokeString(receiver values.Value, method string, args []values.Value) (values.Value, error) {
	s := receiver.AsString()

	switch method {
	case "length", "size":
		return values.Int(int64(len([]rune(s)))), nil

	case "isEmpty":
		return values.Bool(s == ""), nil

	case "upper", "toUpperCase":
		return values.Str(strings.ToUpper(s)), nil

	case "lower", "toLowerCase":
		return values.Str(strings.ToLower(s)), nil

	case "trim":
		return values.Str(strings.TrimSpace(s)), nil

	case "contains":
		if err := arity(args, 1); err != nil || args[0].Kind != values.KindString {
			return values.Value{}, errArgType("contains", "string")
		}
		return values.Bool(strings.Contains(s, args[0].AsString())), nil

	case "indexOf":
		if err := arity(args, 1); err != nil || args[0].Kind != values.KindString {
			return values.Value{}, errArgType("indexOf", "string")
		}
		return values.Int(int64(strings.Index(s, args[0].AsString()))), nil

	case "startsWith":
		if err := arity(args, 1); err != nil || args[0].Kind != values.KindString {
			return values.Value{}, errArgType("startsWith", "string")
		}
		return values.Bool(strings.HasPrefix(s, args[0].AsString())), nil

	case "endsWith":
		if err := arity(args, 1); err != nil || args[0].Kind != values.KindString {
			return values.Value{}, errArgType("endsWith", "string")
		}
		return values.Bool(strings.HasSuffix(s, args[0].AsString())), nil

	case "replace":
		if err := arity(args, 2); err != nil || args[0].Kind != values.KindString || args[1].Kind != values.KindString {
			return values.Value{}, errArgType("replace", "(string, string)")
		}
		return values.Str(strings.ReplaceAll(s, args[0].AsString(), args[1].AsString())), nil

	case "split":
		if err := arity(args, 1); err != nil || args[0].Kind != values.KindString {
			return values.Value{}, errArgType("split", "string")
		}
		parts := strings.Split(s, args[0].AsString())
		out := make([]values.Value, len(parts))
		for i, p := range parts {
			out[i] = values.Str(p)
		}
		return values.NewArray(out), nil

	case "substring":
		if err := arity(args, 2); err != nil || args[0].Kind != values.KindInt || args[1].Kind != values.KindInt {
			return values.Value{}, errArgType("substring", "(int, int)")
		}
		runes := []rune(s)
		start, end := int(args[0].AsInt()), int(args[1].AsInt())
		if start < 0 || end > len(runes) || start > end {
			return values.Value{}, errArgType("substring", "in-range")
		}
		return values.Str(string(runes[start:end])), nil

	case "charAt":
		if err := arity(args, 1); err != nil || args[0].Kind != values.KindInt {
			return values.Value{}, errArgType("charAt", "int")
		}
		runes := []rune(s)
		i := int(args[0].AsInt())
		if i < 0 || i >= len(runes) {
			return values.Value{}, errArgType("charAt", "in-range")
		}
		return values.Char(runes[i]), nil

	case "repeat":
		if err := arity(args, 1); err != nil || args[0].Kind != values.KindInt {
			return values.Value{}, errArgType("repeat", "int")
		}
		return values.Str(strings.Repeat(s, int(args[0].AsInt()))), nil

	case "toInt":
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return values.Null(), nil
		}
		return values.Int(i), nil

	case "toFloat":
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return values.Null(), nil
		}
		return values.Float(f), nil

	default:
		return values.Value{}, errUnknownMethod("string", method)
	}
}
