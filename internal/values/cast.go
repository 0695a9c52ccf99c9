package values

import (
	"fmt"
	"strconv"
)

// CastError is raised by CastForce when no conversion exists.
type CastError struct {
	From Kind
	To   string
}

func (e *CastError) Error() string {
	return fmt.Sprintf("cannot cast %s to %s", e.From, e.To)
}

// CastSafe converts v to the named primitive or named type, returning null
// when the conversion is not supported instead of erroring.
func CastSafe(v Value, target string) Value {
	out, err := convert(v, target)
	if err != nil {
		return Null()
	}
	return out
}

// CastForce converts v to target, raising CastError when unsupported.
func CastForce(v Value, target string) (Value, error) {
	return convert(v, target)
}

// TypeCheck reports whether v's runtime type name equals target.
func TypeCheck(v Value, target string) bool {
	return v.TypeName() == target
}

func convert(v Value, target string) (Value, error) {
	switch target {
	case "bool":
		switch v.Kind {
		case KindBool:
			return v, nil
		case KindInt:
			return Bool(v.AsInt() != 0), nil
		case KindFloat:
			return Bool(v.AsFloat() != 0), nil
		case KindString:
			return Bool(v.AsString() != ""), nil
		default:
			return Value{}, &CastError{v.Kind, target}
		}
	case "int":
		switch v.Kind {
		case KindInt:
			return v, nil
		case KindBool:
			if v.AsBool() {
				return Int(1), nil
			}
			return Int(0), nil
		case KindFloat:
			return Int(int64(v.AsFloat())), nil
		case KindChar:
			return Int(int64(v.AsChar())), nil
		case KindString:
			i, err := strconv.ParseInt(v.AsString(), 10, 64)
			if err != nil {
				return Value{}, &CastError{v.Kind, target}
			}
			return Int(i), nil
		default:
			return Value{}, &CastError{v.Kind, target}
		}
	case "float":
		switch v.Kind {
		case KindFloat:
			return v, nil
		case KindInt:
			return Float(float64(v.AsInt())), nil
		case KindBool:
			if v.AsBool() {
				return Float(1), nil
			}
			return Float(0), nil
		case KindString:
			f, err := strconv.ParseFloat(v.AsString(), 64)
			if err != nil {
				return Value{}, &CastError{v.Kind, target}
			}
			return Float(f), nil
		default:
			return Value{}, &CastError{v.Kind, target}
		}
	case "char":
		switch v.Kind {
		case KindChar:
			return v, nil
		case KindInt:
			return Char(rune(v.AsInt())), nil
		default:
			return Value{}, &CastError{v.Kind, target}
		}
	case "string":
		switch v.Kind {
		case KindString:
			return v, nil
		case KindInt, KindFloat, KindBool, KindChar:
			return Str(Stringify(v)), nil
		default:
			return Value{}, &CastError{v.Kind, target}
		}
	default:
		// Named types (struct/class/enum) cast to themselves only.
		if v.TypeName() == target {
			return v, nil
		}
		return Value{}, &CastError{v.Kind, target}
	}
}
