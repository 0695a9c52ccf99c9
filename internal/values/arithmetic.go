package values

import (
	"fmt"
	"math"
)

// ArithError is returned for operand combinations that are runtime errors
// (anything other than numeric<->numeric or string+string).
type ArithError struct {
	Op       string
	Left     Kind
	Right    Kind
}

func (e *ArithError) Error() string {
	return fmt.Sprintf("unsupported operand types for %s: %s and %s", e.Op, e.Left, e.Right)
}

// promote applies the int<->float promotion rule: any mixed arithmetic
// promotes to float.
func promote(a, b Value) (af, bf float64, bothInt bool, ok bool) {
	switch {
	case a.Kind == KindInt && b.Kind == KindInt:
		return float64(a.AsInt()), float64(b.AsInt()), true, true
	case isNumeric(a.Kind) && isNumeric(b.Kind):
		x, _ := numericFloat(a)
		y, _ := numericFloat(b)
		return x, y, false, true
	default:
		return 0, 0, false, false
	}
}

// Add implements polymorphic add: numeric addition with int/float
// promotion, or string concatenation for string+string.
func Add(a, b Value) (Value, error) {
	if a.Kind == KindString && b.Kind == KindString {
		return Str(a.AsString() + b.AsString()), nil
	}
	x, y, bothInt, ok := promote(a, b)
	if !ok {
		return Value{}, &ArithError{"+", a.Kind, b.Kind}
	}
	if bothInt {
		return Int(a.AsInt() + b.AsInt()), nil
	}
	return Float(x + y), nil
}

func arithBinOp(op string, a, b Value, ifn func(int64, int64) int64, ffn func(float64, float64) float64) (Value, error) {
	x, y, bothInt, ok := promote(a, b)
	if !ok {
		return Value{}, &ArithError{op, a.Kind, b.Kind}
	}
	if bothInt {
		return Int(ifn(a.AsInt(), b.AsInt())), nil
	}
	return Float(ffn(x, y)), nil
}

func Sub(a, b Value) (Value, error) {
	return arithBinOp("-", a, b,
		func(x, y int64) int64 { return x - y },
		func(x, y float64) float64 { return x - y })
}

func Mul(a, b Value) (Value, error) {
	return arithBinOp("*", a, b,
		func(x, y int64) int64 { return x * y },
		func(x, y float64) float64 { return x * y })
}

// ErrDivByZero and ErrModByZero are the sentinel faults for division and
// modulo by zero; the interpreter maps these to the VM fault kinds.
var (
	ErrDivByZero = fmt.Errorf("division by zero")
	ErrModByZero = fmt.Errorf("modulo by zero")
)

func Div(a, b Value) (Value, error) {
	x, y, bothInt, ok := promote(a, b)
	if !ok {
		return Value{}, &ArithError{"/", a.Kind, b.Kind}
	}
	if bothInt {
		if b.AsInt() == 0 {
			return Value{}, ErrDivByZero
		}
		return Int(a.AsInt() / b.AsInt()), nil
	}
	if y == 0 {
		return Value{}, ErrDivByZero
	}
	return Float(x / y), nil
}

func Mod(a, b Value) (Value, error) {
	x, y, bothInt, ok := promote(a, b)
	if !ok {
		return Value{}, &ArithError{"%", a.Kind, b.Kind}
	}
	if bothInt {
		if b.AsInt() == 0 {
			return Value{}, ErrModByZero
		}
		return Int(a.AsInt() % b.AsInt()), nil
	}
	if y == 0 {
		return Value{}, ErrModByZero
	}
	return Float(math.Mod(x, y)), nil
}

func Pow(a, b Value) (Value, error) {
	x, y, bothInt, ok := promote(a, b)
	if !ok {
		return Value{}, &ArithError{"**", a.Kind, b.Kind}
	}
	if bothInt && y >= 0 {
		result := int64(1)
		base := a.AsInt()
		for i := int64(0); i < b.AsInt(); i++ {
			result *= base
		}
		return Int(result), nil
	}
	return Float(math.Pow(x, y)), nil
}

func Neg(a Value) (Value, error) {
	switch a.Kind {
	case KindInt:
		return Int(-a.AsInt()), nil
	case KindFloat:
		return Float(-a.AsFloat()), nil
	default:
		return Value{}, &ArithError{"unary -", a.Kind, a.Kind}
	}
}

func Not(a Value) Value { return Bool(!Truthy(a)) }

// Bitwise operations require int operands on both sides.
func bitwiseBinOp(op string, a, b Value, fn func(int64, int64) int64) (Value, error) {
	if a.Kind != KindInt || b.Kind != KindInt {
		return Value{}, &ArithError{op, a.Kind, b.Kind}
	}
	return Int(fn(a.AsInt(), b.AsInt())), nil
}

func BitAnd(a, b Value) (Value, error) { return bitwiseBinOp("&", a, b, func(x, y int64) int64 { return x & y }) }
func BitOr(a, b Value) (Value, error)  { return bitwiseBinOp("|", a, b, func(x, y int64) int64 { return x | y }) }
func BitXor(a, b Value) (Value, error) { return bitwiseBinOp("^", a, b, func(x, y int64) int64 { return x ^ y }) }
func Shl(a, b Value) (Value, error)    { return bitwiseBinOp("<<", a, b, func(x, y int64) int64 { return x << uint(y) }) }
func Shr(a, b Value) (Value, error)    { return bitwiseBinOp(">>", a, b, func(x, y int64) int64 { return x >> uint(y) }) }

func BitNot(a Value) (Value, error) {
	if a.Kind != KindInt {
		return Value{}, &ArithError{"~", a.Kind, a.Kind}
	}
	return Int(^a.AsInt()), nil
}

// Comparison ops built atop Equal/Compare: eq/ne/lt/le/gt/ge.
func Eq(a, b Value) Value { return Bool(Equal(a, b)) }
func Ne(a, b Value) Value { return Bool(!Equal(a, b)) }

func orderedCompare(op string, a, b Value, accept func(int) bool) (Value, error) {
	cmp, ok := Compare(a, b)
	if !ok {
		return Value{}, &ArithError{op, a.Kind, b.Kind}
	}
	return Bool(accept(cmp)), nil
}

func Lt(a, b Value) (Value, error) { return orderedCompare("<", a, b, func(c int) bool { return c < 0 }) }
func Le(a, b Value) (Value, error) { return orderedCompare("<=", a, b, func(c int) bool { return c <= 0 }) }
func Gt(a, b Value) (Value, error) { return orderedCompare(">", a, b, func(c int) bool { return c > 0 }) }
func Ge(a, b Value) (Value, error) { return orderedCompare(">=", a, b, func(c int) bool { return c >= 0 }) }
