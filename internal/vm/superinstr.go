package vm

import "github.com/wudi/corelang/internal/values"

// opGetLocalArithImm fuses `get_local slot; push_small_int imm; add/sub`
// into one decode, producing the same int result the primitive sequence
// would for an int local; a non-int local is a type-mismatch fault.
func (vm *VM) opGetLocalArithImm(fn func(int64, int64) int64) error {
	slot := vm.readU16()
	imm := int64(vm.readI8())
	v, err := vm.localAt(slot)
	if err != nil {
		return err
	}
	if v.Kind != values.KindInt {
		return vm.newFault(ErrTypeMismatch, "super-instruction requires int local")
	}
	return vm.push(values.Int(fn(v.AsInt(), imm)))
}

func (vm *VM) opGetLocalCompareImm(fn func(int64, int64) bool) error {
	slot := vm.readU16()
	imm := int64(vm.readI8())
	v, err := vm.localAt(slot)
	if err != nil {
		return err
	}
	if v.Kind != values.KindInt {
		return vm.newFault(ErrTypeMismatch, "super-instruction requires int local")
	}
	return vm.push(values.Bool(fn(v.AsInt(), imm)))
}

func (vm *VM) opLocalsArith(ifn func(int64, int64) int64, ffn func(float64, float64) float64) error {
	slotA := vm.readU16()
	slotB := vm.readU16()
	a, err := vm.localAt(slotA)
	if err != nil {
		return err
	}
	b, err := vm.localAt(slotB)
	if err != nil {
		return err
	}
	if a.Kind == values.KindInt && b.Kind == values.KindInt {
		return vm.push(values.Int(ifn(a.AsInt(), b.AsInt())))
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return vm.newFault(ErrTypeMismatch, "super-instruction requires numeric locals")
	}
	return vm.push(values.Float(ffn(af, bf)))
}

func asFloat(v values.Value) (float64, bool) {
	switch v.Kind {
	case values.KindInt:
		return float64(v.AsInt()), true
	case values.KindFloat:
		return v.AsFloat(), true
	default:
		return 0, false
	}
}

// opJumpIfLocalCmpConst fuses `get_local slot; push_small_int imm; le/lt;
// jump_if_false_pop` — exactly the loop-bound check emitted for counted
// for-loops.
func (vm *VM) opJumpIfLocalCmpConst(fn func(int64, int64) bool) error {
	slot := vm.readU16()
	imm := int64(vm.readI8())
	offset := vm.readU16()
	v, err := vm.localAt(slot)
	if err != nil {
		return err
	}
	if v.Kind != values.KindInt {
		return vm.newFault(ErrTypeMismatch, "super-instruction requires int local")
	}
	if !fn(v.AsInt(), imm) {
		vm.ip += int(offset)
	}
	return nil
}
