package vm

import "github.com/wudi/corelang/internal/values"

func (vm *VM) opNewArray(n int) error {
	elems := make([]values.Value, n)
	for i := n - 1; i >= 0; i-- {
		v, err := vm.pop()
		if err != nil {
			return err
		}
		elems[i] = v
	}
	return vm.push(values.NewArray(elems))
}

func (vm *VM) opNewMap(pairCount int) error {
	m := values.NewMapData()
	keys := make([]string, pairCount)
	vals := make([]values.Value, pairCount)
	for i := pairCount - 1; i >= 0; i-- {
		v, err := vm.pop()
		if err != nil {
			return err
		}
		k, err := vm.pop()
		if err != nil {
			return err
		}
		if k.Kind != values.KindString {
			return vm.newFault(ErrTypeMismatch, "map key must be a string")
		}
		keys[i] = k.AsString()
		vals[i] = v
	}
	for i := 0; i < pairCount; i++ {
		m.Set(keys[i], vals[i])
	}
	return vm.push(values.NewMap(m))
}

func (vm *VM) opNewSet(n int) error {
	s := values.NewSetData()
	elems := make([]values.Value, n)
	for i := n - 1; i >= 0; i-- {
		v, err := vm.pop()
		if err != nil {
			return err
		}
		elems[i] = v
	}
	for _, e := range elems {
		s.Add(e)
	}
	return vm.push(values.NewSet(s))
}

func (vm *VM) opNewRange(inclusive bool) error {
	end, err := vm.pop()
	if err != nil {
		return err
	}
	start, err := vm.pop()
	if err != nil {
		return err
	}
	if start.Kind != values.KindInt || end.Kind != values.KindInt {
		return vm.newFault(ErrTypeMismatch, "range bounds must be int")
	}
	return vm.push(values.NewRange(start.AsInt(), end.AsInt(), inclusive))
}

func (vm *VM) opArraySlice() error {
	end, err := vm.pop()
	if err != nil {
		return err
	}
	start, err := vm.pop()
	if err != nil {
		return err
	}
	recv, err := vm.pop()
	if err != nil {
		return err
	}
	if start.Kind != values.KindInt || end.Kind != values.KindInt {
		return vm.newFault(ErrTypeMismatch, "slice bounds must be int")
	}
	var src *values.Array
	switch recv.Kind {
	case values.KindArray:
		src = recv.AsArray()
	case values.KindArraySlice:
		s := recv.AsSlice()
		src = s.Source
		start = values.Int(start.AsInt() + int64(s.Start))
		end = values.Int(end.AsInt() + int64(s.Start))
	default:
		return vm.newFault(ErrTypeMismatch, "array_slice on non-array")
	}
	s0, e0 := int(start.AsInt()), int(end.AsInt())
	if s0 < 0 || e0 > len(src.Elems) || s0 > e0 {
		return vm.newFault(ErrIndexOutOfBounds, "slice [%d:%d] of length %d", s0, e0, len(src.Elems))
	}
	return vm.push(values.NewArraySlice(src, s0, e0))
}

func (vm *VM) opGetIndex() error {
	idx, err := vm.pop()
	if err != nil {
		return err
	}
	recv, err := vm.pop()
	if err != nil {
		return err
	}
	switch recv.Kind {
	case values.KindArray, values.KindArraySlice:
		if idx.Kind != values.KindInt {
			return vm.newFault(ErrTypeMismatch, "array index must be int")
		}
		elems := recv.Elements()
		i := int(idx.AsInt())
		if i < 0 || i >= len(elems) {
			return vm.newFault(ErrIndexOutOfBounds, "index %d of length %d", i, len(elems))
		}
		return vm.push(elems[i])
	case values.KindMap:
		if idx.Kind != values.KindString {
			return vm.newFault(ErrTypeMismatch, "map key must be string")
		}
		v, ok := recv.AsMap().Get(idx.AsString())
		if !ok {
			return vm.newFault(ErrIndexOutOfBounds, "missing map key %q", idx.AsString())
		}
		return vm.push(v)
	case values.KindString:
		if idx.Kind != values.KindInt {
			return vm.newFault(ErrTypeMismatch, "string index must be int")
		}
		runes := []rune(recv.AsString())
		i := int(idx.AsInt())
		if i < 0 || i >= len(runes) {
			return vm.newFault(ErrIndexOutOfBounds, "index %d of length %d", i, len(runes))
		}
		return vm.push(values.Char(runes[i]))
	default:
		return vm.newFault(ErrTypeMismatch, "get_index on %s", recv.Kind)
	}
}

func (vm *VM) opSetIndex() error {
	val, err := vm.pop()
	if err != nil {
		return err
	}
	idx, err := vm.pop()
	if err != nil {
		return err
	}
	recv, err := vm.pop()
	if err != nil {
		return err
	}
	switch recv.Kind {
	case values.KindArray:
		if idx.Kind != values.KindInt {
			return vm.newFault(ErrTypeMismatch, "array index must be int")
		}
		arr := recv.AsArray()
		i := int(idx.AsInt())
		if i < 0 || i >= len(arr.Elems) {
			return vm.newFault(ErrIndexOutOfBounds, "index %d of length %d", i, len(arr.Elems))
		}
		arr.Elems[i] = val
		return nil
	case values.KindArraySlice:
		if idx.Kind != values.KindInt {
			return vm.newFault(ErrTypeMismatch, "array index must be int")
		}
		s := recv.AsSlice()
		i := s.Start + int(idx.AsInt())
		if i < s.Start || i >= s.End {
			return vm.newFault(ErrIndexOutOfBounds, "index %d of length %d", idx.AsInt(), s.End-s.Start)
		}
		s.Source.Elems[i] = val
		return nil
	case values.KindMap:
		if idx.Kind != values.KindString {
			return vm.newFault(ErrTypeMismatch, "map key must be string")
		}
		recv.AsMap().Set(idx.AsString(), val)
		return nil
	default:
		return vm.newFault(ErrTypeMismatch, "set_index on %s", recv.Kind)
	}
}

// opIterInit converts a source container into an iterator cursor, the
// uniform form iter_next advances regardless of source kind.
func (vm *VM) opIterInit() error {
	src, err := vm.pop()
	if err != nil {
		return err
	}
	switch src.Kind {
	case values.KindArray, values.KindArraySlice, values.KindRange, values.KindSet, values.KindMap:
		return vm.push(values.NewIterator(src))
	default:
		return vm.newFault(ErrTypeMismatch, "iter_init on %s", src.Kind)
	}
}

// opIterNext pops an iterator, pushes it back advanced, then pushes (value,
// has_next) — has_next on top, so a JUMP_IF_FALSE_POP can test loop
// continuation directly.
func (vm *VM) opIterNext() error {
	itv, err := vm.pop()
	if err != nil {
		return err
	}
	it := itv.AsIterator()
	if it == nil {
		return vm.newFault(ErrTypeMismatch, "iter_next on non-iterator")
	}

	var val values.Value
	hasNext := false

	switch it.Source.Kind {
	case values.KindArray, values.KindArraySlice:
		elems := it.Source.Elements()
		if it.Cursor < len(elems) {
			val = elems[it.Cursor]
			hasNext = true
			it.Cursor++
		}
	case values.KindRange:
		r := it.Source.AsRange()
		cur := r.Start + int64(it.Cursor)
		limit := r.End
		inBounds := cur < limit
		if r.Inclusive {
			inBounds = cur <= limit
		}
		if r.Start <= r.End && inBounds {
			val = values.Int(cur)
			hasNext = true
			it.Cursor++
		}
	case values.KindSet:
		elems := it.Source.AsSet().Elems()
		if it.Cursor < len(elems) {
			val = elems[it.Cursor]
			hasNext = true
			it.Cursor++
		}
	case values.KindMap:
		keys := it.Source.AsMap().Keys()
		if it.Cursor < len(keys) {
			key := keys[it.Cursor]
			v, _ := it.Source.AsMap().Get(key)
			val = values.NewArray([]values.Value{values.Str(key), v})
			hasNext = true
			it.Cursor++
		}
	}

	if err := vm.push(itv); err != nil {
		return err
	}
	if !hasNext {
		val = values.Null()
	}
	if err := vm.push(val); err != nil {
		return err
	}
	return vm.push(values.Bool(hasNext))
}

func (vm *VM) opNewStructOp(nameIdx uint16) error {
	typeName, err := vm.constantString(nameIdx)
	if err != nil {
		return err
	}
	ti, ok := vm.chunk.Types[typeName]
	if !ok {
		return vm.newFault(ErrTypeMismatch, "unknown struct type %s", typeName)
	}
	inst := values.NewStruct(typeName)
	fields := inst.AsStruct().Fields
	for i := len(ti.Fields) - 1; i >= 0; i-- {
		v, err := vm.pop()
		if err != nil {
			return err
		}
		fields.Set(ti.Fields[i], v)
	}
	return vm.push(inst)
}
