package vm

import "github.com/wudi/corelang/internal/values"

func (vm *VM) enumVariant(enumIdx, variantIdx uint16) (enumName string, variant *values.Value, variantName string, err error) {
	enumName, err = vm.constantString(enumIdx)
	if err != nil {
		return
	}
	info, ok := vm.chunk.Enums[enumName]
	if !ok {
		err = vm.newFault(ErrTypeMismatch, "unknown enum %s", enumName)
		return
	}
	if int(variantIdx) >= len(info.Variants) {
		err = vm.newFault(ErrIndexOutOfBounds, "enum variant index %d", variantIdx)
		return
	}
	v := info.Variants[variantIdx]
	variantName = v.Name
	return
}

func (vm *VM) opNewEnumSimple(enumIdx, variantIdx uint16) error {
	enumName, _, variantName, err := vm.enumVariant(enumIdx, variantIdx)
	if err != nil {
		return err
	}
	return vm.push(values.NewEnumSimple(enumName, variantName))
}

func (vm *VM) opNewEnumValue(enumIdx, variantIdx uint16) error {
	enumName, _, variantName, err := vm.enumVariant(enumIdx, variantIdx)
	if err != nil {
		return err
	}
	associated, err := vm.pop()
	if err != nil {
		return err
	}
	return vm.push(values.NewEnumValue(enumName, variantName, associated))
}

func (vm *VM) opNewEnumFields(enumIdx, variantIdx uint16, fieldCount int) error {
	enumName, _, variantName, err := vm.enumVariant(enumIdx, variantIdx)
	if err != nil {
		return err
	}
	info := vm.chunk.Enums[enumName]
	names := info.Variants[variantIdx].AssociatedFields
	if len(names) != fieldCount {
		return vm.newFault(ErrTypeMismatch, "enum %s::%s expects %d fields, got %d", enumName, variantName, len(names), fieldCount)
	}
	fields := values.NewMapData()
	for i := fieldCount - 1; i >= 0; i-- {
		v, err := vm.pop()
		if err != nil {
			return err
		}
		fields.Set(names[i], v)
	}
	return vm.push(values.NewEnumFields(enumName, variantName, fields))
}

func (vm *VM) opEnumVariantName() error {
	v, err := vm.pop()
	if err != nil {
		return err
	}
	e := v.AsEnum()
	if e == nil {
		return vm.newFault(ErrTypeMismatch, "enum_variant_name on non-enum")
	}
	return vm.push(values.Str(e.Variant))
}

func (vm *VM) opEnumGetValue() error {
	v, err := vm.pop()
	if err != nil {
		return err
	}
	e := v.AsEnum()
	if e == nil {
		return vm.newFault(ErrTypeMismatch, "enum_get_value on non-enum")
	}
	if e.Associated == nil {
		return vm.push(values.Null())
	}
	return vm.push(*e.Associated)
}

func (vm *VM) opEnumGetField(nameIdx uint16) error {
	name, err := vm.constantString(nameIdx)
	if err != nil {
		return err
	}
	v, err := vm.pop()
	if err != nil {
		return err
	}
	e := v.AsEnum()
	if e == nil || e.Fields == nil {
		return vm.newFault(ErrFieldNotFound, "%s on %s", name, v.Kind)
	}
	fv, ok := e.Fields.Get(name)
	if !ok {
		return vm.newFault(ErrFieldNotFound, "%s::%s.%s", e.EnumTag, e.Variant, name)
	}
	return vm.push(fv)
}

// opEnumMatch compares the top-of-stack enum's variant name against the
// constant-pool name, pushing a bool without consuming the enum value so
// match arms can keep inspecting it.
func (vm *VM) opEnumMatch(nameIdx uint16) error {
	name, err := vm.constantString(nameIdx)
	if err != nil {
		return err
	}
	v, err := vm.peek(0)
	if err != nil {
		return err
	}
	e := v.AsEnum()
	if e == nil {
		return vm.newFault(ErrTypeMismatch, "enum_match on non-enum")
	}
	return vm.push(values.Bool(e.Variant == name))
}
