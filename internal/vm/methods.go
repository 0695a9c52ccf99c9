package vm

import (
	"strings"

	"github.com/wudi/corelang/internal/bytecode"
	"github.com/wudi/corelang/internal/builtins"
	"github.com/wudi/corelang/internal/values"
)

// isStdlibClass reports whether className is a class the host's stdlib owns;
// invoke_method delegates to the host for these instead of the VTable.
func (vm *VM) isStdlibClass(className string) bool {
	return vm.host != nil && vm.host.HasClass("", className)
}

// opNewClass implements `new_class`.
func (vm *VM) opNewClass(typeConstIdx uint16, argCount int) error {
	typeName, err := vm.constantString(typeConstIdx)
	if err != nil {
		return err
	}
	ti, ok := vm.chunk.Types[typeName]
	if !ok {
		return vm.newFault(ErrTypeMismatch, "unknown type %s", typeName)
	}
	if ti.IsAbstract {
		return vm.newFault(ErrAbstractClass, "%s", typeName)
	}

	args := make([]values.Value, argCount)
	for i := argCount - 1; i >= 0; i-- {
		v, perr := vm.pop()
		if perr != nil {
			return perr
		}
		args[i] = v
	}

	inst := values.NewClass(typeName)
	for name := range allFields(vm.chunk, typeName) {
		inst.AsClass().Fields.Set(name, values.Null())
	}

	initIdx, hasInit := findMethod(vm.chunk, typeName, "init")
	if !hasInit {
		if err := vm.push(inst); err != nil {
			return err
		}
		return nil
	}

	initFn := vm.chunk.Constants[initIdx].AsFunction()
	resolved, err := vm.resolveCallable(initFn, args)
	if err != nil {
		return err
	}

	if err := vm.push(inst); err != nil {
		return err
	}
	baseSlot := len(vm.stack) - 1
	for _, a := range resolved {
		if err := vm.push(a); err != nil {
			return err
		}
	}
	if err := vm.pushFrame(Frame{
		ReturnIP:     uint32(vm.ip),
		BaseSlot:     uint16(baseSlot),
		IsMethodCall: true,
		FunctionName: typeName + ".init",
	}); err != nil {
		return err
	}
	vm.ip = initFn.ChunkIndex
	return nil
}

func allFields(c *bytecode.Chunk, typeName string) map[string]struct{} {
	out := make(map[string]struct{})
	for name := typeName; name != ""; {
		ti, ok := c.Types[name]
		if !ok {
			break
		}
		for _, f := range ti.Fields {
			out[f] = struct{}{}
		}
		name = ti.Parent
	}
	return out
}

func findMethod(c *bytecode.Chunk, typeName, method string) (int, bool) {
	_, idx, ok := c.ResolveMethod(typeName, method)
	return idx, ok
}

// opInvokeMethod implements `invoke_method`/`safe_invoke_method`/
// `non_null_invoke_method`.
func (vm *VM) opInvokeMethod(methodConstIdx uint16, argCount int, mode invokeMode) error {
	methodName, err := vm.constantString(methodConstIdx)
	if err != nil {
		return err
	}
	receiverIdx := len(vm.stack) - argCount - 1
	if receiverIdx < 0 {
		return vm.newFault(ErrStackUnderflow, "invoke_method receiver out of range")
	}
	receiver := vm.stack[receiverIdx]

	if receiver.Kind == values.KindNull {
		switch mode {
		case invokeSafe:
			for i := 0; i < argCount+1; i++ {
				if _, err := vm.pop(); err != nil {
					return err
				}
			}
			return vm.push(values.Null())
		case invokeNonNull:
			return vm.newFault(ErrNullReceiver, "method %s", methodName)
		}
	}

	args := make([]values.Value, argCount)
	for i := argCount - 1; i >= 0; i-- {
		v, perr := vm.pop()
		if perr != nil {
			return perr
		}
		args[i] = v
	}
	if _, err := vm.pop(); err != nil { // pop receiver too; we'll re-push below
		return err
	}

	// Built-in kinds (array/string/map/range/set) dispatch to hard-coded
	// method bodies.
	if isBuiltinKind(receiver.Kind) {
		result, err := builtins.Invoke(receiver, methodName, args, vm)
		if err != nil {
			return vm.newFault(ErrMethodNotFound, "%s", err.Error())
		}
		return vm.push(result)
	}

	if receiver.Kind == values.KindClass {
		typeName := receiver.AsClass().Tag
		if vm.isStdlibClass(typeName) {
			result, err := vm.host.CallClassMethod(receiver, methodName, args)
			if err != nil {
				return vm.newFault(ErrMethodNotFound, "%s", err.Error())
			}
			return vm.push(result)
		}

		cache := vm.inlineCacheFor(vm.ip)
		constIdx, ok := cache.Lookup(typeName, methodName)
		if !ok {
			_, idx, found := vm.chunk.ResolveMethod(typeName, methodName)
			if !found {
				return vm.newFault(ErrMethodNotFound, "%s::%s", typeName, methodName)
			}
			constIdx = idx
			cache.Fill(typeName, methodName, constIdx)
		}
		fn := vm.chunk.Constants[constIdx].AsFunction()
		return vm.invokeFunctionAsMethod(fn, receiver, args)
	}

	if receiver.Kind == values.KindStruct {
		typeName := receiver.AsStruct().Tag
		_, idx, found := vm.chunk.ResolveMethod(typeName, methodName)
		if !found {
			return vm.newFault(ErrMethodNotFound, "%s::%s", typeName, methodName)
		}
		fn := vm.chunk.Constants[idx].AsFunction()
		return vm.invokeFunctionAsMethod(fn, receiver, args)
	}

	return vm.newFault(ErrMethodNotFound, "%s on %s", methodName, receiver.Kind)
}

type invokeMode int

const (
	invokeNormal invokeMode = iota
	invokeSafe
	invokeNonNull
)

func isBuiltinKind(k values.Kind) bool {
	switch k {
	case values.KindArray, values.KindArraySlice, values.KindString, values.KindMap, values.KindRange, values.KindSet:
		return true
	default:
		return false
	}
}

func (vm *VM) invokeFunctionAsMethod(fn *values.Function, receiver values.Value, args []values.Value) error {
	resolved, err := vm.resolveCallable(fn, args)
	if err != nil {
		return err
	}
	if err := vm.push(receiver); err != nil {
		return err
	}
	baseSlot := len(vm.stack) - 1
	for _, a := range resolved {
		if err := vm.push(a); err != nil {
			return err
		}
	}
	if err := vm.pushFrame(Frame{
		ReturnIP:     uint32(vm.ip),
		BaseSlot:     uint16(baseSlot),
		IsMethodCall: true,
		FunctionName: fn.Name,
	}); err != nil {
		return err
	}
	vm.ip = fn.ChunkIndex
	return nil
}

// opInvokeSuper dispatches methodName starting the search at typeName's
// parent, bypassing the inline cache (super calls are rarer and always
// resolve statically against the declared parent).
func (vm *VM) opInvokeSuper(typeConstIdx, methodConstIdx uint16, argCount int) error {
	typeName, err := vm.constantString(typeConstIdx)
	if err != nil {
		return err
	}
	methodName, err := vm.constantString(methodConstIdx)
	if err != nil {
		return err
	}
	ti, ok := vm.chunk.Types[typeName]
	if !ok || ti.Parent == "" {
		return vm.newFault(ErrMethodNotFound, "no parent for %s", typeName)
	}
	_, idx, found := vm.chunk.ResolveMethod(ti.Parent, methodName)
	if !found {
		return vm.newFault(ErrMethodNotFound, "%s::%s", ti.Parent, methodName)
	}

	args := make([]values.Value, argCount)
	for i := argCount - 1; i >= 0; i-- {
		v, perr := vm.pop()
		if perr != nil {
			return perr
		}
		args[i] = v
	}
	receiver, err := vm.pop()
	if err != nil {
		return err
	}
	fn := vm.chunk.Constants[idx].AsFunction()
	return vm.invokeFunctionAsMethod(fn, receiver, args)
}

// opInvokeStatic dispatches a static method call on a TypeRef receiver.
func (vm *VM) opInvokeStatic(methodConstIdx uint16, argCount int) error {
	methodName, err := vm.constantString(methodConstIdx)
	if err != nil {
		return err
	}
	args := make([]values.Value, argCount)
	for i := argCount - 1; i >= 0; i-- {
		v, perr := vm.pop()
		if perr != nil {
			return perr
		}
		args[i] = v
	}
	receiver, err := vm.pop()
	if err != nil {
		return err
	}
	if receiver.Kind != values.KindTypeRef {
		return vm.newFault(ErrTypeMismatch, "invoke_static receiver is not a type reference")
	}
	typeName := receiver.AsTypeRef().Name
	ti, ok := vm.chunk.Types[typeName]
	if !ok {
		return vm.newFault(ErrTypeMismatch, "unknown type %s", typeName)
	}
	idx, ok := ti.StaticMethods[methodName]
	if !ok {
		return vm.newFault(ErrMethodNotFound, "%s::%s (static)", typeName, methodName)
	}
	fn := vm.chunk.Constants[idx].AsFunction()
	resolved, err := vm.resolveCallable(fn, args)
	if err != nil {
		return err
	}
	if err := vm.push(values.NewFunction(fn)); err != nil {
		return err
	}
	baseSlot := len(vm.stack)
	for _, a := range resolved {
		if err := vm.push(a); err != nil {
			return err
		}
	}
	if err := vm.pushFrame(Frame{
		ReturnIP:     uint32(vm.ip),
		BaseSlot:     uint16(baseSlot),
		FunctionName: fn.Name,
	}); err != nil {
		return err
	}
	vm.ip = fn.ChunkIndex
	return nil
}

// Field access -------------------------------------------------------------

func fieldsOf(v values.Value) (*values.Map, string, bool) {
	switch v.Kind {
	case values.KindStruct:
		s := v.AsStruct()
		return s.Fields, s.Tag, true
	case values.KindClass:
		c := v.AsClass()
		return c.Fields, c.Tag, true
	case values.KindEnumValue:
		e := v.AsEnum()
		if e.Fields != nil {
			return e.Fields, e.EnumTag, true
		}
	}
	return nil, "", false
}

func (vm *VM) opGetField(nameIdx uint16, mode invokeMode) error {
	name, err := vm.constantString(nameIdx)
	if err != nil {
		return err
	}
	recv, err := vm.pop()
	if err != nil {
		return err
	}
	if recv.Kind == values.KindNull {
		switch mode {
		case invokeSafe:
			return vm.push(values.Null())
		case invokeNonNull:
			return vm.newFault(ErrNullReceiver, "field %s", name)
		}
	}
	fields, tag, ok := fieldsOf(recv)
	if !ok {
		return vm.newFault(ErrFieldNotFound, "%s on %s", name, recv.Kind)
	}
	v, ok := fields.Get(name)
	if !ok {
		return vm.newFault(ErrFieldNotFound, "%s on %s", name, tag)
	}
	return vm.push(v)
}

func (vm *VM) opSetField(nameIdx uint16) error {
	name, err := vm.constantString(nameIdx)
	if err != nil {
		return err
	}
	val, err := vm.pop()
	if err != nil {
		return err
	}
	recv, err := vm.pop()
	if err != nil {
		return err
	}
	fields, _, ok := fieldsOf(recv)
	if !ok {
		return vm.newFault(ErrFieldNotFound, "%s on %s", name, recv.Kind)
	}
	fields.Set(name, val)
	return nil
}

// Statics --------------------------------------------------------------

func splitStaticKey(key string) (string, string) {
	idx := strings.Index(key, "::")
	if idx < 0 {
		return key, ""
	}
	return key[:idx], key[idx+2:]
}

func (vm *VM) opGetStatic(constIdx uint16) error {
	key, err := vm.constantString(constIdx)
	if err != nil {
		return err
	}
	className, fieldName := splitStaticKey(key)
	v, err := vm.StaticField(className, fieldName)
	if err != nil {
		return err
	}
	return vm.push(v)
}

func (vm *VM) opSetStatic(constIdx uint16) error {
	key, err := vm.constantString(constIdx)
	if err != nil {
		return err
	}
	className, fieldName := splitStaticKey(key)
	val, err := vm.pop()
	if err != nil {
		return err
	}
	return vm.SetStaticField(className, fieldName, val)
}
