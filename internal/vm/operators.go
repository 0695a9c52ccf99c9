package vm

import "github.com/wudi/corelang/internal/values"

// tryOperatorOverload resolves and invokes operator_<opName> on a when the
// built-in arithmetic fast path rejected (a, b): the left operand must be
// a class or struct instance, matching the method-dispatch convention
// invoke_method already uses. handled reports whether such a method
// exists; callers should fall back to their usual fault when it doesn't.
func (vm *VM) tryOperatorOverload(opName string, a, b values.Value) (result values.Value, handled bool, err error) {
	var typeName string
	switch a.Kind {
	case values.KindClass:
		typeName = a.AsClass().Tag
	case values.KindStruct:
		typeName = a.AsStruct().Tag
	default:
		return values.Value{}, false, nil
	}

	methodName := "operator_" + opName
	_, constIdx, found := vm.chunk.ResolveMethod(typeName, methodName)
	if !found {
		return values.Value{}, false, nil
	}
	fn := vm.chunk.Constants[constIdx].AsFunction()

	result, err = vm.callMethodSync(fn, a, []values.Value{b})
	return result, true, err
}
