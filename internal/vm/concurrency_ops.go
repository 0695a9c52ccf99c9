package vm

import (
	"github.com/wudi/corelang/internal/concurrency"
	"github.com/wudi/corelang/internal/values"
)

// opGoSpawn pops argCount arguments and a callee function, then launches a
// fresh coroutine VM executing that function with those arguments. The
// parent continues immediately; go_spawn never blocks and never pushes a
// result.
func (vm *VM) opGoSpawn(argCount int) error {
	args := make([]values.Value, argCount)
	for i := argCount - 1; i >= 0; i-- {
		v, err := vm.pop()
		if err != nil {
			return err
		}
		args[i] = v
	}
	callee, err := vm.pop()
	if err != nil {
		return err
	}
	if callee.Kind != values.KindFunction {
		return vm.newFault(ErrTypeMismatch, "go_spawn target is not a function")
	}
	fn := callee.AsFunction()
	resolved, err := vm.resolveCallable(fn, args)
	if err != nil {
		return err
	}

	child := vm.spawnChild()
	go func() {
		_ = child.RunFunction(fn, resolved)
	}()
	return nil
}

// opChannelSend pops a value and a channel and sends it, blocking per the
// `blocking` flag; the non-blocking form pushes a success bool, the
// blocking form pushes nothing (errors surface as a fault instead).
func (vm *VM) opChannelSend(blocking bool) error {
	val, err := vm.pop()
	if err != nil {
		return err
	}
	chv, err := vm.pop()
	if err != nil {
		return err
	}
	ch := concurrency.AsChannel(chv)
	if ch == nil {
		return vm.newFault(ErrTypeMismatch, "channel_send on non-channel")
	}
	if !blocking {
		return vm.push(values.Bool(ch.TrySend(val)))
	}
	vm.checkPreempt()
	if err := ch.Send(val); err != nil {
		return vm.newFault(ErrClosedChannelSend, "%s", err.Error())
	}
	return nil
}

// opChannelReceive pops a channel and pushes (value, ok) — ok on top,
// matching the pattern of iter_next's (value, has_next) pair.
func (vm *VM) opChannelReceive(blocking bool) error {
	chv, err := vm.pop()
	if err != nil {
		return err
	}
	ch := concurrency.AsChannel(chv)
	if ch == nil {
		return vm.newFault(ErrTypeMismatch, "channel_receive on non-channel")
	}
	var val values.Value
	var ok bool
	if blocking {
		val, ok = ch.Receive()
	} else {
		val, ok = ch.TryReceive()
	}
	if err := vm.push(val); err != nil {
		return err
	}
	return vm.push(values.Bool(ok))
}

// opMutexLock pops a mutex and pushes its protected value, holding the
// underlying lock only for the duration of the read: the opcode set has no
// paired unlock instruction, so each mutex_lock is an atomic snapshot read
// rather than a held critical section spanning multiple instructions.
func (vm *VM) opMutexLock() error {
	mv, err := vm.pop()
	if err != nil {
		return err
	}
	m := concurrency.AsMutex(mv)
	if m == nil {
		return vm.newFault(ErrTypeMismatch, "mutex_lock on non-mutex")
	}
	guard := m.Lock()
	v := guard.Value()
	guard.Unlock()
	return vm.push(v)
}

func (vm *VM) opWaitGroupAdd() error {
	delta, err := vm.pop()
	if err != nil {
		return err
	}
	if delta.Kind != values.KindInt {
		return vm.newFault(ErrTypeMismatch, "wait_group_add delta must be int")
	}
	return vm.opWaitGroupDelta(delta.AsInt())
}

func (vm *VM) opWaitGroupDelta(delta int64) error {
	wgv, err := vm.pop()
	if err != nil {
		return err
	}
	wg := concurrency.AsWaitGroup(wgv)
	if wg == nil {
		return vm.newFault(ErrTypeMismatch, "wait group op on non-wait-group")
	}
	if err := wg.Add(delta); err != nil {
		return vm.newFault(ErrNegativeWaitGroup, "%s", err.Error())
	}
	return nil
}

func (vm *VM) topSelector() *concurrency.Selector {
	if len(vm.selectors) == 0 {
		return nil
	}
	return vm.selectors[len(vm.selectors)-1]
}

func (vm *VM) opSelectAddSend() error {
	sel := vm.topSelector()
	if sel == nil {
		return vm.newFault(ErrTypeMismatch, "select_add_send without select_begin")
	}
	val, err := vm.pop()
	if err != nil {
		return err
	}
	chv, err := vm.pop()
	if err != nil {
		return err
	}
	ch := concurrency.AsChannel(chv)
	if ch == nil {
		return vm.newFault(ErrTypeMismatch, "select_add_send on non-channel")
	}
	sel.AddSend(ch, val)
	return nil
}

func (vm *VM) opSelectAddRecv() error {
	sel := vm.topSelector()
	if sel == nil {
		return vm.newFault(ErrTypeMismatch, "select_add_recv without select_begin")
	}
	chv, err := vm.pop()
	if err != nil {
		return err
	}
	ch := concurrency.AsChannel(chv)
	if ch == nil {
		return vm.newFault(ErrTypeMismatch, "select_add_recv on non-channel")
	}
	sel.AddRecv(ch)
	return nil
}

// opSelectFinish pops the active selector, runs it, and pushes the
// (case_type, case_index, value) result triple bottom-to-top.
func (vm *VM) opSelectFinish(blocking bool) error {
	if len(vm.selectors) == 0 {
		return vm.newFault(ErrTypeMismatch, "select_exec without select_begin")
	}
	sel := vm.selectors[len(vm.selectors)-1]
	vm.selectors = vm.selectors[:len(vm.selectors)-1]

	var res concurrency.Result
	if blocking {
		res = sel.Exec()
	} else {
		r, ok := sel.TryExec()
		if !ok {
			res = concurrency.Result{Kind: concurrency.CaseAllClosed, Index: -1}
		} else {
			res = r
		}
	}

	if err := vm.push(values.Int(int64(res.Kind))); err != nil {
		return err
	}
	if err := vm.push(values.Int(int64(res.Index))); err != nil {
		return err
	}
	return vm.push(res.Value)
}
