package vm

import "runtime"

// runtimeGosched yields to the Go scheduler at a safe-point when preemption
// was requested. The preempt flag is polled at backward branches and at
// calls and method invocations, and also just before a blocking channel
// send or receive, wait_group_wait, or select_exec; straight-line code
// does not poll it.
func runtimeGosched() { runtime.Gosched() }
