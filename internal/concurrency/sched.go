package concurrency

import "runtime"

// runtimeGosched yields the current OS thread/goroutine, used by the
// blocking Selector.Exec spin-wait between non-blocking scan attempts.
func runtimeGosched() { runtime.Gosched() }
