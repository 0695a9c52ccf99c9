// Package gcroot implements the root-scanning contract the interpreter
// exposes to a host garbage collector: the VM never frees memory itself,
// it only lets a collector enumerate every value a running program could
// still reach directly. Tracing from those roots through arrays, maps,
// and class fields to build a full reachability graph is the collector's
// job, not this package's.
package gcroot

import (
	"sort"
	"strconv"

	"golang.org/x/exp/maps"

	"github.com/wudi/corelang/internal/concurrency"
	"github.com/wudi/corelang/internal/values"
)

// Source is the subset of *vm.VM a walker needs: one per live coroutine.
type Source interface {
	CoroutineID() string
	Stack() []values.Value
	StaticFieldSnapshot() map[string]values.Value
}

// Kind identifies which part of the runtime a Root was found in.
type Kind string

const (
	KindStack        Kind = "stack"
	KindStaticField  Kind = "static_field"
	KindChannelBuf   Kind = "channel_buffer"
	KindMutexValue   Kind = "mutex_value"
)

// Root is one directly-reachable value, tagged with where it was found so
// a collector's trace phase can report provenance in diagnostics.
type Root struct {
	Kind        Kind
	CoroutineID string // empty for statics, which are process-wide
	Location    string // "stack[3]", "Counter::total", "stack[0].buf[1]"
	Value       values.Value
}

// Walk enumerates every root reachable from the given coroutines: each
// one's live operand stack, the shared static-field table (deduplicated
// across coroutines since it is process-wide), and the protected value of
// any mutex or buffered channel value found while walking the stacks.
//
// This does not recurse into arrays/maps/class fields; a collector that
// wants full reachability traces those itself starting from these roots.
func Walk(sources []Source) []Root {
	var roots []Root
	seenStatics := false

	for _, src := range sources {
		stack := src.Stack()
		for i, v := range stack {
			roots = append(roots, Root{
				Kind:        KindStack,
				CoroutineID: src.CoroutineID(),
				Location:    indexedLocation("stack", i),
				Value:       v,
			})
			roots = append(roots, containerRoots(src.CoroutineID(), "stack", i, v)...)
		}

		if !seenStatics {
			fields := src.StaticFieldSnapshot()
			keys := maps.Keys(fields)
			sort.Strings(keys)
			for _, k := range keys {
				v := fields[k]
				roots = append(roots, Root{
					Kind:     KindStaticField,
					Location: k,
					Value:    v,
				})
				roots = append(roots, containerRoots("", "static:"+k, 0, v)...)
			}
			seenStatics = true
		}
	}

	return roots
}

// containerRoots surfaces the one level of indirection a collector cannot
// discover by inspecting a Value's Kind/Data alone without importing the
// concurrency package itself: a mutex's protected value and a buffered
// channel's queued values.
func containerRoots(coroutineID, parentLoc string, parentIdx int, v values.Value) []Root {
	switch v.Kind {
	case values.KindMutex:
		m := concurrency.AsMutex(v)
		if m == nil {
			return nil
		}
		guard := m.Lock()
		protected := guard.Value()
		guard.Unlock()
		return []Root{{
			Kind:        KindMutexValue,
			CoroutineID: coroutineID,
			Location:    indexedLocation(parentLoc, parentIdx) + ".protected",
			Value:       protected,
		}}

	case values.KindChannel:
		ch := concurrency.AsChannel(v)
		if ch == nil {
			return nil
		}
		buffered := ch.Buffered()
		out := make([]Root, len(buffered))
		for i, bv := range buffered {
			out[i] = Root{
				Kind:        KindChannelBuf,
				CoroutineID: coroutineID,
				Location:    indexedLocation(parentLoc, parentIdx) + indexedLocation(".buf", i),
				Value:       bv,
			}
		}
		return out

	default:
		return nil
	}
}

func indexedLocation(prefix string, idx int) string {
	return prefix + "[" + strconv.Itoa(idx) + "]"
}
