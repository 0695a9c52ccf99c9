package gcroot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/corelang/internal/concurrency"
	"github.com/wudi/corelang/internal/gcroot"
	"github.com/wudi/corelang/internal/values"
)

type fakeSource struct {
	id      string
	stack   []values.Value
	statics map[string]values.Value
}

func (f fakeSource) CoroutineID() string                          { return f.id }
func (f fakeSource) Stack() []values.Value                        { return f.stack }
func (f fakeSource) StaticFieldSnapshot() map[string]values.Value { return f.statics }

func TestWalkEnumeratesStackRootsPerCoroutine(t *testing.T) {
	sources := []gcroot.Source{
		fakeSource{id: "c1", stack: []values.Value{values.Int(1), values.Str("x")}},
		fakeSource{id: "c2", stack: []values.Value{values.Int(2)}},
	}
	roots := gcroot.Walk(sources)

	var stackRoots []gcroot.Root
	for _, r := range roots {
		if r.Kind == gcroot.KindStack {
			stackRoots = append(stackRoots, r)
		}
	}
	require.Len(t, stackRoots, 3)
	assert.Equal(t, "c1", stackRoots[0].CoroutineID)
	assert.Equal(t, values.Int(1), stackRoots[0].Value)
}

func TestWalkDeduplicatesStaticFieldsAcrossCoroutines(t *testing.T) {
	statics := map[string]values.Value{"Counter::total": values.Int(5)}
	sources := []gcroot.Source{
		fakeSource{id: "c1", statics: statics},
		fakeSource{id: "c2", statics: statics},
	}
	roots := gcroot.Walk(sources)

	var staticRoots []gcroot.Root
	for _, r := range roots {
		if r.Kind == gcroot.KindStaticField {
			staticRoots = append(staticRoots, r)
		}
	}
	require.Len(t, staticRoots, 1)
	assert.Equal(t, "Counter::total", staticRoots[0].Location)
}

func TestWalkSurfacesMutexProtectedValue(t *testing.T) {
	m := concurrency.NewMutexValue(values.Str("secret"))
	sources := []gcroot.Source{
		fakeSource{id: "c1", stack: []values.Value{m}},
	}
	roots := gcroot.Walk(sources)

	var found bool
	for _, r := range roots {
		if r.Kind == gcroot.KindMutexValue {
			found = true
			assert.Equal(t, values.Str("secret"), r.Value)
		}
	}
	assert.True(t, found)
}

func TestWalkSurfacesBufferedChannelValues(t *testing.T) {
	ch := concurrency.NewChannel(2)
	require.True(t, ch.TrySend(values.Int(10)))
	require.True(t, ch.TrySend(values.Int(20)))
	chVal := values.Value{Kind: values.KindChannel, Data: ch}

	sources := []gcroot.Source{
		fakeSource{id: "c1", stack: []values.Value{chVal}},
	}
	roots := gcroot.Walk(sources)

	var bufVals []values.Value
	for _, r := range roots {
		if r.Kind == gcroot.KindChannelBuf {
			bufVals = append(bufVals, r.Value)
		}
	}
	assert.Equal(t, []values.Value{values.Int(10), values.Int(20)}, bufVals)
}
