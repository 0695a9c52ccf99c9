// Package vtable implements the per-type method table registry: dense
// method tables with single-inheritance fallback, trait-method
// resolution, and the single-entry inline cache layered over lookups at
// each invoke_method call site.
package vtable

import (
	"sort"
	"sync"

	"golang.org/x/exp/maps"

	"github.com/wudi/corelang/internal/bytecode"
)

// VTable is a type's dense method table, optionally inheriting from a
// parent VTable.
type VTable struct {
	TypeName string
	Parent   *VTable
	Methods  map[string]int // method name -> function constant index
	Traits   []string       // trait names this type implements
}

// Resolve looks up method on this VTable, falling back through Parent.
func (v *VTable) Resolve(method string) (int, bool) {
	for t := v; t != nil; t = t.Parent {
		if idx, ok := t.Methods[method]; ok {
			return idx, true
		}
	}
	return 0, false
}

// Registry assigns sequential type IDs and stores VTables indexed by type
// name for O(1) lookup, plus trait tables for default-implementation
// fallback.
type Registry struct {
	mu      sync.RWMutex
	nextID  int
	ids     map[string]int
	tables  map[string]*VTable
	traits  map[string]*bytecode.TraitInfo
}

func NewRegistry() *Registry {
	return &Registry{
		ids:    make(map[string]int),
		tables: make(map[string]*VTable),
		traits: make(map[string]*bytecode.TraitInfo),
	}
}

// RegisterTrait records a trait's signatures/defaults for later
// trait-method resolution.
func (r *Registry) RegisterTrait(info *bytecode.TraitInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traits[info.Name] = info
}

// Register builds (or replaces) the VTable for ti, wiring its Parent
// VTable if one is already registered, and assigns it a sequential type
// ID if it doesn't have one yet.
func (r *Registry) Register(ti *bytecode.TypeInfo) *VTable {
	r.mu.Lock()
	defer r.mu.Unlock()

	vt := &VTable{
		TypeName: ti.Name,
		Methods:  maps.Clone(ti.Methods),
		Traits:   append([]string(nil), ti.Traits...),
	}
	if ti.Parent != "" {
		if parent, ok := r.tables[ti.Parent]; ok {
			vt.Parent = parent
		}
	}
	r.tables[ti.Name] = vt
	if _, ok := r.ids[ti.Name]; !ok {
		r.ids[ti.Name] = r.nextID
		r.nextID++
	}
	return vt
}

// Lookup returns the VTable registered for typeName, if any.
func (r *Registry) Lookup(typeName string) (*VTable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	vt, ok := r.tables[typeName]
	return vt, ok
}

// TypeID returns the sequential ID assigned to typeName.
func (r *Registry) TypeID(typeName string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.ids[typeName]
	return id, ok
}

// ResolveTraitMethod resolves a trait method against a type's VTable: the
// type's own override wins, falling back to the trait's default
// implementation constant index.
func (r *Registry) ResolveTraitMethod(typeName, traitName, method string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if vt, ok := r.tables[typeName]; ok {
		if idx, ok := vt.Resolve(method); ok {
			return idx, true
		}
	}
	if trait, ok := r.traits[traitName]; ok {
		if tm, ok := trait.Methods[method]; ok && tm.DefaultImplIdx >= 0 {
			return tm.DefaultImplIdx, true
		}
	}
	return 0, false
}

// Implements reports whether typeName's VTable declares traitName among
// its implemented traits, checked in a deterministic (sorted) order so
// repeated runs produce identical diagnostics.
func (r *Registry) Implements(typeName, traitName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	vt, ok := r.tables[typeName]
	if !ok {
		return false
	}
	sorted := append([]string(nil), vt.Traits...)
	sort.Strings(sorted)
	idx := sort.SearchStrings(sorted, traitName)
	return idx < len(sorted) && sorted[idx] == traitName
}

// InlineCache is a single-entry, per-call-site speculation mapping a
// (receiver type, method name) pair to a resolved function constant
// index. Only Invalidate clears it; Registry.Register and
// Registry.RegisterTrait do not invalidate existing caches.
type InlineCache struct {
	typeName   string
	methodName string
	constIdx   int
	valid      bool
}

// Lookup returns the cached function index if it matches (typeName,
// methodName); otherwise reports a miss.
func (c *InlineCache) Lookup(typeName, methodName string) (int, bool) {
	if c.valid && c.typeName == typeName && c.methodName == methodName {
		return c.constIdx, true
	}
	return 0, false
}

// Fill populates the cache after a slow-path resolution.
func (c *InlineCache) Fill(typeName, methodName string, constIdx int) {
	c.typeName = typeName
	c.methodName = methodName
	c.constIdx = constIdx
	c.valid = true
}

// Invalidate clears the cache, required on bytecode swap or type-registry
// mutation.
func (c *InlineCache) Invalidate() { c.valid = false }
