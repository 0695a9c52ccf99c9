package bytecode

import "github.com/wudi/corelang/internal/values"

// TypeInfo describes a struct or class: its fields, its method table (by
// constant index into the owning chunk's constant pool), and — for
// classes — an optional parent and abstract-method list.
type TypeInfo struct {
	Name           string
	Parent         string
	IsClass        bool
	IsAbstract     bool
	Methods        map[string]int // method name -> constant index
	StaticMethods  map[string]int
	Fields         []string
	StaticFields   map[string]int // field name -> constant index (initializer)
	ConstFields    map[string]struct{}
	AbstractMethods []string
	Traits         []string
}

// InterfaceInfo describes an interface's method signatures.
type InterfaceInfo struct {
	Name    string
	Methods map[string]int // method name -> arity
}

// TraitInfo describes a trait: method signatures with arity and an
// optional default-implementation constant index.
type TraitInfo struct {
	Name    string
	Methods map[string]TraitMethod
}

type TraitMethod struct {
	Arity          int
	DefaultImplIdx int // -1 when the trait has no default body
}

// EnumVariant is one ordered variant of an EnumInfo: its name, its
// associated-field names (for struct-like variants), and an optional
// literal-value constant index.
type EnumVariant struct {
	Name           string
	AssociatedFields []string
	LiteralConstIdx int // -1 when absent
}

// EnumInfo describes an enum's ordered variant list.
type EnumInfo struct {
	Name     string
	Variants []EnumVariant
}

// Chunk is the immutable compiled artifact consumed by the VM.
type Chunk struct {
	Code      []byte
	Constants []values.Value
	Lines     []uint32 // parallel to Code: source line per code byte

	Types      map[string]*TypeInfo
	Interfaces map[string]*InterfaceInfo
	Traits     map[string]*TraitInfo
	Enums      map[string]*EnumInfo

	// Functions maps a name to an index into Constants holding a
	// KindFunction value.
	Functions map[string]int
}

func NewChunk() *Chunk {
	return &Chunk{
		Types:      make(map[string]*TypeInfo),
		Interfaces: make(map[string]*InterfaceInfo),
		Traits:     make(map[string]*TraitInfo),
		Enums:      make(map[string]*EnumInfo),
		Functions:  make(map[string]int),
	}
}

// LineAt resolves the source line for a code offset via the parallel line
// map, used for fault reporting and disassembly.
func (c *Chunk) LineAt(ip int) uint32 {
	if ip < 0 || ip >= len(c.Lines) {
		return 0
	}
	return c.Lines[ip]
}

// ResolveMethod walks TypeInfo.Parent looking up method in the type's (or
// an ancestor's) method table. Returns the owning type name and constant
// index. This is the non-cached slow path the VTable registry's inline
// cache falls back to on miss.
func (c *Chunk) ResolveMethod(typeName, method string) (ownerType string, constIdx int, ok bool) {
	for name := typeName; name != ""; {
		ti, exists := c.Types[name]
		if !exists {
			return "", 0, false
		}
		if idx, found := ti.Methods[method]; found {
			return name, idx, true
		}
		name = ti.Parent
	}
	return "", 0, false
}
