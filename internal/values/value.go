// Package values implements the tagged-union runtime value used by the
// interpreter: the uniform datum that flows through the operand stack,
// local slots, fields, and constant pool.
package values

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which alternative of the Value union is populated.
type Kind byte

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindChar
	KindString
	KindArray
	KindArraySlice
	KindMap
	KindSet
	KindRange
	KindIterator
	KindFunction
	KindStruct
	KindClass
	KindEnumValue
	KindTypeRef
	KindRuntimeTypeInfo
	KindChannel
	KindMutex
	KindWaitGroup
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindChar:
		return "char"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindArraySlice:
		return "array_slice"
	case KindMap:
		return "map"
	case KindSet:
		return "set"
	case KindRange:
		return "range"
	case KindIterator:
		return "iterator"
	case KindFunction:
		return "function"
	case KindStruct:
		return "struct"
	case KindClass:
		return "class"
	case KindEnumValue:
		return "enum_value"
	case KindTypeRef:
		return "type_ref"
	case KindRuntimeTypeInfo:
		return "runtime_type_info"
	case KindChannel:
		return "channel"
	case KindMutex:
		return "mutex"
	case KindWaitGroup:
		return "wait_group"
	default:
		return "unknown"
	}
}

// Value is the uniform runtime datum. Data holds the kind-specific payload;
// for shared heap objects (Array, Map, Set, Struct, Class, EnumValue,
// Channel, Mutex, WaitGroup) it is a pointer so clone-by-sharing falls out
// of ordinary Go struct assignment.
type Value struct {
	Kind Kind
	Data interface{}
}

// Array is the shared mutable sequence backing both "array" and the source
// of an "array_slice".
type Array struct {
	Elems []Value
}

// Slice is a source array plus a half-open [Start,End) window.
type Slice struct {
	Source *Array
	Start  int
	End    int
}

// Map is a shared mutable string-keyed dictionary. Keys is tracked
// separately to preserve insertion order.
type Map struct {
	entries map[string]Value
	order   []string
}

func NewMapData() *Map {
	return &Map{entries: make(map[string]Value)}
}

func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.entries[key]
	return v, ok
}

func (m *Map) Set(key string, v Value) {
	if _, exists := m.entries[key]; !exists {
		m.order = append(m.order, key)
	}
	m.entries[key] = v
}

func (m *Map) Remove(key string) bool {
	if _, ok := m.entries[key]; !ok {
		return false
	}
	delete(m.entries, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

func (m *Map) Len() int { return len(m.order) }

func (m *Map) Keys() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

func (m *Map) Clear() {
	m.entries = make(map[string]Value)
	m.order = nil
}

// Set is a shared mutable collection of unique Values, compared by
// equality semantics (see Equal below).
type SetData struct {
	elems []Value
}

func NewSetData() *SetData { return &SetData{} }

func (s *SetData) Add(v Value) bool {
	for _, e := range s.elems {
		if Equal(e, v) {
			return false
		}
	}
	s.elems = append(s.elems, v)
	return true
}

func (s *SetData) Contains(v Value) bool {
	for _, e := range s.elems {
		if Equal(e, v) {
			return true
		}
	}
	return false
}

func (s *SetData) Remove(v Value) bool {
	for i, e := range s.elems {
		if Equal(e, v) {
			s.elems = append(s.elems[:i], s.elems[i+1:]...)
			return true
		}
	}
	return false
}

func (s *SetData) Len() int      { return len(s.elems) }
func (s *SetData) Elems() []Value { return s.elems }

// Range is an i64 [Start,End] or [Start,End) window, optionally inclusive.
type Range struct {
	Start     int64
	End       int64
	Inclusive bool
}

// RangeIterator is the cursor produced by iterator-init over an array,
// range, map, or set.
type RangeIterator struct {
	Source Value
	Cursor int
}

// Function is an immutable bytecode entry point.
type Function struct {
	Name          string
	ChunkIndex    int
	Arity         int
	RequiredParams int
	Variadic      bool
	Defaults      []Value
}

// StructInstance is a named-tag, shared, mutable field map.
type StructInstance struct {
	Tag    string
	Fields *Map
}

// ClassInstance is a named-tag class instance with a parent tag recorded on
// its TypeInfo (see bytecode.TypeInfo), not duplicated here.
type ClassInstance struct {
	Tag    string
	Fields *Map
}

// EnumValue is an enum tag + variant tag + optional associated value +
// named fields (for struct-like variants).
type EnumValue struct {
	EnumTag    string
	Variant    string
	Associated *Value
	Fields     *Map
}

// TypeRef references a type by name, used as the receiver of static calls.
type TypeRef struct {
	Name string
}

// RuntimeTypeInfo is the reflective descriptor returned by type-info ops.
type RuntimeTypeInfo struct {
	Name       string
	Parent     string
	IsClass    bool
	IsAbstract bool
}

// Constructors -------------------------------------------------------------

func Null() Value               { return Value{Kind: KindNull} }
func Bool(b bool) Value         { return Value{Kind: KindBool, Data: b} }
func Int(i int64) Value         { return Value{Kind: KindInt, Data: i} }
func Float(f float64) Value     { return Value{Kind: KindFloat, Data: f} }
func Char(r rune) Value         { return Value{Kind: KindChar, Data: r} }
func Str(s string) Value        { return Value{Kind: KindString, Data: s} }

func NewArray(elems []Value) Value {
	return Value{Kind: KindArray, Data: &Array{Elems: elems}}
}

func NewArraySlice(src *Array, start, end int) Value {
	return Value{Kind: KindArraySlice, Data: &Slice{Source: src, Start: start, End: end}}
}

func NewMap(m *Map) Value { return Value{Kind: KindMap, Data: m} }
func NewSet(s *SetData) Value { return Value{Kind: KindSet, Data: s} }

func NewRange(start, end int64, inclusive bool) Value {
	return Value{Kind: KindRange, Data: &Range{Start: start, End: end, Inclusive: inclusive}}
}

func NewIterator(source Value) Value {
	return Value{Kind: KindIterator, Data: &RangeIterator{Source: source}}
}

func NewFunction(fn *Function) Value { return Value{Kind: KindFunction, Data: fn} }

func NewStruct(tag string) Value {
	return Value{Kind: KindStruct, Data: &StructInstance{Tag: tag, Fields: NewMapData()}}
}

func NewClass(tag string) Value {
	return Value{Kind: KindClass, Data: &ClassInstance{Tag: tag, Fields: NewMapData()}}
}

func NewEnumSimple(enumTag, variant string) Value {
	return Value{Kind: KindEnumValue, Data: &EnumValue{EnumTag: enumTag, Variant: variant}}
}

func NewEnumValue(enumTag, variant string, associated Value) Value {
	return Value{Kind: KindEnumValue, Data: &EnumValue{EnumTag: enumTag, Variant: variant, Associated: &associated}}
}

func NewEnumFields(enumTag, variant string, fields *Map) Value {
	return Value{Kind: KindEnumValue, Data: &EnumValue{EnumTag: enumTag, Variant: variant, Fields: fields}}
}

func NewTypeRef(name string) Value {
	return Value{Kind: KindTypeRef, Data: &TypeRef{Name: name}}
}

func NewRuntimeTypeInfo(info RuntimeTypeInfo) Value {
	return Value{Kind: KindRuntimeTypeInfo, Data: &info}
}

// Accessors ------------------------------------------------------------

func (v Value) IsNull() bool  { return v.Kind == KindNull }
func (v Value) AsBool() bool  { b, _ := v.Data.(bool); return b }
func (v Value) AsInt() int64  { i, _ := v.Data.(int64); return i }
func (v Value) AsFloat() float64 { f, _ := v.Data.(float64); return f }
func (v Value) AsChar() rune  { r, _ := v.Data.(rune); return r }
func (v Value) AsString() string { s, _ := v.Data.(string); return s }
func (v Value) AsArray() *Array  { a, _ := v.Data.(*Array); return a }
func (v Value) AsSlice() *Slice  { s, _ := v.Data.(*Slice); return s }
func (v Value) AsMap() *Map      { m, _ := v.Data.(*Map); return m }
func (v Value) AsSet() *SetData  { s, _ := v.Data.(*SetData); return s }
func (v Value) AsRange() *Range  { r, _ := v.Data.(*Range); return r }
func (v Value) AsIterator() *RangeIterator { it, _ := v.Data.(*RangeIterator); return it }
func (v Value) AsFunction() *Function { f, _ := v.Data.(*Function); return f }
func (v Value) AsStruct() *StructInstance { s, _ := v.Data.(*StructInstance); return s }
func (v Value) AsClass() *ClassInstance { c, _ := v.Data.(*ClassInstance); return c }
func (v Value) AsEnum() *EnumValue { e, _ := v.Data.(*EnumValue); return e }
func (v Value) AsTypeRef() *TypeRef { t, _ := v.Data.(*TypeRef); return t }

// Elements returns the logical element sequence of an array or array_slice,
// without copying the backing storage.
func (v Value) Elements() []Value {
	switch v.Kind {
	case KindArray:
		return v.AsArray().Elems
	case KindArraySlice:
		s := v.AsSlice()
		return s.Source.Elems[s.Start:s.End]
	default:
		return nil
	}
}

// TypeName returns the runtime type-introspection name for v.
func (v Value) TypeName() string {
	switch v.Kind {
	case KindStruct:
		return v.AsStruct().Tag
	case KindClass:
		return v.AsClass().Tag
	case KindEnumValue:
		return v.AsEnum().EnumTag
	default:
		return v.Kind.String()
	}
}

// Truthy implements the truthiness rule: null and false are falsy,
// everything else (including 0, "", []) is truthy.
func Truthy(v Value) bool {
	switch v.Kind {
	case KindNull:
		return false
	case KindBool:
		return v.AsBool()
	default:
		return true
	}
}

// Equal implements value equality for primitives/strings and reference
// equality for mutable containers.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		// int/float mixed equality is permitted numerically.
		if isNumeric(a.Kind) && isNumeric(b.Kind) {
			af, aok := numericFloat(a)
			bf, bok := numericFloat(b)
			return aok && bok && af == bf
		}
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBool:
		return a.AsBool() == b.AsBool()
	case KindInt:
		return a.AsInt() == b.AsInt()
	case KindFloat:
		return a.AsFloat() == b.AsFloat()
	case KindChar:
		return a.AsChar() == b.AsChar()
	case KindString:
		return a.AsString() == b.AsString()
	case KindRange:
		ra, rb := a.AsRange(), b.AsRange()
		return ra.Start == rb.Start && ra.End == rb.End && ra.Inclusive == rb.Inclusive
	case KindTypeRef:
		return a.AsTypeRef().Name == b.AsTypeRef().Name
	case KindEnumValue:
		ea, eb := a.AsEnum(), b.AsEnum()
		if ea.EnumTag != eb.EnumTag || ea.Variant != eb.Variant {
			return false
		}
		if ea.Associated == nil && eb.Associated == nil {
			return true
		}
		if ea.Associated == nil || eb.Associated == nil {
			return false
		}
		return Equal(*ea.Associated, *eb.Associated)
	default:
		// Mutable containers, functions, class/struct instances, channels,
		// mutexes, wait groups: reference equality on the shared pointer.
		return a.Data == b.Data
	}
}

func isNumeric(k Kind) bool { return k == KindInt || k == KindFloat }

func numericFloat(v Value) (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.AsInt()), true
	case KindFloat:
		return v.AsFloat(), true
	default:
		return 0, false
	}
}

// Compare implements ordered comparison for numerics and strings. ok is
// false for non-comparable kinds.
func Compare(a, b Value) (cmp int, ok bool) {
	if isNumeric(a.Kind) && isNumeric(b.Kind) {
		af, _ := numericFloat(a)
		bf, _ := numericFloat(b)
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	if a.Kind == KindString && b.Kind == KindString {
		return strings.Compare(a.AsString(), b.AsString()), true
	}
	return 0, false
}

// Clone returns a cheap clone: shared containers clone by sharing their
// pointer, primitives copy by value.
func Clone(v Value) Value { return v }

// Stringify renders v for diagnostics/println; it is the single formatter
// used everywhere a Value must become display text.
func Stringify(v Value) string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.AsBool())
	case KindInt:
		return strconv.FormatInt(v.AsInt(), 10)
	case KindFloat:
		return strconv.FormatFloat(v.AsFloat(), 'g', -1, 64)
	case KindChar:
		return string(v.AsChar())
	case KindString:
		return v.AsString()
	case KindArray, KindArraySlice:
		elems := v.Elements()
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = Stringify(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		m := v.AsMap()
		keys := m.Keys()
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			val, _ := m.Get(k)
			parts = append(parts, fmt.Sprintf("%s: %s", k, Stringify(val)))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindSet:
		s := v.AsSet()
		parts := make([]string, s.Len())
		for i, e := range s.Elems() {
			parts[i] = Stringify(e)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindRange:
		r := v.AsRange()
		sep := "..<"
		if r.Inclusive {
			sep = "..="
		}
		return fmt.Sprintf("%d%s%d", r.Start, sep, r.End)
	case KindFunction:
		fn := v.AsFunction()
		if fn.Name != "" {
			return fmt.Sprintf("<function %s>", fn.Name)
		}
		return "<function>"
	case KindStruct:
		return fmt.Sprintf("<struct %s>", v.AsStruct().Tag)
	case KindClass:
		return fmt.Sprintf("<%s instance>", v.AsClass().Tag)
	case KindEnumValue:
		e := v.AsEnum()
		return fmt.Sprintf("%s::%s", e.EnumTag, e.Variant)
	case KindTypeRef:
		return fmt.Sprintf("<type %s>", v.AsTypeRef().Name)
	case KindChannel:
		return "<channel>"
	case KindMutex:
		return "<mutex>"
	case KindWaitGroup:
		return "<wait_group>"
	default:
		return fmt.Sprintf("<%s>", v.Kind)
	}
}

// NaN is an alias of math.NaN for callers that build IEEE-754 NaN values.
var NaN = math.NaN
