package bytecode

import (
	"encoding/json"
	"fmt"

	"github.com/wudi/corelang/internal/values"
)

// artifact is the on-disk JSON shape a chunk.json file carries: code,
// line map, type registries, and a constant pool restricted to the
// literal kinds the compiler-side emitter would ever produce as a
// constant (null, bool, int, float, string, function) — everything else
// (array, map, struct, class, ...) only ever comes into existence at
// runtime via the corresponding New* opcode. This stands in for the
// binary wire form Encode/Decode implement.
type artifact struct {
	Constants  []constantJSON            `json:"constants"`
	Code       []byte                    `json:"code"`
	Lines      []uint32                  `json:"lines"`
	Types      map[string]*TypeInfo      `json:"types,omitempty"`
	Interfaces map[string]*InterfaceInfo `json:"interfaces,omitempty"`
	Traits     map[string]*TraitInfo     `json:"traits,omitempty"`
	Enums      map[string]*EnumInfo      `json:"enums,omitempty"`
	Functions  map[string]int            `json:"functions,omitempty"`
}

type constantJSON struct {
	Kind     string        `json:"kind"`
	Bool     *bool         `json:"bool,omitempty"`
	Int      *int64        `json:"int,omitempty"`
	Float    *float64      `json:"float,omitempty"`
	String   *string       `json:"string,omitempty"`
	Function *functionJSON `json:"function,omitempty"`
}

type functionJSON struct {
	Name           string         `json:"name"`
	ChunkIndex     int            `json:"chunk_index"`
	Arity          int            `json:"arity"`
	RequiredParams int            `json:"required_params"`
	Variadic       bool           `json:"variadic"`
	Defaults       []constantJSON `json:"defaults,omitempty"`
}

func toConstantJSON(v values.Value) (constantJSON, error) {
	switch v.Kind {
	case values.KindNull:
		return constantJSON{Kind: "null"}, nil
	case values.KindBool:
		b := v.AsBool()
		return constantJSON{Kind: "bool", Bool: &b}, nil
	case values.KindInt:
		i := v.AsInt()
		return constantJSON{Kind: "int", Int: &i}, nil
	case values.KindFloat:
		f := v.AsFloat()
		return constantJSON{Kind: "float", Float: &f}, nil
	case values.KindString:
		s := v.AsString()
		return constantJSON{Kind: "string", String: &s}, nil
	case values.KindFunction:
		fn := v.AsFunction()
		defaults := make([]constantJSON, len(fn.Defaults))
		for i, d := range fn.Defaults {
			dj, err := toConstantJSON(d)
			if err != nil {
				return constantJSON{}, err
			}
			defaults[i] = dj
		}
		return constantJSON{Kind: "function", Function: &functionJSON{
			Name:           fn.Name,
			ChunkIndex:     fn.ChunkIndex,
			Arity:          fn.Arity,
			RequiredParams: fn.RequiredParams,
			Variadic:       fn.Variadic,
			Defaults:       defaults,
		}}, nil
	default:
		return constantJSON{}, fmt.Errorf("bytecode: constant kind %s is not a valid chunk-artifact literal", v.Kind)
	}
}

func fromConstantJSON(cj constantJSON) (values.Value, error) {
	switch cj.Kind {
	case "null":
		return values.Null(), nil
	case "bool":
		if cj.Bool == nil {
			return values.Value{}, fmt.Errorf("bytecode: bool constant missing value")
		}
		return values.Bool(*cj.Bool), nil
	case "int":
		if cj.Int == nil {
			return values.Value{}, fmt.Errorf("bytecode: int constant missing value")
		}
		return values.Int(*cj.Int), nil
	case "float":
		if cj.Float == nil {
			return values.Value{}, fmt.Errorf("bytecode: float constant missing value")
		}
		return values.Float(*cj.Float), nil
	case "string":
		if cj.String == nil {
			return values.Value{}, fmt.Errorf("bytecode: string constant missing value")
		}
		return values.Str(*cj.String), nil
	case "function":
		if cj.Function == nil {
			return values.Value{}, fmt.Errorf("bytecode: function constant missing body")
		}
		defaults := make([]values.Value, len(cj.Function.Defaults))
		for i, dj := range cj.Function.Defaults {
			d, err := fromConstantJSON(dj)
			if err != nil {
				return values.Value{}, err
			}
			defaults[i] = d
		}
		return values.NewFunction(&values.Function{
			Name:           cj.Function.Name,
			ChunkIndex:     cj.Function.ChunkIndex,
			Arity:          cj.Function.Arity,
			RequiredParams: cj.Function.RequiredParams,
			Variadic:       cj.Function.Variadic,
			Defaults:       defaults,
		}), nil
	default:
		return values.Value{}, fmt.Errorf("bytecode: unknown constant kind %q", cj.Kind)
	}
}

// EncodeJSON renders the chunk as the JSON artifact corevm's run/disasm
// subcommands load.
func (c *Chunk) EncodeJSON() ([]byte, error) {
	a := artifact{
		Code:       c.Code,
		Lines:      c.Lines,
		Types:      c.Types,
		Interfaces: c.Interfaces,
		Traits:     c.Traits,
		Enums:      c.Enums,
		Functions:  c.Functions,
	}
	a.Constants = make([]constantJSON, len(c.Constants))
	for i, v := range c.Constants {
		cj, err := toConstantJSON(v)
		if err != nil {
			return nil, err
		}
		a.Constants[i] = cj
	}
	return json.MarshalIndent(a, "", "  ")
}

// DecodeJSON reverses EncodeJSON.
func DecodeJSON(data []byte) (*Chunk, error) {
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	c := NewChunk()
	c.Code = a.Code
	c.Lines = a.Lines
	if a.Types != nil {
		c.Types = a.Types
	}
	if a.Interfaces != nil {
		c.Interfaces = a.Interfaces
	}
	if a.Traits != nil {
		c.Traits = a.Traits
	}
	if a.Enums != nil {
		c.Enums = a.Enums
	}
	if a.Functions != nil {
		c.Functions = a.Functions
	}
	c.Constants = make([]values.Value, len(a.Constants))
	for i, cj := range a.Constants {
		v, err := fromConstantJSON(cj)
		if err != nil {
			return nil, err
		}
		c.Constants[i] = v
	}
	return c, nil
}
