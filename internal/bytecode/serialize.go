package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/wudi/corelang/internal/values"
)

// constant kind tags for the persisted constant-pool encoding.
const (
	tagNull byte = iota
	tagBool
	tagInt
	tagFloat
	tagString
	tagFunction
)

// Encode serializes a chunk's code, line map, and constant pool following
// a fixed layout: constants as kind-tag + payload (integers
// little-endian, strings UTF-8 with a u32 length prefix, functions as
// {chunk_offset:u32, arity:u16, required_params:u16, variadic:u8,
// defaults:[Value;*]}), then raw code bytes, then a parallel u32 line
// vector. Type/interface/trait/enum registries and the named-function
// table are out of scope for this on-wire form: they are reconstructed by
// the compiler-side emitter this VM does not implement.
func (c *Chunk) Encode() ([]byte, error) {
	var buf bytes.Buffer

	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(c.Constants))); err != nil {
		return nil, err
	}
	for _, v := range c.Constants {
		if err := encodeConstant(&buf, v); err != nil {
			return nil, err
		}
	}

	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(c.Code))); err != nil {
		return nil, err
	}
	buf.Write(c.Code)

	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(c.Lines))); err != nil {
		return nil, err
	}
	for _, l := range c.Lines {
		if err := binary.Write(&buf, binary.LittleEndian, l); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func encodeConstant(buf *bytes.Buffer, v values.Value) error {
	switch v.Kind {
	case values.KindNull:
		buf.WriteByte(tagNull)
	case values.KindBool:
		buf.WriteByte(tagBool)
		if v.AsBool() {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case values.KindInt:
		buf.WriteByte(tagInt)
		return binary.Write(buf, binary.LittleEndian, v.AsInt())
	case values.KindFloat:
		buf.WriteByte(tagFloat)
		return binary.Write(buf, binary.LittleEndian, v.AsFloat())
	case values.KindString:
		buf.WriteByte(tagString)
		s := v.AsString()
		if err := binary.Write(buf, binary.LittleEndian, uint32(len(s))); err != nil {
			return err
		}
		buf.WriteString(s)
	case values.KindFunction:
		buf.WriteByte(tagFunction)
		fn := v.AsFunction()
		if err := binary.Write(buf, binary.LittleEndian, uint32(fn.ChunkIndex)); err != nil {
			return err
		}
		if err := binary.Write(buf, binary.LittleEndian, uint16(fn.Arity)); err != nil {
			return err
		}
		if err := binary.Write(buf, binary.LittleEndian, uint16(fn.RequiredParams)); err != nil {
			return err
		}
		variadic := byte(0)
		if fn.Variadic {
			variadic = 1
		}
		buf.WriteByte(variadic)
		if err := binary.Write(buf, binary.LittleEndian, uint32(len(fn.Defaults))); err != nil {
			return err
		}
		for _, d := range fn.Defaults {
			if err := encodeConstant(buf, d); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("bytecode: constant kind %s is not persistable", v.Kind)
	}
	return nil
}

// Decode reverses Encode. The returned chunk's type/interface/trait/enum
// registries are empty maps; callers that need them populate the chunk
// separately (this VM treats that as the compiler's responsibility).
func Decode(data []byte) (*Chunk, error) {
	r := bytes.NewReader(data)
	c := NewChunk()

	var numConsts uint32
	if err := binary.Read(r, binary.LittleEndian, &numConsts); err != nil {
		return nil, err
	}
	c.Constants = make([]values.Value, numConsts)
	for i := range c.Constants {
		v, err := decodeConstant(r)
		if err != nil {
			return nil, err
		}
		c.Constants[i] = v
	}

	var codeLen uint32
	if err := binary.Read(r, binary.LittleEndian, &codeLen); err != nil {
		return nil, err
	}
	c.Code = make([]byte, codeLen)
	if _, err := r.Read(c.Code); err != nil {
		return nil, err
	}

	var numLines uint32
	if err := binary.Read(r, binary.LittleEndian, &numLines); err != nil {
		return nil, err
	}
	c.Lines = make([]uint32, numLines)
	for i := range c.Lines {
		if err := binary.Read(r, binary.LittleEndian, &c.Lines[i]); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func decodeConstant(r *bytes.Reader) (values.Value, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return values.Value{}, err
	}
	switch tag {
	case tagNull:
		return values.Null(), nil
	case tagBool:
		b, err := r.ReadByte()
		if err != nil {
			return values.Value{}, err
		}
		return values.Bool(b != 0), nil
	case tagInt:
		var i int64
		if err := binary.Read(r, binary.LittleEndian, &i); err != nil {
			return values.Value{}, err
		}
		return values.Int(i), nil
	case tagFloat:
		var f float64
		if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
			return values.Value{}, err
		}
		return values.Float(f), nil
	case tagString:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return values.Value{}, err
		}
		buf := make([]byte, n)
		if _, err := r.Read(buf); err != nil {
			return values.Value{}, err
		}
		return values.Str(string(buf)), nil
	case tagFunction:
		var chunkOffset uint32
		var arity, required uint16
		if err := binary.Read(r, binary.LittleEndian, &chunkOffset); err != nil {
			return values.Value{}, err
		}
		if err := binary.Read(r, binary.LittleEndian, &arity); err != nil {
			return values.Value{}, err
		}
		if err := binary.Read(r, binary.LittleEndian, &required); err != nil {
			return values.Value{}, err
		}
		variadicByte, err := r.ReadByte()
		if err != nil {
			return values.Value{}, err
		}
		var numDefaults uint32
		if err := binary.Read(r, binary.LittleEndian, &numDefaults); err != nil {
			return values.Value{}, err
		}
		defaults := make([]values.Value, numDefaults)
		for i := range defaults {
			d, err := decodeConstant(r)
			if err != nil {
				return values.Value{}, err
			}
			defaults[i] = d
		}
		return values.NewFunction(&values.Function{
			ChunkIndex:     int(chunkOffset),
			Arity:          int(arity),
			RequiredParams: int(required),
			Variadic:       variadicByte != 0,
			Defaults:       defaults,
		}), nil
	default:
		return values.Value{}, fmt.Errorf("bytecode: unknown constant tag %d", tag)
	}
}
