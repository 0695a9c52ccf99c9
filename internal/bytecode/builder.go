package bytecode

import (
	"encoding/binary"

	"github.com/wudi/corelang/internal/values"
)

// Builder incrementally assembles a Chunk's code stream, used by tests and
// by any external compiler integrating against this VM. It is not part of
// the VM's own execution path.
type Builder struct {
	chunk *Chunk
	line  uint32
}

func NewBuilder() *Builder {
	return &Builder{chunk: NewChunk()}
}

// SetLine sets the source line attributed to subsequently emitted bytes.
func (b *Builder) SetLine(line uint32) { b.line = line }

func (b *Builder) emitByte(by byte) {
	b.chunk.Code = append(b.chunk.Code, by)
	b.chunk.Lines = append(b.chunk.Lines, b.line)
}

func (b *Builder) emitU16(v uint16) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	b.emitByte(buf[0])
	b.emitByte(buf[1])
}

func (b *Builder) emitI8(v int8) { b.emitByte(byte(v)) }
func (b *Builder) emitU8(v uint8) { b.emitByte(v) }

// Op emits a bare opcode with no operands.
func (b *Builder) Op(op Op) int {
	pos := len(b.chunk.Code)
	b.emitByte(byte(op))
	return pos
}

// OpU16 emits an opcode followed by a 16-bit big-endian operand.
func (b *Builder) OpU16(op Op, operand uint16) int {
	pos := len(b.chunk.Code)
	b.emitByte(byte(op))
	b.emitU16(operand)
	return pos
}

// OpU8 emits an opcode followed by an 8-bit operand (e.g. arg counts).
func (b *Builder) OpU8(op Op, operand uint8) int {
	pos := len(b.chunk.Code)
	b.emitByte(byte(op))
	b.emitU8(operand)
	return pos
}

// OpI8 emits an opcode followed by a signed 8-bit immediate.
func (b *Builder) OpI8(op Op, operand int8) int {
	pos := len(b.chunk.Code)
	b.emitByte(byte(op))
	b.emitI8(operand)
	return pos
}

// OpU16U16 emits an opcode followed by two 16-bit operands (e.g.
// fused super-instructions over two local slots).
func (b *Builder) OpU16U16(op Op, a, c uint16) int {
	pos := len(b.chunk.Code)
	b.emitByte(byte(op))
	b.emitU16(a)
	b.emitU16(c)
	return pos
}

// OpU16U8 emits an opcode followed by a 16-bit operand (e.g. a constant
// index) and an 8-bit operand (e.g. an argument count), matching
// new_class/invoke_method's encoding.
func (b *Builder) OpU16U8(op Op, u16operand uint16, u8operand uint8) int {
	pos := len(b.chunk.Code)
	b.emitByte(byte(op))
	b.emitU16(u16operand)
	b.emitU8(u8operand)
	return pos
}

// AddConstant interns v and returns its constant-pool index.
func (b *Builder) AddConstant(v values.Value) uint16 {
	b.chunk.Constants = append(b.chunk.Constants, v)
	return uint16(len(b.chunk.Constants) - 1)
}

// PatchU16 overwrites the 16-bit operand at byte offset pos+1 (immediately
// after the opcode byte at pos), used to back-patch forward jump offsets
// once the jump target is known.
func (b *Builder) PatchU16(pos int, operand uint16) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], operand)
	b.chunk.Code[pos+1] = buf[0]
	b.chunk.Code[pos+2] = buf[1]
}

// Here returns the current code length, useful for computing jump offsets.
func (b *Builder) Here() int { return len(b.chunk.Code) }

func (b *Builder) Chunk() *Chunk { return b.chunk }
