package bytecode

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// operand identifies one operand's width/role in an instruction's fixed
// encoding, used only by the disassembler (the interpreter's own decode
// loop in package vm reads operands directly and does not consult this
// table).
type operand int

const (
	opNone operand = iota
	opU8
	opI8
	opU16
	opU16U8   // e.g. new_class: type const idx, arg count
	opU16U16  // e.g. invoke_super's type+method idx pair, load_locals2
	opU16I8   // e.g. get_local_add_int: slot, immediate
	opU16U16U16
	opU16I8U16 // jump_if_local_{le,lt}_const: slot, imm, offset
)

var operandLayout = map[Op]operand{
	OpConst: opU16, OpPushSmallInt: opI8,
	OpGetLocal: opU16, OpSetLocal: opU16,
	OpGetUpvalue: opU16, OpSetUpvalue: opU16, OpCloseUpvalue: opU16,
	OpJump: opU16, OpJumpIfFalse: opU16, OpJumpIfTrue: opU16, OpLoop: opU16, OpJumpIfFalsePop: opU16,
	OpNewArray: opU16, OpNewMap: opU16, OpNewSet: opU16,
	OpNewStruct: opU16, OpGetField: opU16, OpSetField: opU16,
	OpSafeGetField: opU16, OpNonNullGetField: opU16,
	OpNewClass: opU16U8, OpInvokeMethod: opU16U8, OpSafeInvokeMethod: opU16U8, OpNonNullInvokeMethod: opU16U8,
	OpGetStatic: opU16, OpSetStatic: opU16, OpInvokeStatic: opU16U8,
	OpInvokeSuper: opU16U16U16, // type idx, method idx, then u8 arg count (see below)
	OpCall: opU8, OpTailCall: opU8,
	OpSetupTry: opU16,
	OpGoSpawn: opU8, OpChannelNew: opU16,
	OpNewEnumSimple: opU16U16, OpNewEnumValue: opU16U16, OpNewEnumFields: opU16U16U16,
	OpEnumGetField: opU16, OpEnumMatch: opU16,
	OpGetLocalAddInt: opU16I8, OpGetLocalSubInt: opU16I8, OpGetLocalLeInt: opU16I8,
	OpAddLocals: opU16U16, OpSubLocals: opU16U16, OpLoadLocals2: opU16U16,
	OpJumpIfLocalLeConst: opU16I8U16, OpJumpIfLocalLtConst: opU16I8U16,
	OpReturnLocal: opU16, OpReturnInt: opI8,
}

// Disassemble renders a linear, one-instruction-per-line listing of the
// chunk's code: offset, opcode mnemonic, decoded operands, and source
// line.
func Disassemble(c *Chunk) []string {
	var lines []string
	ip := 0
	for ip < len(c.Code) {
		op := Op(c.Code[ip])
		start := ip
		ip++

		var operandsStr string
		switch operandLayout[op] {
		case opU8:
			operandsStr = fmt.Sprintf("%d", c.Code[ip])
			ip++
		case opI8:
			operandsStr = fmt.Sprintf("%d", int8(c.Code[ip]))
			ip++
		case opU16:
			operandsStr = fmt.Sprintf("#%d", binary.BigEndian.Uint16(c.Code[ip:ip+2]))
			ip += 2
		case opU16U8:
			a := binary.BigEndian.Uint16(c.Code[ip : ip+2])
			ip += 2
			b := c.Code[ip]
			ip++
			operandsStr = fmt.Sprintf("#%d, %d", a, b)
		case opU16U16:
			a := binary.BigEndian.Uint16(c.Code[ip : ip+2])
			ip += 2
			b := binary.BigEndian.Uint16(c.Code[ip : ip+2])
			ip += 2
			operandsStr = fmt.Sprintf("#%d, #%d", a, b)
		case opU16I8:
			a := binary.BigEndian.Uint16(c.Code[ip : ip+2])
			ip += 2
			b := int8(c.Code[ip])
			ip++
			operandsStr = fmt.Sprintf("#%d, %d", a, b)
		case opU16U16U16:
			a := binary.BigEndian.Uint16(c.Code[ip : ip+2])
			ip += 2
			b := binary.BigEndian.Uint16(c.Code[ip : ip+2])
			ip += 2
			// invoke_super's third field is a u8 arg count, not u16; enum
			// opcodes' third field is genuinely u16 (field count).
			if op == OpInvokeSuper {
				c3 := c.Code[ip]
				ip++
				operandsStr = fmt.Sprintf("#%d, #%d, %d", a, b, c3)
			} else {
				c3 := binary.BigEndian.Uint16(c.Code[ip : ip+2])
				ip += 2
				operandsStr = fmt.Sprintf("#%d, #%d, #%d", a, b, c3)
			}
		case opU16I8U16:
			a := binary.BigEndian.Uint16(c.Code[ip : ip+2])
			ip += 2
			b := int8(c.Code[ip])
			ip++
			d := binary.BigEndian.Uint16(c.Code[ip : ip+2])
			ip += 2
			operandsStr = fmt.Sprintf("#%d, %d, ->%d", a, b, ip+int(d))
		}

		line := c.LineAt(start)
		mnemonic := op.String()
		if operandsStr != "" {
			lines = append(lines, fmt.Sprintf("%04d  %-24s %-16s ; line %d", start, mnemonic, operandsStr, line))
		} else {
			lines = append(lines, fmt.Sprintf("%04d  %-24s %-16s ; line %d", start, mnemonic, "", line))
		}
	}
	return lines
}

// DisassembleString is a convenience wrapper joining Disassemble's lines.
func DisassembleString(c *Chunk) string {
	return strings.Join(Disassemble(c), "\n")
}
