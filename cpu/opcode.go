package cpu

import (
	"fmt"
)

// Word geometry.
const (
	WORD_SIZE     = 16 // Bits in a word.
	OPCODE_SIZE   = 4  // Bits in the opcode field.
	REGISTER_SIZE = 3  // Bits in a register field.
)

// Opcode is the 4-bit operation selector in the top of an instruction word.
type Opcode int

//go:generate go tool stringer -linecomment -type=Opcode
const (
	OP_BR   = Opcode(0b0000) // BR
	OP_ADD  = Opcode(0b0001) // ADD
	OP_LD   = Opcode(0b0010) // LD
	OP_ST   = Opcode(0b0011) // ST
	OP_JSR  = Opcode(0b0100) // JSR
	OP_AND  = Opcode(0b0101) // AND
	OP_LDR  = Opcode(0b0110) // LDR
	OP_STR  = Opcode(0b0111) // STR
	OP_RTI  = Opcode(0b1000) // RTI
	OP_NOT  = Opcode(0b1001) // NOT
	OP_LDI  = Opcode(0b1010) // LDI
	OP_STI  = Opcode(0b1011) // STI
	OP_JMP  = Opcode(0b1100) // JMP
	OP_RES  = Opcode(0b1101) // RES
	OP_LEA  = Opcode(0b1110) // LEA
	OP_TRAP = Opcode(0b1111) // TRAP

	OP_COUNT = 16
)

// Condition code flags, as held in the CC register and in the BR
// instruction's N/Z/P field.
const (
	CC_POSITIVE = uint16(0b001)
	CC_ZERO     = uint16(0b010)
	CC_NEGATIVE = uint16(0b100)
)

// Code is a single immutable 16-bit instruction word.
type Code uint16

// Opcode returns the top 4 bits.
func (code Code) Opcode() Opcode {
	return Opcode(uint16(code) >> (WORD_SIZE - OPCODE_SIZE))
}

// Dest returns the destination (or store source) register, bits [11:9].
func (code Code) Dest() int {
	return int((uint16(code) >> (WORD_SIZE - OPCODE_SIZE - REGISTER_SIZE)) & 0x7)
}

// Src returns the source (or base) register, bits [8:6].
func (code Code) Src() int {
	return int((uint16(code) >> (WORD_SIZE - OPCODE_SIZE - REGISTER_SIZE*2)) & 0x7)
}

// Bits returns length bits starting at bit start.
func (code Code) Bits(start, length uint) uint16 {
	return (uint16(code) >> start) & uint16((1<<length)-1)
}

// Bit reports whether bit index is set.
func (code Code) Bit(index uint) bool {
	return (uint16(code)>>index)&1 == 1
}

// Cond returns the N/Z/P request bits of a BR instruction.
func (code Code) Cond() uint16 {
	return code.Bits(9, 3)
}

// Immediate reports whether an ADD/AND uses its 5-bit immediate form.
func (code Code) Immediate() bool {
	return code.Bit(5)
}

// Imm5 is the sign-extended immediate of ADD/AND.
func (code Code) Imm5() int16 {
	return UnsignedToSigned(code.Bits(0, 5), 5)
}

// Offset6 is the sign-extended base offset of LDR/STR.
func (code Code) Offset6() int16 {
	return UnsignedToSigned(code.Bits(0, 6), 6)
}

// PcOffset9 is the sign-extended PC offset of BR/LD/LDI/LEA/ST/STI.
func (code Code) PcOffset9() int16 {
	return UnsignedToSigned(code.Bits(0, 9), 9)
}

// PcOffset11 is the sign-extended PC offset of JSR.
func (code Code) PcOffset11() int16 {
	return UnsignedToSigned(code.Bits(0, 11), 11)
}

// TrapVect8 is the TRAP service vector.
func (code Code) TrapVect8() uint8 {
	return uint8(code.Bits(0, 8))
}

// UnsignedToSigned interprets the low bits of value as a two's complement
// number of the given width.
func UnsignedToSigned(value uint16, bits uint) int16 {
	mask := uint32(1)<<bits - 1
	v := uint32(value) & mask
	if v&(uint32(1)<<(bits-1)) != 0 {
		return int16(-int32((^v + 1) & mask))
	}
	return int16(v)
}

// SignExtend widens a field of the given width to a 16-bit word.
func SignExtend(value uint16, bits uint) uint16 {
	return uint16(UnsignedToSigned(value, bits))
}

func condString(nzp uint16) (text string) {
	if nzp&CC_NEGATIVE != 0 {
		text += "N"
	}
	if nzp&CC_ZERO != 0 {
		text += "Z"
	}
	if nzp&CC_POSITIVE != 0 {
		text += "P"
	}
	return
}

func immString(value int16) string {
	if value < 0 {
		return fmt.Sprintf("#%d", value)
	}
	return fmt.Sprintf("#$%X", value)
}

// String disassembles the word. Output assembles back to the same word.
func (code Code) String() string {
	op := code.Opcode()
	switch op {
	case OP_ADD, OP_AND:
		if code.Immediate() {
			return fmt.Sprintf("%v R%d,R%d,%v", op, code.Dest(), code.Src(), immString(code.Imm5()))
		}
		return fmt.Sprintf("%v R%d,R%d,R%d", op, code.Dest(), code.Src(), code.Bits(0, 3))
	case OP_BR:
		if code.Cond() == 0 {
			break
		}
		return fmt.Sprintf("BR%v %v", condString(code.Cond()), immString(code.PcOffset9()))
	case OP_LD, OP_LDI, OP_LEA, OP_ST, OP_STI:
		return fmt.Sprintf("%v R%d,%v", op, code.Dest(), immString(code.PcOffset9()))
	case OP_LDR, OP_STR:
		return fmt.Sprintf("%v R%d,R%d,%v", op, code.Dest(), code.Src(), immString(code.Offset6()))
	case OP_JSR:
		if code.Bit(11) {
			return fmt.Sprintf("JSR %v", immString(code.PcOffset11()))
		}
		return fmt.Sprintf("JSRR R%d", code.Src())
	case OP_JMP:
		if code.Src() == 7 {
			return "RET"
		}
		return fmt.Sprintf("JMP R%d", code.Src())
	case OP_NOT:
		return fmt.Sprintf("NOT R%d,R%d", code.Dest(), code.Src())
	case OP_TRAP:
		return fmt.Sprintf("TRAP x%02X", code.TrapVect8())
	case OP_RTI:
		return "RTI"
	}

	return fmt.Sprintf(".FILL #$%04X", uint16(code))
}
