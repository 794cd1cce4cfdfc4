package cpu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
)

// MEMORY_SIZE is the number of words in the address space.
const MEMORY_SIZE = 1 << WORD_SIZE

// Cpu is the simulation context of an LC-3 processor and its memory.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Register [8]uint16           // General purpose registers.
	Pc       uint16              // Program counter.
	Cc       uint16              // Condition codes, one of CC_NEGATIVE, CC_ZERO or CC_POSITIVE once set.
	Memory   [MEMORY_SIZE]uint16 // Memory image.

	Trap    uint8     // Vector of the last TRAP executed.
	Ticks   int       // Instructions executed since reset.
	Monitor io.Writer // If set, receives the memory dump on TRAP.
}

// handler executes a decoded instruction.
type handler func(cpu *Cpu, code Code) error

// opcodeHandler is the dispatch table, indexed by opcode.
var opcodeHandler = [OP_COUNT]handler{
	OP_BR:   (*Cpu).execBr,
	OP_ADD:  (*Cpu).execAdd,
	OP_LD:   (*Cpu).execLd,
	OP_ST:   (*Cpu).execSt,
	OP_JSR:  (*Cpu).execJsr,
	OP_AND:  (*Cpu).execAnd,
	OP_LDR:  (*Cpu).execLdr,
	OP_STR:  (*Cpu).execStr,
	OP_RTI:  (*Cpu).execRti,
	OP_NOT:  (*Cpu).execNot,
	OP_LDI:  (*Cpu).execLdi,
	OP_STI:  (*Cpu).execSti,
	OP_JMP:  (*Cpu).execJmp,
	OP_RES:  (*Cpu).execRes,
	OP_LEA:  (*Cpu).execLea,
	OP_TRAP: (*Cpu).execTrap,
}

// NewCpu creates a new CPU with zeroed registers and memory.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{}
	return
}

// Reset clears the registers, condition codes and memory.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Register[:])
	clear(cpu.Memory[:])
	cpu.Pc = 0
	cpu.Cc = 0
	cpu.Trap = 0
	cpu.Ticks = 0
}

// Load writes a program image into memory, and sets the program counter
// to its start.
func (cpu *Cpu) Load(prog *Program) {
	for ip, code := range prog.Codes() {
		cpu.Memory[ip] = uint16(code)
	}
	cpu.Pc = prog.Start

	if cpu.Verbose {
		log.Printf("cpu: loaded, pc x%04X", cpu.Pc)
	}
}

// LoadWords writes a raw memory image from address 0.
func (cpu *Cpu) LoadWords(words []uint16) {
	copy(cpu.Memory[:], words)
}

// Tick executes a single fetch, decode and execute cycle.
func (cpu *Cpu) Tick() (err error) {
	code := Code(cpu.Memory[cpu.Pc])
	cpu.Pc++

	err = cpu.Execute(code)
	cpu.Ticks++

	return
}

// Execute executes a single decoded instruction. The program counter must
// already address the following word.
func (cpu *Cpu) Execute(code Code) (err error) {
	if cpu.Verbose {
		log.Printf("%04X: %v", cpu.Pc-1, code)
	}

	exec := opcodeHandler[code.Opcode()]
	if exec == nil {
		err = errors.Join(ErrOpcode(code), ErrOpcodeDecode)
		return
	}

	err = exec(cpu, code)
	if err != nil && !errors.Is(err, ErrHalt) {
		err = errors.Join(ErrOpcode(code), err)
	}

	return
}

// setCc sets the condition codes from the sign of value.
func (cpu *Cpu) setCc(value uint16) {
	switch {
	case value == 0:
		cpu.Cc = CC_ZERO
	case value&0x8000 != 0:
		cpu.Cc = CC_NEGATIVE
	default:
		cpu.Cc = CC_POSITIVE
	}
}

// setReg writes a register and updates the condition codes.
func (cpu *Cpu) setReg(reg int, value uint16) {
	cpu.Register[reg] = value
	cpu.setCc(value)
}

// pcRelative is the effective address of a PC relative offset.
func (cpu *Cpu) pcRelative(offset int16) uint16 {
	return cpu.Pc + uint16(offset)
}

func (cpu *Cpu) execBr(code Code) (err error) {
	if code.Cond()&cpu.Cc != 0 {
		cpu.Pc = cpu.pcRelative(code.PcOffset9())
	}
	return
}

func (cpu *Cpu) operand2(code Code) uint16 {
	if code.Immediate() {
		return uint16(code.Imm5())
	}
	return cpu.Register[code.Bits(0, 3)]
}

func (cpu *Cpu) execAdd(code Code) (err error) {
	cpu.setReg(code.Dest(), cpu.Register[code.Src()]+cpu.operand2(code))
	return
}

func (cpu *Cpu) execAnd(code Code) (err error) {
	cpu.setReg(code.Dest(), cpu.Register[code.Src()]&cpu.operand2(code))
	return
}

func (cpu *Cpu) execNot(code Code) (err error) {
	cpu.setReg(code.Dest(), ^cpu.Register[code.Src()])
	return
}

func (cpu *Cpu) execLd(code Code) (err error) {
	cpu.setReg(code.Dest(), cpu.Memory[cpu.pcRelative(code.PcOffset9())])
	return
}

func (cpu *Cpu) execLdi(code Code) (err error) {
	addr := cpu.Memory[cpu.pcRelative(code.PcOffset9())]
	cpu.setReg(code.Dest(), cpu.Memory[addr])
	return
}

func (cpu *Cpu) execLdr(code Code) (err error) {
	addr := cpu.Register[code.Src()] + uint16(code.Offset6())
	cpu.setReg(code.Dest(), cpu.Memory[addr])
	return
}

func (cpu *Cpu) execLea(code Code) (err error) {
	cpu.setReg(code.Dest(), cpu.pcRelative(code.PcOffset9()))
	return
}

func (cpu *Cpu) execSt(code Code) (err error) {
	cpu.Memory[cpu.pcRelative(code.PcOffset9())] = cpu.Register[code.Dest()]
	return
}

func (cpu *Cpu) execSti(code Code) (err error) {
	addr := cpu.Memory[cpu.pcRelative(code.PcOffset9())]
	cpu.Memory[addr] = cpu.Register[code.Dest()]
	return
}

func (cpu *Cpu) execStr(code Code) (err error) {
	addr := cpu.Register[code.Src()] + uint16(code.Offset6())
	cpu.Memory[addr] = cpu.Register[code.Dest()]
	return
}

func (cpu *Cpu) execJmp(code Code) (err error) {
	cpu.Pc = cpu.Register[code.Src()]
	return
}

// execRes treats the reserved opcode as a return through R7.
func (cpu *Cpu) execRes(code Code) (err error) {
	cpu.Pc = cpu.Register[7]
	return
}

func (cpu *Cpu) execJsr(code Code) (err error) {
	link := cpu.Pc
	if code.Bit(11) {
		cpu.Pc = cpu.pcRelative(code.PcOffset11())
	} else {
		cpu.Pc = cpu.Register[code.Src()]
	}
	cpu.Register[7] = link
	return
}

func (cpu *Cpu) execRti(code Code) (err error) {
	err = ErrUnimplemented
	return
}

func (cpu *Cpu) execTrap(code Code) (err error) {
	cpu.Trap = code.TrapVect8()

	if cpu.Verbose {
		log.Printf("cpu: trap x%02X", cpu.Trap)
	}

	if cpu.Monitor != nil {
		err = cpu.Dump(cpu.Monitor)
		if err != nil {
			return
		}
	}

	err = ErrHalt
	return
}

// String returns the register state as a string.
func (cpu *Cpu) String() (text string) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "% 3s: x%04X\n", "PC", cpu.Pc)
	fmt.Fprintf(&sb, "% 3s: %v\n", "CC", ccString(cpu.Cc))
	for n, value := range cpu.Register {
		fmt.Fprintf(&sb, "% 3s: x%04X\n", fmt.Sprintf("R%d", n), value)
	}

	text = sb.String()
	return
}

// ccString renders the condition codes as N, Z, P, or '-' when clear.
func ccString(cc uint16) string {
	switch cc {
	case CC_NEGATIVE:
		return "N"
	case CC_ZERO:
		return "Z"
	case CC_POSITIVE:
		return "P"
	}
	return "-"
}

// Dump writes the registers and the entire memory image, four words per
// row with binary and hexadecimal columns.
func (cpu *Cpu) Dump(w io.Writer) (err error) {
	out := bufio.NewWriter(w)

	fmt.Fprintln(out, "LC-3 Memory Dump")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Registers:")
	fmt.Fprintf(out, "PC: %016b x%04X\n", cpu.Pc, cpu.Pc)
	fmt.Fprintf(out, "CC: %03b %v\n", cpu.Cc, ccString(cpu.Cc))
	for n, value := range cpu.Register {
		fmt.Fprintf(out, "R%d: %016b x%04X\n", n, value, value)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Memory:")

	for row := 0; row < MEMORY_SIZE; row += 4 {
		words := cpu.Memory[row : row+4]
		fmt.Fprintf(out, "%04X: %016b %016b %016b %016b -- %04X %04X %04X %04X\n",
			row,
			words[0], words[1], words[2], words[3],
			words[0], words[1], words[2], words[3])
	}

	err = out.Flush()
	return
}
