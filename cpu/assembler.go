// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"errors"
	"io"
	"log"
	"strconv"
	"strings"
)

// Assembler is a two pass assembler for the LC-3 instruction set.
//
// The first pass resolves labels to addresses and rewrites label operands
// as PC-relative immediates; the second pass encodes each statement.
type Assembler struct {
	Verbose bool              // If set, verbosely logs the assembler actions.
	Label   map[string]uint16 // Symbol table of the last assembly.
	Warning []error           // Non-fatal diagnostics of the last assembly.

	predefine map[string]int // Predefines for $(...) expressions.

	lineNo int    // Line being assembled, for diagnostics.
	line   string // Text of the line being assembled.
	ip     uint16 // Emission address.
	origin bool   // Set once the program start is known.
}

// Predefine defines a new constant for $(...) expressions, or redefines an
// existing one.
func (asm *Assembler) Predefine(name string, value int) {
	if asm.predefine == nil {
		asm.predefine = map[string]int{name: value}
	} else {
		asm.predefine[name] = value
	}
}

// warn records a non-fatal diagnostic against the current line.
func (asm *Assembler) warn(err error) {
	err = ErrSyntax{LineNo: asm.lineNo, Line: asm.line, Err: err}
	if asm.Verbose {
		log.Printf("warning: %v", err)
	}
	asm.Warning = append(asm.Warning, err)
}

// Parse assembles source text read from input.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var text []string
	for scanner.Scan() {
		text = append(text, scanner.Text())
	}
	err = scanner.Err()
	if err != nil {
		return
	}

	prog, err = asm.Assemble(text)
	return
}

// Assemble translates source lines into a program image.
//
// Every failing statement is reported; if any fail, no program is
// returned. Warnings are left in asm.Warning.
func (asm *Assembler) Assemble(text []string) (prog *Program, err error) {
	asm.Label = nil
	asm.Warning = nil
	asm.ip = 0
	asm.origin = false

	lines := RemoveEmptyLines(StripComments(ReadLines(text)))

	labels, err := asm.ResolveLabels(lines)
	if err != nil {
		err = errors.Join(ErrLabels, err)
		return
	}
	asm.Label = labels

	lines, err = asm.SubstituteLabels(lines, labels)
	if err != nil {
		return
	}

	lines = StripLabels(lines)

	program := &Program{
		Label: labels,
	}

	var errs []error
	for _, line := range lines {
		asm.lineNo, asm.line = line.LineNo, line.Text

		if asm.Verbose {
			log.Printf("%v: %v", line.LineNo, strings.TrimSpace(line.Text))
		}

		done, lerr := asm.parseLine(program, line)
		if lerr != nil {
			errs = append(errs, ErrSyntax{LineNo: line.LineNo, Line: line.Text, Err: lerr})
		}
		if done {
			break
		}
	}

	if len(errs) > 0 {
		err = errors.Join(errs...)
		return
	}

	prog = program
	return
}

// parseLine encodes a single statement into the program. Done is set by
// '.END'.
func (asm *Assembler) parseLine(prog *Program, line Line) (done bool, err error) {
	body := strings.TrimSpace(line.Text)
	if len(body) == 0 {
		return
	}

	word, rest := splitMnemonic(body)
	mn, nzp, err := parseMnemonic(word)
	if err != nil {
		return
	}

	var codes []Code

	switch mn {
	case MN_INVALID:
		err = ErrInstructionInvalid
		return
	case MN_LOC:
		var ip uint16
		ip, err = parseLoc(body)
		if err != nil {
			return
		}
		asm.setOrigin(prog, ip)
		return
	case MN_STRINGZ:
		codes, err = asm.parseString(strings.TrimSpace(rest))
	default:
		args := strings.FieldsFunc(rest, isDelimiter)
		if mn == MN_ORIG {
			var ip uint16
			ip, err = asm.parseOrigin(word, args)
			if err != nil {
				return
			}
			asm.setOrigin(prog, ip)
			return
		}
		if mn == MN_END {
			err = arity(word, args, 0)
			done = true
			return
		}
		codes, err = asm.encode(mn, nzp, word, args)
	}
	if err != nil {
		return
	}

	if int(asm.ip)+len(codes) > MEMORY_SIZE {
		err = ErrMemoryOverflow
		return
	}

	if !asm.origin {
		asm.setOrigin(prog, asm.ip)
	}

	prog.Statements = append(prog.Statements, Statement{
		LineNo: line.LineNo,
		Ip:     asm.ip,
		Words:  append([]string{word}, strings.FieldsFunc(rest, isDelimiter)...),
		Codes:  codes,
	})

	asm.ip += uint16(len(codes))

	return
}

// setOrigin moves the emission address. The first move sets the program
// start.
func (asm *Assembler) setOrigin(prog *Program, ip uint16) {
	if !asm.origin {
		prog.Start = ip
		asm.origin = true
	}
	asm.ip = ip
}

// arity checks the operand count of a statement.
func arity(word string, args []string, want int) (err error) {
	if len(args) != want {
		err = ErrArity{Mnemonic: word, Want: want, Have: len(args)}
	}
	return
}

func (asm *Assembler) parseOrigin(word string, args []string) (ip uint16, err error) {
	err = arity(word, args, 1)
	if err != nil {
		return
	}

	ip, err = asm.parseNumber(args[0], 16)
	return
}

// parseString encodes a .STRINGZ literal, one character per word, with a
// terminating zero word.
func (asm *Assembler) parseString(literal string) (codes []Code, err error) {
	if len(literal) == 0 {
		err = ErrArity{Mnemonic: ".STRINGZ", Want: 1, Have: 0}
		return
	}

	if literal[0] == '"' {
		literal, err = strconv.Unquote(literal)
		if err != nil {
			err = ErrStringInvalid
			return
		}
	}

	for _, r := range literal {
		codes = append(codes, Code(r))
	}
	codes = append(codes, 0)

	return
}

// parseOperand decodes a register, or a numeric immediate of the given
// width.
func (asm *Assembler) parseOperand(word string, bits uint) (value uint16, isReg bool, err error) {
	if isRegister(word) {
		value, err = parseRegister(word)
		isReg = true
		return
	}

	value, err = asm.parseNumber(word, bits)
	return
}

// parseTrapVector decodes a TRAP vector. '#', '$', 'x' and 'X' prefixes
// are all accepted, and the digits are always hexadecimal.
func (asm *Assembler) parseTrapVector(word string) (vector uint16, err error) {
	digits := strings.TrimPrefix(word, "#")
	for _, prefix := range []string{"$", "x", "X"} {
		if trimmed, ok := strings.CutPrefix(digits, prefix); ok {
			digits = trimmed
			break
		}
	}

	if len(digits) == 0 {
		err = ErrParseNumber(word)
		return
	}

	vector, err = asm.parseNumber("#$"+digits, 8)
	return
}

// encode assembles an instruction, .FILL or .BLKW statement.
func (asm *Assembler) encode(mn Mnemonic, nzp uint16, word string, args []string) (codes []Code, err error) {
	var want int
	switch mn {
	case MN_RET, MN_RTI, MN_GETC, MN_OUT, MN_PUTS, MN_IN, MN_PUTSP, MN_HALT:
		want = 0
	case MN_BR, MN_JMP, MN_JSR, MN_JSRR, MN_TRAP, MN_FILL, MN_BLKW:
		want = 1
	case MN_LD, MN_LDI, MN_LEA, MN_ST, MN_STI, MN_NOT:
		want = 2
	case MN_ADD, MN_AND, MN_LDR, MN_STR:
		want = 3
	default:
		err = ErrInstructionInvalid
		return
	}

	err = arity(word, args, want)
	if err != nil {
		return
	}

	// Registers decoded from each operand position.
	reg := func(n int) (r uint16) {
		if err == nil {
			r, err = parseRegister(args[n])
		}
		return
	}
	// Immediates decoded from each operand position.
	imm := func(n int, bits uint) (v uint16) {
		if err == nil {
			v, err = asm.parseNumber(args[n], bits)
		}
		return
	}

	var code uint16

	switch mn {
	case MN_ADD, MN_AND:
		code = uint16(OP_ADD) << 12
		if mn == MN_AND {
			code = uint16(OP_AND) << 12
		}
		code |= reg(0)<<9 | reg(1)<<6
		if err != nil {
			return
		}
		var value uint16
		var isReg bool
		value, isReg, err = asm.parseOperand(args[2], 5)
		if !isReg {
			value |= 0x20
		}
		code |= value
	case MN_BR:
		code = nzp<<9 | imm(0, 9)
	case MN_LD, MN_LDI, MN_LEA, MN_ST, MN_STI:
		op := map[Mnemonic]Opcode{
			MN_LD:  OP_LD,
			MN_LDI: OP_LDI,
			MN_LEA: OP_LEA,
			MN_ST:  OP_ST,
			MN_STI: OP_STI,
		}[mn]
		code = uint16(op)<<12 | reg(0)<<9 | imm(1, 9)
	case MN_LDR, MN_STR:
		op := OP_LDR
		if mn == MN_STR {
			op = OP_STR
		}
		code = uint16(op)<<12 | reg(0)<<9 | reg(1)<<6 | imm(2, 6)
	case MN_JSR:
		code = uint16(OP_JSR)<<12 | 0x0800 | imm(0, 11)
	case MN_JSRR:
		code = uint16(OP_JSR)<<12 | reg(0)<<6
	case MN_JMP:
		code = uint16(OP_JMP)<<12 | reg(0)<<6
	case MN_RET:
		code = uint16(OP_JMP)<<12 | 7<<6
	case MN_NOT:
		code = uint16(OP_NOT)<<12 | reg(0)<<9 | reg(1)<<6 | 0x3f
	case MN_RTI:
		code = uint16(OP_RTI) << 12
	case MN_TRAP:
		var vector uint16
		vector, err = asm.parseTrapVector(args[0])
		code = uint16(OP_TRAP)<<12 | vector
	case MN_GETC, MN_OUT, MN_PUTS, MN_IN, MN_PUTSP, MN_HALT:
		code = uint16(OP_TRAP)<<12 | trapAlias[mn]
	case MN_FILL:
		code = imm(0, 16)
	case MN_BLKW:
		count := args[0]
		if !strings.HasPrefix(count, "#") {
			count = "#" + count
		}
		var size uint16
		size, err = asm.parseNumber(count, 16)
		if err != nil {
			return
		}
		codes = make([]Code, size)
		return
	}

	if err != nil {
		return
	}

	codes = []Code{Code(code)}
	return
}
