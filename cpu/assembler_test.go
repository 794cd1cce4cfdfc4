package cpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Statements))
	assert.Empty(prog.Binary())
	assert.Empty(asm.Label)
	assert.Empty(asm.Warning)
}

func assemble(t *testing.T, program []string) (asm *Assembler, prog *Program) {
	asm = &Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}
	return
}

func TestAssemblerAdd(t *testing.T) {
	assert := assert.New(t)

	_, prog := assemble(t, []string{
		"\tADD R0,R1,R2",
		"\tADD R1,R2,R3",
		"\tADD R1,R2,R4",
		"\tADD R6,R4,R7",
	})

	assert.Equal([]uint16{0x1042, 0x1283, 0x1284, 0x1D07}, prog.Binary())
	assert.Equal(uint16(0), prog.Start)
}

func TestAssemblerInstructions(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		text string
		code Code
	}){
		{"ADD R1,R2,#-1", 0x12BF},
		{"add r1, r2, #15", 0x12AF},
		{"AND R3,R4,R5", 0x5705},
		{"AND R0,R0,#0", 0x5020},
		{"BR #1", 0x0E01},
		{"BRn #-1", 0x09FF},
		{"BRz #$10", 0x0410},
		{"BRp #0", 0x0200},
		{"BRnp #2", 0x0A02},
		{"LD R1,#$FF", 0x22FF},
		{"LDI R2,#-256", 0xA500},
		{"LEA R3,#b11", 0xE603},
		{"ST R4,#1", 0x3801},
		{"STI R5,#-2", 0xBBFE},
		{"LDR R6,R7,#-32", 0x6DE0},
		{"STR R0,R1,#31", 0x705F},
		{"JSR #$3FF", 0x4BFF},
		{"JSRR R4", 0x4100},
		{"JMP R2", 0xC080},
		{"RET", 0xC1C0},
		{"NOT R1,R2", 0x92BF},
		{"RTI", 0x8000},
		{"TRAP x25", 0xF025},
		{"TRAP #$21", 0xF021},
		{"TRAP $22", 0xF022},
		{"TRAP #x23", 0xF023},
		{"TRAP 24", 0xF024},
		{"GETC", 0xF020},
		{"OUT", 0xF021},
		{"PUTS", 0xF022},
		{"IN", 0xF023},
		{"PUTSP", 0xF024},
		{"HALT", 0xF025},
		{".FILL #$1234", 0x1234},
		{".FILL #-1", 0xFFFF},
	}

	for _, entry := range table {
		asm := &Assembler{}
		prog, err := asm.Assemble([]string{"\t" + entry.text})
		assert.NoError(err, entry.text)
		if err != nil {
			continue
		}
		assert.Empty(asm.Warning, entry.text)
		if assert.Len(prog.Statements, 1, entry.text) {
			assert.Equal([]Code{entry.code}, prog.Statements[0].Codes, entry.text)
		}
	}
}

func TestAssemblerPseudo(t *testing.T) {
	assert := assert.New(t)

	asm, prog := assemble(t, []string{
		"; Pseudo instructions",
		"\t.ORIG #$3000",
		"\tLEA R0,MSG ; address of the string",
		"\tPUTS",
		"\tHALT",
		"MSG: .STRINGZ \"Hi\\n\"",
		"\t.BLKW #2",
		"\t.STRINGZ bare words",
		"\t.FILL #$BEEF",
		"\t.END",
		"\tNOT A,B ; never assembled",
	})

	assert.Equal(uint16(0x3000), prog.Start)
	assert.Equal(map[string]uint16{"MSG": 0x3003}, asm.Label)

	bins := prog.Binary()
	assert.Equal([]uint16{
		0xE002, // LEA R0,#$2
		0xF022,
		0xF025,
		'H', 'i', '\n', 0,
		0, 0,
		'b', 'a', 'r', 'e', ' ', 'w', 'o', 'r', 'd', 's', 0,
		0xBEEF,
	}, bins[0x3000:])

	assert.Equal(3, prog.Debug(0x3000).LineNo)
	assert.Equal(6, prog.Debug(0x3005).LineNo)
	assert.Equal(7, prog.Debug(0x3008).LineNo)
}

func TestAssemblerLoc(t *testing.T) {
	assert := assert.New(t)

	_, prog := assemble(t, []string{
		"\tloc #$10",
		"\tBRNZP NEXT",
		"\tloc #$20",
		"NEXT: ADD R0,R0,#1",
		"\tloc #b11",
		"\tJSR NEXT",
	})

	assert.Equal(uint16(0x10), prog.Start)

	bins := prog.Binary()
	assert.Len(bins, 0x21)
	assert.Equal(uint16(0x0E0F), bins[0x10]) // BRNZP #$F
	assert.Equal(uint16(0x1021), bins[0x20])
	assert.Equal(uint16(0x481C), bins[0x03]) // JSR #$1C
}

func TestAssemblerBlkw(t *testing.T) {
	assert := assert.New(t)

	_, prog := assemble(t, []string{
		"\t.ORIG #$10",
		"\t.FILL #1",
		"\t.BLKW 3",
		"\t.FILL #2",
		"\t.BLKW #$2",
		"\t.FILL #3",
	})

	assert.Equal([]uint16{1, 0, 0, 0, 2, 0, 0, 3}, prog.Binary()[0x10:])
}

func TestAssemblerWarnings(t *testing.T) {
	assert := assert.New(t)

	asm, prog := assemble(t, []string{
		"\tADD R1,R1,#33",
		"\tTRAP x125",
		"\t.FILL #$12345",
	})

	assert.Equal([]uint16{0x1261, 0xF025, 0x2345}, prog.Binary())
	assert.Len(asm.Warning, 3)

	for n, warning := range asm.Warning {
		var werr ErrWidth
		assert.True(errors.As(warning, &werr))

		var serr ErrSyntax
		assert.True(errors.As(warning, &serr))
		assert.Equal(n+1, serr.LineNo)
	}
}

func TestAssemblerErrSyntax(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	// Various syntax errors
	table := [](struct {
		prog string
		line int
		err  error
	}){
		{"\tADD R1,R2", 1, ErrOpcodeMissing},
		{"\tADD R1,R2,R3,R4", 1, ErrOpcodeExtraArgs},
		{"\tADD R8,R1,R1", 1, ErrRegisterInvalid("R8")},
		{"\tADD RX,R1,R1", 1, ErrRegisterInvalid("RX")},
		{"\tADD R1,R1,MISSING", 1, ErrLabelMissing("MISSING")},
		{"\tADD R1,R1,#x10", 1, ErrParseNumber("#x10")},
		{"\tLD R1", 1, ErrOpcodeMissing},
		{"\tLDR R1,R2", 1, ErrOpcodeMissing},
		{"\tBRNN #0", 1, ErrBranchInvalid},
		{"\tBR", 1, ErrOpcodeMissing},
		{"\tBR NOWHERE", 1, ErrLabelMissing("NOWHERE")},
		{"\tRET R7", 1, ErrOpcodeExtraArgs},
		{"\tHALT #1", 1, ErrOpcodeExtraArgs},
		{"\tTRAP", 1, ErrOpcodeMissing},
		{"\tTRAP #", 1, ErrParseNumber("#")},
		{"\tTRAP xZZ", 1, ErrParseNumber("#$ZZ")},
		{"\tFOO R1", 1, ErrInstructionInvalid},
		{"\t.FILL", 1, ErrOpcodeMissing},
		{"\t.BLKW", 1, ErrOpcodeMissing},
		{"\t.STRINGZ", 1, ErrOpcodeMissing},
		{"\t.STRINGZ \"open", 1, ErrStringInvalid},
		{"\t.END now", 1, ErrOpcodeExtraArgs},
		{"\tNOT R1", 1, ErrOpcodeMissing},
		{"\tJSRR", 1, ErrOpcodeMissing},
		{"\tJMP #1", 1, ErrRegisterInvalid("#1")},
		{"\tHALT\n\tadd r1 r1", 2, ErrOpcodeMissing},
		{"DUP: HALT\nDUP: HALT\n", 2, ErrLabelDuplicate},
		{"ADD R1,R1,R1", 1, ErrLabelColon},
		{"\\: HALT", 1, ErrLabelInvalid("\\")},
		{"\tloc 5", 1, ErrLocSyntax},
		{"\tloc\t#5", 1, ErrLocSyntax},
		{"\t.ORIG x3000", 1, ErrParseNumber("x3000")},
		{"\tADD R1,R1,$(1/0)", 1, ErrParseExpression("1/0")},
	}

	for _, entry := range table {
		prog, err := asm.Parse(strings.NewReader(entry.prog))
		assert.Error(err, entry.prog)
		assert.Nil(prog, entry.prog)

		var serr ErrSyntax
		if assert.True(errors.As(err, &serr), entry.prog) {
			assert.Equal(entry.line, serr.LineNo, entry.prog)
		}
		assert.ErrorIs(err, entry.err, entry.prog)
	}
}

func TestAssemblerErrLabels(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	_, err := asm.Assemble([]string{
		"R0: HALT",
		"ADD: HALT",
		"OK: HALT",
	})
	assert.ErrorIs(err, ErrLabels)
	assert.ErrorIs(err, ErrLabelInvalid("R0"))
	assert.ErrorIs(err, ErrLabelInvalid("ADD"))
	assert.Nil(asm.Label)
}

func TestAssemblerErrAccumulate(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	_, err := asm.Assemble([]string{
		"\tADD R1,R1",
		"\tHALT",
		"\tLD R9,#1",
		"\tBRZZ #1",
	})

	// Every failing statement is reported.
	var lines []int
	for _, each := range err.(interface{ Unwrap() []error }).Unwrap() {
		var serr ErrSyntax
		if errors.As(each, &serr) {
			lines = append(lines, serr.LineNo)
		}
	}
	assert.Equal([]int{1, 3, 4}, lines)
}

func TestAssemblerReuse(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	_, err := asm.Assemble([]string{"A: .FILL #$12345"})
	assert.NoError(err)
	assert.Len(asm.Warning, 1)
	assert.Contains(asm.Label, "A")

	prog, err := asm.Assemble([]string{"B: HALT", "\tBR B"})
	assert.NoError(err)
	assert.Empty(asm.Warning)
	assert.NotContains(asm.Label, "A")
	assert.Equal([]uint16{0xF025, 0x0FFE}, prog.Binary())
}

func TestAssemblerOverflow(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	_, err := asm.Assemble([]string{
		"\tloc #$FFFE",
		"\t.STRINGZ \"abc\"",
	})
	assert.ErrorIs(err, ErrMemoryOverflow)

	prog, err := asm.Assemble([]string{
		"\tloc #$FFFF",
		"\tHALT",
	})
	assert.NoError(err)
	assert.Len(prog.Binary(), MEMORY_SIZE)
}

func TestAssemblerErrorText(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	_, err := asm.Assemble([]string{"\tADD R1,R2"})
	assert.Equal("line 1 '\tADD R1,R2' ADD takes 3 operands, found 2", err.Error())
}

func TestAssemblerStringzSemicolon(t *testing.T) {
	assert := assert.New(t)

	_, prog := assemble(t, []string{
		"\t.STRINGZ \"a;b\" ; separator",
	})

	assert.Equal([]uint16{'a', ';', 'b', 0}, prog.Binary())
}

func TestAssemblerTrapLabel(t *testing.T) {
	assert := assert.New(t)

	// A label spelled like a vector does not change the vector.
	asm, prog := assemble(t, []string{
		"\tTRAP x25",
		"x25: .FILL #1",
	})

	assert.Equal(map[string]uint16{"x25": 1}, asm.Label)
	assert.Equal([]uint16{0xF025, 0x0001}, prog.Binary())
}
