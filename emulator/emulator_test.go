package emulator

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/lc3sim/cpu"
	lc3io "github.com/ezrec/lc3sim/io"
)

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	assert.False(emu.Verbose)
	assert.NotNil(emu.Cpu)
	assert.NotNil(emu.Program)
	assert.Equal(0, emu.LineNo())
}

func doAssemble(emu *Emulator, program []string, t *testing.T) {
	asm := &cpu.Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}
	emu.Program = prog
	emu.Reset()
}

func doRunSingle(emu *Emulator, program []string, t *testing.T) {
	assert := assert.New(t)

	doAssemble(emu, program, t)

	// Straight line code executes one statement per tick.
	for n, st := range emu.Program.Statements {
		assert.Equal(st.LineNo, emu.LineNo())
		assert.Equal(st.Ip, emu.Cpu.Pc)
		assert.Equal(st.Codes[0], emu.Code())
		here := program[st.LineNo-1]

		done, err := emu.Tick()
		assert.NoError(err, here)
		if err != nil {
			t.Log(emu.Cpu.String())
			t.Fatalf("%v", err)
		}
		assert.Equal(n == len(emu.Program.Statements)-1, done, here)
		if done {
			break
		}
	}
}

func doRunBranch(emu *Emulator, program []string, t *testing.T) {
	assert := assert.New(t)

	doAssemble(emu, program, t)

	var done bool
	var err error
	for ticks := 0; !done; ticks++ {
		if ticks > 1000 {
			t.Fatalf("program did not halt")
		}
		line := emu.LineNo()
		assert.NotEqual(0, line)
		done, err = emu.Tick()
		assert.NoError(err, program[line-1])
		if err != nil {
			t.FailNow()
		}
	}
}

func TestEmulatorStraight(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	monitor := &bytes.Buffer{}
	emu.Cpu.Monitor = monitor

	doRunSingle(emu, []string{
		"\t.ORIG #$3000",
		"\tAND R0,R0,#0",
		"\tADD R0,R0,#7",
		"\tNOT R1,R0",
		"\tADD R1,R1,#1",
		"\tADD R2,R0,R1",
		"\tHALT",
	}, t)

	assert.Equal(uint16(7), emu.Cpu.Register[0])
	assert.Equal(uint16(0xFFF9), emu.Cpu.Register[1])
	assert.Equal(uint16(0), emu.Cpu.Register[2])
	assert.Equal(cpu.CC_ZERO, emu.Cpu.Cc)
	assert.Equal(uint8(0x25), emu.Cpu.Trap)
	assert.Equal(6, emu.Ticks())
	assert.True(strings.HasPrefix(monitor.String(), "LC-3 Memory Dump\n"))
}

var sumProgram = []string{
	"; sum 5+4+3+2+1",
	"\t.ORIG #$3000",
	"\tAND R0,R0,#0",
	"\tAND R1,R1,#0",
	"\tADD R1,R1,#5",
	"LOOP: ADD R0,R0,R1",
	"\tADD R1,R1,#-1",
	"\tBRP LOOP",
	"\tST R0,RESULT",
	"\tHALT",
	"RESULT: .FILL #0",
}

func TestEmulatorLoop(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	doRunBranch(emu, sumProgram, t)

	assert.Equal(uint16(15), emu.Cpu.Register[0])
	assert.Equal(uint16(15), emu.Cpu.Memory[0x3008])
	assert.Equal(uint16(0x3008), emu.Program.Label["RESULT"])
	assert.Equal(3+5*3+2, emu.Ticks())
}

func TestEmulatorSubroutine(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	doRunBranch(emu, []string{
		"\t.ORIG #$3000",
		"\tLD R1,VALUE",
		"\tJSR DOUBLE",
		"\tST R1,VALUE",
		"\tHALT",
		"DOUBLE: ADD R1,R1,R1",
		"\tRET",
		"VALUE: .FILL #21",
	}, t)

	assert.Equal(uint16(42), emu.Cpu.Register[1])
	assert.Equal(uint16(42), emu.Cpu.Memory[0x3006])
	assert.Equal(uint16(0x3002), emu.Cpu.Register[7])
}

func TestEmulatorString(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	doRunBranch(emu, []string{
		"\t.ORIG #$3000",
		"\tLEA R1,TEXT",
		"\tAND R0,R0,#0",
		"NEXT: LDR R2,R1,#0",
		"\tBRZ DONE",
		"\tADD R0,R0,#1",
		"\tADD R1,R1,#1",
		"\tBRNZP NEXT",
		"DONE: HALT",
		"TEXT: .STRINGZ \"hello\"",
	}, t)

	assert.Equal(uint16(5), emu.Cpu.Register[0])
	assert.Equal(uint16(0x300D), emu.Cpu.Register[1])
}

func TestEmulatorRuntimeError(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	doAssemble(emu, []string{
		"\t.ORIG #$3000",
		"\tADD R0,R0,#1",
		"\tRTI",
	}, t)

	err := emu.Run(context.Background())
	assert.ErrorIs(err, cpu.ErrUnimplemented)

	var rerr *ErrRuntime
	if assert.True(errors.As(err, &rerr)) {
		assert.Equal(uint16(0x3001), rerr.Ip)
		assert.Equal(3, rerr.LineNo)
	}
}

func TestEmulatorTickLimit(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.MaxTicks = 100
	doAssemble(emu, []string{
		"LOOP: BR LOOP",
	}, t)

	err := emu.Run(context.Background())
	assert.ErrorIs(err, ErrTickLimit)
	assert.Equal(100, emu.Ticks())
}

func TestEmulatorCancel(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	doAssemble(emu, []string{
		"LOOP: BR LOOP",
	}, t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := emu.Run(ctx)
	assert.ErrorIs(err, context.Canceled)
}

func TestEmulatorImage(t *testing.T) {
	assert := assert.New(t)

	asm := &cpu.Assembler{}
	prog, err := asm.Assemble(sumProgram)
	assert.NoError(err)

	image := &bytes.Buffer{}
	err = lc3io.WriteImage(image, prog.Binary())
	assert.NoError(err)
	assert.Equal(2*0x3009, image.Len())

	words, err := lc3io.ReadImage(image)
	assert.NoError(err)
	assert.Equal(prog.Binary(), words)

	emu := NewEmulator()
	emu.LoadImage(words, prog.Start)
	for ip, code := range prog.Codes() {
		assert.Equal(uint16(code), emu.Cpu.Memory[ip])
	}

	err = emu.Run(context.Background())
	assert.NoError(err)
	assert.Equal(uint16(15), emu.Cpu.Memory[0x3008])
	assert.Equal(0, emu.LineNo())
}
