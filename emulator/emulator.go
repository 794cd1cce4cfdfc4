// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"context"
	"errors"
	"log"

	"github.com/ezrec/lc3sim/cpu"
)

// Emulator state. CPU + memory + the program listing it runs.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.
	MaxTicks int          // If non-zero, Run fails after this many ticks.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(),
		Program: &cpu.Program{},
	}

	return
}

// Reset the processor, and load the program listing into memory.
func (emu *Emulator) Reset() {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Reset()
	emu.Cpu.Load(emu.Program)
}

// LoadImage resets the processor, loads a raw memory image at address 0,
// and starts execution at pc. The program listing is discarded.
func (emu *Emulator) LoadImage(words []uint16, pc uint16) {
	emu.Program = &cpu.Program{}

	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Reset()
	emu.Cpu.LoadWords(words)
	emu.Cpu.Pc = pc

	if emu.Verbose {
		log.Printf("emulator: loaded %d words, pc x%04X", len(words), pc)
	}
}

// Ticks returns the total ticks since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// Code returns the instruction about to execute.
func (emu *Emulator) Code() cpu.Code {
	return cpu.Code(emu.Cpu.Memory[emu.Cpu.Pc])
}

// LineNo returns the source line of the instruction about to execute, or
// 0 if it has no source.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.Pc)
	if dbg.Statement == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single tick of the emulator. Done is set when the
// program halts through TRAP.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	ip := emu.Cpu.Pc
	lineno := emu.LineNo()

	err = emu.Cpu.Tick()
	if errors.Is(err, cpu.ErrHalt) {
		err = nil
		done = true
		return
	}
	if err != nil {
		err = &ErrRuntime{Ip: ip, LineNo: lineno, Err: err}
	}

	return
}

// Run ticks until the program halts, fails, exceeds MaxTicks, or ctx is
// done.
func (emu *Emulator) Run(ctx context.Context) (err error) {
	for ticks := 0; ; ticks++ {
		if emu.MaxTicks > 0 && ticks >= emu.MaxTicks {
			err = &ErrRuntime{Ip: emu.Cpu.Pc, LineNo: emu.LineNo(), Err: ErrTickLimit}
			return
		}

		if ticks%1024 == 0 {
			err = ctx.Err()
			if err != nil {
				return
			}
		}

		var done bool
		done, err = emu.Tick()
		if done || err != nil {
			return
		}
	}
}
