// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ezrec/lc3sim/cpu"
	"github.com/ezrec/lc3sim/emulator"
	lc3io "github.com/ezrec/lc3sim/io"
)

func main() {
	var cli struct {
		Run runCmd `cmd:"" default:"1" help:"assemble and run LC-3 programs"`
	}

	ctx := kong.Parse(&cli)
	err := ctx.Run(&kong.Context{})
	ctx.FatalIfErrorf(err)
}

type runCmd struct {
	Compile  string `short:"c" type:"existingfile" help:"assembly source to compile"`
	Output   string `short:"o" help:"binary image to write (default <source>.bin)"`
	Exec     bool   `short:"x" help:"run the compiled program"`
	Image    string `name:"run" short:"r" type:"existingfile" help:"binary image to run"`
	Pc       string `name:"pc" default:"0" help:"start address of a binary image"`
	Dump     string `short:"d" default:"mem.dmp" help:"TRAP memory dump file, '-' for stdout"`
	MaxTicks int    `name:"max-ticks" help:"stop after this many instructions (0 is unbounded)"`
	Verbose  bool   `short:"v" help:"verbose mode"`
}

func (r *runCmd) Run(ctx *kong.Context) (err error) {
	if len(r.Compile) == 0 && len(r.Image) == 0 {
		return errors.New("one of --compile or --run is required")
	}
	if len(r.Compile) != 0 && len(r.Image) != 0 {
		return errors.New("--compile and --run are exclusive")
	}

	diag := newDiagnostics(os.Stderr)

	emu := emulator.NewEmulator()
	emu.Verbose = r.Verbose
	emu.MaxTicks = r.MaxTicks

	if len(r.Compile) != 0 {
		var prog *cpu.Program
		prog, err = r.compile(diag)
		if err != nil {
			return
		}
		if !r.Exec {
			return
		}
		emu.Program = prog
		emu.Reset()
	} else {
		var pc uint64
		pc, err = strconv.ParseUint(strings.TrimPrefix(strings.ToLower(r.Pc), "x"), pcBase(r.Pc), 16)
		if err != nil {
			return fmt.Errorf("--pc %v: %w", r.Pc, err)
		}

		var words []uint16
		words, err = lc3io.LoadImage(os.DirFS(filepath.Dir(r.Image)), filepath.Base(r.Image))
		if err != nil {
			return fmt.Errorf("%v: %w", r.Image, err)
		}
		emu.LoadImage(words, uint16(pc))
	}

	if r.Dump == "-" {
		emu.Cpu.Monitor = os.Stdout
	} else {
		var ouf *os.File
		ouf, err = os.Create(r.Dump)
		if err != nil {
			return
		}
		defer func() { err = errors.Join(err, ouf.Close()) }()
		emu.Cpu.Monitor = ouf
	}

	sigctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	err = emu.Run(sigctx)
	if err != nil {
		diag.Error(err)
		err = errors.New("execution failed")
		return
	}

	if r.Verbose {
		log.Printf("halted by trap x%02X after %d ticks", emu.Cpu.Trap, emu.Ticks())
	}

	return
}

// pcBase selects hexadecimal for 'x' and '0x' prefixed addresses.
func pcBase(pc string) int {
	if strings.HasPrefix(strings.ToLower(pc), "x") {
		return 16
	}
	return 0
}

// compile assembles the source, and writes its binary image unless it is
// only being executed.
func (r *runCmd) compile(diag *diagnostics) (prog *cpu.Program, err error) {
	inf, err := os.Open(r.Compile)
	if err != nil {
		return
	}
	defer inf.Close()

	asm := &cpu.Assembler{Verbose: r.Verbose}
	prog, err = asm.Parse(inf)
	for _, warning := range asm.Warning {
		diag.Warning(warning)
	}
	if err != nil {
		diag.Error(err)
		err = fmt.Errorf("%v: assembly failed", r.Compile)
		return
	}

	output := r.Output
	if len(output) == 0 && !r.Exec {
		output = strings.TrimSuffix(r.Compile, filepath.Ext(r.Compile)) + ".bin"
	}
	if len(output) == 0 {
		return
	}

	err = lc3io.SaveImage(lc3io.DirFS(filepath.Dir(output)), filepath.Base(output), prog.Binary())
	if err != nil {
		err = fmt.Errorf("%v: %w", output, err)
		return
	}

	if r.Verbose {
		log.Printf("%v: wrote %v", r.Compile, output)
	}

	return
}
