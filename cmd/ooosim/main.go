// Package main provides the entry point for ooosim, the out-of-order
// pipeline simulator: it assembles a program and runs it to completion on
// the out-of-order engine, reporting cycle-level statistics.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sarchlab/ooosim/machine"
	"github.com/sarchlab/ooosim/timing/latency"
	"github.com/sarchlab/ooosim/timing/ooo"
)

var (
	debug      = flag.Bool("debug", false, "Per-cycle state dump with a single-step prompt between cycles")
	verbose    = flag.Bool("v", false, "Verbose final summary")
	configPath = flag.String("latency-config", "", "Path to a JSON latency configuration file")
	diff       = flag.Bool("diff", false, "Check final state against the in-order reference interpreter")
	robCap     = flag.Int("rob", ooo.DefaultROBCapacity, "Reorder buffer capacity")
	mobCap     = flag.Int("mob", ooo.DefaultMOBCapacity, "Memory order buffer capacity")
	aluCount   = flag.Int("alu", ooo.DefaultALUCount, "Number of parallel ALU execution units")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: ooosim [options] <program.asm>\n\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	programPath := flag.Arg(0)

	opts := []ooo.Option{
		ooo.WithROBCapacity(*robCap),
		ooo.WithMOBCapacity(*mobCap),
		ooo.WithALUCount(*aluCount),
	}

	if *configPath != "" {
		cfg, err := latency.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading latency config: %v\n", err)
			os.Exit(1)
		}
		opts = append(opts, ooo.WithLatencies(cfg))
	}

	m, err := machine.Load(programPath, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *debug {
		runDebug(m)
	} else {
		m.Run()
	}

	stats := m.Stats()
	fmt.Printf("Program: %s\n", programPath)
	fmt.Printf("Halted: %v\n", m.Engine().Halted())
	fmt.Printf("Cycles: %d\n", stats.Cycles)
	fmt.Printf("Retired: %d\n", stats.Retired)
	fmt.Printf("Flushes: %d\n", stats.Flushes)
	fmt.Printf("IPC: %.3f\n", stats.IPC)

	if *verbose {
		fmt.Printf("\nFinal registers:\n")
		for i, v := range m.Registers().R {
			if v != 0 {
				fmt.Printf("  r%-2d = %d\n", i, v)
			}
		}
	}

	if *diff {
		equal, err := m.RunDifferential()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running reference interpreter: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Matches reference interpreter: %v\n", equal)
		if !equal {
			os.Exit(1)
		}
	}

	if !m.Engine().Halted() {
		os.Exit(1)
	}
}

// runDebug ticks the engine one cycle at a time, printing a state dump
// after each cycle and then blocking on a line from stdin before
// continuing. An empty line steps one more cycle, "c" runs the rest of
// the program without further prompting, and "q" stops the simulation
// early.
func runDebug(m *machine.Machine) {
	e := m.Engine()
	scanner := bufio.NewScanner(os.Stdin)
	free := false

	for !e.Halted() {
		e.Tick()

		snap := e.Snapshot()
		fmt.Printf("cycle %4d  rob %2d/%2d  retired %4d  flushes %3d  halted %v\n",
			snap.Cycle, snap.ROBOccupancy, snap.ROBCapacity, snap.Retired, snap.Flushes, snap.Halted)
		for i, v := range snap.Registers {
			if v != 0 {
				fmt.Printf("  r%-2d = %d\n", i, v)
			}
		}

		if free || snap.Halted {
			continue
		}

		fmt.Print("[Enter] step  [c] continue  [q] quit > ")
		if !scanner.Scan() {
			return
		}
		switch strings.TrimSpace(scanner.Text()) {
		case "q":
			return
		case "c":
			free = true
		}
	}
}
