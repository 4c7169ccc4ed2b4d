// Package main provides asmcheck, a CLI tool that assembles a program and
// reports success or the assembly error, without running it. It exists so
// a program can be validated (spec.md section 7a's assembly-time error
// checks) independently of the timing simulation cmd/ooosim performs.
package main

import (
	"fmt"
	"os"

	"github.com/sarchlab/ooosim/asm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: asmcheck <program.asm>\n")
		os.Exit(1)
	}

	path := os.Args[1]
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", path, err)
		os.Exit(1)
	}
	defer f.Close()

	prog, err := asm.Assemble(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Assembly error in %s: %v\n", path, err)
		os.Exit(1)
	}

	fmt.Printf("%s: OK (%d instructions, %d labels)\n", path, len(prog.Instructions), len(prog.Labels))
}
