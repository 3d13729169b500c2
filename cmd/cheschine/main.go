// Command cheschine runs a CHESC bytecode container to completion and
// reports its exit status, the way the teacher's main.go drives a
// gvm program to completion and prints vm.errcode.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"cheschine/internal/telemetry"
	"cheschine/internal/vm"
)

var (
	stackCapacity = flag.Uint64("stack", vm.DefaultStackCapacity, "operand stack capacity in bytes")
	trace         = flag.Bool("trace", false, "log one line per dispatched opcode")
	quiet         = flag.Bool("quiet", false, "suppress container/entry-point logging, keep only warnings and errors")
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: cheschine [flags] <file.chesc>")
		os.Exit(2)
	}

	bytes, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level := zerolog.InfoLevel
	if *quiet {
		level = zerolog.WarnLevel
	}
	tracer := telemetry.New(os.Stderr, level, *trace)

	machine, ferr := vm.New(bytes, *stackCapacity, tracer, os.Stdout)
	if ferr != nil {
		fmt.Fprintln(os.Stderr, ferr)
		os.Exit(ferr.Code.ExitCode())
	}

	result := machine.Run()
	if result == nil {
		os.Exit(0)
	}
	fmt.Fprintln(os.Stderr, result)
	os.Exit(result.Code.ExitCode())
}
