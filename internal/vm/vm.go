// Package vm is the interpreter core: the fetch-decode-execute loop,
// the activation-frame protocol built on top of internal/stack, and
// the host-call facility. It plays the role of gvm.VM and
// execInstructions in the teacher's vm/vm.go, rebuilt around the
// CHESC container's binary instruction stream and call-frame
// discipline instead of gvm's text-assembled register machine.
package vm

import (
	"encoding/binary"
	"io"
	"os"

	"cheschine/internal/container"
	"cheschine/internal/cursor"
	"cheschine/internal/fault"
	"cheschine/internal/stack"
	"cheschine/internal/telemetry"
)

// DefaultStackCapacity matches the reference CHESC interpreter's
// minimum operand-stack size (spec.md §5).
const DefaultStackCapacity = 1024

// VM owns one interpreter run: the validated container, its
// instruction cursor, and the operand-stack arena. It borrows the
// container's bytes read-only and exclusively owns the arena for the
// run's duration (spec.md §3 Ownership).
type VM struct {
	container *container.Container
	instr     *cursor.Cursor
	instrLen  uint64
	arena     *stack.Arena
	bp        uint64
	tracer    telemetry.Tracer
	stdout    io.Writer

	halted bool
	result *fault.Fault
}

// New validates bytes as a CHESC container, resolves its entry point,
// and synthesizes the initial activation frame. tracer may be nil, in
// which case telemetry is discarded. stdout may be nil, in which case
// the host-call facility (spec.md §4.5 CALL, §6) writes to os.Stdout.
func New(bytes []byte, stackCapacity uint64, tracer telemetry.Tracer, stdout io.Writer) (*VM, *fault.Fault) {
	if tracer == nil {
		tracer = telemetry.NoOp()
	}
	if stdout == nil {
		stdout = os.Stdout
	}

	c, ferr := container.Validate(bytes)
	if ferr != nil {
		return nil, ferr
	}
	major, minor, patch := c.Version()
	tracer.ContainerLoaded(c.CodeName(), major, minor, patch)

	entryPC, ferr := c.EntryPointAddress()
	if ferr != nil {
		return nil, ferr
	}

	instrRegion, ferr := c.InstructionRegion()
	if ferr != nil {
		return nil, ferr
	}

	arena := stack.New(stackCapacity)
	// Synthesize the entry frame: saved bp 0, sentinel return address.
	// The sentinel is one past the instruction region's last valid
	// byte (SPEC_FULL.md Part E, item 3) rather than |bytecode|-1, so
	// it needs no cooperating EXIT byte to be a valid jump target.
	sentinel := uint64(len(instrRegion))
	if ferr := arena.Push(stack.W64, 0); ferr != nil {
		return nil, ferr
	}
	if ferr := arena.Push(stack.W64, sentinel); ferr != nil {
		return nil, ferr
	}
	bp := arena.SP()

	instr := cursor.New(instrRegion)
	if ferr := instr.JumpTo(entryPC); ferr != nil {
		return nil, ferr
	}
	tracer.EntryResolved(entryPC)

	return &VM{
		container: c,
		instr:     instr,
		instrLen:  uint64(len(instrRegion)),
		arena:     arena,
		bp:        bp,
		tracer:    tracer,
		stdout:    stdout,
	}, nil
}

// Halted reports whether the dispatch loop has reached a terminal
// condition (success or fault).
func (v *VM) Halted() bool { return v.halted }

// Result returns the terminal status once halted. nil means Success.
// Calling this before Halted() returns true yields an undefined
// (zero) Fault and should not be relied upon.
func (v *VM) Result() *fault.Fault { return v.result }

// StackPointer exposes the current sp, chiefly for tests that assert
// on the "final sp" testable properties in spec.md §8.
func (v *VM) StackPointer() uint64 { return v.arena.SP() }

// Run drives the dispatch loop to completion, mirroring the teacher's
// RunProgram in gvm/vm/run.go.
func (v *VM) Run() *fault.Fault {
	for !v.halted {
		v.Step()
	}
	return v.result
}

// halt records the run's terminal status exactly once.
func (v *VM) halt(f *fault.Fault) {
	if v.halted {
		return
	}
	v.halted = true
	v.result = f
	v.tracer.Terminated(f)
}

// fail is halt's shorthand for the common case of a fresh fault raised
// at the instruction currently being dispatched.
func (v *VM) fail(f *fault.Fault, pc uint64) {
	f.At = pc
	v.halt(f)
}

// writeHost implements host call 0x00 (spec.md §6): the top pointer-
// width word on the operand stack is written to standard output
// without being popped. Write errors are not part of the core's exit
// status taxonomy and are deliberately ignored, matching the teacher's
// unchecked stdout writes in gvm/main.go.
func (v *VM) writeHost(value uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	_, _ = v.stdout.Write(buf[:])
}
