// Package fault defines the closed exit-status enumeration shared by
// every layer of the interpreter: container validation, the byte
// cursors, the operand-stack arena, and the dispatch loop all report
// failures through this single type so the CLI has exactly one place
// to translate a run into a process exit code.
package fault

import "fmt"

// Code is the tagged exit-status enumeration. Zero value is Success.
type Code int

const (
	Success Code = iota
	UnknownOpcode
	UnknownCallNumber
	BytecodeAccessViolation
	StackOverflow
	StackAccessViolation
	ArithmeticOverflow
	DivideByZero
	InvalidHeaderSize
	InvalidMagicNumber
)

var codeNames = map[Code]string{
	Success:                 "success",
	UnknownOpcode:           "unknown opcode",
	UnknownCallNumber:       "unknown call number",
	BytecodeAccessViolation: "bytecode access violation",
	StackOverflow:           "stack overflow",
	StackAccessViolation:    "stack access violation",
	ArithmeticOverflow:      "arithmetic overflow",
	DivideByZero:            "divide by zero",
	InvalidHeaderSize:       "invalid header size",
	InvalidMagicNumber:      "invalid magic number",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return "unrecognized exit status"
}

// ExitCode maps a Code to a process exit code, 1-based so Success maps
// to the conventional 0. CLI wrappers MAY use this; the core never
// does.
func (c Code) ExitCode() int {
	if c == Success {
		return 0
	}
	return int(c)
}

// Fault is the terminal condition carried out of the interpreter. At
// is the instruction-region program counter active when the fault was
// raised, for diagnostics. Faults raised before any instruction
// executes carry no program counter: header validation leaves At at
// zero, and a cursor overrun while reading the pool leaves the byte
// offset within the container at which the read failed.
type Fault struct {
	Code Code
	At   uint64
}

func (f *Fault) Error() string {
	if f == nil {
		return Success.String()
	}
	return fmt.Sprintf("%s at instruction %d", f.Code, f.At)
}

// New constructs a Fault with no instruction position attached.
func New(c Code) *Fault {
	return &Fault{Code: c}
}

// At attaches a program-counter position to a Fault, returning a new
// value so call sites can write `return nil, fault.At(fault.StackOverflow, pc)`.
func At(c Code, pc uint64) *Fault {
	return &Fault{Code: c, At: pc}
}

// Is lets errors.Is match a *Fault against another *Fault by Code
// alone, so callers can write `errors.Is(err, fault.New(fault.StackOverflow))`
// regardless of the At position either side carries.
func (f *Fault) Is(target error) bool {
	other, ok := target.(*Fault)
	if !ok {
		return false
	}
	return f.Code == other.Code
}
