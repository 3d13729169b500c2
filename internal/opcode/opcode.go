// Package opcode is the bidirectional mapping between one-byte
// opcodes and their semantic operation kind, plus the inline-operand
// shape each opcode carries. It plays the role of the teacher's
// Bytecode type and strToInstrMap/instrToStrMap pair in
// gvm/vm/bytecode.go, generalized to the CORE's closed CHESC opcode
// table (spec.md §4.4) instead of gvm's register-machine dialect.
package opcode

// Code is a single CHESC opcode byte.
type Code byte

const (
	NOP    Code = 0x00
	EXIT   Code = 0x01
	CALL   Code = 0x02
	INVOKE Code = 0x03
	RET    Code = 0x04

	BPUSH Code = 0x05
	SPUSH Code = 0x06
	IPUSH Code = 0x07
	LPUSH Code = 0x08

	DUP  Code = 0x09
	DUP2 Code = 0x0a
	POP  Code = 0x0b
	POP2 Code = 0x0c

	LOAD   Code = 0x0d
	LOAD2  Code = 0x0e
	STORE  Code = 0x0f
	STORE2 Code = 0x10

	IADD Code = 0x11
	LADD Code = 0x12
	ISUB Code = 0x13
	LSUB Code = 0x14
	IMUL Code = 0x15
	LMUL Code = 0x16
	IDIV Code = 0x17
	LDIV Code = 0x18

	IEQ    Code = 0x19
	LEQ    Code = 0x1a
	IORD   Code = 0x1b
	LORD   Code = 0x1c
	IEQORD Code = 0x1d
	LEQORD Code = 0x1e

	GOTO Code = 0x1f
	IF   Code = 0x20
)

// Operand identifies the shape of an opcode's inline operand, if any.
type Operand int

const (
	OperandNone Operand = iota
	OperandU8
	OperandU16
	OperandU32
	OperandU64
	OperandI16
)

// Size returns the inline operand's encoded size in bytes.
func (o Operand) Size() uint64 {
	switch o {
	case OperandU8:
		return 1
	case OperandU16, OperandI16:
		return 2
	case OperandU32:
		return 4
	case OperandU64:
		return 8
	default:
		return 0
	}
}

var nameOf = map[Code]string{
	NOP: "nop", EXIT: "exit", CALL: "call", INVOKE: "invoke", RET: "ret",
	BPUSH: "bpush", SPUSH: "spush", IPUSH: "ipush", LPUSH: "lpush",
	DUP: "dup", DUP2: "dup2", POP: "pop", POP2: "pop2",
	LOAD: "load", LOAD2: "load2", STORE: "store", STORE2: "store2",
	IADD: "iadd", LADD: "ladd", ISUB: "isub", LSUB: "lsub",
	IMUL: "imul", LMUL: "lmul", IDIV: "idiv", LDIV: "ldiv",
	IEQ: "ieq", LEQ: "leq", IORD: "iord", LORD: "lord",
	IEQORD: "ieqord", LEQORD: "leqord",
	GOTO: "goto", IF: "if",
}

var operandOf = map[Code]Operand{
	CALL:   OperandU8,
	INVOKE: OperandU64,
	BPUSH:  OperandU8,
	SPUSH:  OperandU16,
	IPUSH:  OperandU32,
	LPUSH:  OperandU64,
	LOAD:   OperandU16,
	LOAD2:  OperandU16,
	STORE:  OperandU16,
	STORE2: OperandU16,
	GOTO:   OperandI16,
	IF:     OperandI16,
}

// codeOf is built from nameOf at init time, mirroring the teacher's
// init() in gvm/vm/bytecode.go that derives instrToStrMap from
// strToInstrMap.
var codeOf map[string]Code

func init() {
	codeOf = make(map[string]Code, len(nameOf))
	for c, name := range nameOf {
		codeOf[name] = c
	}
}

// String renders the opcode's mnemonic, or "?unknown?" for a byte
// value outside the closed table.
func (c Code) String() string {
	if s, ok := nameOf[c]; ok {
		return s
	}
	return "?unknown?"
}

// Known reports whether c is a member of the closed opcode table.
func (c Code) Known() bool {
	_, ok := nameOf[c]
	return ok
}

// Operand returns the inline operand shape this opcode expects.
func (c Code) Operand() Operand {
	return operandOf[c]
}

// Lookup resolves a mnemonic (as used by the assembler and
// disassembler) to its opcode byte.
func Lookup(mnemonic string) (Code, bool) {
	c, ok := codeOf[mnemonic]
	return c, ok
}
