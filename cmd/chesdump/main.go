// Command chesdump is a read-only CHESC container inspector: it never
// executes bytecode. It prints the header fields, the resolved entry
// point, the pool of function descriptors, and a linear disassembly
// of the instruction region, the static counterpart to the teacher's
// PrintProgram/formatInstructionStr in gvm/main.go.
package main

import (
	"fmt"
	"os"

	"cheschine/internal/container"
	"cheschine/internal/cursor"
	"cheschine/internal/fault"
	op "cheschine/internal/opcode"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: chesdump <file.chesc>")
		os.Exit(2)
	}

	raw, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	c, ferr := container.Validate(raw)
	if ferr != nil {
		fmt.Fprintln(os.Stderr, ferr)
		os.Exit(1)
	}

	major, minor, patch := c.Version()
	fmt.Printf("code name   : %s\n", c.CodeName())
	fmt.Printf("version     : %d.%d.%d\n", major, minor, patch)

	entryAddr, ferr := c.EntryPointAddress()
	if ferr != nil {
		fmt.Fprintln(os.Stderr, ferr)
		os.Exit(1)
	}
	fmt.Printf("entry point : instruction %d\n", entryAddr)

	dumpPool(c)

	region, ferr := c.InstructionRegion()
	if ferr != nil {
		fmt.Fprintln(os.Stderr, ferr)
		os.Exit(1)
	}
	fmt.Println("instructions:")
	disassemble(region)
}

func dumpPool(c *container.Container) {
	fmt.Println("pool:")
	for i := uint64(0); ; i++ {
		d, ferr := c.Descriptor(i)
		if ferr != nil {
			break
		}
		fmt.Printf("  [%d] start=%d var_len=%d arg_len=%d\n", i, d.Start, d.VarLen, d.ArgLen)
	}
}

// disassemble walks the instruction region once, printing each
// opcode's mnemonic and decoded operand. An unrecognized opcode stops
// the walk the same way the interpreter's dispatch loop would fault.
func disassemble(region []byte) {
	cur := cursor.New(region)
	for !cur.AtEnd() {
		pc := cur.Position()
		b, ferr := cur.NextU8()
		if ferr != nil {
			fmt.Printf("%6d: <truncated>\n", pc)
			return
		}
		code := op.Code(b)
		if !code.Known() {
			fmt.Printf("%6d: <unknown opcode 0x%02x>\n", pc, b)
			return
		}

		operand, ferr := decodeOperand(cur, code)
		if ferr != nil {
			fmt.Printf("%6d: %s <truncated operand>\n", pc, code)
			return
		}
		if operand == "" {
			fmt.Printf("%6d: %s\n", pc, code)
		} else {
			fmt.Printf("%6d: %s %s\n", pc, code, operand)
		}
	}
}

func decodeOperand(cur *cursor.Cursor, code op.Code) (string, *fault.Fault) {
	switch code.Operand() {
	case op.OperandU8:
		v, err := cur.NextU8()
		return fmt.Sprintf("%d", v), err
	case op.OperandU16:
		v, err := cur.NextU16()
		return fmt.Sprintf("%d", v), err
	case op.OperandU32:
		v, err := cur.NextU32()
		return fmt.Sprintf("%d", v), err
	case op.OperandU64:
		v, err := cur.NextU64()
		return fmt.Sprintf("%d", v), err
	case op.OperandI16:
		v, err := cur.NextI16()
		return fmt.Sprintf("%d", v), err
	default:
		return "", nil
	}
}
