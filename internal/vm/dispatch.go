// Dispatch is the fetch-decode-execute cycle: Step consumes exactly
// one opcode (and its inline operand, if any) from the instruction
// cursor and mutates the operand-stack arena and activation-frame
// state accordingly. It plays the role of the giant switch in the
// teacher's gvm.VM.execInstructions (gvm/vm/vm.go), rebuilt around the
// CHESC opcode table in internal/opcode instead of gvm's register
// machine.
package vm

import (
	"cheschine/internal/fault"
	op "cheschine/internal/opcode"
	"cheschine/internal/stack"
)

type arithKind int

const (
	arithAdd arithKind = iota
	arithSub
	arithMul
	arithDiv
)

type arithSpec struct {
	width    stack.Width
	bitWidth int
	kind     arithKind
}

var arithTable = map[op.Code]arithSpec{
	op.IADD: {stack.W32, 32, arithAdd},
	op.LADD: {stack.W64, 64, arithAdd},
	op.ISUB: {stack.W32, 32, arithSub},
	op.LSUB: {stack.W64, 64, arithSub},
	op.IMUL: {stack.W32, 32, arithMul},
	op.LMUL: {stack.W64, 64, arithMul},
	op.IDIV: {stack.W32, 32, arithDiv},
	op.LDIV: {stack.W64, 64, arithDiv},
}

type cmpKind int

const (
	cmpEq cmpKind = iota
	cmpLt
	cmpLe
)

type cmpSpec struct {
	width stack.Width
	kind  cmpKind
}

var cmpTable = map[op.Code]cmpSpec{
	op.IEQ:    {stack.W32, cmpEq},
	op.LEQ:    {stack.W64, cmpEq},
	op.IORD:   {stack.W32, cmpLt},
	op.LORD:   {stack.W64, cmpLt},
	op.IEQORD: {stack.W32, cmpLe},
	op.LEQORD: {stack.W64, cmpLe},
}

// Step executes exactly one instruction, or recognizes the terminal
// condition and halts. Calling Step after Halted() is a no-op.
func (v *VM) Step() {
	if v.halted {
		return
	}

	pc := v.instr.Position()
	if pc >= v.instrLen {
		// The sentinel return address is one past the instruction
		// region's last valid byte (SPEC_FULL.md Part E, item 3), so
		// an outermost RET or simply falling off the end both land
		// here and both mean the program finished cleanly.
		v.halt(nil)
		return
	}

	opByte, ferr := v.instr.NextU8()
	if ferr != nil {
		v.fail(ferr, pc)
		return
	}
	code := op.Code(opByte)
	v.tracer.Dispatch(pc, code)

	if spec, ok := arithTable[code]; ok {
		v.execArith(pc, spec)
		return
	}
	if spec, ok := cmpTable[code]; ok {
		v.execCompare(pc, spec)
		return
	}

	switch code {
	case op.NOP:

	case op.EXIT:
		v.halt(nil)

	case op.CALL:
		v.execCall(pc)

	case op.INVOKE:
		v.execInvoke(pc)

	case op.RET:
		v.execReturn(pc)

	case op.BPUSH:
		arg, ferr := v.instr.NextU8()
		if ferr != nil {
			v.fail(ferr, pc)
			return
		}
		v.pushOrFail(pc, stack.W32, uint64(arg))

	case op.SPUSH:
		arg, ferr := v.instr.NextU16()
		if ferr != nil {
			v.fail(ferr, pc)
			return
		}
		v.pushOrFail(pc, stack.W32, uint64(arg))

	case op.IPUSH:
		arg, ferr := v.instr.NextU32()
		if ferr != nil {
			v.fail(ferr, pc)
			return
		}
		v.pushOrFail(pc, stack.W32, uint64(arg))

	case op.LPUSH:
		arg, ferr := v.instr.NextU64()
		if ferr != nil {
			v.fail(ferr, pc)
			return
		}
		v.pushOrFail(pc, stack.W64, arg)

	case op.DUP:
		v.execDup(pc, stack.W32)

	case op.DUP2:
		v.execDup(pc, stack.W64)

	case op.POP:
		if _, ferr := v.arena.Pop(stack.W32, v.bp); ferr != nil {
			v.fail(ferr, pc)
		}

	case op.POP2:
		if _, ferr := v.arena.Pop(stack.W64, v.bp); ferr != nil {
			v.fail(ferr, pc)
		}

	case op.LOAD:
		v.execLoad(pc, stack.W32)

	case op.LOAD2:
		v.execLoad(pc, stack.W64)

	case op.STORE:
		v.execStore(pc, stack.W32)

	case op.STORE2:
		v.execStore(pc, stack.W64)

	case op.GOTO:
		v.execGoto(pc)

	case op.IF:
		v.execIf(pc)

	default:
		v.fail(fault.New(fault.UnknownOpcode), pc)
	}
}

func (v *VM) pushOrFail(pc uint64, w stack.Width, value uint64) {
	if ferr := v.arena.Push(w, value); ferr != nil {
		v.fail(ferr, pc)
	}
}

func (v *VM) execDup(pc uint64, w stack.Width) {
	top, ferr := v.arena.Top(w, v.bp)
	if ferr != nil {
		v.fail(ferr, pc)
		return
	}
	v.pushOrFail(pc, w, top)
}

func (v *VM) execLoad(pc uint64, w stack.Width) {
	slot, ferr := v.instr.NextU16()
	if ferr != nil {
		v.fail(ferr, pc)
		return
	}
	if ferr := v.arena.Load(w, v.bp, uint64(slot)); ferr != nil {
		v.fail(ferr, pc)
	}
}

func (v *VM) execStore(pc uint64, w stack.Width) {
	slot, ferr := v.instr.NextU16()
	if ferr != nil {
		v.fail(ferr, pc)
		return
	}
	if ferr := v.arena.Store(w, v.bp, uint64(slot)); ferr != nil {
		v.fail(ferr, pc)
	}
}

// execArith pops right then left (operands were pushed left-then-right
// by the compiler, spec.md §4.5), computes left OP right with checked
// overflow, and pushes the result.
func (v *VM) execArith(pc uint64, spec arithSpec) {
	right, ferr := v.arena.Pop(spec.width, v.bp)
	if ferr != nil {
		v.fail(ferr, pc)
		return
	}
	left, ferr := v.arena.Pop(spec.width, v.bp)
	if ferr != nil {
		v.fail(ferr, pc)
		return
	}

	if spec.kind == arithDiv && right == 0 {
		v.fail(fault.New(fault.DivideByZero), pc)
		return
	}

	var result uint64
	var overflow bool
	switch spec.kind {
	case arithAdd:
		result, overflow = checkedAdd(spec.bitWidth, left, right)
	case arithSub:
		result, overflow = checkedSub(spec.bitWidth, left, right)
	case arithMul:
		result, overflow = checkedMul(spec.bitWidth, left, right)
	case arithDiv:
		result, overflow = checkedDiv(spec.bitWidth, left, right)
	}
	if overflow {
		v.fail(fault.New(fault.ArithmeticOverflow), pc)
		return
	}
	v.pushOrFail(pc, spec.width, result)
}

// execCompare pops right then left and pushes 1 or 0 (as a w32) for
// the comparison's outcome. Every comparison treats its operands as
// plain unsigned magnitudes (spec.md's Data Model note on signedness).
func (v *VM) execCompare(pc uint64, spec cmpSpec) {
	right, ferr := v.arena.Pop(spec.width, v.bp)
	if ferr != nil {
		v.fail(ferr, pc)
		return
	}
	left, ferr := v.arena.Pop(spec.width, v.bp)
	if ferr != nil {
		v.fail(ferr, pc)
		return
	}

	var result bool
	switch spec.kind {
	case cmpEq:
		result = left == right
	case cmpLt:
		result = left < right
	case cmpLe:
		result = left <= right
	}

	var out uint64
	if result {
		out = 1
	}
	v.pushOrFail(pc, stack.W32, out)
}

// execGoto reads an i16 relative offset and jumps from the position
// immediately following it (spec.md §4.5: offsets are relative to the
// address of the byte after the operand).
func (v *VM) execGoto(pc uint64) {
	offset, ferr := v.instr.NextI16()
	if ferr != nil {
		v.fail(ferr, pc)
		return
	}
	v.jumpRelative(pc, offset)
}

// execIf pops a w32 condition, always consumes the inline i16 offset,
// and jumps only when the condition is nonzero.
func (v *VM) execIf(pc uint64) {
	cond, ferr := v.arena.Pop(stack.W32, v.bp)
	if ferr != nil {
		v.fail(ferr, pc)
		return
	}
	offset, ferr := v.instr.NextI16()
	if ferr != nil {
		v.fail(ferr, pc)
		return
	}
	if cond != 0 {
		v.jumpRelative(pc, offset)
	}
}

func (v *VM) jumpRelative(pc uint64, offset int16) {
	target := int64(v.instr.Position()) + int64(offset)
	if target < 0 {
		v.fail(fault.New(fault.BytecodeAccessViolation), pc)
		return
	}
	if ferr := v.instr.JumpTo(uint64(target)); ferr != nil {
		v.fail(ferr, pc)
	}
}

// execCall implements the host-call facility (spec.md §4.5 CALL,
// §6): a u8 host call number selects the host operation. Call number
// 0x00 is the only member of the closed table this core recognizes;
// every other value is a fault, never a silent no-op.
func (v *VM) execCall(pc uint64) {
	hostCode, ferr := v.instr.NextU8()
	if ferr != nil {
		v.fail(ferr, pc)
		return
	}
	if hostCode != 0x00 {
		v.fail(fault.New(fault.UnknownCallNumber), pc)
		return
	}
	value, ferr := v.arena.Top(stack.W64, v.bp)
	if ferr != nil {
		v.fail(ferr, pc)
		return
	}
	v.writeHost(value)
}

// execInvoke builds the callee's activation frame. The push order
// here (saved bp, then return address, then args, then uninitialized
// locals) is chosen so that bp ends up pointing at the first byte of
// the locals block once both pointer words are behind it, matching
// the bp convention documented in internal/stack's package comment
// rather than spec.md §4.5's literal step numbering, which computes
// bp before the return address is pushed.
func (v *VM) execInvoke(pc uint64) {
	poolIndex, ferr := v.instr.NextU64()
	if ferr != nil {
		v.fail(ferr, pc)
		return
	}

	d, ferr := v.container.Descriptor(poolIndex)
	if ferr != nil {
		v.fail(ferr, pc)
		return
	}
	if d.VarLen < uint16(d.ArgLen) {
		v.fail(fault.New(fault.BytecodeAccessViolation), pc)
		return
	}

	argLen := uint64(d.ArgLen)
	args, ferr := v.arena.PeekArgs(argLen)
	if ferr != nil {
		v.fail(ferr, pc)
		return
	}
	v.arena.Shrink(argLen * uint64(stack.W32))

	savedBP := v.bp
	if ferr := v.arena.Push(stack.W64, savedBP); ferr != nil {
		v.fail(ferr, pc)
		return
	}

	returnAddr := v.instr.Position()
	if ferr := v.arena.Push(stack.W64, returnAddr); ferr != nil {
		v.fail(ferr, pc)
		return
	}

	newBP := v.arena.SP()
	for _, a := range args {
		if ferr := v.arena.Push(stack.W32, uint64(a)); ferr != nil {
			v.fail(ferr, pc)
			return
		}
	}

	uninitialized := uint64(d.VarLen-uint16(d.ArgLen)) * uint64(stack.W32)
	if ferr := v.arena.Reserve(uninitialized); ferr != nil {
		v.fail(ferr, pc)
		return
	}

	if ferr := v.instr.JumpTo(d.Start); ferr != nil {
		v.fail(ferr, pc)
		return
	}
	v.bp = newBP
}

// execReturn unwinds the current frame: the operand stack is trimmed
// back to bp, then the return address and saved bp are popped off the
// frame markers beneath it, restoring the caller's frame exactly as
// execInvoke built it.
func (v *VM) execReturn(pc uint64) {
	if v.arena.SP() < v.bp {
		v.fail(fault.New(fault.StackAccessViolation), pc)
		return
	}
	v.arena.Shrink(v.arena.SP() - v.bp)

	returnAddr := v.arena.UnsafePop(stack.W64)
	callerBP := v.arena.UnsafePop(stack.W64)

	v.bp = callerBP
	if ferr := v.instr.JumpTo(returnAddr); ferr != nil {
		v.fail(ferr, pc)
	}
}
