// Package stack implements the operand-stack memory arena: a
// fixed-capacity byte region addressed by a monotonically-adjusted
// stack pointer, with typed, bounds-checked push/pop/top/load/store
// operations. It plays the role the teacher's gvm.VM.stack array and
// its popStack/pushStack helpers play in gvm/vm.go, generalized to an
// owned buffer with an explicit capacity rather than a fixed
// package-level array, and to two widths (w32/w64) instead of one.
//
// Frame addressing convention: bp is the address of the first byte of
// the current frame's locals block (spec.md §3: "the current frame's
// base pointer bp points to the byte just after the return address").
// The saved caller bp and the return address therefore live at
// [bp-2*PointerWidth, bp); that range is what every SAFE operation
// refuses to touch, which is the same invariant spec.md §4.3 states
// as "bp + 2*pointer_size" when measured from the address of the
// saved-bp slot rather than from bp itself.
package stack

import (
	"encoding/binary"

	"cheschine/internal/fault"
)

// Width is the access width for a stack operation, in bytes.
type Width uint64

const (
	W32 Width = 4
	W64 Width = 8
)

// PointerWidth is the byte width of a saved base pointer or return
// address on the stack. The container's addresses are 64-bit byte
// offsets, so pointer-width words are stored as w64.
const PointerWidth uint64 = 8

// Arena is the operand stack: a contiguous owned byte buffer plus a
// stack pointer. sp is always "first unused byte above the operand
// stack" (the glossary definition), so push grows sp upward and pop
// retreats it.
type Arena struct {
	bytes    []byte
	sp       uint64
	capacity uint64
}

// New allocates an arena of the given fixed capacity. The reference
// CHESC interpreter uses 1024 bytes; callers may pass any capacity.
func New(capacity uint64) *Arena {
	return &Arena{bytes: make([]byte, capacity), sp: 0, capacity: capacity}
}

// SP returns the current stack pointer (byte offset from origin).
func (a *Arena) SP() uint64 { return a.sp }

// Capacity returns the arena's fixed maximum size in bytes.
func (a *Arena) Capacity() uint64 { return a.capacity }

// Push writes value (truncated to width w) at the current stack
// pointer and advances it. Fails with StackOverflow when the write
// would exceed capacity.
func (a *Arena) Push(w Width, value uint64) *fault.Fault {
	if a.sp+uint64(w) > a.capacity {
		return fault.New(fault.StackOverflow)
	}
	putWidth(a.bytes[a.sp:], w, value)
	a.sp += uint64(w)
	return nil
}

// Pop retreats the stack pointer and returns the value that was on
// top, refusing to cross into or below the callee-invariant region
// (the saved bp / return address) belonging to the current frame.
func (a *Arena) Pop(w Width, bp uint64) (uint64, *fault.Fault) {
	if a.sp < uint64(w) || a.sp-uint64(w) < bp {
		return 0, fault.New(fault.StackAccessViolation)
	}
	a.sp -= uint64(w)
	return readWidth(a.bytes[a.sp:], w), nil
}

// Top is the read-only equivalent of Pop: same guard, no sp mutation.
func (a *Arena) Top(w Width, bp uint64) (uint64, *fault.Fault) {
	if a.sp < uint64(w) || a.sp-uint64(w) < bp {
		return 0, fault.New(fault.StackAccessViolation)
	}
	return readWidth(a.bytes[a.sp-uint64(w):], w), nil
}

// UnsafePop bypasses the frame-boundary guard entirely. It exists
// solely for RET's unwind sequence, which has already validated
// sp >= bp before calling it.
func (a *Arena) UnsafePop(w Width) uint64 {
	a.sp -= uint64(w)
	return readWidth(a.bytes[a.sp:], w)
}

// Load pushes the content of local slot index (width w) onto the
// stack. Fails with StackAccessViolation when the frame hasn't
// admitted that slot yet (sp has not grown far enough past bp).
func (a *Arena) Load(w Width, bp, index uint64) *fault.Fault {
	addr := bp + 4*index
	if a.sp < addr+uint64(w) {
		return fault.New(fault.StackAccessViolation)
	}
	value := readWidth(a.bytes[addr:], w)
	return a.Push(w, value)
}

// Store pops the top value (width w) and writes it into local slot
// index. Same admission guard as Load.
func (a *Arena) Store(w Width, bp, index uint64) *fault.Fault {
	addr := bp + 4*index
	if a.sp < addr+uint64(w) {
		return fault.New(fault.StackAccessViolation)
	}
	value, err := a.Pop(w, bp)
	if err != nil {
		return err
	}
	putWidth(a.bytes[addr:], w, value)
	return nil
}

// PeekArgs reads the top count consecutive w32 values without popping
// them, returned in the order they were pushed (index 0 is the
// deepest / first-pushed of the span, matching INVOKE's "snapshot the
// top arg_len w32 values in source order", spec.md §4.5 step 5).
func (a *Arena) PeekArgs(count uint64) ([]uint32, *fault.Fault) {
	span := count * uint64(W32)
	if a.sp < span {
		return nil, fault.New(fault.StackAccessViolation)
	}
	base := a.sp - span
	out := make([]uint32, count)
	for i := uint64(0); i < count; i++ {
		out[i] = binary.LittleEndian.Uint32(a.bytes[base+i*4:])
	}
	return out, nil
}

// Shrink retreats sp by n bytes without reading it back, used after
// PeekArgs has already captured the values INVOKE needs.
func (a *Arena) Shrink(n uint64) {
	a.sp -= n
}

// Reserve advances sp by n bytes without writing a value, zeroing the
// admitted region. Used by INVOKE to admit a callee's uninitialized
// local slots (spec.md §4.5 step 11).
func (a *Arena) Reserve(n uint64) *fault.Fault {
	if a.sp+n > a.capacity {
		return fault.New(fault.StackOverflow)
	}
	clear(a.bytes[a.sp : a.sp+n])
	a.sp += n
	return nil
}

func readWidth(b []byte, w Width) uint64 {
	switch w {
	case W32:
		return uint64(binary.LittleEndian.Uint32(b))
	default:
		return binary.LittleEndian.Uint64(b)
	}
}

func putWidth(b []byte, w Width, value uint64) {
	switch w {
	case W32:
		binary.LittleEndian.PutUint32(b, uint32(value))
	default:
		binary.LittleEndian.PutUint64(b, value)
	}
}
