package stack

import (
	"testing"

	"cheschine/internal/fault"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestPopBelowFrameGuardRejected(t *testing.T) {
	a := New(64)
	bp := uint64(16)

	// sp is 4 (one w32 push) but bp sits at byte 16: this push landed
	// "before" the frame even exists, so popping it back through the
	// guard must fail rather than silently succeed.
	assert(t, a.Push(W32, 0xdeadbeef) == nil, "push should succeed")
	_, err := a.Pop(W32, bp)
	assert(t, err != nil, "pop below the frame guard must be rejected")
}

func TestPushPopWithinFrame(t *testing.T) {
	a := New(64)
	assert(t, a.Reserve(16) == nil, "reserve should succeed")
	bp := a.SP()

	pre := a.SP()
	assert(t, a.Push(W32, 42) == nil, "push should succeed")
	v, err := a.Pop(W32, bp)
	assert(t, err == nil, "pop should succeed: %v", err)
	assert(t, v == 42, "got %d", v)
	assert(t, a.SP() == pre, "push then pop should restore sp")
}

func TestDupIsPushThenPop(t *testing.T) {
	a := New(64)
	assert(t, a.Reserve(16) == nil, "reserve should succeed")
	bp := a.SP()

	assert(t, a.Push(W32, 7) == nil, "push should succeed")
	after := a.SP()
	top, err := a.Top(W32, bp)
	assert(t, err == nil, "top should succeed: %v", err)
	assert(t, a.Push(W32, top) == nil, "dup push should succeed")
	_, _ = a.Pop(W32, bp)
	assert(t, a.SP() == after, "dup then pop should match single push")
}

func TestStackOverflow(t *testing.T) {
	a := New(4)
	assert(t, a.Push(W32, 1) == nil, "first push should fit")
	err := a.Push(W32, 2)
	assert(t, err != nil && err.Code == fault.StackOverflow, "expected StackOverflow, got %v", err)
}

func TestGuardBlocksOverwritingReturnAddress(t *testing.T) {
	a := New(64)
	assert(t, a.Reserve(24) == nil, "reserve should succeed") // bp = 24
	bp := a.SP()

	_, err := a.Pop(W32, bp)
	assert(t, err != nil && err.Code == fault.StackAccessViolation, "expected StackAccessViolation popping the guard boundary, got %v", err)

	_, err = a.Top(W32, bp)
	assert(t, err != nil && err.Code == fault.StackAccessViolation, "expected StackAccessViolation peeking the guard boundary, got %v", err)
}

func TestStoreLoadRoundTrip(t *testing.T) {
	a := New(64)
	assert(t, a.Reserve(16) == nil, "reserve frame marker should succeed")
	bp := a.SP()
	assert(t, a.Reserve(4*2) == nil, "admit two w32 locals")

	assert(t, a.Push(W32, 99) == nil, "push should succeed")
	assert(t, a.Store(W32, bp, 1) == nil, "store should succeed")
	assert(t, a.Load(W32, bp, 1) == nil, "load should succeed")

	v, err := a.Pop(W32, bp)
	assert(t, err == nil, "pop should succeed: %v", err)
	assert(t, v == 99, "expected stored value to round-trip, got %d", v)
}

func TestLoadUnadmittedSlotFails(t *testing.T) {
	a := New(64)
	assert(t, a.Reserve(16) == nil, "reserve should succeed")
	bp := a.SP() // zero locals admitted beyond bp

	err := a.Load(W32, bp, 0)
	assert(t, err != nil && err.Code == fault.StackAccessViolation, "expected StackAccessViolation, got %v", err)
}

func TestW64SpansTwoW32Slots(t *testing.T) {
	a := New(64)
	assert(t, a.Reserve(16) == nil, "reserve should succeed")
	bp := a.SP()
	assert(t, a.Reserve(4*2) == nil, "admit two w32 locals")

	assert(t, a.Push(W64, 0x0102030405060708) == nil, "push should succeed")
	assert(t, a.Store(W64, bp, 0) == nil, "store w64 across slots 0 and 1 should succeed")
	assert(t, a.Load(W64, bp, 0) == nil, "load should succeed")

	v, err := a.Pop(W64, bp)
	assert(t, err == nil, "pop should succeed: %v", err)
	assert(t, v == 0x0102030405060708, "got %x", v)
}

func TestPeekArgsPreservesSourceOrder(t *testing.T) {
	a := New(64)
	assert(t, a.Push(W32, 10) == nil, "push arg0")
	assert(t, a.Push(W32, 20) == nil, "push arg1")
	assert(t, a.Push(W32, 30) == nil, "push arg2")

	args, err := a.PeekArgs(3)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, args[0] == 10 && args[1] == 20 && args[2] == 30, "got %v", args)
	assert(t, a.SP() == 12, "PeekArgs must not move sp")

	a.Shrink(12)
	assert(t, a.SP() == 0, "Shrink should retreat sp by the given amount")
}

func TestReserveZeroesAndChecksCapacity(t *testing.T) {
	a := New(8)
	assert(t, a.Push(W32, 0xffffffff) == nil, "push should succeed")
	assert(t, a.Reserve(4) == nil, "reserve should succeed")
	v, _ := a.Pop(W32, 0)
	assert(t, v == 0, "reserved bytes should be zeroed, got %x", v)

	err := a.Reserve(100)
	assert(t, err != nil && err.Code == fault.StackOverflow, "expected StackOverflow, got %v", err)
}
