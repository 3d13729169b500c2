package cursor

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

func TestNextWidths(t *testing.T) {
	region := []byte{0x2a, 0x01, 0x00, 0x02, 0x00, 0x00, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	c := New(region)

	b, err := c.NextU8()
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, b == 0x2a, "got %x", b)

	s, err := c.NextU16()
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, s == 1, "got %d", s)

	i, err := c.NextU32()
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, i == 2, "got %d", i)

	l, err := c.NextU64()
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, l == 3, "got %d", l)

	assert(t, c.AtEnd(), "expected cursor to be exhausted")
}

func TestNextOutOfRange(t *testing.T) {
	c := New([]byte{0x01})
	_, err := c.NextU32()
	assert(t, err != nil, "expected an error")
	assert(t, err.Code == fault.BytecodeAccessViolation, "got %v", err.Code)
}

func TestJumpToBackwardAndForward(t *testing.T) {
	c := New(make([]byte, 16))
	assert(t, c.JumpTo(10) == nil, "forward jump should succeed")
	assert(t, c.Position() == 10, "got %d", c.Position())
	assert(t, c.JumpTo(2) == nil, "backward jump should succeed")
	assert(t, c.Position() == 2, "got %d", c.Position())

	err := c.JumpTo(17)
	assert(t, err != nil, "expected an error jumping past the limit")
	assert(t, err.Code == fault.BytecodeAccessViolation, "got %v", err.Code)
}

func TestNegativeRelativeOffset(t *testing.T) {
	c := New([]byte{0xfe, 0xff})
	v, err := c.NextI16()
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, v == -2, "got %d", v)
}

func TestTwoCursorsOverSameBuffer(t *testing.T) {
	region := []byte{0x01, 0x02, 0x03, 0x04}
	a := New(region)
	b := New(region)

	_, _ = a.NextU8()
	_, _ = b.NextU8()
	_, _ = b.NextU8()

	assert(t, a.Position() == 1, "cursor a should be independent, got %d", a.Position())
	assert(t, b.Position() == 2, "cursor b should be independent, got %d", b.Position())
}
