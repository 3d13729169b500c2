// Package cursor implements a typed, bounds-checked sequential reader
// over a byte region, in the spirit of the teacher's stack-pointer
// arithmetic in gvm/vm.go but generalized into a non-owning view so
// the interpreter can keep one cursor over the instruction region and
// a second over the pool region of the same underlying buffer.
package cursor

import (
	"encoding/binary"

	"cheschine/internal/fault"
)

// Cursor is a non-owning view: origin is implicit (bytes[0]), position
// is the next byte to read, limit is one past the last valid byte.
// Two cursors may share the same backing array; each tracks its own
// position independently.
type Cursor struct {
	bytes    []byte
	position uint64
	limit    uint64
}

// New creates a cursor over region, positioned at its start.
func New(region []byte) *Cursor {
	return &Cursor{bytes: region, position: 0, limit: uint64(len(region))}
}

// Position returns the current absolute read position.
func (c *Cursor) Position() uint64 {
	return c.position
}

// Limit returns one past the last readable byte.
func (c *Cursor) Limit() uint64 {
	return c.limit
}

// JumpTo repositions the cursor, including backward jumps. Fails with
// BytecodeAccessViolation when target exceeds the region's limit.
func (c *Cursor) JumpTo(target uint64) *fault.Fault {
	if target > c.limit {
		return fault.At(fault.BytecodeAccessViolation, c.position)
	}
	c.position = target
	return nil
}

func (c *Cursor) take(width uint64) ([]byte, *fault.Fault) {
	if c.position+width > c.limit {
		return nil, fault.At(fault.BytecodeAccessViolation, c.position)
	}
	b := c.bytes[c.position : c.position+width]
	c.position += width
	return b, nil
}

// NextU8 reads one unsigned byte and advances the cursor.
func (c *Cursor) NextU8() (uint8, *fault.Fault) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// NextU16 reads a little-endian 16-bit word and advances the cursor.
func (c *Cursor) NextU16() (uint16, *fault.Fault) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// NextI16 reads a little-endian 16-bit signed relative offset.
func (c *Cursor) NextI16() (int16, *fault.Fault) {
	v, err := c.NextU16()
	if err != nil {
		return 0, err
	}
	return int16(v), nil
}

// NextU32 reads a little-endian 32-bit word and advances the cursor.
func (c *Cursor) NextU32() (uint32, *fault.Fault) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// NextU64 reads a little-endian 64-bit word and advances the cursor.
func (c *Cursor) NextU64() (uint64, *fault.Fault) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// PeekU8 reads the next byte without advancing the cursor.
func (c *Cursor) PeekU8() (uint8, *fault.Fault) {
	if c.position+1 > c.limit {
		return 0, fault.At(fault.BytecodeAccessViolation, c.position)
	}
	return c.bytes[c.position], nil
}

// AtEnd reports whether the cursor has consumed the entire region.
func (c *Cursor) AtEnd() bool {
	return c.position >= c.limit
}
