// Package container implements the CHESC container reader: header
// validation plus lazy, cursor-backed access to the pool and
// instruction regions. It plays the role the teacher's
// NewVirtualMachine file-loading prologue plays in gvm/vm/vm.go,
// generalized from a line-oriented text assembly format to the
// spec's byte-exact binary container.
package container

import (
	"encoding/binary"
	"strings"

	"cheschine/internal/cursor"
	"cheschine/internal/fault"
)

const (
	// HeaderSize is the fixed header length every container begins with.
	HeaderSize = 128

	magicOffset    = 0
	magicSize      = 8
	codeNameOffset = 8
	codeNameSize   = 8
	versionOffset  = 16
	versionSize    = 3

	// entryIndexOffset holds the pool index of the entry-point function
	// (spec.md §4.1, §6). poolCountOffset and the fixed descriptor
	// slot size are this implementation's resolution of the "exact
	// byte-padding of pool descriptors" open question (SPEC_FULL.md
	// Part E, item 1): a count field makes the pool/instruction
	// boundary computable without scanning.
	entryIndexOffset      = 128
	poolCountOffset       = 136
	poolDescriptorsOffset = 144

	// DescriptorSlotSize is the fixed byte size of one pool
	// descriptor slot: start (u64) + var_len (u16) + arg_len (u8),
	// padded to a power of two.
	DescriptorSlotSize = 16
)

// Magic is the 8-byte container signature, spelled "CHESCCBC".
var Magic = [magicSize]byte{0x43, 0x48, 0x45, 0x53, 0x43, 0x43, 0x42, 0x43}

// Descriptor is one pool entry: a function's start address, its
// local-variable slot count, and its argument count.
type Descriptor struct {
	Start  uint64
	VarLen uint16
	ArgLen uint8
}

// Container is a validated CHESC byte buffer with lazy pool and
// instruction-region access.
type Container struct {
	bytes []byte
}

// Validate checks only the header: size and magic number. It does
// NOT validate the pool or instruction regions; those are checked
// lazily by bounds-checked cursors as the interpreter touches them.
func Validate(bytes []byte) (*Container, *fault.Fault) {
	if len(bytes) < HeaderSize {
		return nil, fault.New(fault.InvalidHeaderSize)
	}
	if [magicSize]byte(bytes[magicOffset:magicOffset+magicSize]) != Magic {
		return nil, fault.New(fault.InvalidMagicNumber)
	}
	return &Container{bytes: bytes}, nil
}

// CodeName returns the 8-byte ASCII code name field, trimmed of
// trailing NUL padding.
func (c *Container) CodeName() string {
	return strings.TrimRight(string(c.bytes[codeNameOffset:codeNameOffset+codeNameSize]), "\x00")
}

// Version returns the (major, minor, patch) semantic version triple.
func (c *Container) Version() (major, minor, patch byte) {
	v := c.bytes[versionOffset : versionOffset+versionSize]
	return v[0], v[1], v[2]
}

// Bytes returns the whole validated buffer.
func (c *Container) Bytes() []byte {
	return c.bytes
}

// EntryPointIndex reads the pool index of the entry-point function
// from the fixed offset at byte 128.
func (c *Container) EntryPointIndex() (uint64, *fault.Fault) {
	cur := cursor.New(c.bytes)
	if err := cur.JumpTo(entryIndexOffset); err != nil {
		return 0, err
	}
	return cur.NextU64()
}

// poolCount reads the number of descriptors in the pool.
func (c *Container) poolCount() (uint64, *fault.Fault) {
	cur := cursor.New(c.bytes)
	if err := cur.JumpTo(poolCountOffset); err != nil {
		return 0, err
	}
	return cur.NextU64()
}

// Descriptor resolves pool slot index to its function descriptor.
func (c *Container) Descriptor(index uint64) (Descriptor, *fault.Fault) {
	count, err := c.poolCount()
	if err != nil {
		return Descriptor{}, err
	}
	if index >= count {
		return Descriptor{}, fault.New(fault.BytecodeAccessViolation)
	}

	addr := poolDescriptorsOffset + index*DescriptorSlotSize
	cur := cursor.New(c.bytes)
	if err := cur.JumpTo(addr); err != nil {
		return Descriptor{}, err
	}
	start, err := cur.NextU64()
	if err != nil {
		return Descriptor{}, err
	}
	varLen, err := cur.NextU16()
	if err != nil {
		return Descriptor{}, err
	}
	argLen, err := cur.NextU8()
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{Start: start, VarLen: varLen, ArgLen: argLen}, nil
}

// EntryPointAddress dereferences the entry-point pool slot to obtain
// the start address of the entry function (spec.md §4.1).
func (c *Container) EntryPointAddress() (uint64, *fault.Fault) {
	index, err := c.EntryPointIndex()
	if err != nil {
		return 0, err
	}
	d, err := c.Descriptor(index)
	if err != nil {
		return 0, err
	}
	return d.Start, nil
}

// InstructionRegion returns the raw opcode stream following the pool.
func (c *Container) InstructionRegion() ([]byte, *fault.Fault) {
	count, err := c.poolCount()
	if err != nil {
		return nil, err
	}
	start := poolDescriptorsOffset + count*DescriptorSlotSize
	if start > uint64(len(c.bytes)) {
		return nil, fault.New(fault.BytecodeAccessViolation)
	}
	return c.bytes[start:], nil
}

// InstructionRegionStart returns the absolute byte offset where the
// instruction region begins, for translating between pc (relative to
// the instruction region) and absolute file offsets when needed.
func (c *Container) InstructionRegionStart() (uint64, *fault.Fault) {
	count, err := c.poolCount()
	if err != nil {
		return 0, err
	}
	return poolDescriptorsOffset + count*DescriptorSlotSize, nil
}

// PutUint64 writes v into b in the container format's byte order
// (little-endian, per spec.md §6).
func PutUint64(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }
