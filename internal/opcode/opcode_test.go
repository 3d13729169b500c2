package opcode

import "testing"

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestStringRoundTrip(t *testing.T) {
	for code, name := range nameOf {
		assert(t, code.String() == name, "String() mismatch for %v", code)
		got, ok := Lookup(name)
		assert(t, ok, "Lookup(%q) should succeed", name)
		assert(t, got == code, "Lookup(%q) = %v, want %v", name, got, code)
	}
}

func TestUnknownOpcode(t *testing.T) {
	var c Code = 0x21
	assert(t, !c.Known(), "0x21 should be outside the closed table")
	assert(t, c.String() == "?unknown?", "got %q", c.String())
}

func TestOperandSizes(t *testing.T) {
	cases := map[Code]uint64{
		NOP: 0, EXIT: 0, RET: 0,
		CALL: 1, BPUSH: 1,
		SPUSH: 2, LOAD: 2, STORE: 2, GOTO: 2, IF: 2,
		IPUSH: 4,
		INVOKE: 8, LPUSH: 8,
	}
	for code, size := range cases {
		assert(t, code.Operand().Size() == size, "%v: got operand size %d, want %d", code, code.Operand().Size(), size)
	}
}
