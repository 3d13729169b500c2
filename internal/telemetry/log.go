// Package telemetry is the VM's only logging surface. The
// interpreter's hot dispatch loop never imports a logging library
// directly (matching the teacher's separation of vm/vm.go's tight
// instruction loop from main.go's IO); instead it accepts a narrow
// Tracer interface, and this package supplies the zerolog-backed
// implementation the CLI wires in, grounded in
// other_examples/1be10575_rgehrsitz-rex_claude's zerolog-instrumented
// bytecode runtime.
package telemetry

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"cheschine/internal/fault"
	"cheschine/internal/opcode"
)

// Tracer receives interpreter lifecycle events. Implementations must
// not block or panic; the interpreter calls them synchronously on the
// dispatch path.
type Tracer interface {
	ContainerLoaded(codeName string, major, minor, patch byte)
	EntryResolved(pc uint64)
	Dispatch(pc uint64, code opcode.Code)
	Terminated(f *fault.Fault)
}

// noop discards every event; it is the default so the interpreter
// core can be used as a library without pulling in zerolog's output.
type noop struct{}

func (noop) ContainerLoaded(string, byte, byte, byte) {}
func (noop) EntryResolved(uint64)                     {}
func (noop) Dispatch(uint64, opcode.Code)             {}
func (noop) Terminated(*fault.Fault)                  {}

// NoOp returns a Tracer that discards all events.
func NoOp() Tracer { return noop{} }

// zlog is the zerolog-backed Tracer used by cmd/cheschine.
type zlog struct {
	logger   zerolog.Logger
	dispatch zerolog.Logger
	trace    bool
}

// New builds a zerolog-backed Tracer writing to w at the given
// minimum level. trace additionally enables one debug-level line per
// dispatched opcode, the structured equivalent of the teacher's
// single-step printCurrentState tracing in gvm/vm/run.go.
func New(w io.Writer, level zerolog.Level, trace bool) Tracer {
	if w == nil {
		w = os.Stderr
	}
	base := zerolog.New(w).With().Timestamp().Logger()
	return &zlog{logger: base.Level(level), dispatch: base.Level(zerolog.DebugLevel), trace: trace}
}

func (z *zlog) ContainerLoaded(codeName string, major, minor, patch byte) {
	z.logger.Info().
		Str("code_name", codeName).
		Str("version", versionString(major, minor, patch)).
		Msg("container validated")
}

func (z *zlog) EntryResolved(pc uint64) {
	z.logger.Info().Uint64("pc", pc).Msg("entry point resolved")
}

func (z *zlog) Dispatch(pc uint64, code opcode.Code) {
	if !z.trace {
		return
	}
	z.dispatch.Debug().Uint64("pc", pc).Str("opcode", code.String()).Msg("dispatch")
}

func (z *zlog) Terminated(f *fault.Fault) {
	if f == nil {
		z.logger.Info().Msg("success")
		return
	}
	event := z.logger.Warn()
	if f.Code == fault.Success {
		event = z.logger.Info()
	}
	event.Str("status", f.Code.String()).Uint64("pc", f.At).Msg("terminated")
}

func versionString(major, minor, patch byte) string {
	buf := make([]byte, 0, 8)
	buf = appendByte(buf, major)
	buf = append(buf, '.')
	buf = appendByte(buf, minor)
	buf = append(buf, '.')
	buf = appendByte(buf, patch)
	return string(buf)
}

func appendByte(buf []byte, v byte) []byte {
	if v >= 100 {
		buf = append(buf, '0'+v/100)
		v %= 100
	}
	if v >= 10 {
		buf = append(buf, '0'+v/10)
		v %= 10
	}
	return append(buf, '0'+v)
}
