// Package rwkv is the public facade over the model loader, recurrent
// graph, and quantizer: the surface a host application embeds instead
// of reaching into internal packages directly.
package rwkv

import (
	"fmt"

	"rwkvgo/internal/filefmt"
	"rwkvgo/internal/kernels"
	"rwkvgo/internal/planner"
	"rwkvgo/internal/quantize"
	"rwkvgo/internal/runtime"
)

// ErrorFlags is the bitmask of failure categories GetLastError reports,
// the same surface shape the reference implementation's FFI polling API
// exposes.
type ErrorFlags = runtime.ErrorFlags

// Session is one loaded model, ready to evaluate tokens against caller-
// owned state buffers.
type Session struct {
	ctx *runtime.Context
}

// LoadModel opens a model file and builds a ready-to-evaluate Session.
// nThreads controls how many goroutines Eval's matrix-vector products
// fan out across.
func LoadModel(path string, nThreads int) (*Session, error) {
	ctx, err := runtime.LoadFromFile(path, nThreads)
	if err != nil {
		return nil, err
	}
	return &Session{ctx: ctx}, nil
}

// StateElementCount returns the number of float32 values a state buffer
// passed to Eval must hold.
func (s *Session) StateElementCount() uint32 { return s.ctx.StateElementCount() }

// LogitsElementCount returns the number of float32 values a logits
// buffer passed to Eval must hold.
func (s *Session) LogitsElementCount() uint32 { return s.ctx.LogitsElementCount() }

// MemoryEstimate reports the two-pass object/scratch size tally computed
// at load time. Informational only; Go's allocator owns the real memory.
func (s *Session) MemoryEstimate() planner.ContextSize { return s.ctx.MemoryEstimate() }

// Eval advances the session by one token. See runtime.Context.Eval for
// the exact state aliasing and nil-state-in rules.
func (s *Session) Eval(token uint32, stateIn, stateOut, logitsOut []float32) error {
	return s.ctx.Eval(token, stateIn, stateOut, logitsOut)
}

// GetLastError returns and clears this session's most recent eval
// failure flags.
func (s *Session) GetLastError() ErrorFlags {
	return s.ctx.GetLastError()
}

// SetPrintErrors toggles whether this session's eval failures are also
// logged as they occur. This is a sibling of the package-level
// SetPrintErrors (which only covers LoadModel failures, before any Session
// exists), not the same flag.
func (s *Session) SetPrintErrors(enabled bool) { s.ctx.SetPrintErrors(enabled) }

// GetPrintErrors reports this session's current SetPrintErrors setting.
func (s *Session) GetPrintErrors() bool { return s.ctx.GetPrintErrors() }

// Close releases the session's scratch buffers. The session must not be
// used again afterward.
func (s *Session) Close() {
	s.ctx.Free()
}

// QuantizeModelFile requantizes inputPath into outputPath using the
// named target type ("Q4_0", "Q4_1", "Q5_0", "Q5_1", "Q8_0", or "F32"
// for a structural passthrough re-encode). Failures are reported only
// through the returned error; no error flags are set and nothing is logged
// for them.
func QuantizeModelFile(inputPath, outputPath, targetType string) (quantize.Report, error) {
	t, err := parseDataType(targetType)
	if err != nil {
		return quantize.Report{}, err
	}
	return quantize.QuantizeModelFile(inputPath, outputPath, t)
}

// SetPrintErrors toggles whether LoadModel failures are also logged as
// they occur, independent of their returned errors. Eval failures follow
// Session.SetPrintErrors; QuantizeModelFile failures are not logged.
func SetPrintErrors(enabled bool) { runtime.SetPrintErrors(enabled) }

// GetPrintErrors reports the current SetPrintErrors setting.
func GetPrintErrors() bool { return runtime.GetPrintErrors() }

// GetLastError returns and clears the flags of LoadModel failures,
// recorded before any Session existed to hold them.
func GetLastError() ErrorFlags { return runtime.GetLastGlobalError() }

// SystemInfoString reports the CPU feature set the kernels package
// detected at startup, for diagnostic logging.
func SystemInfoString() string { return kernels.SystemInfoString() }

func parseDataType(name string) (quantize.TargetType, error) {
	switch name {
	case "F32":
		return filefmt.TypeF32, nil
	case "Q4_0":
		return filefmt.TypeQ4_0, nil
	case "Q4_1":
		return filefmt.TypeQ4_1, nil
	case "Q5_0":
		return filefmt.TypeQ5_0, nil
	case "Q5_1":
		return filefmt.TypeQ5_1, nil
	case "Q8_0":
		return filefmt.TypeQ8_0, nil
	default:
		return 0, fmt.Errorf("rwkv: unknown quantize target %q", name)
	}
}
