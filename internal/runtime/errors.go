package runtime

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrorFlags is an orthogonal bitmask of failure categories, combined with
// |= as each stage of an operation adds whatever it detected. Reading it
// never changes it; callers use GetLastError (context-scoped) or
// GetLastGlobalError (package-scoped) to read-and-clear instead.
type ErrorFlags uint32

const (
	ErrNone ErrorFlags = 0
	ErrFile ErrorFlags = 1 << iota
	ErrFormat
	ErrSemantic
	ErrModel
	ErrResource
	ErrGraph
	ErrArgs
)

func (f ErrorFlags) String() string {
	if f == ErrNone {
		return "none"
	}
	names := []struct {
		bit  ErrorFlags
		name string
	}{
		{ErrFile, "file"}, {ErrFormat, "format"}, {ErrSemantic, "semantic"},
		{ErrModel, "model"}, {ErrResource, "resource"}, {ErrGraph, "graph"}, {ErrArgs, "args"},
	}
	s := ""
	for _, n := range names {
		if f&n.bit != 0 {
			if s != "" {
				s += "|"
			}
			s += n.name
		}
	}
	return s
}

// globalErr mirrors the reference implementation's thread-local error
// flag. Go has no thread-local storage and this API is defined as
// single-threaded-per-context, so a mutex-guarded package variable is the
// idiomatic equivalent: one slot, safe to touch from any goroutine, not a
// per-goroutine slot (which would defeat the point of a simple last-error
// convenience for load failures that happen before any context exists).
// The quantizer does not record failures here; it only returns errors.
var (
	globalMu        sync.Mutex
	globalLastError ErrorFlags
	printErrors     bool
)

// SetGlobalError ORs f into the package-level failure flags and, if
// SetPrintErrors(true) is in effect, logs it.
func SetGlobalError(f ErrorFlags) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLastError |= f
	if printErrors {
		log.Error().Str("flags", f.String()).Msg("rwkv load error")
	}
}

// GetLastGlobalError returns and clears the package-level failure flags
// recorded since the last call.
func GetLastGlobalError() ErrorFlags {
	globalMu.Lock()
	defer globalMu.Unlock()
	f := globalLastError
	globalLastError = ErrNone
	return f
}

// SetPrintErrors toggles whether SetGlobalError also logs the failures it
// records. Context-scoped eval failures follow Context.SetPrintErrors.
func SetPrintErrors(enabled bool) {
	globalMu.Lock()
	defer globalMu.Unlock()
	printErrors = enabled
}

// GetPrintErrors reports the current SetPrintErrors setting.
func GetPrintErrors() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return printErrors
}
