package runtime

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"rwkvgo/internal/model"
	"rwkvgo/internal/planner"
)

// Context is one loaded model plus the scratch buffers a single Eval call
// reuses across tokens. It is not safe for concurrent Eval calls — the
// API is defined as single-threaded-per-context, matching the reference
// implementation's one-graph-per-context design.
type Context struct {
	mu sync.Mutex

	model    *model.Model
	nThreads int
	size     planner.ContextSize

	lastErr     ErrorFlags
	printErrors bool

	logger zerolog.Logger

	// scratch buffers, reused across Eval calls to avoid per-token
	// allocation; sized once at load time.
	x0, xk, xv, xr, r, k, v, wkv, ffnK, ffnV, ffnR, attOut []float32
}

// StateElementCount returns the number of float32 values state_in/state_out
// must hold: 5 slices of EmbedWidth per layer.
func (c *Context) StateElementCount() uint32 {
	return uint32(len(c.model.Layers)) * 5 * c.model.EmbedWidth
}

// LogitsElementCount returns the vocabulary size, the width of the logits
// buffer Eval writes.
func (c *Context) LogitsElementCount() uint32 {
	return c.model.VocabSize
}

// MemoryEstimate returns the two-pass size tally computed at load time,
// informational only (see internal/planner).
func (c *Context) MemoryEstimate() planner.ContextSize {
	return c.size
}

// GetLastError returns and clears this context's eval failure flags, the
// sibling of the package-level load-failure surface.
func (c *Context) GetLastError() ErrorFlags {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.lastErr
	c.lastErr = ErrNone
	return f
}

// SetPrintErrors toggles whether this context's own eval failures are
// logged as they occur, independent of the package-level load-failure
// toggle — a sibling surface, not a shared global.
func (c *Context) SetPrintErrors(enabled bool) {
	c.mu.Lock()
	c.printErrors = enabled
	c.mu.Unlock()
}

// GetPrintErrors reports this context's current SetPrintErrors setting.
func (c *Context) GetPrintErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.printErrors
}

// setError records f as this context's most recent failure and, if this
// context's own print-errors flag is set, logs it. Callers must already
// hold c.mu — Eval holds it for the duration of the call.
func (c *Context) setError(f ErrorFlags) {
	c.lastErr |= f
	if c.printErrors {
		log.Error().Str("flags", f.String()).Msg("rwkv eval error")
	}
}

func allocScratch(c *Context) {
	e := c.model.EmbedWidth
	f := c.model.FFNWidth
	c.x0 = make([]float32, e)
	c.xk = make([]float32, e)
	c.xv = make([]float32, e)
	c.xr = make([]float32, e)
	c.r = make([]float32, e)
	c.k = make([]float32, e)
	c.v = make([]float32, e)
	c.wkv = make([]float32, e)
	c.ffnK = make([]float32, f)
	c.ffnV = make([]float32, e)
	c.ffnR = make([]float32, e)
	c.attOut = make([]float32, e)
}
