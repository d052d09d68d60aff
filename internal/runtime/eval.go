package runtime

import (
	"fmt"

	"rwkvgo/internal/kernels"
)

// Eval advances the model by one token: embeds token, runs every layer's
// attention and FFN subgraph against stateIn, writes the updated state
// into stateOut, and writes the resulting logits into logitsOut.
//
// stateIn may be nil, meaning "start of a fresh sequence": every slice is
// treated as zero except att_pp, which is seeded at -1e30 so the first
// WKVStep call never takes a maximum against an uninitialized value. On
// any failure, stateOut is left untouched.
func (c *Context) Eval(token uint32, stateIn, stateOut, logitsOut []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if token >= c.model.VocabSize {
		c.setError(ErrArgs)
		return fmt.Errorf("rwkv: token %d out of range [0,%d)", token, c.model.VocabSize)
	}
	stateCount := int(c.StateElementCount())
	if stateIn != nil && len(stateIn) != stateCount {
		c.setError(ErrArgs)
		return fmt.Errorf("rwkv: state_in has %d elements, want %d", len(stateIn), stateCount)
	}
	if len(stateOut) != stateCount {
		c.setError(ErrArgs)
		return fmt.Errorf("rwkv: state_out has %d elements, want %d", len(stateOut), stateCount)
	}
	logitsCount := int(c.LogitsElementCount())
	if len(logitsOut) != logitsCount {
		c.setError(ErrArgs)
		return fmt.Errorf("rwkv: logits_out has %d elements, want %d", len(logitsOut), logitsCount)
	}

	working := stateOut
	if stateIn == nil {
		for i := range working {
			working[i] = 0
		}
		e := int(c.model.EmbedWidth)
		for l := 0; l < len(c.model.Layers); l++ {
			st := sliceLayerState(working, l, c.model.EmbedWidth)
			for i := 0; i < e; i++ {
				st.attPP[i] = -1e30
			}
		}
	} else if &stateIn[0] != &stateOut[0] {
		copy(working, stateIn)
	}

	e := int(c.model.EmbedWidth)
	x := make([]float32, e)
	base := int(token) * e
	copy(x, c.model.Embedding[base:base+e])

	kernels.LayerNormInto(x, x, c.model.LN0Weight, c.model.LN0Bias)

	next := make([]float32, e)
	for l := 0; l < len(c.model.Layers); l++ {
		st := sliceLayerState(working, l, c.model.EmbedWidth)
		c.attentionStep(next, x, l, st)
		x, next = next, x
		c.ffnStep(next, x, l, st)
		x, next = next, x
	}

	kernels.LayerNormInto(x, x, c.model.LNOutWeight, c.model.LNOutBias)

	kernels.MatVecIntoParallel(logitsOut, c.model.HeadWeight, e, int(c.model.VocabSize), x, c.nThreads)

	return nil
}

// Free releases the context's resources. After Free, the context must not
// be used again. Kept as an explicit operation (rather than relying on
// GC alone) to match the load/eval/free lifecycle the programmatic
// surface documents; in Go it simply drops scratch buffers for the
// collector to reclaim.
func (c *Context) Free() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.x0, c.xk, c.xv, c.xr, c.r, c.k, c.v, c.wkv = nil, nil, nil, nil, nil, nil, nil, nil
	c.ffnK, c.ffnV, c.ffnR, c.attOut = nil, nil, nil, nil
	c.model = nil
}
