package runtime

import "rwkvgo/internal/kernels"

// layerState is a view into one layer's 5 state slices within a flat
// state buffer, matching the file format's state_element_count layout of
// L*5*E floats.
type layerState struct {
	ffnXX, attXX, attAA, attBB, attPP []float32
}

func sliceLayerState(state []float32, layerIdx int, embedWidth uint32) layerState {
	e := int(embedWidth)
	base := layerIdx * 5 * e
	return layerState{
		ffnXX: state[base : base+e],
		attXX: state[base+e : base+2*e],
		attAA: state[base+2*e : base+3*e],
		attBB: state[base+3*e : base+4*e],
		attPP: state[base+4*e : base+5*e],
	}
}

// attentionStep runs the time-mixing subgraph for one layer, reading and
// updating the layer's state slices in place, and returns the
// residual-added output into dst.
func (c *Context) attentionStep(dst, x []float32, layerIdx int, st layerState) {
	l := &c.model.Layers[layerIdx]

	kernels.LayerNormInto(c.x0, x, l.LN1Weight, l.LN1Bias)

	kernels.InterpolateInto(c.xk, c.x0, st.attXX, l.AttTimeMixK)
	kernels.InterpolateInto(c.xv, c.x0, st.attXX, l.AttTimeMixV)
	kernels.InterpolateInto(c.xr, c.x0, st.attXX, l.AttTimeMixR)

	e := int(c.model.EmbedWidth)
	kernels.MatVecIntoParallel(c.r, l.AttReceptanceWeight, e, e, c.xr, c.nThreads)
	kernels.SigmoidInto(c.r, c.r)
	kernels.MatVecIntoParallel(c.k, l.AttKeyWeight, e, e, c.xk, c.nThreads)
	kernels.MatVecIntoParallel(c.v, l.AttValueWeight, e, e, c.xv, c.nThreads)

	kernels.WKVStep(c.wkv, st.attAA, st.attBB, st.attPP, c.k, c.v, l.AttTimeFirst, l.AttTimeDecay)

	copy(st.attXX, c.x0)

	kernels.GateMulInto(c.attOut, c.r, c.wkv)
	kernels.MatVecIntoParallel(dst, l.AttOutputWeight, e, e, c.attOut, c.nThreads)
	for i := range dst {
		dst[i] += x[i]
	}
}

// ffnStep runs the channel-mixing subgraph for one layer, reading and
// updating the layer's ffn_xx state slice in place.
func (c *Context) ffnStep(dst, x []float32, layerIdx int, st layerState) {
	l := &c.model.Layers[layerIdx]

	kernels.LayerNormInto(c.x0, x, l.LN2Weight, l.LN2Bias)

	kernels.InterpolateInto(c.xk, c.x0, st.ffnXX, l.FFNTimeMixK)
	kernels.InterpolateInto(c.xr, c.x0, st.ffnXX, l.FFNTimeMixR)

	copy(st.ffnXX, c.x0)

	e := int(c.model.EmbedWidth)
	f := int(c.model.FFNWidth)

	kernels.MatVecIntoParallel(c.r, l.FFNReceptanceWeight, e, e, c.xr, c.nThreads)
	kernels.SigmoidInto(c.r, c.r)

	kernels.MatVecIntoParallel(c.ffnK, l.FFNKeyWeight, e, f, c.xk, c.nThreads)
	kernels.SquareReluInto(c.ffnK, c.ffnK)
	kernels.MatVecIntoParallel(c.ffnV, l.FFNValueWeight, f, e, c.ffnK, c.nThreads)

	kernels.GateMulInto(c.ffnR, c.r, c.ffnV)
	for i := range dst {
		dst[i] = x[i] + c.ffnR[i]
	}
}
