// Package planner estimates the memory a loaded model and its per-token
// working set will need. The reference implementation used this tally to
// size a bump arena before any allocation happened; Go's allocator and
// garbage collector make that unnecessary, so here the same two-pass tally
// is kept purely as a diagnostic value returned to the caller.
package planner

// ContextSize is the memory estimate produced by Plan.
type ContextSize struct {
	ObjectsCount int64 // number of distinct tensor-shaped allocations
	ObjectsSize  int64 // bytes occupied by tensor data across those objects
	ScratchSize  int64 // bytes needed for the per-token working buffers
}

// Plan tallies the two passes the reference loader performed: first over
// every tensor record on disk (weights), then over the fixed set of
// intermediate tensors one graph evaluation allocates per layer (scratch).
func Plan(vocabSize, embedWidth, layerCount, ffnWidth uint32) ContextSize {
	cs := ContextSize{}

	// Pass 1: on-disk weight tensors, all stored as float32 objects once
	// loaded (quantized tensors are widened to float32 on read for this
	// estimate, matching how the loader actually keeps them in memory).
	addTensor(&cs, int64(vocabSize)*int64(embedWidth))       // emb.weight
	addTensor(&cs, int64(embedWidth))                        // ln0.weight
	addTensor(&cs, int64(embedWidth))                        // ln0.bias
	addTensor(&cs, int64(embedWidth))                        // ln_out.weight
	addTensor(&cs, int64(embedWidth))                        // ln_out.bias
	addTensor(&cs, int64(embedWidth)*int64(vocabSize))        // head.weight

	for i := int64(0); i < int64(layerCount); i++ {
		perLayer1D := []int64{
			int64(embedWidth), int64(embedWidth), // ln1 weight/bias
			int64(embedWidth), int64(embedWidth), // ln2 weight/bias
			int64(embedWidth), int64(embedWidth), int64(embedWidth), // att time_mix k/v/r
			int64(embedWidth), int64(embedWidth), // att time_first/time_decay
			int64(embedWidth), int64(embedWidth), // ffn time_mix k/r
		}
		for _, n := range perLayer1D {
			addTensor(&cs, n)
		}
		perLayer2D := []int64{
			int64(embedWidth) * int64(embedWidth), // att key/value/receptance/output
			int64(embedWidth) * int64(embedWidth),
			int64(embedWidth) * int64(embedWidth),
			int64(embedWidth) * int64(embedWidth),
			int64(embedWidth) * int64(ffnWidth), // ffn key
			int64(ffnWidth) * int64(embedWidth), // ffn value
			int64(embedWidth) * int64(embedWidth), // ffn receptance
		}
		for _, n := range perLayer2D {
			addTensor(&cs, n)
		}
	}

	// Pass 2: intermediate tensors of one layer's graph (time-mixed inputs,
	// intermediate attention/ffn vectors), counted once per layer. The Go
	// runtime allocates one such set per Context and reuses it across
	// layers, so this overstates its actual scratch use.
	const scratchTensorsPerLayer = 12
	cs.ScratchSize += int64(layerCount) * scratchTensorsPerLayer * int64(embedWidth) * 4
	cs.ObjectsCount += int64(layerCount) * scratchTensorsPerLayer

	// State buffer and logits buffer scratch.
	cs.ScratchSize += int64(layerCount) * 5 * int64(embedWidth) * 4
	cs.ScratchSize += int64(vocabSize) * 4

	return cs
}

func addTensor(cs *ContextSize, elements int64) {
	cs.ObjectsCount++
	cs.ObjectsSize += elements * 4
}
