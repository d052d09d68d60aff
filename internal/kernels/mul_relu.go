package kernels

var squareReluImpl = squareReluGeneric

// SquareReluInto computes dst[i] = relu(x[i])^2, the channel-mixing
// subgraph's activation applied to the key projection before it feeds the
// value projection.
func SquareReluInto(dst, x []float32) {
	squareReluImpl(dst, x)
}

func squareReluGeneric(dst, x []float32) {
	n := len(dst)
	if len(x) < n {
		n = len(x)
	}
	for i := 0; i < n; i++ {
		v := x[i]
		if v < 0 {
			v = 0
		}
		dst[i] = v * v
	}
}

// GateMulInto computes dst[i] = gate[i] * value[i], the receptance gate
// applied to a projection result in both the attention and FFN subgraphs.
func GateMulInto(dst, gate, value []float32) {
	n := len(dst)
	if len(gate) < n {
		n = len(gate)
	}
	if len(value) < n {
		n = len(value)
	}
	for i := 0; i < n; i++ {
		dst[i] = gate[i] * value[i]
	}
}
