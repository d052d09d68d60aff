package kernels

import "math"

const layerNormEps = 1e-5

var layerNormImpl = layerNormGeneric

// LayerNormInto computes dst[i] = (x[i]-mean)/sqrt(var+eps)*weight[i]+bias[i]
// using the population variance over x, matching the reference recurrence's
// layer norm (fixed epsilon, no learned eps).
func LayerNormInto(dst, x, weight, bias []float32) {
	layerNormImpl(dst, x, weight, bias)
}

func layerNormGeneric(dst, x, weight, bias []float32) {
	n := len(x)
	if n == 0 {
		return
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(x[i])
	}
	mean := sum / float64(n)

	var varSum float64
	for i := 0; i < n; i++ {
		d := float64(x[i]) - mean
		varSum += d * d
	}
	variance := varSum / float64(n)
	inv := 1.0 / math.Sqrt(variance+layerNormEps)

	for i := 0; i < n; i++ {
		dst[i] = float32((float64(x[i])-mean)*inv)*weight[i] + bias[i]
	}
}
