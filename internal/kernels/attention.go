package kernels

// WKVStep advances the time-mixing recurrence for one layer by one token,
// in place, following the stabilized running-max/exp formulation: pp holds
// a running log-scale offset so neither the numerator nor denominator of
// the weighted key-value average can overflow as the recurrence runs
// across many tokens.
//
// k and v are the key/value projections for the current token; timeFirst
// and timeDecay are per-channel layer parameters; aa, bb, pp are the
// layer's running state, updated in place; wkv receives the current
// step's output before the receptance gate and output projection.
func WKVStep(wkv, aa, bb, pp, k, v, timeFirst, timeDecay []float32) {
	n := len(wkv)
	for i := 0; i < n; i++ {
		ww := timeFirst[i] + k[i]
		qq := MaxF32(pp[i], ww)
		e1 := Exp(pp[i] - qq)
		e2 := Exp(ww - qq)

		a := e1*aa[i] + e2*v[i]
		b := e1*bb[i] + e2
		wkv[i] = a / b

		ww2 := pp[i] + timeDecay[i]
		qq2 := MaxF32(ww2, k[i])
		e1b := Exp(ww2 - qq2)
		e2b := Exp(k[i] - qq2)

		aa[i] = e1b*aa[i] + e2b*v[i]
		bb[i] = e1b*bb[i] + e2b
		pp[i] = qq2
	}
}
