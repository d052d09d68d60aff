package kernels

import "testing"

func TestFloat16RoundTrip(t *testing.T) {
	vals := []float32{0, 1, -1, 0.5, -0.5, 65504, -65504, 0.000060976, 3.14159}
	for _, v := range vals {
		h := Float32ToFloat16(v)
		got := Float16ToFloat32(h)
		diff := got - v
		if diff < 0 {
			diff = -diff
		}
		tol := float32(0.01)
		if v != 0 {
			tol = absF32(v) * 0.01
			if tol < 1e-3 {
				tol = 1e-3
			}
		}
		if diff > tol {
			t.Fatalf("float16 round trip of %v = %v, diff %v exceeds tolerance %v", v, got, diff, tol)
		}
	}
}

func absF32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func TestFloat16ZeroAndSign(t *testing.T) {
	if got := Float16ToFloat32(Float32ToFloat16(0)); got != 0 {
		t.Fatalf("round trip of 0 = %v, want 0", got)
	}
	neg := Float16ToFloat32(Float32ToFloat16(-2.5))
	if neg >= 0 {
		t.Fatalf("round trip of -2.5 lost its sign: %v", neg)
	}
}
