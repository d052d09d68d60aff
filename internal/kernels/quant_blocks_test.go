package kernels

import "testing"

func blockFixture() []float32 {
	x := make([]float32, BlockSize)
	for i := range x {
		x[i] = float32(i) - 16 + 0.25*float32(i%3)
	}
	return x
}

func maxAbsDiff(a, b []float32) float32 {
	var worst float32
	for i := range a {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		if d > worst {
			worst = d
		}
	}
	return worst
}

func TestEncodeDecodeQ4_0RoundTrip(t *testing.T) {
	x := blockFixture()
	dst := make([]byte, BlockByteSize(QuantQ4_0))
	EncodeQ4_0(x, dst, nil)
	got := make([]float32, BlockSize)
	DecodeQ4_0(dst, got)
	if diff := maxAbsDiff(x, got); diff > 3.5 {
		t.Fatalf("Q4_0 round trip max abs diff = %v, too large", diff)
	}
}

func TestEncodeDecodeQ4_1RoundTrip(t *testing.T) {
	x := blockFixture()
	dst := make([]byte, BlockByteSize(QuantQ4_1))
	EncodeQ4_1(x, dst, nil)
	got := make([]float32, BlockSize)
	DecodeQ4_1(dst, got)
	if diff := maxAbsDiff(x, got); diff > 2.5 {
		t.Fatalf("Q4_1 round trip max abs diff = %v, too large", diff)
	}
}

func TestEncodeDecodeQ5_0RoundTrip(t *testing.T) {
	x := blockFixture()
	dst := make([]byte, BlockByteSize(QuantQ5_0))
	EncodeQ5_0(x, dst, nil)
	got := make([]float32, BlockSize)
	DecodeQ5_0(dst, got)
	if diff := maxAbsDiff(x, got); diff > 1.5 {
		t.Fatalf("Q5_0 round trip max abs diff = %v, too large", diff)
	}
}

func TestEncodeDecodeQ5_1RoundTrip(t *testing.T) {
	x := blockFixture()
	dst := make([]byte, BlockByteSize(QuantQ5_1))
	EncodeQ5_1(x, dst, nil)
	got := make([]float32, BlockSize)
	DecodeQ5_1(dst, got)
	if diff := maxAbsDiff(x, got); diff > 1.5 {
		t.Fatalf("Q5_1 round trip max abs diff = %v, too large", diff)
	}
}

func TestEncodeDecodeQ8_0RoundTrip(t *testing.T) {
	x := blockFixture()
	dst := make([]byte, BlockByteSize(QuantQ8_0))
	EncodeQ8_0(x, dst, nil)
	got := make([]float32, BlockSize)
	DecodeQ8_0(dst, got)
	if diff := maxAbsDiff(x, got); diff > 0.5 {
		t.Fatalf("Q8_0 round trip max abs diff = %v, too large", diff)
	}
}

func TestEncodeQ4_0AllZero(t *testing.T) {
	x := make([]float32, BlockSize)
	dst := make([]byte, BlockByteSize(QuantQ4_0))
	EncodeQ4_0(x, dst, nil)
	got := make([]float32, BlockSize)
	DecodeQ4_0(dst, got)
	for i, v := range got {
		if v != 0 {
			t.Fatalf("got[%d] = %v, want 0 for an all-zero block", i, v)
		}
	}
}

func TestHistogramAdd(t *testing.T) {
	var h Histogram
	h.Add([]uint8{0, 1, 1, 15})
	counts := h.Counts(16)
	if counts[0] != 1 || counts[1] != 2 || counts[15] != 1 {
		t.Fatalf("unexpected histogram counts: %v", counts)
	}
	if h.Total() != 4 {
		t.Fatalf("Total() = %d, want 4", h.Total())
	}
}
