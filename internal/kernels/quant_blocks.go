package kernels

import (
	"encoding/binary"
	"math"
)

// setNibble writes a 4-bit code into qs using the same adjacent-pair
// packing nibbleAt reads: byte idx/2 holds elements 2*(idx/2) and
// 2*(idx/2)+1 in its low and high nibbles respectively.
func setNibble(qs []byte, idx int, v uint8) {
	b := &qs[idx/2]
	if idx%2 == 0 {
		*b = (*b &^ 0x0f) | (v & 0x0f)
	} else {
		*b = (*b &^ 0xf0) | ((v & 0x0f) << 4)
	}
}

func nibbleAt(qs []byte, idx int) uint8 {
	b := qs[idx/2]
	if idx%2 == 0 {
		return b & 0x0f
	}
	return (b >> 4) & 0x0f
}

func blockAbsMax(x []float32) float32 {
	var amax float32
	for _, v := range x {
		if v < 0 {
			v = -v
		}
		if v > amax {
			amax = v
		}
	}
	return amax
}

func blockMinMax(x []float32) (min, max float32) {
	min, max = x[0], x[0]
	for _, v := range x[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

func clampRound(v float32, lo, hi int32) int32 {
	r := int32(math.Round(float64(v)))
	if r < lo {
		return lo
	}
	if r > hi {
		return hi
	}
	return r
}

// EncodeQ4_0 packs a BlockSize-length slice into the 2+16 byte Q4_0
// layout: a float16 scale followed by 16 bytes of signed 4-bit codes
// (q-8) in [0,15], dequantized as scale*(q-8). When codes is non-nil, the
// raw 4-bit codes are written into it so the caller can fold them into a
// histogram.
func EncodeQ4_0(x []float32, dst []byte, codes []uint8) {
	amax := blockAbsMax(x)
	scale := amax / 8
	var inv float32
	if scale != 0 {
		inv = 1 / scale
	}
	binary.LittleEndian.PutUint16(dst[0:2], Float32ToFloat16(scale))
	qs := dst[2:18]
	for i := 0; i < BlockSize; i++ {
		q := uint8(clampRound(x[i]*inv+8, 0, 15))
		setNibble(qs, i, q)
		if codes != nil {
			codes[i] = q
		}
	}
}

// DecodeQ4_0 is the inverse of EncodeQ4_0.
func DecodeQ4_0(src []byte, dst []float32) {
	scale := Float16ToFloat32(binary.LittleEndian.Uint16(src[0:2]))
	qs := src[2:18]
	for i := 0; i < BlockSize; i++ {
		q := nibbleAt(qs, i)
		dst[i] = scale * float32(int(q)-8)
	}
}

// EncodeQ4_1 packs into the 2+2+16 byte layout: float16 scale, float16
// min, then 16 bytes of unsigned 4-bit codes, dequantized as scale*q+min.
func EncodeQ4_1(x []float32, dst []byte, codes []uint8) {
	min, max := blockMinMax(x)
	scale := (max - min) / 15
	var inv float32
	if scale != 0 {
		inv = 1 / scale
	}
	binary.LittleEndian.PutUint16(dst[0:2], Float32ToFloat16(scale))
	binary.LittleEndian.PutUint16(dst[2:4], Float32ToFloat16(min))
	qs := dst[4:20]
	for i := 0; i < BlockSize; i++ {
		q := uint8(clampRound((x[i]-min)*inv, 0, 15))
		setNibble(qs, i, q)
		if codes != nil {
			codes[i] = q
		}
	}
}

// DecodeQ4_1 is the inverse of EncodeQ4_1.
func DecodeQ4_1(src []byte, dst []float32) {
	scale := Float16ToFloat32(binary.LittleEndian.Uint16(src[0:2]))
	min := Float16ToFloat32(binary.LittleEndian.Uint16(src[2:4]))
	qs := src[4:20]
	for i := 0; i < BlockSize; i++ {
		q := nibbleAt(qs, i)
		dst[i] = scale*float32(q) + min
	}
}

// EncodeQ5_0 packs into the 2+4+16 byte layout: float16 scale, 4 bytes of
// high bits, 16 bytes of low nibbles; the 5-bit code is (high<<4)|low in
// [0,31], dequantized as scale*(q-16).
func EncodeQ5_0(x []float32, dst []byte, codes []uint8) {
	amax := blockAbsMax(x)
	scale := amax / 16
	var inv float32
	if scale != 0 {
		inv = 1 / scale
	}
	binary.LittleEndian.PutUint16(dst[0:2], Float32ToFloat16(scale))
	qh := dst[2:6]
	qs := dst[6:22]
	for i := range qh {
		qh[i] = 0
	}
	for i := 0; i < BlockSize; i++ {
		q := uint8(clampRound(x[i]*inv+16, 0, 31))
		setNibble(qs, i, q&0x0f)
		if q&0x10 != 0 {
			qh[i/8] |= 1 << (uint(i) % 8)
		}
		if codes != nil {
			codes[i] = q
		}
	}
}

// DecodeQ5_0 is the inverse of EncodeQ5_0.
func DecodeQ5_0(src []byte, dst []float32) {
	scale := Float16ToFloat32(binary.LittleEndian.Uint16(src[0:2]))
	qh := src[2:6]
	qs := src[6:22]
	for i := 0; i < BlockSize; i++ {
		low := nibbleAt(qs, i)
		high := (qh[i/8] >> (uint(i) % 8)) & 0x1
		q := (high << 4) | low
		dst[i] = scale * float32(int(q)-16)
	}
}

// EncodeQ5_1 packs into the 2+2+4+16 byte layout: float16 scale, float16
// min, 4 bytes of high bits, 16 bytes of low nibbles, dequantized as
// scale*q+min with q the same 5-bit reconstruction as Q5_0.
func EncodeQ5_1(x []float32, dst []byte, codes []uint8) {
	min, max := blockMinMax(x)
	scale := (max - min) / 31
	var inv float32
	if scale != 0 {
		inv = 1 / scale
	}
	binary.LittleEndian.PutUint16(dst[0:2], Float32ToFloat16(scale))
	binary.LittleEndian.PutUint16(dst[2:4], Float32ToFloat16(min))
	qh := dst[4:8]
	qs := dst[8:24]
	for i := range qh {
		qh[i] = 0
	}
	for i := 0; i < BlockSize; i++ {
		q := uint8(clampRound((x[i]-min)*inv, 0, 31))
		setNibble(qs, i, q&0x0f)
		if q&0x10 != 0 {
			qh[i/8] |= 1 << (uint(i) % 8)
		}
		if codes != nil {
			codes[i] = q
		}
	}
}

// DecodeQ5_1 is the inverse of EncodeQ5_1.
func DecodeQ5_1(src []byte, dst []float32) {
	scale := Float16ToFloat32(binary.LittleEndian.Uint16(src[0:2]))
	min := Float16ToFloat32(binary.LittleEndian.Uint16(src[2:4]))
	qh := src[4:8]
	qs := src[8:24]
	for i := 0; i < BlockSize; i++ {
		low := nibbleAt(qs, i)
		high := (qh[i/8] >> (uint(i) % 8)) & 0x1
		q := (high << 4) | low
		dst[i] = scale*float32(q) + min
	}
}

// EncodeQ8_0 packs into the 2+32 byte layout: float16 scale followed by
// 32 signed bytes, dequantized as scale*int8(q).
func EncodeQ8_0(x []float32, dst []byte, codes []uint8) {
	amax := blockAbsMax(x)
	scale := amax / 127
	var inv float32
	if scale != 0 {
		inv = 1 / scale
	}
	binary.LittleEndian.PutUint16(dst[0:2], Float32ToFloat16(scale))
	qs := dst[2:34]
	for i := 0; i < BlockSize; i++ {
		q := clampRound(x[i]*inv, -128, 127)
		qs[i] = byte(int8(q))
		if codes != nil {
			codes[i] = uint8(q)
		}
	}
}

// DecodeQ8_0 is the inverse of EncodeQ8_0.
func DecodeQ8_0(src []byte, dst []float32) {
	scale := Float16ToFloat32(binary.LittleEndian.Uint16(src[0:2]))
	qs := src[2:34]
	for i := 0; i < BlockSize; i++ {
		dst[i] = scale * float32(int8(qs[i]))
	}
}

// EncodeBlock and DecodeBlock dispatch on qtype for callers iterating over
// several quantized types generically (the quantizer's per-tensor loop).
func EncodeBlock(qtype QuantType, x []float32, dst []byte, codes []uint8) {
	switch qtype {
	case QuantQ4_0:
		EncodeQ4_0(x, dst, codes)
	case QuantQ4_1:
		EncodeQ4_1(x, dst, codes)
	case QuantQ5_0:
		EncodeQ5_0(x, dst, codes)
	case QuantQ5_1:
		EncodeQ5_1(x, dst, codes)
	case QuantQ8_0:
		EncodeQ8_0(x, dst, codes)
	}
}

func DecodeBlock(qtype QuantType, src []byte, dst []float32) {
	switch qtype {
	case QuantQ4_0:
		DecodeQ4_0(src, dst)
	case QuantQ4_1:
		DecodeQ4_1(src, dst)
	case QuantQ5_0:
		DecodeQ5_0(src, dst)
	case QuantQ5_1:
		DecodeQ5_1(src, dst)
	case QuantQ8_0:
		DecodeQ8_0(src, dst)
	}
}

// BlockByteSize returns the on-disk byte size of one block of qtype.
func BlockByteSize(qtype QuantType) int {
	switch qtype {
	case QuantQ4_0:
		return 2 + 16
	case QuantQ4_1:
		return 2 + 2 + 16
	case QuantQ5_0:
		return 2 + 4 + 16
	case QuantQ5_1:
		return 2 + 2 + 4 + 16
	case QuantQ8_0:
		return 2 + 32
	default:
		return 0
	}
}
