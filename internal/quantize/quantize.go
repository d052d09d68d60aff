// Package quantize implements in-place requantization of a model file:
// stream every tensor from the source file, rewrite eligible ones into a
// block-quantized format, and pass the rest through byte-identical.
package quantize

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"rwkvgo/internal/filefmt"
	"rwkvgo/internal/kernels"
)

// TargetType names the output encodings quantize_model_file accepts.
type TargetType = filefmt.DataType

// Eligible reports whether a tensor with the given header and name should
// be requantized: its source type must be F32 or F16, it must be
// rank-2, and its name must not be one of the two tensors the reference
// implementation always keeps at full precision.
func Eligible(h filefmt.TensorHeader, name string) bool {
	if h.DataType != filefmt.TypeF32 && h.DataType != filefmt.TypeF16 {
		return false
	}
	if h.DimCount != 2 {
		return false
	}
	if name == "emb.weight" || name == "head.weight" {
		return false
	}
	return true
}

// TensorReport records per-tensor diagnostics collected during a run.
type TensorReport struct {
	Name          string
	SourceType    filefmt.DataType
	TargetType    filefmt.DataType
	Elements      uint64
	Quantized     bool
	HistogramRows [][]int64 // for quantized tensors, a single row holding the tensor's 16 bucket counts
}

// Report summarizes a full quantize_model_file run.
type Report struct {
	Tensors       []TensorReport
	TotalElements uint64
	QuantizedCount int
	PassthroughCount int
}

// double-buffered scratch: two owned byte slices selected by index, each
// replaced by a larger allocation when too small, rather than swapped
// through unsafe pointer tricks.
type doubleBuffer struct {
	bufs [2]byte32
	cur  int
}

type byte32 = []byte

func (d *doubleBuffer) get(n int) []byte {
	b := d.bufs[d.cur]
	if cap(b) < n {
		b = make([]byte, n)
	} else {
		b = b[:n]
	}
	d.bufs[d.cur] = b
	d.cur = 1 - d.cur
	return b
}

// QuantizeModelFile streams inputPath into outputPath, requantizing every
// eligible 2-D float tensor to targetType and copying everything else
// through unchanged. Quantized outputs are written at the legacy file
// version, matching the format's version gate for block-quantized types;
// an F32 target is a passthrough re-encode that bumps the version instead.
func QuantizeModelFile(inputPath, outputPath string, targetType TargetType) (Report, error) {
	logger := log.Logger

	in, err := os.Open(inputPath)
	if err != nil {
		return Report{}, fmt.Errorf("quantize: open %s: %w", inputPath, err)
	}
	defer in.Close()

	header, err := filefmt.ReadFileHeader(in)
	if err != nil {
		return Report{}, fmt.Errorf("quantize: %w", err)
	}

	if targetType != filefmt.TypeF32 && !targetType.IsQuantized() {
		return Report{}, fmt.Errorf("quantize: unsupported target type %s", targetType)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return Report{}, fmt.Errorf("quantize: create %s: %w", outputPath, err)
	}
	defer out.Close()

	outHeader := header
	outHeader.DataType = targetType
	if targetType.IsQuantized() {
		outHeader.Version = filefmt.VersionLegacy
	} else {
		outHeader.Version = filefmt.VersionCurrent
	}
	if err := filefmt.WriteFileHeader(out, outHeader); err != nil {
		return Report{}, fmt.Errorf("quantize: %w", err)
	}

	var report Report
	var buffers doubleBuffer
	var codes [kernels.BlockSize]uint8

	for {
		th, err := filefmt.ReadTensorHeader(in)
		if err == io.EOF {
			break
		}
		if err != nil {
			return report, fmt.Errorf("quantize: %w", err)
		}

		name, err := filefmt.ReadKey(in, th)
		if err != nil {
			return report, fmt.Errorf("quantize: %w", err)
		}

		elementCount := th.ElementCount()
		report.TotalElements += elementCount

		if !Eligible(th, name) || targetType == filefmt.TypeF32 {
			if err := passthrough(out, in, th, name, &buffers); err != nil {
				return report, fmt.Errorf("quantize: tensor %q: %w", name, err)
			}
			report.PassthroughCount++
			report.Tensors = append(report.Tensors, TensorReport{Name: name, SourceType: th.DataType, TargetType: th.DataType, Elements: elementCount})
			continue
		}

		hist, err := quantizeTensor(out, in, th, name, targetType, &buffers, codes[:])
		if err != nil {
			return report, fmt.Errorf("quantize: tensor %q: %w", name, err)
		}
		report.QuantizedCount++
		report.Tensors = append(report.Tensors, TensorReport{
			Name: name, SourceType: th.DataType, TargetType: targetType,
			Elements: elementCount, Quantized: true, HistogramRows: [][]int64{hist},
		})

		logQuantized(logger, name, th.DataType, targetType, elementCount)
	}

	return report, nil
}

func logQuantized(logger zerolog.Logger, name string, src, dst filefmt.DataType, n uint64) {
	logger.Info().
		Str("tensor", name).
		Str("from", src.String()).
		Str("to", dst.String()).
		Uint64("elements", n).
		Msg("quantized tensor")
}

// passthrough copies a tensor through unchanged: ineligible tensors and,
// when the target is F32, every tensor, keep their source encoding.
func passthrough(out io.Writer, in io.Reader, th filefmt.TensorHeader, name string, buffers *doubleBuffer) error {
	if err := filefmt.WriteTensorHeader(out, th); err != nil {
		return err
	}
	if err := filefmt.WriteKey(out, name); err != nil {
		return err
	}
	payloadLen, err := filefmt.TensorPayloadBytes(th)
	if err != nil {
		return err
	}
	buf := buffers.get(int(payloadLen))
	if _, err := io.ReadFull(in, buf); err != nil {
		return err
	}
	return filefmt.CopyExactly(out, bytesReader(buf), payloadLen)
}

func bytesReader(b []byte) io.Reader {
	return &sliceReader{b: b}
}

type sliceReader struct {
	b []byte
	i int
}

func (s *sliceReader) Read(p []byte) (int, error) {
	if s.i >= len(s.b) {
		return 0, io.EOF
	}
	n := copy(p, s.b[s.i:])
	s.i += n
	return n, nil
}

func quantizeTensor(out io.Writer, in io.Reader, th filefmt.TensorHeader, name string, targetType filefmt.DataType, buffers *doubleBuffer, codes []uint8) ([]int64, error) {
	n := th.ElementCount()
	if n%uint64(kernels.BlockSize) != 0 {
		return nil, fmt.Errorf("element count %d is not a multiple of the block size %d", n, kernels.BlockSize)
	}

	srcPayload, err := filefmt.TensorPayloadBytes(th)
	if err != nil {
		return nil, err
	}
	srcBuf := buffers.get(int(srcPayload))
	if _, err := io.ReadFull(in, srcBuf); err != nil {
		return nil, err
	}

	x := make([]float32, n)
	widenInto(x, srcBuf, th.DataType)

	outHeader := th
	outHeader.DataType = targetType
	if err := filefmt.WriteTensorHeader(out, outHeader); err != nil {
		return nil, err
	}
	if err := filefmt.WriteKey(out, name); err != nil {
		return nil, err
	}

	qtype, err := quantKindFor(targetType)
	if err != nil {
		return nil, err
	}
	blockBytes := kernels.BlockByteSize(qtype)
	blocks := n / uint64(kernels.BlockSize)

	var hist kernels.Histogram
	dstBuf := buffers.get(int(blocks) * blockBytes)
	for b := uint64(0); b < blocks; b++ {
		xb := x[b*uint64(kernels.BlockSize) : (b+1)*uint64(kernels.BlockSize)]
		dst := dstBuf[int(b)*blockBytes : int(b+1)*blockBytes]
		kernels.EncodeBlock(qtype, xb, dst, codes)
		hist.Add(codes)
	}
	if err := filefmt.CopyExactly(out, bytesReader(dstBuf), int64(len(dstBuf))); err != nil {
		return nil, err
	}

	return hist.Counts(16), nil
}

func widenInto(dst []float32, src []byte, dtype filefmt.DataType) {
	switch dtype {
	case filefmt.TypeF32:
		for i := range dst {
			dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4 : i*4+4]))
		}
	case filefmt.TypeF16:
		for i := range dst {
			dst[i] = kernels.Float16ToFloat32(binary.LittleEndian.Uint16(src[i*2 : i*2+2]))
		}
	}
}

func quantKindFor(t filefmt.DataType) (kernels.QuantType, error) {
	switch t {
	case filefmt.TypeQ4_0:
		return kernels.QuantQ4_0, nil
	case filefmt.TypeQ4_1:
		return kernels.QuantQ4_1, nil
	case filefmt.TypeQ5_0:
		return kernels.QuantQ5_0, nil
	case filefmt.TypeQ5_1:
		return kernels.QuantQ5_1, nil
	case filefmt.TypeQ8_0:
		return kernels.QuantQ8_0, nil
	default:
		return 0, fmt.Errorf("%s is not a quantized target type", t)
	}
}
