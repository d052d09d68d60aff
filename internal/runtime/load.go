package runtime

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/rs/zerolog/log"

	"rwkvgo/internal/filefmt"
	"rwkvgo/internal/kernels"
	"rwkvgo/internal/model"
	"rwkvgo/internal/planner"
)

// classifyFormatErr reports ErrSemantic for an unknown/removed data type
// and ErrFormat for every other structural failure (bad magic, version
// range, malformed record), matching the flag taxonomy's split between
// "file isn't shaped right" and "file names something this format
// doesn't recognize."
func classifyFormatErr(err error) ErrorFlags {
	var dtErr *filefmt.DataTypeError
	if errors.As(err, &dtErr) {
		return ErrSemantic
	}
	return ErrFormat
}

// LoadFromFile opens a model file, validates its header and every tensor
// record against the parameter schema, and builds a ready-to-evaluate
// Context. nThreads is captured here and used for every subsequent Eval
// call's row-parallel matvecs.
func LoadFromFile(path string, nThreads int) (*Context, error) {
	if nThreads <= 0 {
		SetGlobalError(ErrArgs)
		return nil, fmt.Errorf("rwkv: nThreads must be positive, got %d", nThreads)
	}

	f, err := os.Open(path)
	if err != nil {
		SetGlobalError(ErrFile)
		return nil, fmt.Errorf("rwkv: open %s: %w", path, err)
	}
	defer f.Close()

	header, err := filefmt.ReadFileHeader(f)
	if err != nil {
		SetGlobalError(classifyFormatErr(err))
		return nil, fmt.Errorf("rwkv: %w", err)
	}

	m := model.NewModel(header.VocabSize, header.EmbedWidth, header.LayerCount)

	for {
		th, err := filefmt.ReadTensorHeader(f)
		if err == io.EOF {
			break
		}
		if err != nil {
			SetGlobalError(classifyFormatErr(err))
			return nil, fmt.Errorf("rwkv: %w", err)
		}

		key, err := filefmt.ReadKey(f, th)
		if err != nil {
			SetGlobalError(ErrFormat)
			return nil, fmt.Errorf("rwkv: %w", err)
		}

		spec, layerIdx, ok := model.Match(key)
		if !ok {
			SetGlobalError(ErrSemantic)
			return nil, fmt.Errorf("rwkv: %w", model.ErrUnrecognizedKey(key))
		}
		if model.Rank(th.DimCount) != spec.Rank {
			SetGlobalError(ErrSemantic)
			return nil, fmt.Errorf("rwkv: %w", model.ErrRankMismatch(key, model.Rank(th.DimCount), spec.Rank))
		}

		data, err := readTensorAsF32(f, th)
		if err != nil {
			SetGlobalError(ErrFormat)
			return nil, fmt.Errorf("rwkv: read tensor %q: %w", key, err)
		}

		if err := m.Bind(spec, layerIdx, data); err != nil {
			SetGlobalError(ErrSemantic)
			return nil, fmt.Errorf("rwkv: %w", err)
		}
	}

	if err := m.Validate(); err != nil {
		SetGlobalError(ErrModel)
		return nil, fmt.Errorf("rwkv: %w", err)
	}

	ctx := &Context{
		model:    m,
		nThreads: nThreads,
		size:     planner.Plan(header.VocabSize, header.EmbedWidth, header.LayerCount, m.FFNWidth),
		logger:   log.Logger,
	}
	allocScratch(ctx)

	return ctx, nil
}

// readTensorAsF32 reads one tensor's payload and widens it to float32,
// regardless of its on-disk encoding, so the graph builder only ever
// works with float32 slices.
func readTensorAsF32(r io.Reader, h filefmt.TensorHeader) ([]float32, error) {
	n := h.ElementCount()
	out := make([]float32, n)

	switch h.DataType {
	case filefmt.TypeF32:
		buf := make([]byte, n*4)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4 : i*4+4]))
		}
		return out, nil
	case filefmt.TypeF16:
		buf := make([]byte, n*2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		for i := range out {
			out[i] = kernels.Float16ToFloat32(binary.LittleEndian.Uint16(buf[i*2 : i*2+2]))
		}
		return out, nil
	default:
		qtype, blockBytes, elemsPerBlock, err := quantKindOf(h.DataType)
		if err != nil {
			return nil, err
		}
		blocks := n / uint64(elemsPerBlock)
		buf := make([]byte, blockBytes)
		for b := uint64(0); b < blocks; b++ {
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, err
			}
			kernels.DecodeBlock(qtype, buf, out[b*uint64(elemsPerBlock):(b+1)*uint64(elemsPerBlock)])
		}
		return out, nil
	}
}

func quantKindOf(t filefmt.DataType) (kernels.QuantType, int, int, error) {
	switch t {
	case filefmt.TypeQ4_0:
		return kernels.QuantQ4_0, kernels.BlockByteSize(kernels.QuantQ4_0), kernels.BlockSize, nil
	case filefmt.TypeQ4_1:
		return kernels.QuantQ4_1, kernels.BlockByteSize(kernels.QuantQ4_1), kernels.BlockSize, nil
	case filefmt.TypeQ5_0:
		return kernels.QuantQ5_0, kernels.BlockByteSize(kernels.QuantQ5_0), kernels.BlockSize, nil
	case filefmt.TypeQ5_1:
		return kernels.QuantQ5_1, kernels.BlockByteSize(kernels.QuantQ5_1), kernels.BlockSize, nil
	case filefmt.TypeQ8_0:
		return kernels.QuantQ8_0, kernels.BlockByteSize(kernels.QuantQ8_0), kernels.BlockSize, nil
	default:
		return 0, 0, 0, fmt.Errorf("rwkv: %s has no quantized decode path", t)
	}
}
