package filefmt

import (
	"errors"
	"fmt"
	"io"
)

// ReadTensorHeader decodes one tensor record's header (dim count, key
// length, data type, and dimensions) without consuming the key or payload.
// When r is already at its end before the record starts, it returns io.EOF
// itself (unwrapped), so callers can end the tensor stream on err == io.EOF.
func ReadTensorHeader(r io.Reader) (TensorHeader, error) {
	dimCount, err := readUint32(r)
	if errors.Is(err, io.EOF) {
		return TensorHeader{}, io.EOF
	}
	if err != nil {
		return TensorHeader{}, fmt.Errorf("filefmt: read dim count: %w", err)
	}
	if dimCount != 1 && dimCount != 2 {
		return TensorHeader{}, fmt.Errorf("filefmt: unsupported tensor rank %d", dimCount)
	}

	keyLen, err := readUint32(r)
	if err != nil {
		return TensorHeader{}, fmt.Errorf("filefmt: read key length: %w", err)
	}

	dtypeRaw, err := readUint32(r)
	if err != nil {
		return TensorHeader{}, fmt.Errorf("filefmt: read tensor data type: %w", err)
	}
	dtype := DataType(dtypeRaw)
	if err := dtype.Validate(); err != nil {
		return TensorHeader{}, err
	}

	width, err := readUint32(r)
	if err != nil {
		return TensorHeader{}, fmt.Errorf("filefmt: read width: %w", err)
	}

	h := TensorHeader{DimCount: dimCount, KeyLength: keyLen, DataType: dtype, Width: width}

	if dimCount == 2 {
		height, err := readUint32(r)
		if err != nil {
			return TensorHeader{}, fmt.Errorf("filefmt: read height: %w", err)
		}
		h.Height = height
	}

	return h, nil
}

// WriteTensorHeader encodes h to w.
func WriteTensorHeader(w io.Writer, h TensorHeader) error {
	if err := h.DataType.Validate(); err != nil {
		return err
	}
	if h.DimCount != 1 && h.DimCount != 2 {
		return fmt.Errorf("filefmt: unsupported tensor rank %d", h.DimCount)
	}
	fields := []uint32{h.DimCount, h.KeyLength, uint32(h.DataType), h.Width}
	if h.DimCount == 2 {
		fields = append(fields, h.Height)
	}
	for _, v := range fields {
		if err := writeUint32(w, v); err != nil {
			return fmt.Errorf("filefmt: write tensor header: %w", err)
		}
	}
	return nil
}

// ReadKey reads the key name that follows a tensor header.
func ReadKey(r io.Reader, h TensorHeader) (string, error) {
	b, err := readBytes(r, h.KeyLength)
	if err != nil {
		return "", fmt.Errorf("filefmt: read tensor key: %w", err)
	}
	return string(b), nil
}

// WriteKey writes a tensor's key bytes.
func WriteKey(w io.Writer, key string) error {
	return writeBytes(w, []byte(key))
}

// TensorPayloadBytes returns the exact byte length of a tensor's payload
// for the given header, accounting for block-quantized packing.
func TensorPayloadBytes(h TensorHeader) (int64, error) {
	n := h.ElementCount()
	switch h.DataType {
	case TypeF32:
		return int64(n) * 4, nil
	case TypeF16:
		return int64(n) * 2, nil
	case TypeQ4_0, TypeQ4_1, TypeQ5_0, TypeQ5_1, TypeQ8_0:
		blockSize, blockBytes, err := BlockLayout(h.DataType)
		if err != nil {
			return 0, err
		}
		if n%uint64(blockSize) != 0 {
			return 0, fmt.Errorf("filefmt: tensor element count %d is not a multiple of block size %d for %s", n, blockSize, h.DataType)
		}
		return int64(n/uint64(blockSize)) * int64(blockBytes), nil
	default:
		return 0, fmt.Errorf("filefmt: cannot size payload for %s", h.DataType)
	}
}

// SkipTensorPayload advances past a tensor's payload bytes using a seek
// rather than a read, so skipping large tensors in files over 4GiB never
// requires buffering the skipped region.
func SkipTensorPayload(s io.Seeker, h TensorHeader) error {
	n, err := TensorPayloadBytes(h)
	if err != nil {
		return err
	}
	if _, err := s.Seek(n, io.SeekCurrent); err != nil {
		return fmt.Errorf("filefmt: seek past tensor payload: %w", err)
	}
	return nil
}

// BlockLayout returns the element count and byte size of one quantization
// block for t.
func BlockLayout(t DataType) (blockSize, blockBytes int, err error) {
	switch t {
	case TypeQ4_0:
		return 32, 2 + 16, nil
	case TypeQ4_1:
		return 32, 2 + 2 + 16, nil
	case TypeQ5_0:
		return 32, 2 + 4 + 16, nil
	case TypeQ5_1:
		return 32, 2 + 2 + 4 + 16, nil
	case TypeQ8_0:
		return 32, 2 + 32, nil
	default:
		return 0, 0, fmt.Errorf("filefmt: %s is not a block-quantized type", t)
	}
}
