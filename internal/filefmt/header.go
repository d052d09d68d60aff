package filefmt

import (
	"fmt"
	"io"
)

// ReadFileHeader decodes the fixed 24-byte header at the current position
// of r and validates the magic number, version, and data type.
func ReadFileHeader(r io.Reader) (FileHeader, error) {
	cr := &countingReader{r: r}

	magic, err := readUint32(cr)
	if err != nil {
		return FileHeader{}, fmt.Errorf("filefmt: read header: %w", err)
	}
	if magic != Magic {
		return FileHeader{}, fmt.Errorf("filefmt: bad magic 0x%08x, expected 0x%08x", magic, Magic)
	}

	version, err := readUint32(cr)
	if err != nil {
		return FileHeader{}, fmt.Errorf("filefmt: read version: %w", err)
	}

	vocab, err := readUint32(cr)
	if err != nil {
		return FileHeader{}, fmt.Errorf("filefmt: read vocab size: %w", err)
	}

	embed, err := readUint32(cr)
	if err != nil {
		return FileHeader{}, fmt.Errorf("filefmt: read embed width: %w", err)
	}

	layers, err := readUint32(cr)
	if err != nil {
		return FileHeader{}, fmt.Errorf("filefmt: read layer count: %w", err)
	}

	dtype, err := readUint32(cr)
	if err != nil {
		return FileHeader{}, fmt.Errorf("filefmt: read data type: %w", err)
	}

	h := FileHeader{
		Magic:      magic,
		Version:    Version(version),
		VocabSize:  vocab,
		EmbedWidth: embed,
		LayerCount: layers,
		DataType:   DataType(dtype),
	}

	if h.Version < VersionLegacy || h.Version > VersionCurrent {
		return FileHeader{}, fmt.Errorf("filefmt: file version %d is outside the supported range [%d,%d]", h.Version, VersionLegacy, VersionCurrent)
	}
	if err := h.DataType.Validate(); err != nil {
		return FileHeader{}, err
	}
	if h.DataType.IsQuantized() && h.Version != VersionLegacy {
		return FileHeader{}, fmt.Errorf("filefmt: quantized data type %s requires file version %d, got %d", h.DataType, VersionLegacy, h.Version)
	}
	if h.VocabSize == 0 || h.EmbedWidth == 0 || h.LayerCount == 0 {
		return FileHeader{}, fmt.Errorf("filefmt: degenerate model dimensions (vocab=%d embed=%d layers=%d)", h.VocabSize, h.EmbedWidth, h.LayerCount)
	}

	return h, nil
}

// WriteFileHeader encodes h to w.
func WriteFileHeader(w io.Writer, h FileHeader) error {
	if err := h.DataType.Validate(); err != nil {
		return err
	}
	for _, v := range []uint32{h.Magic, uint32(h.Version), h.VocabSize, h.EmbedWidth, h.LayerCount, uint32(h.DataType)} {
		if err := writeUint32(w, v); err != nil {
			return fmt.Errorf("filefmt: write header: %w", err)
		}
	}
	return nil
}

// HeaderSize is the fixed on-disk byte size of FileHeader.
const HeaderSize = 24
