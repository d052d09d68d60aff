package filefmt

import (
	"bytes"
	"errors"
	"testing"
)

func TestFileHeaderRoundTrip(t *testing.T) {
	h := FileHeader{
		Magic:      Magic,
		Version:    VersionCurrent,
		VocabSize:  256,
		EmbedWidth: 64,
		LayerCount: 4,
		DataType:   TypeF32,
	}

	buf := bytes.NewBuffer(nil)
	if err := WriteFileHeader(buf, h); err != nil {
		t.Fatalf("WriteFileHeader() error = %v", err)
	}
	if buf.Len() != HeaderSize {
		t.Fatalf("encoded header is %d bytes, want %d", buf.Len(), HeaderSize)
	}

	got, err := ReadFileHeader(buf)
	if err != nil {
		t.Fatalf("ReadFileHeader() error = %v", err)
	}
	if got != h {
		t.Fatalf("ReadFileHeader() = %+v, want %+v", got, h)
	}
}

func TestReadFileHeaderBadMagic(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	buf.Write([]byte{0xde, 0xad, 0xbe, 0xef})
	buf.Write(make([]byte, 20))
	if _, err := ReadFileHeader(buf); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestReadFileHeaderRemovedType(t *testing.T) {
	h := FileHeader{Magic: Magic, Version: VersionLegacy, VocabSize: 1, EmbedWidth: 1, LayerCount: 1, DataType: typeQ4_2}
	buf := bytes.NewBuffer(nil)
	for _, v := range []uint32{h.Magic, uint32(h.Version), h.VocabSize, h.EmbedWidth, h.LayerCount, uint32(h.DataType)} {
		if err := writeUint32(buf, v); err != nil {
			t.Fatalf("writeUint32() error = %v", err)
		}
	}
	_, err := ReadFileHeader(buf)
	if err == nil {
		t.Fatal("expected error for removed data type")
	}
	if !bytes.Contains([]byte(err.Error()), []byte("Q4_2")) {
		t.Fatalf("error %q does not name the removed type", err.Error())
	}
}

func TestReadFileHeaderVersionOutOfRange(t *testing.T) {
	h := FileHeader{Magic: Magic, Version: Version(999), VocabSize: 1, EmbedWidth: 1, LayerCount: 1, DataType: TypeF32}
	buf := bytes.NewBuffer(nil)
	for _, v := range []uint32{h.Magic, uint32(h.Version), h.VocabSize, h.EmbedWidth, h.LayerCount, uint32(h.DataType)} {
		if err := writeUint32(buf, v); err != nil {
			t.Fatalf("writeUint32() error = %v", err)
		}
	}
	if _, err := ReadFileHeader(buf); err == nil {
		t.Fatal("expected error for file version outside the supported range")
	}
}

func TestReadFileHeaderRemovedTypeIsDataTypeError(t *testing.T) {
	h := FileHeader{Magic: Magic, Version: VersionLegacy, VocabSize: 1, EmbedWidth: 1, LayerCount: 1, DataType: typeQ4_2}
	buf := bytes.NewBuffer(nil)
	for _, v := range []uint32{h.Magic, uint32(h.Version), h.VocabSize, h.EmbedWidth, h.LayerCount, uint32(h.DataType)} {
		if err := writeUint32(buf, v); err != nil {
			t.Fatalf("writeUint32() error = %v", err)
		}
	}
	_, err := ReadFileHeader(buf)
	var dtErr *DataTypeError
	if !errors.As(err, &dtErr) {
		t.Fatalf("expected a *DataTypeError, got %T: %v", err, err)
	}
}

func TestReadFileHeaderQuantizedRequiresLegacyVersion(t *testing.T) {
	h := FileHeader{Magic: Magic, Version: VersionCurrent, VocabSize: 1, EmbedWidth: 1, LayerCount: 1, DataType: TypeQ4_0}
	buf := bytes.NewBuffer(nil)
	for _, v := range []uint32{h.Magic, uint32(h.Version), h.VocabSize, h.EmbedWidth, h.LayerCount, uint32(h.DataType)} {
		if err := writeUint32(buf, v); err != nil {
			t.Fatalf("writeUint32() error = %v", err)
		}
	}
	if _, err := ReadFileHeader(buf); err == nil {
		t.Fatal("expected error for quantized type on non-legacy version")
	}
}
