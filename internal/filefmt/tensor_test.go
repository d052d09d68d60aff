package filefmt

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTensorHeaderRoundTrip2D(t *testing.T) {
	h := TensorHeader{DimCount: 2, KeyLength: uint32(len("blocks.0.ffn.key.weight")), DataType: TypeF32, Width: 64, Height: 256}

	buf := bytes.NewBuffer(nil)
	if err := WriteTensorHeader(buf, h); err != nil {
		t.Fatalf("WriteTensorHeader() error = %v", err)
	}
	if err := WriteKey(buf, "blocks.0.ffn.key.weight"); err != nil {
		t.Fatalf("WriteKey() error = %v", err)
	}

	got, err := ReadTensorHeader(buf)
	if err != nil {
		t.Fatalf("ReadTensorHeader() error = %v", err)
	}
	if diff := cmp.Diff(h, got); diff != "" {
		t.Fatalf("header mismatch:\n%s", diff)
	}

	key, err := ReadKey(buf, got)
	if err != nil {
		t.Fatalf("ReadKey() error = %v", err)
	}
	if key != "blocks.0.ffn.key.weight" {
		t.Fatalf("key = %q, want blocks.0.ffn.key.weight", key)
	}
}

func TestTensorHeaderRoundTrip1D(t *testing.T) {
	h := TensorHeader{DimCount: 1, KeyLength: uint32(len("blocks.0.att.time_mix_k")), DataType: TypeF32, Width: 64}
	buf := bytes.NewBuffer(nil)
	if err := WriteTensorHeader(buf, h); err != nil {
		t.Fatalf("WriteTensorHeader() error = %v", err)
	}
	got, err := ReadTensorHeader(buf)
	if err != nil {
		t.Fatalf("ReadTensorHeader() error = %v", err)
	}
	if got != h {
		t.Fatalf("ReadTensorHeader() = %+v, want %+v", got, h)
	}
}

func TestTensorPayloadBytesBlockTypes(t *testing.T) {
	cases := []struct {
		dtype DataType
		want  int64
	}{
		{TypeF32, 32 * 4},
		{TypeF16, 32 * 2},
		{TypeQ4_0, 2 + 16},
		{TypeQ4_1, 2 + 2 + 16},
		{TypeQ5_0, 2 + 4 + 16},
		{TypeQ5_1, 2 + 2 + 4 + 16},
		{TypeQ8_0, 2 + 32},
	}
	for _, c := range cases {
		h := TensorHeader{DimCount: 1, DataType: c.dtype, Width: 32}
		got, err := TensorPayloadBytes(h)
		if err != nil {
			t.Fatalf("TensorPayloadBytes(%s) error = %v", c.dtype, err)
		}
		if got != c.want {
			t.Fatalf("TensorPayloadBytes(%s) = %d, want %d", c.dtype, got, c.want)
		}
	}
}

func TestTensorPayloadBytesRejectsUnalignedBlockCount(t *testing.T) {
	h := TensorHeader{DimCount: 1, DataType: TypeQ4_0, Width: 33}
	if _, err := TensorPayloadBytes(h); err == nil {
		t.Fatal("expected error for non-block-aligned element count")
	}
}

func TestSkipTensorPayload(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 32*4)
	tail := []byte("TAIL")
	buf := bytes.NewReader(append(append([]byte{}, payload...), tail...))

	h := TensorHeader{DimCount: 1, DataType: TypeF32, Width: 32}
	if err := SkipTensorPayload(buf, h); err != nil {
		t.Fatalf("SkipTensorPayload() error = %v", err)
	}

	rest := make([]byte, len(tail))
	if _, err := buf.Read(rest); err != nil {
		t.Fatalf("read tail: %v", err)
	}
	if string(rest) != "TAIL" {
		t.Fatalf("rest = %q, want TAIL", rest)
	}
}
