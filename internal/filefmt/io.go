package filefmt

import (
	"encoding/binary"
	"fmt"
	"io"
)

// countingReader wraps an io.Reader and tracks how many bytes have passed
// through it, mirroring the GGUF reader's bookkeeping. No error message
// currently reports the count.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func readUint32(r io.Reader) (uint32, error) {
	var v uint32
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return 0, fmt.Errorf("read uint32: %w", err)
	}
	return v, nil
}

func readBytes(r io.Reader, n uint32) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("read %d bytes: %w", n, err)
	}
	return buf, nil
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	n, err := w.Write(buf[:])
	if err != nil {
		return fmt.Errorf("write uint32: %w", err)
	}
	if n != len(buf) {
		return fmt.Errorf("write uint32: short write (%d of %d bytes)", n, len(buf))
	}
	return nil
}

func writeBytes(w io.Writer, b []byte) error {
	n, err := w.Write(b)
	if err != nil {
		return fmt.Errorf("write %d bytes: %w", len(b), err)
	}
	if n != len(b) {
		return fmt.Errorf("write %d bytes: short write (%d written)", len(b), n)
	}
	return nil
}

// CopyExactly copies n bytes from r to w, failing if either side returns
// fewer bytes than requested. Used to write tensor payloads during
// quantization.
func CopyExactly(w io.Writer, r io.Reader, n int64) error {
	written, err := io.CopyN(w, r, n)
	if err != nil {
		return fmt.Errorf("copy %d bytes: %w", n, err)
	}
	if written != n {
		return fmt.Errorf("copy %d bytes: only %d copied", n, written)
	}
	return nil
}
