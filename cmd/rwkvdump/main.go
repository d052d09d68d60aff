// Command rwkvdump prints a model file's header and tensor directory,
// optionally hashing one tensor's widened float32 values for comparing
// two files that should be bit-identical after a lossless transform.
package main

import (
	"crypto/sha256"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"

	"rwkvgo/internal/filefmt"
	"rwkvgo/internal/kernels"
)

func main() {
	modelPath := flag.String("model", "", "path to a model file")
	hashTensor := flag.String("hash", "", "name of a tensor to sha256-hash after widening to float32")
	flag.Parse()

	if *modelPath == "" {
		fmt.Fprintln(os.Stderr, "missing required -model")
		flag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(*modelPath)
	if err != nil {
		log.Fatalf("open %s: %v", *modelPath, err)
	}
	defer f.Close()

	header, err := filefmt.ReadFileHeader(f)
	if err != nil {
		log.Fatalf("read header: %v", err)
	}
	fmt.Printf("version=%d vocab=%d embed=%d layers=%d dtype=%s\n",
		header.Version, header.VocabSize, header.EmbedWidth, header.LayerCount, header.DataType)

	fmt.Println("tensors:")
	for {
		th, err := filefmt.ReadTensorHeader(f)
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("read tensor header: %v", err)
		}
		name, err := filefmt.ReadKey(f, th)
		if err != nil {
			log.Fatalf("read tensor key: %v", err)
		}

		if *hashTensor != "" && name == *hashTensor {
			sum, err := hashTensorPayload(f, th)
			if err != nil {
				log.Fatalf("hash tensor %q: %v", name, err)
			}
			fmt.Printf("  %s dtype=%s width=%d height=%d elements=%d sha256=%x\n",
				name, th.DataType, th.Width, th.Height, th.ElementCount(), sum)
			continue
		}

		fmt.Printf("  %s dtype=%s width=%d height=%d elements=%d\n",
			name, th.DataType, th.Width, th.Height, th.ElementCount())
		if err := filefmt.SkipTensorPayload(f, th); err != nil {
			log.Fatalf("skip tensor %q payload: %v", name, err)
		}
	}
}

// hashTensorPayload widens a tensor's payload to float32 and hashes the
// resulting bytes in canonical little-endian order, so the same logical
// values hash identically regardless of their on-disk encoding.
func hashTensorPayload(r io.Reader, h filefmt.TensorHeader) ([32]byte, error) {
	n := h.ElementCount()
	hasher := sha256.New()
	var buf [4]byte

	switch h.DataType {
	case filefmt.TypeF32:
		raw := make([]byte, 4)
		for i := uint64(0); i < n; i++ {
			if _, err := io.ReadFull(r, raw); err != nil {
				return [32]byte{}, err
			}
			hasher.Write(raw)
		}
	case filefmt.TypeF16:
		raw := make([]byte, 2)
		for i := uint64(0); i < n; i++ {
			if _, err := io.ReadFull(r, raw); err != nil {
				return [32]byte{}, err
			}
			v := kernels.Float16ToFloat32(binary.LittleEndian.Uint16(raw))
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
			hasher.Write(buf[:])
		}
	default:
		blockSize, blockBytes, err := filefmt.BlockLayout(h.DataType)
		if err != nil {
			return [32]byte{}, err
		}
		qtype, err := quantKindOf(h.DataType)
		if err != nil {
			return [32]byte{}, err
		}
		raw := make([]byte, blockBytes)
		dst := make([]float32, blockSize)
		blocks := n / uint64(blockSize)
		for b := uint64(0); b < blocks; b++ {
			if _, err := io.ReadFull(r, raw); err != nil {
				return [32]byte{}, err
			}
			kernels.DecodeBlock(qtype, raw, dst)
			for _, v := range dst {
				binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
				hasher.Write(buf[:])
			}
		}
	}

	var sum [32]byte
	copy(sum[:], hasher.Sum(nil))
	return sum, nil
}

func quantKindOf(t filefmt.DataType) (kernels.QuantType, error) {
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
		return 0, fmt.Errorf("%s has no quantized decode path", t)
	}
}
