// Command logitdiff streams a prompt through a model byte by byte and
// compares the resulting logits against a reference float32 dump,
// mirroring the reference implementation's tiny-model regression check:
// a single scalar, the sum of per-element differences, tested against a
// tolerance.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"rwkvgo/pkg/rwkv"
)

func main() {
	modelPath := flag.String("model", "", "path to a model file")
	promptFile := flag.String("prompt-file", "", "path to a prompt file, evaluated one byte per token")
	expectedFile := flag.String("expected", "", "path to a raw float32 little-endian logits dump")
	maxDiff := flag.Float64("max-diff", 0, "maximum allowed |sum of differences|")
	threads := flag.Int("threads", 4, "worker goroutines for matrix-vector products")
	flag.Parse()

	if *modelPath == "" || *promptFile == "" || *expectedFile == "" {
		fmt.Fprintln(os.Stderr, "missing required -model, -prompt-file, or -expected")
		flag.Usage()
		os.Exit(2)
	}

	prompt, err := os.ReadFile(*promptFile)
	if err != nil {
		log.Fatalf("read prompt: %v", err)
	}

	session, err := rwkv.LoadModel(*modelPath, *threads)
	if err != nil {
		log.Fatalf("load model: %v", err)
	}
	defer session.Close()

	state := make([]float32, session.StateElementCount())
	logits := make([]float32, session.LogitsElementCount())

	var in []float32
	for i, b := range prompt {
		if err := session.Eval(uint32(b), in, state, logits); err != nil {
			log.Fatalf("eval byte %d: %v", i, err)
		}
		in = state
	}

	expected, err := readFloat32File(*expectedFile, len(logits))
	if err != nil {
		log.Fatalf("read expected logits: %v", err)
	}

	var diffSum float32
	for i := range logits {
		diffSum += logits[i] - expected[i]
	}

	fmt.Printf("difference_sum=%f\n", diffSum)
	if math.Abs(float64(diffSum)) > math.Abs(*maxDiff)+0.000001 {
		fmt.Printf("FAIL: |%f| exceeds tolerance |%f|+0.000001\n", diffSum, *maxDiff)
		os.Exit(1)
	}
	fmt.Println("PASS")
}

func readFloat32File(path string, count int) ([]float32, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(b) != count*4 {
		return nil, fmt.Errorf("expected logits file has %d bytes, want %d (%d float32 elements)", len(b), count*4, count)
	}
	out := make([]float32, count)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : i*4+4]))
	}
	return out, nil
}
