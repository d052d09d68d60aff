package runtime

import (
	"math"
	"testing"

	"rwkvgo/internal/model"
	"rwkvgo/internal/planner"
)

func tinyContext() *Context {
	const vocab, embed, layers, ffn = 8, 4, 1, 6
	m := model.NewModel(vocab, embed, layers)
	m.FFNWidth = ffn
	m.Embedding = fill(vocab * embed)
	m.LN0Weight, m.LN0Bias = ones(embed), zeros(embed)
	m.LNOutWeight, m.LNOutBias = ones(embed), zeros(embed)
	m.HeadWeight = fill(embed * vocab)

	l := &m.Layers[0]
	l.LN1Weight, l.LN1Bias = ones(embed), zeros(embed)
	l.LN2Weight, l.LN2Bias = ones(embed), zeros(embed)
	l.AttTimeMixK, l.AttTimeMixV, l.AttTimeMixR = half(embed), half(embed), half(embed)
	l.AttTimeFirst, l.AttTimeDecay = zeros(embed), negOnes(embed)
	l.AttKeyWeight, l.AttValueWeight = fill(embed * embed), fill(embed * embed)
	l.AttReceptanceWeight, l.AttOutputWeight = fill(embed * embed), fill(embed * embed)
	l.FFNTimeMixK, l.FFNTimeMixR = half(embed), half(embed)
	l.FFNKeyWeight = fill(embed * ffn)
	l.FFNValueWeight = fill(ffn * embed)
	l.FFNReceptanceWeight = fill(embed * embed)

	c := &Context{model: m, nThreads: 1, size: planner.Plan(vocab, embed, layers, ffn)}
	allocScratch(c)
	return c
}

func fill(n uint32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = 0.01 * float32(i%7-3)
	}
	return out
}
func ones(n uint32) []float32     { return constSlice(n, 1) }
func zeros(n uint32) []float32    { return constSlice(n, 0) }
func half(n uint32) []float32     { return constSlice(n, 0.5) }
func negOnes(n uint32) []float32  { return constSlice(n, -1) }
func constSlice(n uint32, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestEvalDeterministic(t *testing.T) {
	c := tinyContext()
	stateCount := int(c.StateElementCount())
	logitsCount := int(c.LogitsElementCount())

	run := func() ([]float32, []float32) {
		state := make([]float32, stateCount)
		logits := make([]float32, logitsCount)
		if err := c.Eval(3, nil, state, logits); err != nil {
			t.Fatalf("Eval() error = %v", err)
		}
		return state, logits
	}

	state1, logits1 := run()
	state2, logits2 := run()

	for i := range logits1 {
		if logits1[i] != logits2[i] {
			t.Fatalf("Eval is not deterministic at logits[%d]: %v != %v", i, logits1[i], logits2[i])
		}
	}
	for i := range state1 {
		if state1[i] != state2[i] {
			t.Fatalf("Eval is not deterministic at state[%d]: %v != %v", i, state1[i], state2[i])
		}
	}
}

func TestEvalNilStateInSeedsSentinel(t *testing.T) {
	c := tinyContext()
	state := make([]float32, c.StateElementCount())
	logits := make([]float32, c.LogitsElementCount())

	if err := c.Eval(0, nil, state, logits); err != nil {
		t.Fatalf("Eval() error = %v", err)
	}

	st := sliceLayerState(state, 0, c.model.EmbedWidth)
	for i, v := range st.attPP {
		if v == -1e30 {
			t.Fatalf("att_pp[%d] still holds the initial sentinel after one step", i)
		}
	}
}

func TestEvalRejectsOutOfRangeToken(t *testing.T) {
	c := tinyContext()
	state := make([]float32, c.StateElementCount())
	logits := make([]float32, c.LogitsElementCount())
	for i := range state {
		state[i] = 42
	}
	snapshot := append([]float32(nil), state...)

	err := c.Eval(c.model.VocabSize, nil, state, logits)
	if err == nil {
		t.Fatal("expected error for out-of-range token")
	}
	for i := range state {
		if state[i] != snapshot[i] {
			t.Fatalf("state_out was modified on a failed Eval call at index %d", i)
		}
	}
	if c.GetLastError()&ErrArgs == 0 {
		t.Fatal("expected ErrArgs to be set on the context error surface")
	}
}

func TestEvalRejectsWrongSizedBuffers(t *testing.T) {
	c := tinyContext()
	logits := make([]float32, c.LogitsElementCount())
	if err := c.Eval(0, nil, make([]float32, 1), logits); err == nil {
		t.Fatal("expected error for undersized state_out")
	}
}

func TestWKVSentinelIsFinite(t *testing.T) {
	if math.IsInf(float64(float32(-1e30)), 0) {
		t.Fatal("-1e30 must remain finite for exp() arithmetic to behave")
	}
}

func TestContextPrintErrorsIsIndependentOfGlobal(t *testing.T) {
	SetPrintErrors(false)
	defer SetPrintErrors(false)

	c := tinyContext()
	c.SetPrintErrors(true)

	if !c.GetPrintErrors() {
		t.Fatal("context SetPrintErrors(true) did not stick")
	}
	if GetPrintErrors() {
		t.Fatal("setting the context flag must not affect the package-level global flag")
	}
}
