package model

import "fmt"

// Layer holds every parameter tensor belonging to one RWKV block.
type Layer struct {
	LN1Weight, LN1Bias []float32
	LN2Weight, LN2Bias []float32

	AttTimeMixK, AttTimeMixV, AttTimeMixR []float32
	AttTimeFirst, AttTimeDecay             []float32
	AttKeyWeight, AttValueWeight           []float32
	AttReceptanceWeight, AttOutputWeight   []float32

	FFNTimeMixK, FFNTimeMixR []float32
	FFNKeyWeight             []float32
	FFNValueWeight           []float32
	FFNReceptanceWeight      []float32
}

// Model holds the full set of bound parameters for one loaded file.
type Model struct {
	VocabSize  uint32
	EmbedWidth uint32
	FFNWidth   uint32 // discovered from blocks.0.ffn.key.weight's height

	Embedding []float32 // [VocabSize][EmbedWidth]
	LN0Weight, LN0Bias []float32
	LNOutWeight, LNOutBias []float32
	HeadWeight []float32 // [VocabSize][EmbedWidth]

	Layers []Layer
}

// NewModel allocates a Model with LayerCount empty layers, ready for
// Bind to fill in as tensor records are read off disk.
func NewModel(vocabSize, embedWidth, layerCount uint32) *Model {
	return &Model{
		VocabSize:  vocabSize,
		EmbedWidth: embedWidth,
		Layers:     make([]Layer, layerCount),
	}
}

// Bind stores a decoded tensor's float32 data into the slot Match
// identified for it. It returns an error if the layer index is out of
// range. Binding a slot that is already filled (a duplicate tensor name)
// is not an error: the later data replaces the earlier.
func (m *Model) Bind(spec ParamSpec, layerIdx int, data []float32) error {
	if spec.PerLayer {
		if layerIdx < 0 || layerIdx >= len(m.Layers) {
			return fmt.Errorf("model: layer index %d out of range [0,%d)", layerIdx, len(m.Layers))
		}
		l := &m.Layers[layerIdx]
		switch spec.Slot {
		case SlotLN1Weight:
			l.LN1Weight = data
		case SlotLN1Bias:
			l.LN1Bias = data
		case SlotLN2Weight:
			l.LN2Weight = data
		case SlotLN2Bias:
			l.LN2Bias = data
		case SlotAttTimeMixK:
			l.AttTimeMixK = data
		case SlotAttTimeMixV:
			l.AttTimeMixV = data
		case SlotAttTimeMixR:
			l.AttTimeMixR = data
		case SlotAttTimeFirst:
			l.AttTimeFirst = data
		case SlotAttTimeDecay:
			l.AttTimeDecay = data
		case SlotAttKeyWeight:
			l.AttKeyWeight = data
		case SlotAttValueWeight:
			l.AttValueWeight = data
		case SlotAttReceptanceWeight:
			l.AttReceptanceWeight = data
		case SlotAttOutputWeight:
			l.AttOutputWeight = data
		case SlotFFNTimeMixK:
			l.FFNTimeMixK = data
		case SlotFFNTimeMixR:
			l.FFNTimeMixR = data
		case SlotFFNKeyWeight:
			l.FFNKeyWeight = data
			if n := len(data); m.EmbedWidth != 0 {
				m.FFNWidth = uint32(n) / m.EmbedWidth
			}
		case SlotFFNValueWeight:
			l.FFNValueWeight = data
		case SlotFFNReceptanceWeight:
			l.FFNReceptanceWeight = data
		default:
			return fmt.Errorf("model: slot %d is not a per-layer slot", spec.Slot)
		}
		return nil
	}

	switch spec.Slot {
	case SlotEmbedding:
		m.Embedding = data
	case SlotLN0Weight:
		m.LN0Weight = data
	case SlotLN0Bias:
		m.LN0Bias = data
	case SlotLNOutWeight:
		m.LNOutWeight = data
	case SlotLNOutBias:
		m.LNOutBias = data
	case SlotHeadWeight:
		m.HeadWeight = data
	default:
		return fmt.Errorf("model: slot %d is not a top-level slot", spec.Slot)
	}
	return nil
}

// Validate checks every required slot across the model and every layer
// was bound by the time loading finished.
func (m *Model) Validate() error {
	if m.Embedding == nil {
		return fmt.Errorf("model: missing emb.weight")
	}
	if m.LN0Weight == nil || m.LN0Bias == nil {
		return fmt.Errorf("model: missing blocks.0.ln0.weight/bias")
	}
	if m.LNOutWeight == nil || m.LNOutBias == nil {
		return fmt.Errorf("model: missing ln_out.weight/bias")
	}
	if m.HeadWeight == nil {
		return fmt.Errorf("model: missing head.weight")
	}
	if uint32(len(m.Embedding)) != m.VocabSize*m.EmbedWidth {
		return fmt.Errorf("model: emb.weight has %d elements, want %d*%d", len(m.Embedding), m.VocabSize, m.EmbedWidth)
	}
	for i := range m.Layers {
		if err := m.Layers[i].validate(i); err != nil {
			return err
		}
	}
	return nil
}

func (l *Layer) validate(idx int) error {
	fields := map[string][]float32{
		"ln1.weight": l.LN1Weight, "ln1.bias": l.LN1Bias,
		"ln2.weight": l.LN2Weight, "ln2.bias": l.LN2Bias,
		"att.time_mix_k": l.AttTimeMixK, "att.time_mix_v": l.AttTimeMixV, "att.time_mix_r": l.AttTimeMixR,
		"att.time_first": l.AttTimeFirst, "att.time_decay": l.AttTimeDecay,
		"att.key.weight": l.AttKeyWeight, "att.value.weight": l.AttValueWeight,
		"att.receptance.weight": l.AttReceptanceWeight, "att.output.weight": l.AttOutputWeight,
		"ffn.time_mix_k": l.FFNTimeMixK, "ffn.time_mix_r": l.FFNTimeMixR,
		"ffn.key.weight": l.FFNKeyWeight, "ffn.value.weight": l.FFNValueWeight,
		"ffn.receptance.weight": l.FFNReceptanceWeight,
	}
	for name, v := range fields {
		if v == nil {
			return fmt.Errorf("model: layer %d missing blocks.%d.%s", idx, idx, name)
		}
	}
	return nil
}
