// Package model defines the declarative parameter schema the loader
// validates every tensor record against, replacing a printf-formatted-key
// plus switch-statement callback with one table and one validator.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Rank is the number of dimensions a schema entry expects.
type Rank int

const (
	Rank1D Rank = 1
	Rank2D Rank = 2
)

// Slot identifies where a matched tensor's data is bound in a Layer or in
// the top-level Model.
type Slot int

const (
	SlotEmbedding Slot = iota
	SlotLN0Weight
	SlotLN0Bias
	SlotLNOutWeight
	SlotLNOutBias
	SlotHeadWeight

	SlotLN1Weight
	SlotLN1Bias
	SlotLN2Weight
	SlotLN2Bias

	SlotAttTimeMixK
	SlotAttTimeMixV
	SlotAttTimeMixR
	SlotAttTimeFirst
	SlotAttTimeDecay
	SlotAttKeyWeight
	SlotAttValueWeight
	SlotAttReceptanceWeight
	SlotAttOutputWeight

	SlotFFNTimeMixK
	SlotFFNTimeMixR
	SlotFFNKeyWeight
	SlotFFNValueWeight
	SlotFFNReceptanceWeight
)

// ParamSpec describes one named parameter tensor: a name template (with
// "%d" standing in for a layer index for per-layer entries), the rank it
// must have, and the slot it is bound to.
type ParamSpec struct {
	NameTemplate string
	Rank         Rank
	Slot         Slot
	PerLayer     bool
}

// schema is the full catalog of recognized tensor names. Unlike the
// original printf-key-plus-callback registration, every entry here is
// data: Match walks this table once per tensor key instead of dispatching
// through per-name code paths.
var schema = []ParamSpec{
	{NameTemplate: "emb.weight", Rank: Rank2D, Slot: SlotEmbedding},
	{NameTemplate: "blocks.0.ln0.weight", Rank: Rank1D, Slot: SlotLN0Weight},
	{NameTemplate: "blocks.0.ln0.bias", Rank: Rank1D, Slot: SlotLN0Bias},
	{NameTemplate: "ln_out.weight", Rank: Rank1D, Slot: SlotLNOutWeight},
	{NameTemplate: "ln_out.bias", Rank: Rank1D, Slot: SlotLNOutBias},
	{NameTemplate: "head.weight", Rank: Rank2D, Slot: SlotHeadWeight},

	{NameTemplate: "blocks.%d.ln1.weight", Rank: Rank1D, Slot: SlotLN1Weight, PerLayer: true},
	{NameTemplate: "blocks.%d.ln1.bias", Rank: Rank1D, Slot: SlotLN1Bias, PerLayer: true},
	{NameTemplate: "blocks.%d.ln2.weight", Rank: Rank1D, Slot: SlotLN2Weight, PerLayer: true},
	{NameTemplate: "blocks.%d.ln2.bias", Rank: Rank1D, Slot: SlotLN2Bias, PerLayer: true},

	{NameTemplate: "blocks.%d.att.time_mix_k", Rank: Rank1D, Slot: SlotAttTimeMixK, PerLayer: true},
	{NameTemplate: "blocks.%d.att.time_mix_v", Rank: Rank1D, Slot: SlotAttTimeMixV, PerLayer: true},
	{NameTemplate: "blocks.%d.att.time_mix_r", Rank: Rank1D, Slot: SlotAttTimeMixR, PerLayer: true},
	{NameTemplate: "blocks.%d.att.time_first", Rank: Rank1D, Slot: SlotAttTimeFirst, PerLayer: true},
	{NameTemplate: "blocks.%d.att.time_decay", Rank: Rank1D, Slot: SlotAttTimeDecay, PerLayer: true},
	{NameTemplate: "blocks.%d.att.key.weight", Rank: Rank2D, Slot: SlotAttKeyWeight, PerLayer: true},
	{NameTemplate: "blocks.%d.att.value.weight", Rank: Rank2D, Slot: SlotAttValueWeight, PerLayer: true},
	{NameTemplate: "blocks.%d.att.receptance.weight", Rank: Rank2D, Slot: SlotAttReceptanceWeight, PerLayer: true},
	{NameTemplate: "blocks.%d.att.output.weight", Rank: Rank2D, Slot: SlotAttOutputWeight, PerLayer: true},

	{NameTemplate: "blocks.%d.ffn.time_mix_k", Rank: Rank1D, Slot: SlotFFNTimeMixK, PerLayer: true},
	{NameTemplate: "blocks.%d.ffn.time_mix_r", Rank: Rank1D, Slot: SlotFFNTimeMixR, PerLayer: true},
	{NameTemplate: "blocks.%d.ffn.key.weight", Rank: Rank2D, Slot: SlotFFNKeyWeight, PerLayer: true},
	{NameTemplate: "blocks.%d.ffn.value.weight", Rank: Rank2D, Slot: SlotFFNValueWeight, PerLayer: true},
	{NameTemplate: "blocks.%d.ffn.receptance.weight", Rank: Rank2D, Slot: SlotFFNReceptanceWeight, PerLayer: true},
}

// Match reports which ParamSpec a tensor key satisfies, along with the
// layer index it names (0 for non-per-layer entries).
func Match(key string) (spec ParamSpec, layer int, ok bool) {
	for _, s := range schema {
		if !s.PerLayer {
			if key == s.NameTemplate {
				return s, 0, true
			}
			continue
		}
		prefix, suffix, found := splitTemplate(s.NameTemplate)
		if !found || !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, suffix) {
			continue
		}
		mid := key[len(prefix) : len(key)-len(suffix)]
		idx, err := strconv.Atoi(mid)
		if err != nil {
			continue
		}
		return s, idx, true
	}
	return ParamSpec{}, 0, false
}

func splitTemplate(t string) (prefix, suffix string, ok bool) {
	i := strings.Index(t, "%d")
	if i < 0 {
		return "", "", false
	}
	return t[:i], t[i+2:], true
}

// ErrUnrecognizedKey is returned for tensor names that match no schema
// entry.
func ErrUnrecognizedKey(key string) error {
	return fmt.Errorf("model: tensor %q does not match any known parameter name", key)
}

// ErrRankMismatch is returned when a tensor's on-disk dimension count
// does not match the rank its schema entry requires.
func ErrRankMismatch(key string, got, want Rank) error {
	return fmt.Errorf("model: tensor %q has rank %d, want %d", key, got, want)
}
