package model

import (
	"strings"
	"testing"
)

func TestMatchTopLevel(t *testing.T) {
	spec, layer, ok := Match("head.weight")
	if !ok {
		t.Fatal("expected head.weight to match")
	}
	if spec.Slot != SlotHeadWeight || layer != 0 {
		t.Fatalf("got slot=%v layer=%d, want SlotHeadWeight layer 0", spec.Slot, layer)
	}
}

func TestMatchPerLayer(t *testing.T) {
	spec, layer, ok := Match("blocks.7.ffn.key.weight")
	if !ok {
		t.Fatal("expected blocks.7.ffn.key.weight to match")
	}
	if spec.Slot != SlotFFNKeyWeight || layer != 7 {
		t.Fatalf("got slot=%v layer=%d, want SlotFFNKeyWeight layer 7", spec.Slot, layer)
	}
}

func TestMatchUnrecognized(t *testing.T) {
	if _, _, ok := Match("blocks.3.nonsense"); ok {
		t.Fatal("expected no match for an unknown key")
	}
}

func TestMatchLN0IsNotPerLayer(t *testing.T) {
	spec, layer, ok := Match("blocks.0.ln0.weight")
	if !ok {
		t.Fatal("expected blocks.0.ln0.weight to match")
	}
	if spec.PerLayer {
		t.Fatal("blocks.0.ln0.weight is a singleton parameter, not a per-layer one")
	}
	if layer != 0 {
		t.Fatalf("layer = %d, want 0", layer)
	}
}

func TestEmbeddingAndHeadAreRank2(t *testing.T) {
	for _, name := range []string{"emb.weight", "head.weight"} {
		spec, _, ok := Match(name)
		if !ok {
			t.Fatalf("expected %s to match", name)
		}
		if spec.Rank != Rank2D {
			t.Fatalf("%s has Rank %v, want Rank2D", name, spec.Rank)
		}
	}
}

func TestErrRankMismatchNamesBothRanks(t *testing.T) {
	err := ErrRankMismatch("emb.weight", Rank1D, Rank2D)
	if err == nil {
		t.Fatal("expected a non-nil error")
	}
	if msg := err.Error(); !strings.Contains(msg, "rank 1") || !strings.Contains(msg, "want 2") {
		t.Fatalf("error %q does not name both the got and want ranks", msg)
	}
}
