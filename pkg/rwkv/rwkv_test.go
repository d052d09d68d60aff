package rwkv

import "testing"

func TestParseDataTypeKnown(t *testing.T) {
	cases := []string{"F32", "Q4_0", "Q4_1", "Q5_0", "Q5_1", "Q8_0"}
	for _, name := range cases {
		if _, err := parseDataType(name); err != nil {
			t.Errorf("parseDataType(%q) returned error: %v", name, err)
		}
	}
}

func TestParseDataTypeUnknown(t *testing.T) {
	if _, err := parseDataType("Q4_1_O"); err == nil {
		t.Fatal("expected error for removed/unknown quantize target")
	}
}

func TestSystemInfoStringNonEmpty(t *testing.T) {
	if SystemInfoString() == "" {
		t.Fatal("SystemInfoString returned an empty string")
	}
}
