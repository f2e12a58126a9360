package keygen

import (
	"strings"
	"testing"
)

func TestGenerateFormat(t *testing.T) {
	g := New("CVITE")

	for i := 0; i < 100; i++ {
		key := g.Generate()

		if !KeyPattern.MatchString(key) {
			t.Fatalf("key %q does not match expected pattern", key)
		}

		parts := strings.Split(key, "-")
		if len(parts) != 4 {
			t.Fatalf("key %q: expected 4 segments, got %d", key, len(parts))
		}
		if parts[0] != "CVITE" {
			t.Errorf("key %q: expected prefix CVITE, got %s", key, parts[0])
		}
		for _, seg := range parts[1:] {
			if len(seg) != 5 {
				t.Errorf("key %q: segment %q is not 5 characters", key, seg)
			}
			for _, ch := range seg {
				if !strings.ContainsRune(alphabet, ch) {
					t.Errorf("key %q: segment %q contains invalid character %q", key, seg, ch)
				}
			}
		}
	}
}

func TestGenerateDistinct(t *testing.T) {
	g := New("")

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		key := g.Generate()
		if seen[key] {
			t.Fatalf("duplicate key generated: %s", key)
		}
		seen[key] = true
	}
}

func TestNewDefaultsPrefix(t *testing.T) {
	if got := New("").Prefix(); got != DefaultPrefix {
		t.Errorf("expected default prefix %s, got %s", DefaultPrefix, got)
	}
	if got := New("  acme  ").Prefix(); got != "ACME" {
		t.Errorf("expected normalized prefix ACME, got %s", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  cvite-ab1de-f2hij-klm3o  ", "CVITE-AB1DE-F2HIJ-KLM3O"},
		{"CVITE-AB1DE-F2HIJ-KLM3O", "CVITE-AB1DE-F2HIJ-KLM3O"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
