package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	fb := c.Fallback()
	if fb == nil || !fb.ZeroCost {
		t.Fatal("default catalog has no zero-cost fallback")
	}
	if fb.ID != "local" {
		t.Errorf("fallback = %q, want local", fb.ID)
	}

	for _, id := range []string{"swift", "quality", "scribe", "scholar", "painter", "local"} {
		if c.Get(id) == nil {
			t.Errorf("missing descriptor %q", id)
		}
	}

	if got := c.WithCapability(CapabilityCitations); len(got) != 1 || got[0].ID != "scholar" {
		t.Errorf("citation backends = %v", got)
	}
	if got := c.WithCapability(CapabilityImage); len(got) != 1 || got[0].ID != "painter" {
		t.Errorf("image backends = %v", got)
	}
	if got := c.WithCapability(CapabilityVision); len(got) != 2 {
		t.Errorf("vision backends = %d, want 2", len(got))
	}

	if c.Get("scribe").PromoPool != "deepseek" {
		t.Error("scribe has no deepseek promo pool")
	}
}

func TestNewValidation(t *testing.T) {
	base := Descriptor{ID: "a", Provider: "p", Model: "m", ZeroCost: true}

	tests := []struct {
		name  string
		descs []Descriptor
	}{
		{"empty id", []Descriptor{{Provider: "p", Model: "m", ZeroCost: true}}},
		{"duplicate id", []Descriptor{base, {ID: "a", Provider: "p", Model: "m"}}},
		{"no fallback", []Descriptor{{ID: "a", Provider: "p", Model: "m"}}},
		{"two fallbacks", []Descriptor{base, {ID: "b", Provider: "p", Model: "m", ZeroCost: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.descs...); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backends.yaml")
	doc := `
backends:
  - id: fast
    provider: gemini
    model: gemini-2.0-flash
    capabilities: [vision]
    input_cost_per_mtok: 100000
    output_cost_per_mtok: 400000
  - id: local
    provider: ollama
    model: llama3.1:8b
    zero_cost: true
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	fast := c.Get("fast")
	if fast == nil {
		t.Fatal("missing descriptor fast")
	}
	if fast.InputCostPerMTok != 100_000 || !fast.Has(CapabilityVision) {
		t.Errorf("descriptor parsed wrong: %+v", fast)
	}
	if c.Fallback().ID != "local" {
		t.Errorf("fallback = %q", c.Fallback().ID)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
