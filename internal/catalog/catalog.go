// Package catalog holds the static table of backend model descriptors.
// The catalog is loaded once at process start and is read-only afterwards,
// so it needs no synchronization.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Capability is a declared backend capability flag.
type Capability string

const (
	CapabilityVision    Capability = "vision"
	CapabilityCitations Capability = "citations"
	CapabilityImage     Capability = "image_generation"
	CapabilityReasoning Capability = "reasoning"
)

// Descriptor describes one selectable external backend.
// Costs are micro-USD per million input/output units; micro-USD is the
// ledger's minor currency unit so that single-digit-token calls still
// accrue a nonzero cost.
type Descriptor struct {
	ID                string       `yaml:"id"`
	Provider          string       `yaml:"provider"`
	Model             string       `yaml:"model"`
	Capabilities      []Capability `yaml:"capabilities,omitempty"`
	InputCostPerMTok  int64        `yaml:"input_cost_per_mtok"`
	OutputCostPerMTok int64        `yaml:"output_cost_per_mtok"`

	// ZeroCost marks the always-available, zero-cost fallback entry.
	// Exactly one descriptor in a catalog carries it.
	ZeroCost bool `yaml:"zero_cost,omitempty"`

	// PromoPool names the promotional credit pool this backend draws
	// from, empty when the provider has no promotional credits.
	PromoPool string `yaml:"promo_pool,omitempty"`
}

// Has reports whether the descriptor declares the given capability.
func (d *Descriptor) Has(c Capability) bool {
	for _, have := range d.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// Catalog is an immutable set of descriptors keyed by ID.
type Catalog struct {
	byID     map[string]*Descriptor
	order    []*Descriptor
	fallback *Descriptor
}

// New builds a catalog from descriptors. It validates that IDs are unique
// and that exactly one descriptor is the zero-cost fallback.
func New(descs ...Descriptor) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]*Descriptor, len(descs))}
	for i := range descs {
		d := descs[i]
		if d.ID == "" || d.Provider == "" || d.Model == "" {
			return nil, fmt.Errorf("descriptor %d: id, provider and model are required", i)
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate descriptor id %q", d.ID)
		}
		c.byID[d.ID] = &d
		c.order = append(c.order, &d)
		if d.ZeroCost {
			if c.fallback != nil {
				return nil, fmt.Errorf("catalog has more than one zero-cost entry (%s, %s)", c.fallback.ID, d.ID)
			}
			c.fallback = &d
		}
	}
	if c.fallback == nil {
		return nil, fmt.Errorf("catalog needs exactly one zero-cost fallback entry")
	}
	return c, nil
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var file struct {
		Backends []Descriptor `yaml:"backends"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(file.Backends...)
}

// Default returns the built-in backend table.
func Default() *Catalog {
	c, err := New(
		Descriptor{
			ID:                "swift",
			Provider:          "gemini",
			Model:             "gemini-2.0-flash",
			Capabilities:      []Capability{CapabilityVision},
			InputCostPerMTok:  100_000, // $0.10 / M
			OutputCostPerMTok: 400_000,
		},
		Descriptor{
			ID:                "quality",
			Provider:          "openai",
			Model:             "gpt-4o",
			Capabilities:      []Capability{CapabilityVision, CapabilityReasoning},
			InputCostPerMTok:  2_500_000,
			OutputCostPerMTok: 10_000_000,
		},
		Descriptor{
			ID:                "scribe",
			Provider:          "deepseek",
			Model:             "deepseek-chat",
			Capabilities:      []Capability{CapabilityReasoning},
			InputCostPerMTok:  140_000,
			OutputCostPerMTok: 280_000,
			PromoPool:         "deepseek",
		},
		Descriptor{
			ID:                "scholar",
			Provider:          "perplexity",
			Model:             "sonar-pro",
			Capabilities:      []Capability{CapabilityCitations},
			InputCostPerMTok:  3_000_000,
			OutputCostPerMTok: 15_000_000,
		},
		Descriptor{
			ID:                "painter",
			Provider:          "openai",
			Model:             "gpt-image-1",
			Capabilities:      []Capability{CapabilityImage},
			InputCostPerMTok:  5_000_000,
			OutputCostPerMTok: 40_000_000,
		},
		Descriptor{
			ID:       "local",
			Provider: "ollama",
			Model:    "llama3.1:8b",
			ZeroCost: true,
		},
	)
	if err != nil {
		panic(err) // built-in table is validated by tests
	}
	return c
}

// Get returns the descriptor with the given ID, or nil.
func (c *Catalog) Get(id string) *Descriptor {
	return c.byID[id]
}

// Fallback returns the always-available zero-cost descriptor.
func (c *Catalog) Fallback() *Descriptor {
	return c.fallback
}

// WithCapability returns all descriptors declaring the capability, in
// catalog order.
func (c *Catalog) WithCapability(cap Capability) []*Descriptor {
	var out []*Descriptor
	for _, d := range c.order {
		if d.Has(cap) {
			out = append(out, d)
		}
	}
	return out
}

// All returns every descriptor in catalog order.
func (c *Catalog) All() []*Descriptor {
	out := make([]*Descriptor, len(c.order))
	copy(out, c.order)
	return out
}
