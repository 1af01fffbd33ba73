package pricing

import (
	"testing"

	"github.com/focusloop/aidispatch/internal/catalog"
)

func TestCost(t *testing.T) {
	cheap := &catalog.Descriptor{
		ID: "swift", Provider: "gemini", Model: "gemini-2.0-flash",
		InputCostPerMTok:  100_000,
		OutputCostPerMTok: 400_000,
	}
	premium := &catalog.Descriptor{
		ID: "quality", Provider: "openai", Model: "gpt-4o",
		InputCostPerMTok:  2_500_000,
		OutputCostPerMTok: 10_000_000,
	}
	free := &catalog.Descriptor{
		ID: "local", Provider: "ollama", Model: "llama3.1:8b", ZeroCost: true,
	}

	tests := []struct {
		name   string
		desc   *catalog.Descriptor
		input  int
		output int
		want   int64
	}{
		{"zero usage", cheap, 0, 0, 0},
		{"zero-cost backend", free, 10_000, 10_000, 0},
		{"nil descriptor", nil, 100, 100, 0},

		// 1M input at $0.10/M is exactly 100_000 micro-USD.
		{"exact million", cheap, 1_000_000, 0, 100_000},

		// Tiny calls never floor to zero on a paid backend.
		{"single token input", cheap, 1, 0, 1},
		{"tiny greeting", cheap, 3, 8, 3}, // 0.3 -> 0, 3.7 -> 3

		// 500 in + 300 out on gpt-4o: 1250 + 3000.
		{"typical chat turn", premium, 500, 300, 4250},

		// Half-up boundary: 5 units at 100_000/M = 0.5 -> 1.
		{"round half up", cheap, 5, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cost(tt.desc, tt.input, tt.output); got != tt.want {
				t.Errorf("Cost(%d, %d) = %d, want %d", tt.input, tt.output, got, tt.want)
			}
		})
	}
}

func TestCostDeterminism(t *testing.T) {
	d := &catalog.Descriptor{
		ID: "scribe", Provider: "deepseek", Model: "deepseek-chat",
		InputCostPerMTok:  140_000,
		OutputCostPerMTok: 280_000,
	}
	first := Cost(d, 1234, 5678)
	for i := 0; i < 100; i++ {
		if got := Cost(d, 1234, 5678); got != first {
			t.Fatalf("cost not deterministic: %d vs %d", got, first)
		}
	}
}
