package classify

import (
	"strings"
	"testing"

	"github.com/focusloop/aidispatch/pkg/types"
)

func TestClassifyComplexity(t *testing.T) {
	longMessage := strings.Repeat("word ", 2000) // ~2500 estimated tokens

	deepHistory := make([]types.Message, 10)
	for i := range deepHistory {
		deepHistory[i] = types.Message{Role: "user", Content: "previous turn"}
	}

	tests := []struct {
		name string
		req  *types.Request
		want Complexity
	}{
		{
			name: "greeting is simple",
			req:  &types.Request{Feature: types.FeatureChat, Message: "hi"},
			want: Simple,
		},
		{
			name: "greeting with punctuation noise is simple",
			req:  &types.Request{Feature: types.FeatureChat, Message: "  Hello   "},
			want: Simple,
		},
		{
			name: "thanks is simple",
			req:  &types.Request{Feature: types.FeatureChat, Message: "thanks"},
			want: Simple,
		},
		{
			name: "ordinary question is medium",
			req:  &types.Request{Feature: types.FeatureChat, Message: "what should I work on today?"},
			want: Medium,
		},
		{
			name: "long message is complex",
			req:  &types.Request{Feature: types.FeatureChat, Message: longMessage},
			want: Complex,
		},
		{
			name: "deep history with reasoning keyword is complex",
			req: &types.Request{
				Feature: types.FeatureChat,
				Message: "compare these two plans and explain the trade-offs",
				History: deepHistory,
			},
			want: Complex,
		},
		{
			name: "deep history without reasoning keyword stays medium",
			req: &types.Request{
				Feature: types.FeatureChat,
				Message: "add milk to my shopping list",
				History: deepHistory,
			},
			want: Medium,
		},
		{
			name: "sentence starting with greeting word is not simple",
			req:  &types.Request{Feature: types.FeatureChat, Message: "hi can you draft a weekly plan for me"},
			want: Medium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.req)
			if got.Complexity != tt.want {
				t.Errorf("complexity = %q, want %q", got.Complexity, tt.want)
			}
		})
	}
}

func TestFingerprintDeterminism(t *testing.T) {
	a := Classify(&types.Request{Feature: types.FeatureChat, Message: "Plan   My WEEK"})
	b := Classify(&types.Request{Feature: types.FeatureChat, Message: "plan my week"})
	if a.Fingerprint != b.Fingerprint {
		t.Errorf("normalized-equal messages fingerprint differently: %q vs %q", a.Fingerprint, b.Fingerprint)
	}

	c := Classify(&types.Request{Feature: types.FeatureNoteGeneration, Message: "plan my week"})
	if a.Fingerprint == c.Fingerprint {
		t.Error("different features share a fingerprint")
	}

	d := Classify(&types.Request{Feature: types.FeatureChat, Message: "plan my month"})
	if a.Fingerprint == d.Fingerprint {
		t.Error("different messages share a fingerprint")
	}

	if !strings.HasPrefix(a.Fingerprint, "aidispatch:resp:") {
		t.Errorf("fingerprint missing namespace prefix: %q", a.Fingerprint)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello world"},
		{"  multiple   spaces\t\nhere ", "multiple spaces here"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens("12345678"); got != 2 {
		t.Errorf("EstimateTokens = %d, want 2", got)
	}
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("EstimateTokens(empty) = %d, want 0", got)
	}
}
