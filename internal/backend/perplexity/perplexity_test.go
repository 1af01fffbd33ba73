package perplexity

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusloop/aidispatch/internal/backend"
	"github.com/focusloop/aidispatch/internal/catalog"
)

func TestParseResponseCitations(t *testing.T) {
	payload := `{
		"choices": [{"message": {"role": "assistant", "content": "Deep work beats shallow work [1][2]."}}],
		"usage": {"prompt_tokens": 30, "completion_tokens": 60},
		"citations": ["https://example.com/a", "https://example.com/b", "https://example.com/c"]
	}`

	a := New(backend.Credential{APIKey: "pplx-key"})
	inv := &backend.Invocation{
		Descriptor: &catalog.Descriptor{ID: "scholar", Provider: "perplexity", Model: "sonar-pro"},
	}

	out, err := a.ParseResponse(inv, &http.Response{Body: io.NopCloser(strings.NewReader(payload))})
	require.NoError(t, err)

	assert.Equal(t, "Deep work beats shallow work [1][2].", out.Content)
	require.Len(t, out.Citations, 3)
	assert.Equal(t, "https://example.com/a", out.Citations[0].URL)

	// Relevance decays with rank.
	assert.Greater(t, out.Citations[0].Relevance, out.Citations[1].Relevance)
	assert.Greater(t, out.Citations[1].Relevance, out.Citations[2].Relevance)
}

func TestProviderAndBaseURL(t *testing.T) {
	a := New(backend.Credential{})
	assert.Equal(t, "perplexity", a.Provider())
	assert.Equal(t, "https://api.perplexity.ai", a.BaseURL())
}
