// Package perplexity adapts the Perplexity API. The wire format is
// OpenAI-compatible with an extra top-level citations array, which this
// adapter lifts into the canonical citation list.
package perplexity

import (
	"net/http"

	"github.com/focusloop/aidispatch/internal/backend"
	"github.com/focusloop/aidispatch/internal/backend/openailike"
	"github.com/focusloop/aidispatch/pkg/types"
)

// Adapter implements backend.Adapter for Perplexity.
type Adapter struct {
	*openailike.Adapter
}

// New creates the Perplexity adapter.
func New(cred backend.Credential) *Adapter {
	return &Adapter{
		Adapter: openailike.New(openailike.Info{
			Name:           "perplexity",
			DefaultBaseURL: "https://api.perplexity.ai",
		}, cred),
	}
}

// ParseResponse extends the base parsing with citation extraction.
// Relevance decays with citation rank; providers return them ordered.
func (a *Adapter) ParseResponse(inv *backend.Invocation, resp *http.Response) (*types.Response, error) {
	body, err := a.DecodeChat(resp)
	if err != nil {
		return nil, err
	}

	out := &types.Response{
		Content: body.Choices[0].Message.Content,
		Usage: types.Usage{
			InputUnits:  body.Usage.PromptTokens,
			OutputUnits: body.Usage.CompletionTokens,
		},
	}
	for i, url := range body.Citations {
		out.Citations = append(out.Citations, types.Citation{
			URL:       url,
			Relevance: 1.0 / float64(i+1),
		})
	}
	return out, nil
}
