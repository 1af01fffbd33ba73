// Package registry assembles the adapter set for the supported
// providers. It sits above the provider shims so the backend package
// itself stays free of provider imports.
package registry

import (
	"github.com/focusloop/aidispatch/internal/backend"
	"github.com/focusloop/aidispatch/internal/backend/gemini"
	"github.com/focusloop/aidispatch/internal/backend/ollama"
	"github.com/focusloop/aidispatch/internal/backend/openai"
	"github.com/focusloop/aidispatch/internal/backend/openailike"
	"github.com/focusloop/aidispatch/internal/backend/perplexity"
)

// Default builds adapters for every supported provider. Providers with
// no credential entry still get an adapter; calls to them fail at the
// transport layer rather than at construction.
func Default(creds backend.Credentials) []backend.Adapter {
	return []backend.Adapter{
		openai.New(creds.Get("openai")),
		openailike.New(openailike.Info{
			Name:           "deepseek",
			DefaultBaseURL: "https://api.deepseek.com/v1",
		}, creds.Get("deepseek")),
		perplexity.New(creds.Get("perplexity")),
		gemini.New(creds.Get("gemini")),
		ollama.New(creds.Get("ollama")),
	}
}
