// Package ollama adapts a locally hosted Ollama instance. It backs the
// always-available zero-cost catalog entry the fallback controller
// substitutes after a transient failure.
package ollama

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/focusloop/aidispatch/internal/backend"
	svcerrors "github.com/focusloop/aidispatch/pkg/errors"
	"github.com/focusloop/aidispatch/pkg/types"
)

const defaultBaseURL = "http://localhost:11434"

// Adapter implements backend.Adapter for Ollama.
type Adapter struct {
	baseURL string
}

// New creates the Ollama adapter.
func New(cred backend.Credential) *Adapter {
	baseURL := cred.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Provider returns the provider identifier.
func (a *Adapter) Provider() string { return "ollama" }

type chatBody struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatReply struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

// BuildRequest assembles the non-streaming chat call.
func (a *Adapter) BuildRequest(ctx context.Context, inv *backend.Invocation) (*http.Request, error) {
	body := chatBody{Model: inv.Descriptor.Model, Stream: false}
	for _, m := range inv.Messages {
		body.Messages = append(body.Messages, wireMessage{Role: m.Role, Content: m.Content})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// ParseResponse normalizes the reply.
func (a *Adapter) ParseResponse(inv *backend.Invocation, resp *http.Response) (*types.Response, error) {
	var reply chatReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &types.Response{
		Content: reply.Message.Content,
		Usage: types.Usage{
			InputUnits:  reply.PromptEvalCount,
			OutputUnits: reply.EvalCount,
		},
	}, nil
}

// MapError classifies a provider error status.
func (a *Adapter) MapError(inv *backend.Invocation, statusCode int, body []byte) error {
	return svcerrors.FromStatusCode(inv.Descriptor.ID, statusCode,
		fmt.Sprintf("ollama returned status %d: %s", statusCode, strings.TrimSpace(string(body))))
}
