// Package openailike is the base adapter for providers that speak the
// OpenAI chat-completions wire format with minor variations. Provider
// shims supply an Info and override only what differs.
package openailike

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

// Info holds the per-provider wire details.
type Info struct {
	// Name is the provider identifier (e.g. "openai", "deepseek").
	Name string

	// DefaultBaseURL is used when the credential leaves BaseURL empty.
	DefaultBaseURL string

	// ChatEndpoint defaults to "/chat/completions".
	ChatEndpoint string

	// APIKeyHeader defaults to "Authorization" with a "Bearer " prefix.
	APIKeyHeader string
	APIKeyPrefix string

	// ExtraHeaders are added to every request.
	ExtraHeaders map[string]string
}

// Adapter implements backend.Adapter for OpenAI-compatible providers.
type Adapter struct {
	info    Info
	apiKey  string
	baseURL string
}

// New creates an adapter from provider info and a credential.
func New(info Info, cred backend.Credential) *Adapter {
	baseURL := cred.BaseURL
	if baseURL == "" {
		baseURL = info.DefaultBaseURL
	}
	return &Adapter{
		info:    info,
		apiKey:  cred.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Provider returns the provider identifier.
func (a *Adapter) Provider() string { return a.info.Name }

// BaseURL returns the resolved endpoint root. Shims use it for
// non-chat endpoints.
func (a *Adapter) BaseURL() string { return a.baseURL }

// chatBody is the OpenAI-compatible request payload.
type chatBody struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponseBody is the OpenAI-compatible reply payload. Exported so
// shims can extend parsing (e.g. citation extraction).
type ChatResponseBody struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Citations []string `json:"citations,omitempty"`
}

// BuildRequest assembles the chat-completions call.
func (a *Adapter) BuildRequest(ctx context.Context, inv *backend.Invocation) (*http.Request, error) {
	body := chatBody{Model: inv.Descriptor.Model}
	for _, m := range inv.Messages {
		body.Messages = append(body.Messages, wireMessage{Role: m.Role, Content: m.Content})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := a.info.ChatEndpoint
	if endpoint == "" {
		endpoint = "/chat/completions"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	a.SetHeaders(req)
	return req, nil
}

// SetHeaders applies content type, API key and extra headers.
func (a *Adapter) SetHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")

	header := a.info.APIKeyHeader
	if header == "" {
		header = "Authorization"
	}
	prefix := a.info.APIKeyPrefix
	if prefix == "" && header == "Authorization" {
		prefix = "Bearer "
	}
	if a.apiKey != "" {
		req.Header.Set(header, prefix+a.apiKey)
	}
	for k, v := range a.info.ExtraHeaders {
		req.Header.Set(k, v)
	}
}

// DecodeChat reads and decodes an OpenAI-compatible reply body.
func (a *Adapter) DecodeChat(resp *http.Response) (*ChatResponseBody, error) {
	var body ChatResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(body.Choices) == 0 {
		return nil, fmt.Errorf("response has no choices")
	}
	return &body, nil
}

// ParseResponse normalizes the reply into the canonical shape.
func (a *Adapter) ParseResponse(inv *backend.Invocation, resp *http.Response) (*types.Response, error) {
	body, err := a.DecodeChat(resp)
	if err != nil {
		return nil, err
	}
	return &types.Response{
		Content: body.Choices[0].Message.Content,
		Usage: types.Usage{
			InputUnits:  body.Usage.PromptTokens,
			OutputUnits: body.Usage.CompletionTokens,
		},
	}, nil
}

// MapError classifies a provider error status.
func (a *Adapter) MapError(inv *backend.Invocation, statusCode int, body []byte) error {
	message := extractErrorMessage(body)
	if message == "" {
		message = fmt.Sprintf("%s returned status %d", a.info.Name, statusCode)
	}
	return svcerrors.FromStatusCode(inv.Descriptor.ID, statusCode, message)
}

func extractErrorMessage(body []byte) string {
	var wire struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return ""
	}
	return wire.Error.Message
}
