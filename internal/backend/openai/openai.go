// Package openai adapts the OpenAI API. Chat rides the openailike base;
// image generation goes to the images endpoint, which has its own request
// and reply shapes.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/focusloop/aidispatch/internal/backend"
	"github.com/focusloop/aidispatch/internal/backend/openailike"
	"github.com/focusloop/aidispatch/internal/catalog"
	"github.com/focusloop/aidispatch/pkg/types"
)

// Adapter implements backend.Adapter for OpenAI.
type Adapter struct {
	*openailike.Adapter
}

// New creates the OpenAI adapter.
func New(cred backend.Credential) *Adapter {
	return &Adapter{
		Adapter: openailike.New(openailike.Info{
			Name:           "openai",
			DefaultBaseURL: "https://api.openai.com/v1",
		}, cred),
	}
}

type imageBody struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imageReply struct {
	Data []struct {
		B64JSON string `json:"b64_json,omitempty"`
		URL     string `json:"url,omitempty"`
	} `json:"data"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// BuildRequest routes image-capable descriptors to the images endpoint
// and everything else to chat completions.
func (a *Adapter) BuildRequest(ctx context.Context, inv *backend.Invocation) (*http.Request, error) {
	if !inv.Descriptor.Has(catalog.CapabilityImage) {
		return a.Adapter.BuildRequest(ctx, inv)
	}

	prompt := ""
	if n := len(inv.Messages); n > 0 {
		prompt = inv.Messages[n-1].Content
	}
	payload, err := json.Marshal(imageBody{
		Model:  inv.Descriptor.Model,
		Prompt: prompt,
		N:      1,
		Size:   "1024x1024",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.BaseURL()+"/images/generations", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create image request: %w", err)
	}
	a.SetHeaders(req)
	return req, nil
}

// ParseResponse normalizes image replies; chat replies pass through the
// base adapter.
func (a *Adapter) ParseResponse(inv *backend.Invocation, resp *http.Response) (*types.Response, error) {
	if !inv.Descriptor.Has(catalog.CapabilityImage) {
		return a.Adapter.ParseResponse(inv, resp)
	}

	var reply imageReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("decode image response: %w", err)
	}
	if len(reply.Data) == 0 {
		return nil, fmt.Errorf("image response has no data")
	}

	content := reply.Data[0].B64JSON
	if content == "" {
		content = reply.Data[0].URL
	}
	return &types.Response{
		Content: content,
		Usage: types.Usage{
			InputUnits:  reply.Usage.InputTokens,
			OutputUnits: reply.Usage.OutputTokens,
		},
	}, nil
}
