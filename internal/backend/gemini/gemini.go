// Package gemini adapts the Google Gemini generateContent API, including
// inline binary attachments for the vision features.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/focusloop/aidispatch/internal/backend"
	svcerrors "github.com/focusloop/aidispatch/pkg/errors"
	"github.com/focusloop/aidispatch/pkg/types"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Adapter implements backend.Adapter for Gemini.
type Adapter struct {
	apiKey  string
	baseURL string
}

// New creates the Gemini adapter.
func New(cred backend.Credential) *Adapter {
	baseURL := cred.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		apiKey:  cred.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Provider returns the provider identifier.
func (a *Adapter) Provider() string { return "gemini" }

type generateBody struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type generateReply struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// BuildRequest assembles the generateContent call. System messages become
// the systemInstruction; attachments ride the last user turn as inline
// data parts.
func (a *Adapter) BuildRequest(ctx context.Context, inv *backend.Invocation) (*http.Request, error) {
	body := generateBody{}
	for _, m := range inv.Messages {
		switch m.Role {
		case "system":
			body.SystemInstruction = &content{Parts: []part{{Text: m.Content}}}
		case "assistant":
			body.Contents = append(body.Contents, content{Role: "model", Parts: []part{{Text: m.Content}}})
		default:
			body.Contents = append(body.Contents, content{Role: "user", Parts: []part{{Text: m.Content}}})
		}
	}

	if len(inv.Attachments) > 0 && len(body.Contents) > 0 {
		last := &body.Contents[len(body.Contents)-1]
		for _, att := range inv.Attachments {
			last.Parts = append(last.Parts, part{InlineData: &inlineData{
				MIMEType: att.MIME,
				Data:     base64.StdEncoding.EncodeToString(att.Data),
			}})
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", a.baseURL, inv.Descriptor.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("x-goog-api-key", a.apiKey)
	}
	return req, nil
}

// ParseResponse normalizes the generateContent reply.
func (a *Adapter) ParseResponse(inv *backend.Invocation, resp *http.Response) (*types.Response, error) {
	var reply generateReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(reply.Candidates) == 0 {
		return nil, fmt.Errorf("response has no candidates")
	}

	var text strings.Builder
	for _, p := range reply.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return &types.Response{
		Content: text.String(),
		Usage: types.Usage{
			InputUnits:  reply.UsageMetadata.PromptTokenCount,
			OutputUnits: reply.UsageMetadata.CandidatesTokenCount,
		},
	}, nil
}

// MapError classifies a provider error status.
func (a *Adapter) MapError(inv *backend.Invocation, statusCode int, body []byte) error {
	var wire struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	message := fmt.Sprintf("gemini returned status %d", statusCode)
	if err := json.Unmarshal(body, &wire); err == nil && wire.Error.Message != "" {
		message = wire.Error.Message
	}
	return svcerrors.FromStatusCode(inv.Descriptor.ID, statusCode, message)
}
