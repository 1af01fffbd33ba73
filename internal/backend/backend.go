// Package backend defines the uniform call contract to external model
// providers and the executor that drives HTTP round trips. Each provider
// implements Adapter once; call sites select a backend through the
// catalog descriptor, never by branching on provider names.
package backend

import (
	"context"
	"net/http"

	"github.com/focusloop/aidispatch/internal/catalog"
	"github.com/focusloop/aidispatch/pkg/types"
)

// Invocation is one prepared backend call: the chosen descriptor plus the
// fully assembled message list (system context, history, user message,
// most-recent-last).
type Invocation struct {
	Descriptor  *catalog.Descriptor
	Feature     types.Feature
	Messages    []types.Message
	Attachments []types.Attachment
}

// Adapter is the uniform provider contract. Implementations transform the
// invocation into a provider-specific HTTP request and normalize the reply
// into the canonical response shape. Errors returned from MapError are
// *errors.ServiceError values tagged transient or permanent.
type Adapter interface {
	// Provider returns the provider identifier (e.g. "openai", "gemini").
	Provider() string

	// BuildRequest transforms the invocation into a provider HTTP request.
	BuildRequest(ctx context.Context, inv *Invocation) (*http.Request, error)

	// ParseResponse normalizes a successful provider reply.
	ParseResponse(inv *Invocation, resp *http.Response) (*types.Response, error)

	// MapError converts a provider error status into a ServiceError.
	MapError(inv *Invocation, statusCode int, body []byte) error
}

// Credential holds per-provider connection settings.
type Credential struct {
	APIKey  string
	BaseURL string

	// RequestsPerSecond caps outbound calls to the provider. Zero means
	// no cap.
	RequestsPerSecond float64
}
