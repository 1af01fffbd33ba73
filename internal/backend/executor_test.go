package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusloop/aidispatch/internal/catalog"
	svcerrors "github.com/focusloop/aidispatch/pkg/errors"
	"github.com/focusloop/aidispatch/pkg/types"
)

// echoAdapter is a minimal adapter pointed at a test server.
type echoAdapter struct {
	provider string
	url      string
}

func (a *echoAdapter) Provider() string { return a.provider }

func (a *echoAdapter) BuildRequest(ctx context.Context, inv *Invocation) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
}

func (a *echoAdapter) ParseResponse(inv *Invocation, resp *http.Response) (*types.Response, error) {
	var body struct {
		Content string `json:"content"`
		Input   int    `json:"input"`
		Output  int    `json:"output"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return &types.Response{
		Content: body.Content,
		Usage:   types.Usage{InputUnits: body.Input, OutputUnits: body.Output},
	}, nil
}

func (a *echoAdapter) MapError(inv *Invocation, statusCode int, body []byte) error {
	return svcerrors.FromStatusCode(inv.Descriptor.ID, statusCode, string(body))
}

func testInvocation() *Invocation {
	return &Invocation{
		Descriptor: &catalog.Descriptor{ID: "swift", Provider: "gemini", Model: "gemini-2.0-flash"},
		Feature:    types.FeatureChat,
		Messages:   []types.Message{{Role: "user", Content: "hi"}},
	}
}

func TestInvokeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content": "hello", "input": 3, "output": 7}`))
	}))
	defer srv.Close()

	e := NewExecutor(ExecutorConfig{},
		[]Adapter{&echoAdapter{provider: "gemini", url: srv.URL}}, nil)

	out, err := e.Invoke(context.Background(), testInvocation())
	require.NoError(t, err)
	assert.Equal(t, "hello", out.Content)
	assert.Equal(t, "swift", out.Backend)
	assert.Equal(t, 3, out.Usage.InputUnits)
	assert.Greater(t, out.Latency, time.Duration(0))
}

func TestInvokeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := NewExecutor(ExecutorConfig{},
		[]Adapter{&echoAdapter{provider: "gemini", url: srv.URL}}, nil)

	_, err := e.Invoke(context.Background(), testInvocation())
	assert.True(t, svcerrors.IsTransient(err), "5xx should map transient, got %v", err)
}

func TestInvokeClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad prompt", http.StatusBadRequest)
	}))
	defer srv.Close()

	e := NewExecutor(ExecutorConfig{},
		[]Adapter{&echoAdapter{provider: "gemini", url: srv.URL}}, nil)

	_, err := e.Invoke(context.Background(), testInvocation())
	require.Error(t, err)
	assert.False(t, svcerrors.IsTransient(err), "4xx should map permanent, got %v", err)
}

func TestInvokeConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // nothing listens anymore

	e := NewExecutor(ExecutorConfig{},
		[]Adapter{&echoAdapter{provider: "gemini", url: url}}, nil)

	_, err := e.Invoke(context.Background(), testInvocation())
	assert.True(t, svcerrors.IsTransient(err), "network failure should map transient, got %v", err)
}

func TestInvokeMissingAdapter(t *testing.T) {
	e := NewExecutor(ExecutorConfig{}, nil, nil)

	_, err := e.Invoke(context.Background(), testInvocation())
	require.Error(t, err)
	assert.False(t, svcerrors.IsTransient(err))

	var se *svcerrors.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, svcerrors.KindPermanentProvider, se.Kind)
}

func TestInvokeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	e := NewExecutor(ExecutorConfig{Timeout: 20 * time.Millisecond},
		[]Adapter{&echoAdapter{provider: "gemini", url: srv.URL}}, nil)

	_, err := e.Invoke(context.Background(), testInvocation())
	assert.True(t, svcerrors.IsTransient(err), "timeout should map transient, got %v", err)
}
