package openailike

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusloop/aidispatch/internal/backend"
	"github.com/focusloop/aidispatch/internal/catalog"
	svcerrors "github.com/focusloop/aidispatch/pkg/errors"
	"github.com/focusloop/aidispatch/pkg/types"
)

var testDescriptor = &catalog.Descriptor{
	ID:       "quality",
	Provider: "openai",
	Model:    "gpt-4o",
}

func testInvocation() *backend.Invocation {
	return &backend.Invocation{
		Descriptor: testDescriptor,
		Feature:    types.FeatureChat,
		Messages: []types.Message{
			{Role: "system", Content: "You are a focused productivity assistant."},
			{Role: "user", Content: "plan my week"},
		},
	}
}

func TestBuildRequest(t *testing.T) {
	a := New(Info{Name: "openai", DefaultBaseURL: "https://api.openai.com/v1"},
		backend.Credential{APIKey: "sk-test"})

	req, err := a.BuildRequest(context.Background(), testInvocation())
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", req.URL.String())
	assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	raw, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "gpt-4o", body.Model)
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "system", body.Messages[0].Role)
	assert.Equal(t, "plan my week", body.Messages[1].Content)
}

func TestBuildRequestCustomHeaders(t *testing.T) {
	a := New(Info{
		Name:           "custom",
		DefaultBaseURL: "https://example.com/v1",
		APIKeyHeader:   "X-Api-Key",
		ExtraHeaders:   map[string]string{"X-Extra": "on"},
	}, backend.Credential{APIKey: "key-123"})

	req, err := a.BuildRequest(context.Background(), testInvocation())
	require.NoError(t, err)
	assert.Equal(t, "key-123", req.Header.Get("X-Api-Key"))
	assert.Empty(t, req.Header.Get("Authorization"))
	assert.Equal(t, "on", req.Header.Get("X-Extra"))
}

func TestBaseURLOverride(t *testing.T) {
	a := New(Info{Name: "openai", DefaultBaseURL: "https://api.openai.com/v1"},
		backend.Credential{BaseURL: "http://localhost:9999/v1/"})
	assert.Equal(t, "http://localhost:9999/v1", a.BaseURL())
}

func TestParseResponse(t *testing.T) {
	payload := `{
		"id": "chatcmpl-1",
		"choices": [{"message": {"role": "assistant", "content": "Monday: deep work."}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 21, "completion_tokens": 34, "total_tokens": 55}
	}`
	resp := &http.Response{Body: io.NopCloser(strings.NewReader(payload))}

	a := New(Info{Name: "openai"}, backend.Credential{})
	out, err := a.ParseResponse(testInvocation(), resp)
	require.NoError(t, err)
	assert.Equal(t, "Monday: deep work.", out.Content)
	assert.Equal(t, 21, out.Usage.InputUnits)
	assert.Equal(t, 34, out.Usage.OutputUnits)
}

func TestParseResponseNoChoices(t *testing.T) {
	resp := &http.Response{Body: io.NopCloser(strings.NewReader(`{"choices": []}`))}
	a := New(Info{Name: "openai"}, backend.Credential{})
	_, err := a.ParseResponse(testInvocation(), resp)
	assert.Error(t, err)
}

func TestMapError(t *testing.T) {
	a := New(Info{Name: "openai"}, backend.Credential{})
	inv := testInvocation()

	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
		message   string
	}{
		{"rate limit is transient", 429, `{"error": {"message": "rate limit reached"}}`, true, "rate limit reached"},
		{"server error is transient", 500, `{"error": {"message": "overloaded"}}`, true, "overloaded"},
		{"bad request is permanent", 400, `{"error": {"message": "invalid model"}}`, false, "invalid model"},
		{"unparseable body gets default message", 503, `gateway exploded`, true, "openai returned status 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.MapError(inv, tt.status, []byte(tt.body))
			assert.Equal(t, tt.transient, svcerrors.IsTransient(err))

			var se *svcerrors.ServiceError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.message, se.Message)
			assert.Equal(t, "quality", se.Backend)
		})
	}
}

func TestAgainstHTTPServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-live", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "ok"}}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 1}
		}`))
	}))
	defer srv.Close()

	a := New(Info{Name: "openai"}, backend.Credential{APIKey: "sk-live", BaseURL: srv.URL})
	req, err := a.BuildRequest(context.Background(), testInvocation())
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := a.ParseResponse(testInvocation(), resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Content)
	assert.Equal(t, 5, out.Usage.InputUnits)
}
