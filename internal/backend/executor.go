package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	svcerrors "github.com/focusloop/aidispatch/pkg/errors"
	"github.com/focusloop/aidispatch/pkg/types"
)

// Executor owns the pooled HTTP client and drives one adapter call per
// invocation. A per-call timeout bounds the external round trip; a
// timeout is a transient failure and triggers the fallback controller
// upstream.
type Executor struct {
	client   *http.Client
	timeout  time.Duration
	adapters map[string]Adapter
	limiters map[string]*rate.Limiter
	logger   *slog.Logger
}

// ExecutorConfig configures the executor.
type ExecutorConfig struct {
	Timeout time.Duration // per-call timeout, default 30s
	Client  *http.Client  // optional, pooled default otherwise
	Logger  *slog.Logger
}

// NewExecutor creates an executor over the given adapters, keyed by
// provider name. Rate limits come from each adapter's credential.
func NewExecutor(cfg ExecutorConfig, adapters []Adapter, creds map[string]Credential) *Executor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Executor{
		client:   client,
		timeout:  cfg.Timeout,
		adapters: make(map[string]Adapter, len(adapters)),
		limiters: make(map[string]*rate.Limiter, len(adapters)),
		logger:   logger,
	}
	for _, a := range adapters {
		e.adapters[a.Provider()] = a

		limiter := rate.NewLimiter(rate.Inf, 0)
		if cred, ok := creds[a.Provider()]; ok && cred.RequestsPerSecond > 0 {
			limiter = rate.NewLimiter(rate.Limit(cred.RequestsPerSecond), 1)
		}
		e.limiters[a.Provider()] = limiter
	}
	return e
}

// Invoke performs one backend call and normalizes the outcome. Network
// errors and timeouts come back transient; provider statuses go through
// the adapter's MapError.
func (e *Executor) Invoke(ctx context.Context, inv *Invocation) (*types.Response, error) {
	d := inv.Descriptor
	adapter, ok := e.adapters[d.Provider]
	if !ok {
		return nil, svcerrors.NewPermanentError(d.ID,
			fmt.Sprintf("no adapter registered for provider %q", d.Provider), 0)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if limiter := e.limiters[d.Provider]; limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, svcerrors.NewTransientError(d.ID, "outbound rate limit wait: "+err.Error(), 0)
		}
	}

	httpReq, err := adapter.BuildRequest(ctx, inv)
	if err != nil {
		return nil, svcerrors.NewPermanentError(d.ID, "build request: "+err.Error(), 0)
	}

	start := time.Now()
	resp, err := e.client.Do(httpReq)
	if err != nil {
		// Covers connection failures and the per-call deadline.
		return nil, svcerrors.NewTransientError(d.ID, "execute request: "+err.Error(), 0)
	}
	defer resp.Body.Close()

	latency := time.Since(start)

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		mapped := adapter.MapError(inv, resp.StatusCode, body)
		e.logger.Warn("backend call failed",
			"backend", d.ID,
			"status", resp.StatusCode,
			"latency", latency,
		)
		return nil, mapped
	}

	out, err := adapter.ParseResponse(inv, resp)
	if err != nil {
		return nil, svcerrors.NewTransientError(d.ID, "parse response: "+err.Error(), resp.StatusCode)
	}

	out.Backend = d.ID
	out.Latency = latency
	e.logger.Debug("backend call ok",
		"backend", d.ID,
		"input_units", out.Usage.InputUnits,
		"output_units", out.Usage.OutputUnits,
		"latency", latency,
	)
	return out, nil
}

// Providers lists the registered provider names.
func (e *Executor) Providers() []string {
	names := make([]string, 0, len(e.adapters))
	for name := range e.adapters {
		names = append(names, name)
	}
	return names
}
