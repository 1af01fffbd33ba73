// Package fallback retries failed invocations against the zero-cost
// local backend. A transient provider failure gets exactly one retry;
// permanent failures surface unchanged.
package fallback

import (
	"context"
	"log/slog"

	"github.com/focusloop/aidispatch/internal/backend"
	"github.com/focusloop/aidispatch/internal/catalog"
	svcerrors "github.com/focusloop/aidispatch/pkg/errors"
	"github.com/focusloop/aidispatch/pkg/types"
)

// Invoker executes a single backend invocation.
type Invoker interface {
	Invoke(ctx context.Context, inv *backend.Invocation) (*types.Response, error)
}

// Controller wraps an Invoker with single-retry fallback semantics.
type Controller struct {
	invoker Invoker
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// New creates a fallback controller.
func New(invoker Invoker, cat *catalog.Catalog, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{invoker: invoker, catalog: cat, logger: logger}
}

// Dispatch invokes the descriptor in inv. On a transient failure it
// substitutes the zero-cost backend and retries once, marking the
// response as a fallback. When the primary already is the zero-cost
// backend, or the retry also fails, the service is unavailable.
func (c *Controller) Dispatch(ctx context.Context, inv *backend.Invocation) (*types.Response, error) {
	resp, err := c.invoker.Invoke(ctx, inv)
	if err == nil {
		return resp, nil
	}
	if !svcerrors.IsTransient(err) {
		return nil, err
	}

	fb := c.catalog.Fallback()
	if fb == nil || fb.ID == inv.Descriptor.ID {
		return nil, svcerrors.NewUnavailableError(inv.Descriptor.ID, "no fallback backend available")
	}

	c.logger.Warn("transient backend failure, retrying on fallback",
		slog.String("backend", inv.Descriptor.ID),
		slog.String("fallback", fb.ID),
		slog.String("error", err.Error()),
	)

	retry := *inv
	retry.Descriptor = fb
	resp, retryErr := c.invoker.Invoke(ctx, &retry)
	if retryErr != nil {
		return nil, svcerrors.NewUnavailableError(fb.ID, "primary and fallback backends failed")
	}
	resp.FallbackUsed = true
	return resp, nil
}
