package aidispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/focusloop/aidispatch/internal/backend"
	"github.com/focusloop/aidispatch/internal/backend/registry"
	"github.com/focusloop/aidispatch/internal/cache"
	"github.com/focusloop/aidispatch/internal/catalog"
	"github.com/focusloop/aidispatch/internal/classify"
	"github.com/focusloop/aidispatch/internal/fallback"
	"github.com/focusloop/aidispatch/internal/identity"
	"github.com/focusloop/aidispatch/internal/ledger"
	"github.com/focusloop/aidispatch/internal/observability"
	"github.com/focusloop/aidispatch/internal/pricing"
	"github.com/focusloop/aidispatch/internal/selector"
	"github.com/focusloop/aidispatch/internal/usage"
	svcerrors "github.com/focusloop/aidispatch/pkg/errors"
	"github.com/focusloop/aidispatch/pkg/types"
)

const (
	confidenceFresh    = 0.9
	confidenceFallback = 0.6
)

// Dispatcher is the entry point of the AI dispatch layer. It validates,
// classifies and routes requests, enforces quotas, and records usage.
type Dispatcher struct {
	catalog    *catalog.Catalog
	cache      *cache.Handler
	ledger     ledger.Store
	selector   *selector.Selector
	controller *fallback.Controller
	recorder   usage.Recorder
	tiers      identity.TierService
	contexts   identity.ContextService
	limits     map[types.Tier]int
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a dispatcher. With no options it runs fully in-process:
// in-memory cache and ledger, default catalog, keyless local fallback.
func New(opts ...Option) (*Dispatcher, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}

	store := cfg.Cache
	if store == nil {
		store = cache.NewMemoryCache(cache.MemoryConfig{})
	}
	ttls := cfg.TTLs
	if ttls == nil {
		ttls = cache.DefaultTTLs()
	}

	led := cfg.Ledger
	if led == nil {
		led = ledger.NewMemoryStore(cfg.PromoCredits)
	}

	rec := cfg.Recorder
	if rec == nil {
		rec = usage.NewMemoryRecorder(0)
	}

	tiers := cfg.Tiers
	if tiers == nil {
		tiers = identity.StaticTiers{}
	}
	contexts := cfg.Contexts
	if contexts == nil {
		contexts = identity.EmptyContext{}
	}

	adapters := cfg.Adapters
	if adapters == nil {
		adapters = registry.Default(cfg.Credentials)
	}
	executor := backend.NewExecutor(backend.ExecutorConfig{
		Timeout: cfg.Timeout,
		Client:  cfg.HTTPClient,
		Logger:  cfg.Logger,
	}, adapters, cfg.Credentials)

	return &Dispatcher{
		catalog:    cfg.Catalog,
		cache:      cache.NewHandler(store, ttls),
		ledger:     led,
		selector:   selector.New(cfg.Catalog, cfg.Selector),
		controller: fallback.New(executor, cfg.Catalog, cfg.Logger),
		recorder:   rec,
		tiers:      tiers,
		contexts:   contexts,
		limits:     cfg.DailyLimits,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}, nil
}

// Process runs one request through the full pipeline: validation,
// classification, cache, quota admission, backend selection, dispatch
// with fallback, cost accrual and usage recording.
func (d *Dispatcher) Process(ctx context.Context, req *types.Request) (*types.Response, error) {
	start := time.Now()
	requestID := uuid.NewString()
	ctx = observability.WithRequestID(ctx, requestID)
	logger := observability.LoggerFrom(ctx, d.logger)

	if err := validate(req); err != nil {
		d.observe(req, "", "validation_error", time.Since(start), 0)
		return nil, err
	}

	result := classify.Classify(req)

	// Attachments are not part of the fingerprint, so requests carrying
	// them never touch the cache.
	cacheable := !req.HasAttachments()
	if cacheable {
		if cached, err := d.cache.Lookup(ctx, result.Fingerprint); err != nil {
			logger.Warn("cache lookup failed", slog.String("error", err.Error()))
		} else if cached != nil {
			cached.ID = requestID
			if d.metrics != nil {
				d.metrics.CacheHits.Inc()
			}
			d.record(ctx, req, cached, requestID, start)
			d.observe(req, cached.Backend, "cache_hit", time.Since(start), 0)
			return cached, nil
		}
		if d.metrics != nil {
			d.metrics.CacheMisses.Inc()
		}
	}

	tier, err := d.tiers.Tier(ctx, req.UserID)
	if err != nil {
		logger.Warn("tier lookup failed, assuming free tier", slog.String("error", err.Error()))
		tier = types.TierFree
	}

	// A tier without a configured limit is unmetered; denying it would
	// hard-lock users coming from a custom tier service.
	if limit, ok := d.limits[tier]; ok {
		if _, err := d.ledger.Admit(ctx, req.UserID, limit); err != nil {
			if svcerrors.IsQuotaExceeded(err) && d.metrics != nil {
				d.metrics.QuotaDenied.Inc()
			}
			d.observe(req, "", "quota_denied", time.Since(start), 0)
			return nil, err
		}
	}

	budget, err := d.ledger.Remaining(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("read budget: %w", err)
	}

	desc := d.selector.Select(req.Feature, result.Complexity, tier, budget)
	if desc == nil {
		return nil, svcerrors.NewUnavailableError("", "no backend available for feature")
	}

	messages, err := d.buildMessages(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := d.controller.Dispatch(ctx, &backend.Invocation{
		Descriptor:  desc,
		Feature:     req.Feature,
		Messages:    messages,
		Attachments: req.Attachments,
	})
	if err != nil {
		d.observe(req, desc.ID, "error", time.Since(start), 0)
		return nil, err
	}

	used := d.catalog.Get(resp.Backend)
	if used == nil {
		used = desc
	}
	resp.ID = requestID
	resp.CostMicros = pricing.Cost(used, resp.Usage.InputUnits, resp.Usage.OutputUnits)
	resp.Confidence = confidenceFresh
	if resp.FallbackUsed {
		resp.Confidence = confidenceFallback
		if d.metrics != nil {
			d.metrics.Fallbacks.Inc()
		}
	}

	if err := d.ledger.Commit(ctx, req.UserID, used.Provider, resp.CostMicros); err != nil {
		logger.Error("budget commit failed", slog.String("error", err.Error()))
	}

	d.record(ctx, req, resp, requestID, start)

	// Fallback answers are degraded; keep them out of the cache so the
	// next identical request gets another shot at the primary.
	if cacheable && !resp.FallbackUsed {
		if err := d.cache.Store(ctx, result.Fingerprint, req.Feature, resp); err != nil {
			logger.Warn("cache store failed", slog.String("error", err.Error()))
		}
	}

	d.observe(req, resp.Backend, "success", time.Since(start), resp.CostMicros)
	logger.Debug("request dispatched",
		slog.String("feature", string(req.Feature)),
		slog.String("backend", resp.Backend),
		slog.Int64("cost_micros", resp.CostMicros),
		slog.Bool("fallback", resp.FallbackUsed),
	)
	return resp, nil
}

// CacheStats returns cache statistics for monitoring.
func (d *Dispatcher) CacheStats() cache.Stats {
	return d.cache.Stats()
}

// Budget returns the caller's current monthly spend and promo balances.
func (d *Dispatcher) Budget(ctx context.Context, userID string) (*ledger.Budget, error) {
	return d.ledger.Remaining(ctx, userID)
}

// Close releases the cache and recorder resources.
func (d *Dispatcher) Close() error {
	if err := d.cache.Close(); err != nil {
		return err
	}
	return d.recorder.Close()
}

func validate(req *types.Request) error {
	switch {
	case req == nil:
		return svcerrors.NewValidationError("request is nil")
	case req.UserID == "":
		return svcerrors.NewValidationError("user ID is required")
	case !req.Feature.Valid():
		return svcerrors.NewValidationError(fmt.Sprintf("unknown feature %q", req.Feature))
	case strings.TrimSpace(req.Message) == "" && !req.HasAttachments():
		return svcerrors.NewValidationError("message content is empty")
	}
	return nil
}

// buildMessages folds the user's personal context into a system turn,
// then appends history and the current message.
func (d *Dispatcher) buildMessages(ctx context.Context, req *types.Request) ([]types.Message, error) {
	uc := req.Context
	if uc == nil {
		loaded, err := d.contexts.Context(ctx, req.UserID)
		if err != nil {
			observability.LoggerFrom(ctx, d.logger).Warn("context load failed",
				slog.String("error", err.Error()))
		} else {
			uc = loaded
		}
	}

	var messages []types.Message
	if system := systemPrompt(req.Feature, uc); system != "" {
		messages = append(messages, types.Message{Role: "system", Content: system})
	}
	messages = append(messages, req.History...)
	messages = append(messages, types.Message{Role: "user", Content: req.Message})
	return messages, nil
}

func systemPrompt(feature types.Feature, uc *types.UserContext) string {
	var b strings.Builder
	switch feature {
	case types.FeatureTaskParsing:
		b.WriteString("Extract structured tasks from the user's input. Return title, due date and priority for each task.")
	case types.FeatureNoteGeneration:
		b.WriteString("Write a well-structured note on the given topic.")
	case types.FeatureNoteSummary:
		b.WriteString("Summarize the given notes, keeping action items explicit.")
	case types.FeatureMindMap:
		b.WriteString("Produce a hierarchical mind map outline for the given topic.")
	case types.FeatureBriefing:
		b.WriteString("Prepare a strategic briefing: priorities, risks and suggested focus.")
	case types.FeatureVisionOCR:
		b.WriteString("Transcribe all text visible in the attached image.")
	case types.FeatureVisionEvents:
		b.WriteString("List calendar events visible in the attached image with dates and times.")
	case types.FeatureResearch:
		b.WriteString("Answer with up-to-date information and cite your sources.")
	default:
		b.WriteString("You are a focused productivity assistant.")
	}

	if uc != nil {
		if len(uc.Goals) > 0 {
			b.WriteString("\nUser goals: ")
			b.WriteString(strings.Join(uc.Goals, "; "))
		}
		if len(uc.RecentTasks) > 0 {
			b.WriteString("\nRecent tasks: ")
			b.WriteString(strings.Join(uc.RecentTasks, "; "))
		}
		if len(uc.RecentNotes) > 0 {
			b.WriteString("\nRecent notes: ")
			b.WriteString(strings.Join(uc.RecentNotes, "; "))
		}
		if uc.Profile != "" {
			b.WriteString("\nProfile: ")
			b.WriteString(uc.Profile)
		}
	}
	return b.String()
}

func (d *Dispatcher) record(ctx context.Context, req *types.Request, resp *types.Response, requestID string, start time.Time) {
	rec := &usage.Record{
		ID:           requestID,
		UserID:       req.UserID,
		Backend:      resp.Backend,
		Feature:      req.Feature,
		InputUnits:   resp.Usage.InputUnits,
		OutputUnits:  resp.Usage.OutputUnits,
		CostMicros:   resp.CostMicros,
		Latency:      time.Since(start),
		CacheHit:     resp.CacheHit,
		FallbackUsed: resp.FallbackUsed,
		Timestamp:    time.Now().UTC(),
	}
	if resp.CacheHit {
		rec.InputUnits = 0
		rec.OutputUnits = 0
		rec.CostMicros = 0
	}
	if err := d.recorder.Append(ctx, rec); err != nil {
		observability.LoggerFrom(ctx, d.logger).Error("usage record failed",
			slog.String("error", err.Error()))
	}
}

func (d *Dispatcher) observe(req *types.Request, backendID, outcome string, latency time.Duration, costMicros int64) {
	if d.metrics == nil {
		return
	}
	feature := ""
	if req != nil {
		feature = string(req.Feature)
	}
	d.metrics.ObserveRequest(feature, backendID, outcome, latency, costMicros)
}
