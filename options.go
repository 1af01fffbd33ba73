package aidispatch

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/focusloop/aidispatch/internal/backend"
	"github.com/focusloop/aidispatch/internal/cache"
	"github.com/focusloop/aidispatch/internal/catalog"
	"github.com/focusloop/aidispatch/internal/identity"
	"github.com/focusloop/aidispatch/internal/ledger"
	"github.com/focusloop/aidispatch/internal/observability"
	"github.com/focusloop/aidispatch/internal/selector"
	"github.com/focusloop/aidispatch/internal/usage"
	"github.com/focusloop/aidispatch/pkg/types"
)

// Config holds all dispatcher configuration.
type Config struct {
	// Backend catalog. Defaults to the built-in set.
	Catalog *catalog.Catalog

	// Provider credentials keyed by provider name.
	Credentials backend.Credentials

	// Custom adapters replace the default provider set entirely.
	Adapters []backend.Adapter

	// Response cache; in-memory when nil. TTLs override the per-feature
	// defaults.
	Cache cache.Cache
	TTLs  map[types.Feature]time.Duration

	// Quota and budget ledger; in-memory when nil.
	Ledger ledger.Store

	// PromoCredits seeds per-provider promotional balances for new
	// users, in micro-USD.
	PromoCredits map[string]int64

	// DailyLimits caps requests per user per UTC day, by tier.
	DailyLimits map[types.Tier]int

	// Selector tuning (monthly caps, low-water mark).
	Selector selector.Config

	// Usage persistence; in-memory when nil.
	Recorder usage.Recorder

	// Tier and context resolution. Unknown users default to free tier
	// and empty context.
	Tiers    identity.TierService
	Contexts identity.ContextService

	// HTTP
	Timeout    time.Duration
	HTTPClient *http.Client

	// Logging and metrics.
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Option configures the dispatcher.
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		Catalog: catalog.Default(),
		PromoCredits: map[string]int64{
			"deepseek": 5_000_000,
		},
		DailyLimits: map[types.Tier]int{
			types.TierFree:       25,
			types.TierPro:        250,
			types.TierEnterprise: 2500,
		},
		Selector: selector.DefaultConfig(),
		Timeout:  30 * time.Second,
		Logger:   slog.Default(),
	}
}

// WithCatalog replaces the backend catalog.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(c *Config) { c.Catalog = cat }
}

// WithCredential sets the credential for one provider.
func WithCredential(provider string, cred backend.Credential) Option {
	return func(c *Config) {
		if c.Credentials == nil {
			c.Credentials = backend.Credentials{}
		}
		c.Credentials[provider] = cred
	}
}

// WithAdapters replaces the default provider adapters. Intended for
// tests and custom providers.
func WithAdapters(adapters ...backend.Adapter) Option {
	return func(c *Config) { c.Adapters = adapters }
}

// WithCache sets the response cache implementation.
func WithCache(store cache.Cache) Option {
	return func(c *Config) { c.Cache = store }
}

// WithTTL overrides the cache TTL for one feature.
func WithTTL(feature types.Feature, ttl time.Duration) Option {
	return func(c *Config) {
		if c.TTLs == nil {
			c.TTLs = cache.DefaultTTLs()
		}
		c.TTLs[feature] = ttl
	}
}

// WithLedger sets the quota and budget store.
func WithLedger(store ledger.Store) Option {
	return func(c *Config) { c.Ledger = store }
}

// WithPromoCredits seeds per-provider promotional balances for new
// users, in micro-USD. Replaces the default seed.
func WithPromoCredits(credits map[string]int64) Option {
	return func(c *Config) { c.PromoCredits = credits }
}

// WithDailyLimit overrides the per-day request cap for one tier.
func WithDailyLimit(tier types.Tier, limit int) Option {
	return func(c *Config) { c.DailyLimits[tier] = limit }
}

// WithSelectorConfig replaces the selector tuning.
func WithSelectorConfig(cfg selector.Config) Option {
	return func(c *Config) { c.Selector = cfg }
}

// WithRecorder sets the usage recorder.
func WithRecorder(rec usage.Recorder) Option {
	return func(c *Config) { c.Recorder = rec }
}

// WithTiers sets the tier resolution service.
func WithTiers(svc identity.TierService) Option {
	return func(c *Config) { c.Tiers = svc }
}

// WithContexts sets the user context service.
func WithContexts(svc identity.ContextService) Option {
	return func(c *Config) { c.Contexts = svc }
}

// WithTimeout sets the per-call backend timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithHTTPClient sets a custom HTTP client for backend calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) { c.HTTPClient = client }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithMetrics enables metric collection.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Config) { c.Metrics = m }
}
