package cache

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/focusloop/aidispatch/pkg/types"
)

// Handler provides response-level caching over a byte Cache. It owns
// serialization and the per-feature TTL table.
type Handler struct {
	cache Cache
	ttls  map[types.Feature]time.Duration
}

// DefaultTTLs returns the per-feature time-to-live table. Conversational
// output is short-lived; expensive-to-regenerate artifacts keep for a day.
func DefaultTTLs() map[types.Feature]time.Duration {
	return map[types.Feature]time.Duration{
		types.FeatureChat:            time.Hour,
		types.FeatureBriefing:        time.Hour,
		types.FeatureTaskParsing:     time.Hour,
		types.FeatureVisionOCR:       time.Hour,
		types.FeatureVisionEvents:    time.Hour,
		types.FeatureResearch:        6 * time.Hour,
		types.FeatureNoteGeneration:  24 * time.Hour,
		types.FeatureNoteSummary:     24 * time.Hour,
		types.FeatureMindMap:         24 * time.Hour,
		types.FeatureImageGeneration: 24 * time.Hour,
	}
}

// NewHandler creates a response cache handler. Missing TTL entries fall
// back to one hour.
func NewHandler(cache Cache, ttls map[types.Feature]time.Duration) *Handler {
	if ttls == nil {
		ttls = DefaultTTLs()
	}
	return &Handler{cache: cache, ttls: ttls}
}

// TTL returns the time-to-live for a feature.
func (h *Handler) TTL(feature types.Feature) time.Duration {
	if ttl, ok := h.ttls[feature]; ok {
		return ttl
	}
	return time.Hour
}

// Lookup returns the cached response for a fingerprint, or nil on miss.
// The stored response is returned verbatim apart from the CacheHit flag
// and zeroed cost.
func (h *Handler) Lookup(ctx context.Context, fingerprint string) (*types.Response, error) {
	if h.cache == nil {
		return nil, nil
	}
	data, err := h.cache.Get(ctx, fingerprint)
	if err != nil || data == nil {
		return nil, err
	}

	var resp types.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		// Corrupt entry: treat as a miss, it gets overwritten on store.
		return nil, nil
	}
	resp.CacheHit = true
	resp.CostMicros = 0
	return &resp, nil
}

// Store persists a freshly computed response under its fingerprint with
// the feature's TTL. The entry is never mutated afterwards.
func (h *Handler) Store(ctx context.Context, fingerprint string, feature types.Feature, resp *types.Response) error {
	if h.cache == nil {
		return nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return h.cache.Set(ctx, fingerprint, data, h.TTL(feature))
}

// Stats exposes the underlying cache counters.
func (h *Handler) Stats() Stats {
	if h.cache == nil {
		return Stats{}
	}
	return h.cache.Stats()
}

// Close releases the underlying cache.
func (h *Handler) Close() error {
	if h.cache == nil {
		return nil
	}
	return h.cache.Close()
}
