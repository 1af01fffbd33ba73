package identity

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/focusloop/aidispatch/pkg/types"
)

const (
	defaultTierTTL = 5 * time.Minute
	cleanupPeriod  = 10 * time.Minute
)

// CachedTiers memoizes tier lookups. Tier changes propagate within the
// TTL, which is acceptable for billing-tier routing.
type CachedTiers struct {
	next  TierService
	cache *gocache.Cache
}

// NewCachedTiers wraps next with an in-process cache; zero ttl uses the
// default.
func NewCachedTiers(next TierService, ttl time.Duration) *CachedTiers {
	if ttl <= 0 {
		ttl = defaultTierTTL
	}
	return &CachedTiers{
		next:  next,
		cache: gocache.New(ttl, cleanupPeriod),
	}
}

// Tier implements TierService.
func (c *CachedTiers) Tier(ctx context.Context, userID string) (types.Tier, error) {
	if v, ok := c.cache.Get(userID); ok {
		return v.(types.Tier), nil
	}
	tier, err := c.next.Tier(ctx, userID)
	if err != nil {
		return "", err
	}
	c.cache.SetDefault(userID, tier)
	return tier, nil
}

// Invalidate drops a user's cached tier, e.g. after a plan change.
func (c *CachedTiers) Invalidate(userID string) {
	c.cache.Delete(userID)
}
