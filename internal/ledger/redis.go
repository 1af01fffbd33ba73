package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	svcerrors "github.com/focusloop/aidispatch/pkg/errors"
)

// RedisStore is the distributed ledger for multi-instance deployments.
// The quota check-and-increment runs as a Lua script so that replicas
// cannot double-admit the last daily slot.
type RedisStore struct {
	client *redis.Client

	admitScript *redis.Script
	promoScript *redis.Script

	promoSeed map[string]int64
	now       func() time.Time
}

// admitLua checks the daily counter against the limit and increments it
// in one atomic step. Returns -1 when the limit is reached.
const admitLua = `
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
if current >= limit then
    return -1
end
current = redis.call('INCR', KEYS[1])
if redis.call('TTL', KEYS[1]) == -1 then
    redis.call('EXPIRE', KEYS[1], tonumber(ARGV[2]))
end
return current
`

// promoLua seeds the user's promo pool on first touch, then draws it down
// by at most the remaining balance.
const promoLua = `
if redis.call('EXISTS', KEYS[1]) == 0 then
    redis.call('SET', KEYS[1], ARGV[1])
end
local balance = tonumber(redis.call('GET', KEYS[1]))
local draw = tonumber(ARGV[2])
if draw > balance then
    draw = balance
end
if draw > 0 then
    redis.call('DECRBY', KEYS[1], draw)
end
return balance - draw
`

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client, promoSeed map[string]int64) *RedisStore {
	return &RedisStore{
		client:      client,
		admitScript: redis.NewScript(admitLua),
		promoScript: redis.NewScript(promoLua),
		promoSeed:   promoSeed,
		now:         time.Now,
	}
}

// SetClock overrides the time source for tests.
func (s *RedisStore) SetClock(now func() time.Time) { s.now = now }

func quotaKey(userID, day string) string {
	return fmt.Sprintf("aidispatch:quota:{%s}:%s", userID, day)
}

func spendKey(userID, month string) string {
	return fmt.Sprintf("aidispatch:spend:{%s}:%s", userID, month)
}

func promoKey(userID, provider string) string {
	return fmt.Sprintf("aidispatch:promo:{%s}:%s", userID, provider)
}

// Admit implements Store.
func (s *RedisStore) Admit(ctx context.Context, userID string, limit int) (*Admission, error) {
	now := s.now()
	key := quotaKey(userID, dayKey(now))

	// Counter keys outlive the day by a margin; the day key itself
	// scopes them, the TTL is garbage collection.
	const counterTTLSeconds = 2 * 24 * 60 * 60

	val, err := s.admitScript.Run(ctx, s.client, []string{key}, limit, counterTTLSeconds).Int()
	if err != nil {
		return nil, fmt.Errorf("quota admit: %w", err)
	}
	if val < 0 {
		return nil, svcerrors.NewQuotaExceededError(0, nextDailyReset(now))
	}
	return &Admission{
		Used:      val,
		Limit:     limit,
		Remaining: limit - val,
		ResetAt:   nextDailyReset(now),
	}, nil
}

// Remaining implements Store. Promo pools that were never touched report
// their seed balance.
func (s *RedisStore) Remaining(ctx context.Context, userID string) (*Budget, error) {
	now := s.now()

	spent, err := s.client.Get(ctx, spendKey(userID, monthKey(now))).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("read monthly spend: %w", err)
	}

	promo := make(map[string]int64, len(s.promoSeed))
	for provider, seed := range s.promoSeed {
		balance, err := s.client.Get(ctx, promoKey(userID, provider)).Int64()
		if err == redis.Nil {
			balance = seed
		} else if err != nil {
			return nil, fmt.Errorf("read promo pool %s: %w", provider, err)
		}
		promo[provider] = balance
	}
	return &Budget{SpentMicros: spent, Promo: promo}, nil
}

// Commit implements Store.
func (s *RedisStore) Commit(ctx context.Context, userID, provider string, costMicros int64) error {
	if costMicros < 0 {
		costMicros = 0
	}
	now := s.now()

	key := spendKey(userID, monthKey(now))
	pipe := s.client.TxPipeline()
	pipe.IncrBy(ctx, key, costMicros)
	pipe.Expire(ctx, key, 40*24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("accrue monthly spend: %w", err)
	}

	if seed, ok := s.promoSeed[provider]; ok {
		if err := s.promoScript.Run(ctx, s.client,
			[]string{promoKey(userID, provider)}, seed, costMicros).Err(); err != nil {
			return fmt.Errorf("draw promo pool %s: %w", provider, err)
		}
	}
	return nil
}
