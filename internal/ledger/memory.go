package ledger

import (
	"context"
	"sync"
	"time"

	svcerrors "github.com/focusloop/aidispatch/pkg/errors"
)

// MemoryStore is the in-process ledger. State is keyed by user ID, one
// lock-protected cell per user, so admissions for different users never
// contend and the check-and-increment for one user is a single critical
// section.
type MemoryStore struct {
	mu    sync.Mutex
	cells map[string]*userCell

	promoSeed map[string]int64 // initial promo credit per provider
	now       func() time.Time
}

type userCell struct {
	mu sync.Mutex

	day      string
	dayCount int

	month       string
	spentMicros int64

	promo map[string]int64
}

// NewMemoryStore creates a ledger seeded with per-provider promotional
// credit. Each user starts with their own copy of the seed pools.
func NewMemoryStore(promoSeed map[string]int64) *MemoryStore {
	return &MemoryStore{
		cells:     make(map[string]*userCell),
		promoSeed: promoSeed,
		now:       time.Now,
	}
}

// SetClock overrides the time source. Tests use it to cross period
// boundaries without sleeping.
func (s *MemoryStore) SetClock(now func() time.Time) { s.now = now }

func (s *MemoryStore) cell(userID string) *userCell {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cells[userID]
	if !ok {
		promo := make(map[string]int64, len(s.promoSeed))
		for provider, credit := range s.promoSeed {
			promo[provider] = credit
		}
		c = &userCell{promo: promo}
		s.cells[userID] = c
	}
	return c
}

// roll resets period counters when a boundary has passed. Caller holds
// the cell lock.
func (c *userCell) roll(now time.Time) {
	if day := dayKey(now); c.day != day {
		c.day = day
		c.dayCount = 0
	}
	if month := monthKey(now); c.month != month {
		c.month = month
		c.spentMicros = 0
	}
}

// Admit implements Store. The counter is monotonically non-decreasing
// within a day and resets exactly at the UTC boundary.
func (s *MemoryStore) Admit(ctx context.Context, userID string, limit int) (*Admission, error) {
	now := s.now()
	c := s.cell(userID)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.roll(now)
	if c.dayCount >= limit {
		return nil, svcerrors.NewQuotaExceededError(0, nextDailyReset(now))
	}
	c.dayCount++
	return &Admission{
		Used:      c.dayCount,
		Limit:     limit,
		Remaining: limit - c.dayCount,
		ResetAt:   nextDailyReset(now),
	}, nil
}

// Remaining implements Store.
func (s *MemoryStore) Remaining(ctx context.Context, userID string) (*Budget, error) {
	c := s.cell(userID)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.roll(s.now())
	promo := make(map[string]int64, len(c.promo))
	for provider, credit := range c.promo {
		promo[provider] = credit
	}
	return &Budget{SpentMicros: c.spentMicros, Promo: promo}, nil
}

// Commit implements Store. Spend accrues in full; the promo pool is drawn
// down by at most its remaining balance.
func (s *MemoryStore) Commit(ctx context.Context, userID, provider string, costMicros int64) error {
	if costMicros < 0 {
		costMicros = 0
	}
	c := s.cell(userID)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.roll(s.now())
	c.spentMicros += costMicros

	if balance, ok := c.promo[provider]; ok && balance > 0 {
		draw := costMicros
		if draw > balance {
			draw = balance
		}
		c.promo[provider] = balance - draw
	}
	return nil
}
