// Package ledger tracks per-user quota and budget state: requests issued
// today, cost accrued this billing month, and remaining promotional credit
// per provider. Quota gates whether a cache-miss request may be served at
// all; budget only influences which paid backend is chosen.
package ledger

import (
	"context"
	"time"
)

// Budget is the spend-side view read by the model selector.
type Budget struct {
	// SpentMicros is the cost accrued this billing month, micro-USD.
	SpentMicros int64

	// Promo maps provider name to remaining promotional credit,
	// micro-USD.
	Promo map[string]int64
}

// PromoRemaining returns the remaining promotional credit for a provider.
func (b *Budget) PromoRemaining(provider string) int64 {
	if b == nil || b.Promo == nil {
		return 0
	}
	return b.Promo[provider]
}

// Admission is the result of a successful quota check-and-increment.
type Admission struct {
	Used      int
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Store is the durable quota/budget ledger. Admit must be atomic per
// user: two concurrent requests arriving when exactly one daily slot
// remains must not both be admitted.
type Store interface {
	// Admit checks today's request count against limit and increments it
	// in the same atomic step. A denial is returned as a
	// *errors.ServiceError of kind quota_exceeded.
	Admit(ctx context.Context, userID string, limit int) (*Admission, error)

	// Remaining reports the user's budget state for backend selection.
	Remaining(ctx context.Context, userID string) (*Budget, error)

	// Commit accrues cost against the monthly spend and draws down the
	// provider's promotional pool after a dispatch completed.
	Commit(ctx context.Context, userID, provider string, costMicros int64) error
}

// dayKey and monthKey are the period boundaries. Both roll over in UTC.
func dayKey(now time.Time) string   { return now.UTC().Format("2006-01-02") }
func monthKey(now time.Time) string { return now.UTC().Format("2006-01") }

// nextDailyReset returns the next UTC midnight after now.
func nextDailyReset(now time.Time) time.Time {
	t := now.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}
