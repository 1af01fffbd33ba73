// Package usage records the outcome of every dispatched request for
// billing reconciliation and per-user reporting.
package usage

import (
	"context"
	"time"

	"github.com/focusloop/aidispatch/pkg/types"
)

// Record is one dispatch outcome. Cache hits record zero units and
// zero cost so daily reports still count them.
type Record struct {
	ID           string        `json:"id"`
	UserID       string        `json:"user_id"`
	Backend      string        `json:"backend"`
	Feature      types.Feature `json:"feature"`
	InputUnits   int           `json:"input_units"`
	OutputUnits  int           `json:"output_units"`
	CostMicros   int64         `json:"cost_micros"`
	Latency      time.Duration `json:"latency"`
	CacheHit     bool          `json:"cache_hit"`
	FallbackUsed bool          `json:"fallback_used"`
	Timestamp    time.Time     `json:"timestamp"`
}

// Recorder persists usage records.
type Recorder interface {
	Append(ctx context.Context, rec *Record) error
	Close() error
}
