package usage

import (
	"context"
	"sync"
)

const defaultCapacity = 10000

// MemoryRecorder keeps recent records in a bounded in-process buffer.
// Suitable for tests and single-node deployments.
type MemoryRecorder struct {
	mu       sync.RWMutex
	records  []Record
	capacity int
}

// NewMemoryRecorder creates a recorder holding at most capacity records;
// zero or negative uses the default. Oldest records are dropped first.
func NewMemoryRecorder(capacity int) *MemoryRecorder {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &MemoryRecorder{capacity: capacity}
}

// Append stores a copy of the record.
func (r *MemoryRecorder) Append(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.records) >= r.capacity {
		r.records = r.records[1:]
	}
	r.records = append(r.records, *rec)
	return nil
}

// Records returns a snapshot of all held records, oldest first.
func (r *MemoryRecorder) Records() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// ByUser returns the records for one user, oldest first.
func (r *MemoryRecorder) ByUser(userID string) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Record
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out
}

// Close is a no-op.
func (r *MemoryRecorder) Close() error { return nil }
