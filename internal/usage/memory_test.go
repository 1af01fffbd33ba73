package usage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/focusloop/aidispatch/pkg/types"
)

func TestMemoryRecorderAppend(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRecorder(0)

	rec := &Record{
		ID:          "r1",
		UserID:      "u1",
		Backend:     "swift",
		Feature:     types.FeatureChat,
		InputUnits:  10,
		OutputUnits: 20,
		CostMicros:  9,
		Latency:     120 * time.Millisecond,
		Timestamp:   time.Now().UTC(),
	}
	if err := r.Append(ctx, rec); err != nil {
		t.Fatalf("append: %v", err)
	}

	got := r.Records()
	if len(got) != 1 {
		t.Fatalf("records = %d, want 1", len(got))
	}
	if got[0].ID != "r1" || got[0].CostMicros != 9 {
		t.Errorf("record mutated: %+v", got[0])
	}

	// Snapshot is a copy; mutating it does not touch the store.
	got[0].CostMicros = 999
	if r.Records()[0].CostMicros != 9 {
		t.Error("Records() leaks internal state")
	}
}

func TestMemoryRecorderByUser(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRecorder(0)

	for i := 0; i < 5; i++ {
		user := "u1"
		if i%2 == 1 {
			user = "u2"
		}
		_ = r.Append(ctx, &Record{ID: fmt.Sprintf("r%d", i), UserID: user})
	}

	u1 := r.ByUser("u1")
	if len(u1) != 3 {
		t.Errorf("u1 records = %d, want 3", len(u1))
	}
	if len(r.ByUser("nobody")) != 0 {
		t.Error("unknown user has records")
	}
}

func TestMemoryRecorderBounded(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRecorder(3)

	for i := 0; i < 6; i++ {
		_ = r.Append(ctx, &Record{ID: fmt.Sprintf("r%d", i), UserID: "u1"})
	}

	got := r.Records()
	if len(got) != 3 {
		t.Fatalf("records = %d, want 3", len(got))
	}
	// Oldest dropped first.
	if got[0].ID != "r3" || got[2].ID != "r5" {
		t.Errorf("wrong window kept: %v .. %v", got[0].ID, got[2].ID)
	}
}
