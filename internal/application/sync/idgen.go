package sync

import (
	"fmt"
	"time"
)

const maxIDAttempts = 5

// IDStore is the persisted-id view the generator checks against.
type IDStore interface {
	MaxOrderSequenceForYear(yearPrefix string) (int, error)
	ShortProductIDExists(id string) (bool, error)
}

// IDGenerator produces internal order numbers ("26_00042") and short
// product ids ("26_00042_3"). Uniqueness is checked against persisted state
// plus the ids already allocated in the current run, carried in a RunIDs
// context so two runs never share hidden allocator state.
type IDGenerator struct {
	store IDStore
	now   func() time.Time
}

// NewIDGenerator creates a generator backed by the given store.
func NewIDGenerator(store IDStore) *IDGenerator {
	return &IDGenerator{store: store, now: time.Now}
}

// RunIDs tracks ids allocated during one run, before they are persisted.
// Create a fresh one at the start of every run.
type RunIDs struct {
	lastSeq   map[string]int
	allocated map[string]struct{}
}

// NewRunIDs creates an empty run-scoped allocation context.
func NewRunIDs() *RunIDs {
	return &RunIDs{
		lastSeq:   make(map[string]int),
		allocated: make(map[string]struct{}),
	}
}

// OrderIDs is the result of one per-order allocation.
type OrderIDs struct {
	InternalOrderNumber string
	ShortProductIDs     []string
}

// GenerateForOrder allocates an internal order number and pieceCount short
// product ids. Ids are consumed by increasing sequence number within the
// order. Fails after a bounded number of attempts to find a free sequence.
func (g *IDGenerator) GenerateForOrder(run *RunIDs, orderID, pieceCount int) (*OrderIDs, error) {
	if pieceCount <= 0 {
		return nil, &IDGenerationError{OrderID: orderID, Err: fmt.Errorf("piece count must be positive, got %d", pieceCount)}
	}

	yearPrefix := g.now().Format("06")

	persistedMax, err := g.store.MaxOrderSequenceForYear(yearPrefix)
	if err != nil {
		return nil, &IDGenerationError{OrderID: orderID, Err: err}
	}

	seq := persistedMax
	if run.lastSeq[yearPrefix] > seq {
		seq = run.lastSeq[yearPrefix]
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		seq++
		orderNumber := fmt.Sprintf("%s_%05d", yearPrefix, seq)

		ids, ok, err := g.tryAllocate(run, orderNumber, pieceCount)
		if err != nil {
			return nil, &IDGenerationError{OrderID: orderID, Err: err}
		}
		if !ok {
			continue
		}

		run.lastSeq[yearPrefix] = seq
		for _, id := range ids {
			run.allocated[id] = struct{}{}
		}
		return &OrderIDs{InternalOrderNumber: orderNumber, ShortProductIDs: ids}, nil
	}

	return nil, &IDGenerationError{
		OrderID: orderID,
		Err:     fmt.Errorf("no free sequence after %d attempts", maxIDAttempts),
	}
}

// tryAllocate builds the candidate id set for one sequence and reports
// whether every id is free both in the database and in this run.
func (g *IDGenerator) tryAllocate(run *RunIDs, orderNumber string, pieceCount int) ([]string, bool, error) {
	ids := make([]string, 0, pieceCount)
	for i := 1; i <= pieceCount; i++ {
		id := fmt.Sprintf("%s_%d", orderNumber, i)

		if _, taken := run.allocated[id]; taken {
			return nil, false, nil
		}
		exists, err := g.store.ShortProductIDExists(id)
		if err != nil {
			return nil, false, err
		}
		if exists {
			return nil, false, nil
		}
		ids = append(ids, id)
	}
	return ids, true, nil
}
