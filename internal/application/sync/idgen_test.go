package sync

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIDStore struct {
	maxSeq    map[string]int
	persisted map[string]bool
}

func newFakeIDStore() *fakeIDStore {
	return &fakeIDStore{maxSeq: map[string]int{}, persisted: map[string]bool{}}
}

func (f *fakeIDStore) MaxOrderSequenceForYear(yearPrefix string) (int, error) {
	return f.maxSeq[yearPrefix], nil
}

func (f *fakeIDStore) ShortProductIDExists(id string) (bool, error) {
	return f.persisted[id], nil
}

func fixedGenerator(store IDStore) *IDGenerator {
	g := NewIDGenerator(store)
	g.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }
	return g
}

func TestGenerateForOrderSequenceAndFormat(t *testing.T) {
	store := newFakeIDStore()
	store.maxSeq["26"] = 41
	g := fixedGenerator(store)

	ids, err := g.GenerateForOrder(NewRunIDs(), 1001, 3)
	require.NoError(t, err)

	assert.Equal(t, "26_00042", ids.InternalOrderNumber)
	assert.Equal(t, []string{"26_00042_1", "26_00042_2", "26_00042_3"}, ids.ShortProductIDs)
}

func TestGenerateForOrderDisjointAcrossOrders(t *testing.T) {
	g := fixedGenerator(newFakeIDStore())
	run := NewRunIDs()

	first, err := g.GenerateForOrder(run, 1001, 2)
	require.NoError(t, err)
	second, err := g.GenerateForOrder(run, 1002, 2)
	require.NoError(t, err)

	assert.NotEqual(t, first.InternalOrderNumber, second.InternalOrderNumber)

	seen := map[string]bool{}
	for _, id := range append(first.ShortProductIDs, second.ShortProductIDs...) {
		assert.False(t, seen[id], id)
		seen[id] = true
	}
}

func TestGenerateForOrderSkipsPersistedConflicts(t *testing.T) {
	store := newFakeIDStore()
	// A sequence beyond the recorded max already has a persisted piece.
	store.maxSeq["26"] = 10
	store.persisted["26_00011_1"] = true
	g := fixedGenerator(store)

	ids, err := g.GenerateForOrder(NewRunIDs(), 1001, 1)
	require.NoError(t, err)
	assert.Equal(t, "26_00012", ids.InternalOrderNumber)
}

func TestGenerateForOrderFailsAfterBoundedAttempts(t *testing.T) {
	store := newFakeIDStore()
	for i := 1; i <= 10; i++ {
		store.persisted[fmt.Sprintf("26_%05d_1", i)] = true
	}
	g := fixedGenerator(store)

	_, err := g.GenerateForOrder(NewRunIDs(), 1001, 1)
	require.Error(t, err)

	var genErr *IDGenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, 1001, genErr.OrderID)
}

func TestFreshRunContextSeesOnlyPersistedState(t *testing.T) {
	store := newFakeIDStore()
	g := fixedGenerator(store)

	first, err := g.GenerateForOrder(NewRunIDs(), 1001, 1)
	require.NoError(t, err)

	// Nothing was persisted, so a new run starts from the same sequence.
	second, err := g.GenerateForOrder(NewRunIDs(), 1002, 1)
	require.NoError(t, err)
	assert.Equal(t, first.InternalOrderNumber, second.InternalOrderNumber)
}

func TestGenerateForOrderRejectsZeroPieces(t *testing.T) {
	g := fixedGenerator(newFakeIDStore())

	_, err := g.GenerateForOrder(NewRunIDs(), 1001, 0)
	assert.Error(t, err)
}
