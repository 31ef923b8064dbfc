package priority

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woodpower/baselinker-sync-backend/internal/infrastructure/storage"
)

func newTestStore(t *testing.T) *storage.Storage {
	t.Helper()
	s, err := storage.NewStorage(filepath.Join(t.TempDir(), "prio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func insertPiece(t *testing.T, s *storage.Storage, shortID string, orderID int, deadline time.Time, locked bool) {
	t.Helper()
	tx, err := s.DB().Begin()
	require.NoError(t, err)
	err = s.InsertPiecesTx(tx, []*storage.ProductionPiece{{
		ShortProductID:      shortID,
		InternalOrderNumber: "26_00001",
		BaselinkerOrderID:   orderID,
		SequenceNumber:      1,
		ProductName:         "Blat dębowy lity A/B 100x50x4 cm olejowanie",
		Status:              "czeka_na_wyciecie",
		Deadline:            deadline,
		PaymentDate:         deadline.AddDate(0, 0, -14),
		PriorityLocked:      locked,
	}})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
}

func piecePriority(t *testing.T, s *storage.Storage, shortID string) int {
	t.Helper()
	p, err := s.GetPieceByShortID(shortID)
	require.NoError(t, err)
	return p.Priority
}

func TestRecalculateAllOrdersByDeadline(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	insertPiece(t, s, "26_00001_1", 1001, base.AddDate(0, 0, 10), false)
	insertPiece(t, s, "26_00002_1", 1002, base, false)
	insertPiece(t, s, "26_00003_1", 1003, base.AddDate(0, 0, 5), false)

	r := NewRecalculator(s, slog.New(slog.NewTextHandler(io.Discard, nil)))
	report, err := r.RecalculateAll(true)
	require.NoError(t, err)

	assert.Equal(t, 3, report.ProductsUpdated)
	assert.Zero(t, report.ManualOverridesPreserved)

	assert.Equal(t, 1, piecePriority(t, s, "26_00002_1"))
	assert.Equal(t, 2, piecePriority(t, s, "26_00003_1"))
	assert.Equal(t, 3, piecePriority(t, s, "26_00001_1"))
}

func TestRecalculateAllPreservesLockedPieces(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	insertPiece(t, s, "26_00001_1", 1001, base, true)
	insertPiece(t, s, "26_00002_1", 1002, base.AddDate(0, 0, 1), false)

	r := NewRecalculator(s, slog.New(slog.NewTextHandler(io.Discard, nil)))
	report, err := r.RecalculateAll(true)
	require.NoError(t, err)

	assert.Equal(t, 1, report.ManualOverridesPreserved)
	assert.Equal(t, 1, report.ProductsUpdated)
	// Locked piece keeps its rank, the unlocked one takes rank 1.
	assert.Equal(t, 0, piecePriority(t, s, "26_00001_1"))
	assert.Equal(t, 1, piecePriority(t, s, "26_00002_1"))
}

func TestRecalculateAllIgnoresOverridesWhenDisabled(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	insertPiece(t, s, "26_00001_1", 1001, base, true)
	insertPiece(t, s, "26_00002_1", 1002, base.AddDate(0, 0, 1), false)

	r := NewRecalculator(s, slog.New(slog.NewTextHandler(io.Discard, nil)))
	report, err := r.RecalculateAll(false)
	require.NoError(t, err)

	assert.Zero(t, report.ManualOverridesPreserved)
	assert.Equal(t, 2, report.ProductsUpdated)
	assert.Equal(t, 1, piecePriority(t, s, "26_00001_1"))
}

func TestRecalculateAllIsStable(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	insertPiece(t, s, "26_00001_1", 1001, base, false)
	insertPiece(t, s, "26_00002_1", 1002, base.AddDate(0, 0, 1), false)

	r := NewRecalculator(s, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := r.RecalculateAll(true)
	require.NoError(t, err)

	second, err := r.RecalculateAll(true)
	require.NoError(t, err)
	assert.Zero(t, second.ProductsUpdated)
}
