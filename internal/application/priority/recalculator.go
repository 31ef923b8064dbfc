// Package priority ranks the production queue.
package priority

import (
	"log/slog"
	"time"

	"github.com/woodpower/baselinker-sync-backend/internal/application/sync"
	"github.com/woodpower/baselinker-sync-backend/internal/infrastructure/storage"
)

// Store is the persistence surface the recalculator needs.
type Store interface {
	ActivePiecesByDeadline() ([]*storage.ProductionPiece, error)
	UpdatePiecePriority(id int64, priority int) error
}

// Recalculator assigns priority ranks to every active piece, ordered by
// deadline then payment date. Pieces with a locked priority keep their
// manually assigned rank.
type Recalculator struct {
	store  Store
	logger *slog.Logger
}

// NewRecalculator creates a Recalculator.
func NewRecalculator(store Store, logger *slog.Logger) *Recalculator {
	return &Recalculator{store: store, logger: logger}
}

// RecalculateAll re-ranks the whole queue once. When respectManualOverrides
// is set, locked pieces are skipped and counted; otherwise they are re-ranked
// like any other piece.
func (r *Recalculator) RecalculateAll(respectManualOverrides bool) (*sync.PriorityReport, error) {
	started := time.Now()

	pieces, err := r.store.ActivePiecesByDeadline()
	if err != nil {
		return nil, err
	}

	report := &sync.PriorityReport{}
	rank := 0

	for _, piece := range pieces {
		if respectManualOverrides && piece.PriorityLocked {
			report.ManualOverridesPreserved++
			continue
		}

		rank++
		if piece.Priority == rank {
			continue
		}
		if err := r.store.UpdatePiecePriority(piece.ID, rank); err != nil {
			return nil, err
		}
		report.ProductsUpdated++
	}

	report.CalculationDuration = time.Since(started).Seconds()

	r.logger.Info("priority recalculation complete",
		"pieces", len(pieces),
		"updated", report.ProductsUpdated,
		"overrides_preserved", report.ManualOverridesPreserved,
	)

	return report, nil
}
