package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// staleRunThreshold is how long an in_progress run may sit before status
// consumers treat it as crashed.
const staleRunThreshold = 30 * time.Minute

// StartSyncRun inserts an in_progress run row and returns its id.
func (s *Storage) StartSyncRun(triggerSource string, dryRun, forceUpdate bool) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO sync_runs (trigger_source, started_at, status, dry_run, force_update)
		VALUES (?, ?, ?, ?, ?)
	`, triggerSource, time.Now().UTC(), RunStatusInProgress, dryRun, forceUpdate)
	if err != nil {
		return 0, fmt.Errorf("failed to start sync run: %w", err)
	}
	return res.LastInsertId()
}

// CompleteSyncRun finalizes a run with its terminal status and counters.
func (s *Storage) CompleteSyncRun(run *SyncRun) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		UPDATE sync_runs SET
			completed_at = ?,
			status = ?,
			pages_processed = ?,
			orders_found = ?,
			orders_matched_status = ?,
			orders_processed = ?,
			orders_skipped = ?,
			products_created = ?,
			products_updated = ?,
			products_skipped = ?,
			errors_count = ?,
			status_changes = ?,
			error_details = ?,
			duration_seconds = ?
		WHERE id = ?
	`,
		now, run.Status,
		run.PagesProcessed, run.OrdersFound, run.OrdersMatchedStatus,
		run.OrdersProcessed, run.OrdersSkipped,
		run.ProductsCreated, run.ProductsUpdated, run.ProductsSkipped,
		run.ErrorsCount, run.StatusChanges, run.ErrorDetails, run.DurationSeconds,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete sync run %d: %w", run.ID, err)
	}
	return nil
}

func scanSyncRun(row interface{ Scan(...any) error }) (*SyncRun, error) {
	var r SyncRun
	var completedAt sql.NullTime
	var errorDetails sql.NullString
	err := row.Scan(
		&r.ID, &r.TriggerSource, &r.StartedAt, &completedAt, &r.Status,
		&r.DryRun, &r.ForceUpdate,
		&r.PagesProcessed, &r.OrdersFound, &r.OrdersMatchedStatus,
		&r.OrdersProcessed, &r.OrdersSkipped,
		&r.ProductsCreated, &r.ProductsUpdated, &r.ProductsSkipped,
		&r.ErrorsCount, &r.StatusChanges, &errorDetails, &r.DurationSeconds,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		r.CompletedAt = &completedAt.Time
	}
	r.ErrorDetails = errorDetails.String
	return &r, nil
}

const syncRunColumns = `
	id, trigger_source, started_at, completed_at, status,
	dry_run, force_update,
	pages_processed, orders_found, orders_matched_status,
	orders_processed, orders_skipped,
	products_created, products_updated, products_skipped,
	errors_count, status_changes, error_details, duration_seconds`

// GetSyncRun returns one run or sql.ErrNoRows.
func (s *Storage) GetSyncRun(id int64) (*SyncRun, error) {
	row := s.db.QueryRow(`SELECT `+syncRunColumns+` FROM sync_runs WHERE id = ?`, id)
	return scanSyncRun(row)
}

// ListSyncRuns returns the most recent runs, newest first.
func (s *Storage) ListSyncRuns(limit int) ([]*SyncRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT `+syncRunColumns+` FROM sync_runs ORDER BY started_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*SyncRun
	for rows.Next() {
		r, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// SyncStatus summarizes the engine state for the status endpoint.
type SyncStatus struct {
	LastRun      *SyncRun `json:"last_run,omitempty"`
	TotalRuns    int      `json:"total_runs"`
	TotalPieces  int      `json:"total_pieces"`
	RunInFlight  bool     `json:"run_in_flight"`
	StaleRuns    int      `json:"stale_runs"`
	LastRunStale bool     `json:"last_run_stale"`
}

// GetSyncStatus aggregates run history. A run still marked in_progress past
// the stale threshold is reported as stale, not in flight.
func (s *Storage) GetSyncStatus() (*SyncStatus, error) {
	status := &SyncStatus{}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sync_runs`).Scan(&status.TotalRuns); err != nil {
		return nil, fmt.Errorf("failed to count sync runs: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM production_pieces`).Scan(&status.TotalPieces); err != nil {
		return nil, fmt.Errorf("failed to count pieces: %w", err)
	}

	cutoff := time.Now().UTC().Add(-staleRunThreshold)
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM sync_runs WHERE status = ? AND started_at < ?
	`, RunStatusInProgress, cutoff).Scan(&status.StaleRuns)
	if err != nil {
		return nil, fmt.Errorf("failed to count stale runs: %w", err)
	}

	var inFlight int
	err = s.db.QueryRow(`
		SELECT COUNT(*) FROM sync_runs WHERE status = ? AND started_at >= ?
	`, RunStatusInProgress, cutoff).Scan(&inFlight)
	if err != nil {
		return nil, err
	}
	status.RunInFlight = inFlight > 0

	last, err := s.lastSyncRun()
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if last != nil {
		status.LastRun = last
		status.LastRunStale = last.Status == RunStatusInProgress && last.StartedAt.Before(cutoff)
	}

	return status, nil
}

func (s *Storage) lastSyncRun() (*SyncRun, error) {
	row := s.db.QueryRow(`
		SELECT ` + syncRunColumns + ` FROM sync_runs ORDER BY started_at DESC, id DESC LIMIT 1
	`)
	return scanSyncRun(row)
}

// MarkStaleRunsFailed flips in_progress runs past the stale threshold to
// failed. Called by the background sweeper.
func (s *Storage) MarkStaleRunsFailed() (int, error) {
	cutoff := time.Now().UTC().Add(-staleRunThreshold)
	res, err := s.db.Exec(`
		UPDATE sync_runs
		SET status = ?, completed_at = ?, error_details = ?
		WHERE status = ? AND started_at < ?
	`, RunStatusFailed, time.Now().UTC(), `["run did not finalize, marked failed by sweeper"]`, RunStatusInProgress, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale runs: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
