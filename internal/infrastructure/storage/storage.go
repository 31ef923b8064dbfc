// Package storage provides SQLite persistence for production pieces, sync
// runs and order-status configuration.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Storage provides database access for the sync engine.
type Storage struct {
	db *sql.DB
}

// NewStorage opens the SQLite database at dbPath and applies pending
// migrations.
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for transaction-scoped work.
func (s *Storage) DB() *sql.DB {
	return s.db
}

// ProductionPiece is one physical unit to manufacture. An order line with
// quantity N becomes N pieces, each with its own short product id.
type ProductionPiece struct {
	ID                  int64     `json:"id"`
	ShortProductID      string    `json:"short_product_id"`
	InternalOrderNumber string    `json:"internal_order_number"`
	BaselinkerOrderID   int       `json:"baselinker_order_id"`
	OrderProductID      string    `json:"order_product_id"`
	SequenceNumber      int       `json:"sequence_number"`
	ProductName         string    `json:"product_name"`
	Species             string    `json:"species"`
	Technology          string    `json:"technology"`
	WoodClass           string    `json:"wood_class"`
	FinishState         string    `json:"finish_state"`
	LengthCM            float64   `json:"length_cm"`
	WidthCM             float64   `json:"width_cm"`
	ThicknessCM         float64   `json:"thickness_cm"`
	VolumeM3            float64   `json:"volume_m3"`
	WeightKG            float64   `json:"weight_kg"`
	PriceNet            float64   `json:"price_net"`
	Status              string    `json:"status"`
	Priority            int       `json:"priority"`
	PriorityLocked      bool      `json:"priority_locked"`
	Deadline            time.Time `json:"deadline"`
	PaymentDate         time.Time `json:"payment_date"`
	ClientName          string    `json:"client_name"`
	ClientEmail         string    `json:"client_email"`
	ClientPhone         string    `json:"client_phone"`
	ClientAddress       string    `json:"client_address"`
	SyncSource          string    `json:"sync_source"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// SyncRun is one orchestrator invocation and its outcome counters.
type SyncRun struct {
	ID                  int64      `json:"id"`
	TriggerSource       string     `json:"trigger_source"`
	StartedAt           time.Time  `json:"started_at"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	Status              string     `json:"status"`
	DryRun              bool       `json:"dry_run"`
	ForceUpdate         bool       `json:"force_update"`
	PagesProcessed      int        `json:"pages_processed"`
	OrdersFound         int        `json:"orders_found"`
	OrdersMatchedStatus int        `json:"orders_matched_status"`
	OrdersProcessed     int        `json:"orders_processed"`
	OrdersSkipped       int        `json:"orders_skipped_existing"`
	ProductsCreated     int        `json:"products_created"`
	ProductsUpdated     int        `json:"products_updated"`
	ProductsSkipped     int        `json:"products_skipped"`
	ErrorsCount         int        `json:"errors_count"`
	StatusChanges       int        `json:"status_changes"`
	ErrorDetails        string     `json:"error_details,omitempty"`
	DurationSeconds     float64    `json:"duration_seconds"`
}

// Run statuses.
const (
	RunStatusInProgress = "in_progress"
	RunStatusCompleted  = "completed"
	RunStatusPartial    = "partial"
	RunStatusFailed     = "failed"
	RunStatusDryRun     = "dry_run"
)
