package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const pieceColumns = `
	id, short_product_id, internal_order_number, baselinker_order_id,
	COALESCE(order_product_id, ''), sequence_number, product_name,
	COALESCE(species, ''), COALESCE(technology, ''), COALESCE(wood_class, ''),
	COALESCE(finish_state, ''), length_cm, width_cm, thickness_cm,
	volume_m3, weight_kg, price_net, status, priority, priority_locked,
	deadline, payment_date,
	COALESCE(client_name, ''), COALESCE(client_email, ''), COALESCE(client_phone, ''),
	COALESCE(client_address, ''), COALESCE(sync_source, ''), created_at, updated_at`

func scanPiece(row interface{ Scan(...any) error }) (*ProductionPiece, error) {
	var p ProductionPiece
	var deadline, paymentDate sql.NullTime
	err := row.Scan(
		&p.ID, &p.ShortProductID, &p.InternalOrderNumber, &p.BaselinkerOrderID,
		&p.OrderProductID, &p.SequenceNumber, &p.ProductName,
		&p.Species, &p.Technology, &p.WoodClass,
		&p.FinishState, &p.LengthCM, &p.WidthCM, &p.ThicknessCM,
		&p.VolumeM3, &p.WeightKG, &p.PriceNet, &p.Status, &p.Priority, &p.PriorityLocked,
		&deadline, &paymentDate,
		&p.ClientName, &p.ClientEmail, &p.ClientPhone,
		&p.ClientAddress, &p.SyncSource, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Deadline = deadline.Time
	p.PaymentDate = paymentDate.Time
	return &p, nil
}

// HasPiecesForOrder reports whether any piece exists for the given source
// order. This is the dedup check of the sync engine.
func (s *Storage) HasPiecesForOrder(orderID int) (bool, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM production_pieces WHERE baselinker_order_id = ?
	`, orderID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check pieces for order %d: %w", orderID, err)
	}
	return count > 0, nil
}

// InsertPiecesTx persists all pieces of one order inside tx. The caller owns
// the transaction; a failure here must roll back the whole order.
func (s *Storage) InsertPiecesTx(tx *sql.Tx, pieces []*ProductionPiece) error {
	stmt, err := tx.Prepare(`
		INSERT INTO production_pieces (
			short_product_id, internal_order_number, baselinker_order_id,
			order_product_id, sequence_number, product_name,
			species, technology, wood_class, finish_state,
			length_cm, width_cm, thickness_cm, volume_m3, weight_kg, price_net,
			status, priority, priority_locked, deadline, payment_date,
			client_name, client_email, client_phone, client_address, sync_source
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare piece insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, p := range pieces {
		_, err := stmt.Exec(
			p.ShortProductID, p.InternalOrderNumber, p.BaselinkerOrderID,
			p.OrderProductID, p.SequenceNumber, p.ProductName,
			p.Species, p.Technology, p.WoodClass, p.FinishState,
			p.LengthCM, p.WidthCM, p.ThicknessCM, p.VolumeM3, p.WeightKG, p.PriceNet,
			p.Status, p.Priority, p.PriorityLocked, p.Deadline, p.PaymentDate,
			p.ClientName, p.ClientEmail, p.ClientPhone, p.ClientAddress, p.SyncSource,
		)
		if err != nil {
			return fmt.Errorf("failed to insert piece %s: %w", p.ShortProductID, err)
		}
	}

	return nil
}

// DeletePiecesForOrderTx removes an order's existing pieces. Used by
// force_update before re-creating them in the same transaction.
func (s *Storage) DeletePiecesForOrderTx(tx *sql.Tx, orderID int) (int, error) {
	res, err := tx.Exec(`DELETE FROM production_pieces WHERE baselinker_order_id = ?`, orderID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete pieces for order %d: %w", orderID, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// MaxOrderSequenceForYear returns the highest per-year order sequence that
// has been persisted, parsed from internal order numbers "YY_NNNNN".
func (s *Storage) MaxOrderSequenceForYear(yearPrefix string) (int, error) {
	var maxSeq sql.NullInt64
	err := s.db.QueryRow(`
		SELECT MAX(CAST(SUBSTR(internal_order_number, ?) AS INTEGER))
		FROM production_pieces
		WHERE internal_order_number LIKE ?
	`, len(yearPrefix)+2, yearPrefix+"_%").Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("failed to read max order sequence: %w", err)
	}
	if !maxSeq.Valid {
		return 0, nil
	}
	return int(maxSeq.Int64), nil
}

// ShortProductIDExists reports whether a generated id is already persisted.
func (s *Storage) ShortProductIDExists(id string) (bool, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM production_pieces WHERE short_product_id = ?
	`, id).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FinishStatesForOrder returns the finish states of an order's pieces, for
// status resolution after commit.
func (s *Storage) FinishStatesForOrder(orderID int) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT COALESCE(finish_state, '') FROM production_pieces
		WHERE baselinker_order_id = ?
		ORDER BY sequence_number
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load finish states for order %d: %w", orderID, err)
	}
	defer func() { _ = rows.Close() }()

	var states []string
	for rows.Next() {
		var fs string
		if err := rows.Scan(&fs); err != nil {
			return nil, err
		}
		states = append(states, fs)
	}
	return states, rows.Err()
}

// GetPieceByShortID returns one piece or sql.ErrNoRows.
func (s *Storage) GetPieceByShortID(shortID string) (*ProductionPiece, error) {
	row := s.db.QueryRow(`
		SELECT `+pieceColumns+` FROM production_pieces WHERE short_product_id = ?
	`, shortID)
	return scanPiece(row)
}

// PieceFilter narrows ListPieces.
type PieceFilter struct {
	OrderID int
	Status  string
	Limit   int
}

// ListPieces returns pieces matching the filter, newest first.
func (s *Storage) ListPieces(filter PieceFilter) ([]*ProductionPiece, error) {
	var conditions []string
	var args []any

	if filter.OrderID > 0 {
		conditions = append(conditions, "baselinker_order_id = ?")
		args = append(args, filter.OrderID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + pieceColumns + ` FROM production_pieces`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pieces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pieces []*ProductionPiece
	for rows.Next() {
		p, err := scanPiece(rows)
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, p)
	}
	return pieces, rows.Err()
}

// ActivePiecesByDeadline returns every non-completed piece ordered by
// deadline then payment date, for priority recalculation.
func (s *Storage) ActivePiecesByDeadline() ([]*ProductionPiece, error) {
	rows, err := s.db.Query(`
		SELECT ` + pieceColumns + ` FROM production_pieces
		WHERE status != 'zakonczone'
		ORDER BY deadline ASC, payment_date ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active pieces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pieces []*ProductionPiece
	for rows.Next() {
		p, err := scanPiece(rows)
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, p)
	}
	return pieces, rows.Err()
}

// UpdatePiecePriority sets a piece's priority rank.
func (s *Storage) UpdatePiecePriority(id int64, priority int) error {
	_, err := s.db.Exec(`
		UPDATE production_pieces SET priority = ?, updated_at = ? WHERE id = ?
	`, priority, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update priority for piece %d: %w", id, err)
	}
	return nil
}
