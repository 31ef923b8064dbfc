package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/woodpower/baselinker-sync-backend/internal/domain/status"
)

// OrderStatuses returns the active order_status config rows. Implements
// status.ConfigSource so the resolver can read directly from storage.
func (s *Storage) OrderStatuses(ctx context.Context) ([]status.StatusConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT baselinker_id, name, is_default
		FROM status_configs
		WHERE config_type = 'order_status' AND is_active = 1
		ORDER BY baselinker_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load order statuses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var configs []status.StatusConfig
	for rows.Next() {
		var c status.StatusConfig
		if err := rows.Scan(&c.BaselinkerID, &c.Name, &c.IsDefault); err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

// UpsertOrderStatus inserts or refreshes one order_status config row.
func (s *Storage) UpsertOrderStatus(baselinkerID int, name string, isDefault bool) error {
	_, err := s.db.Exec(`
		INSERT INTO status_configs (config_type, baselinker_id, name, is_default, is_active, updated_at)
		VALUES ('order_status', ?, ?, ?, 1, ?)
		ON CONFLICT(config_type, baselinker_id) DO UPDATE SET
			name = excluded.name,
			is_default = excluded.is_default,
			is_active = 1,
			updated_at = excluded.updated_at
	`, baselinkerID, name, isDefault, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert order status %d: %w", baselinkerID, err)
	}
	return nil
}
