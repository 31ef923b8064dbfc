package sync

import (
	"context"
	"log/slog"

	"github.com/woodpower/baselinker-sync-backend/internal/adapters/baselinker"
)

// StatusLister fetches the remote order status definitions.
type StatusLister interface {
	GetOrderStatusList(ctx context.Context) ([]baselinker.StatusInfo, error)
}

// StatusWriter persists order status config rows.
type StatusWriter interface {
	UpsertOrderStatus(baselinkerID int, name string, isDefault bool) error
}

// RefreshStatusConfigs pulls the remote status list and mirrors it into the
// local order_status config rows. The row matching defaultStatusID is
// flagged as the raw/default production status. Returns how many rows were
// written.
func RefreshStatusConfigs(
	ctx context.Context,
	lister StatusLister,
	writer StatusWriter,
	defaultStatusID int,
	logger *slog.Logger,
) (int, error) {
	statuses, err := lister.GetOrderStatusList(ctx)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, st := range statuses {
		if err := writer.UpsertOrderStatus(st.ID.Int(), st.Name, st.ID.Int() == defaultStatusID); err != nil {
			return written, err
		}
		written++
	}

	logger.Info("status configs refreshed", "count", written)
	return written, nil
}
