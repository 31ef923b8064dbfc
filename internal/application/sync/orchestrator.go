package sync

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/woodpower/baselinker-sync-backend/internal/adapters/baselinker"
	"github.com/woodpower/baselinker-sync-backend/internal/domain/parser"
	"github.com/woodpower/baselinker-sync-backend/internal/domain/validator"
	"github.com/woodpower/baselinker-sync-backend/internal/infrastructure/config"
	"github.com/woodpower/baselinker-sync-backend/internal/infrastructure/storage"
)

// excludedProductTypes never become production pieces. Matching lines are
// dropped silently, not treated as validation failures.
var excludedProductTypes = map[string]bool{
	"suszenie":      true,
	"worek opałowy": true,
	"tarcica":       true,
	"deska":         true,
}

// OrderClient is the remote order API surface the orchestrator needs.
type OrderClient interface {
	GetOrdersRange(ctx context.Context, from, to time.Time, limitPerPage int) ([]baselinker.Order, int, error)
	SetOrderStatus(ctx context.Context, orderID, statusID int) error
	SetOrderComment(ctx context.Context, orderID int, comment string) error
}

// Store is the persistence surface the orchestrator needs.
type Store interface {
	IDStore
	DB() *sql.DB
	HasPiecesForOrder(orderID int) (bool, error)
	InsertPiecesTx(tx *sql.Tx, pieces []*storage.ProductionPiece) error
	DeletePiecesForOrderTx(tx *sql.Tx, orderID int) (int, error)
	FinishStatesForOrder(orderID int) ([]string, error)
	StartSyncRun(triggerSource string, dryRun, forceUpdate bool) (int64, error)
	CompleteSyncRun(run *storage.SyncRun) error
}

// StatusResolver maps piece finish states to a downstream status id.
type StatusResolver interface {
	Resolve(ctx context.Context, finishStates []string) int
}

// PriorityRecalculator re-ranks the production queue after a run.
type PriorityRecalculator interface {
	RecalculateAll(respectManualOverrides bool) (*PriorityReport, error)
}

// Orchestrator drives one sync run end to end: fetch, filter, validate,
// id generation, piece creation, per-order commit, remote status change,
// priority recalculation and run finalization.
type Orchestrator struct {
	cfg        *config.Config
	client     OrderClient
	store      Store
	parser     *parser.Parser
	validator  *validator.Validator
	resolver   StatusResolver
	idgen      *IDGenerator
	factory    *Factory
	priorities PriorityRecalculator
	logger     *slog.Logger
	now        func() time.Time
}

// NewOrchestrator wires an orchestrator from its collaborators.
func NewOrchestrator(
	cfg *config.Config,
	client OrderClient,
	store Store,
	resolver StatusResolver,
	priorities PriorityRecalculator,
	logger *slog.Logger,
) *Orchestrator {
	p := parser.New()
	return &Orchestrator{
		cfg:        cfg,
		client:     client,
		store:      store,
		parser:     p,
		validator:  validator.New(p),
		resolver:   resolver,
		idgen:      NewIDGenerator(store),
		factory:    NewFactory(cfg.Production.DeadlineDefaultDays, logger),
		priorities: priorities,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes one sync. Order-level failures are counted and the run
// continues; only missing configuration aborts before any work.
func (o *Orchestrator) Run(ctx context.Context, params Params) (*Report, error) {
	if o.cfg.Baselinker.Token == "" {
		return nil, &ConfigError{Reason: "missing API token"}
	}
	if o.cfg.Baselinker.Endpoint == "" {
		return nil, &ConfigError{Reason: "missing API endpoint"}
	}

	params.Normalize()
	started := o.now()

	report := &Report{DryRun: params.DryRun, ErrorDetails: []string{}, OrdersProcessedList: []int{}}

	runID, err := o.store.StartSyncRun(params.TriggerSource, params.DryRun, params.ForceUpdate)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	report.RunID = runID

	o.logger.Info("sync run started",
		"run_id", runID,
		"period_days", params.PeriodDays,
		"dry_run", params.DryRun,
		"force_update", params.ForceUpdate,
	)

	targetStatuses := params.TargetStatuses
	if len(targetStatuses) == 0 {
		targetStatuses = o.defaultTargetStatuses()
	}

	orders, pages, err := o.fetchOrders(ctx, params)
	report.PagesProcessed = pages
	if err != nil {
		report.Status = storage.RunStatusFailed
		report.recordError("fetch failed: " + err.Error())
		o.finalize(report, started)
		return report, nil
	}
	report.OrdersFound = len(orders)

	matched := filterByStatus(orders, targetStatuses)
	matched = filterByOrderIDs(matched, params)
	report.OrdersMatchedStatus = len(matched)

	runIDs := NewRunIDs()

	for i := range matched {
		order := &matched[i]
		o.processOrder(ctx, order, params, runIDs, report)
	}

	if !params.DryRun && params.RecalculatePriorities && report.ProductsCreated > 0 && o.priorities != nil {
		prio, err := o.priorities.RecalculateAll(params.RespectManualOverrides)
		if err != nil {
			report.recordError("priority recalculation failed: " + err.Error())
		} else {
			report.PriorityRecalculation = prio
		}
	}

	report.Status = o.terminalStatus(report, params)
	o.finalize(report, started)

	o.logger.Info("sync run finished",
		"run_id", runID,
		"status", report.Status,
		"orders_processed", report.OrdersProcessed,
		"products_created", report.ProductsCreated,
		"errors", report.ErrorsCount,
		"duration_seconds", report.DurationSeconds,
	)

	return report, nil
}

// RunPaidOrders is the scheduled variant: recently paid orders only, fixed
// lookback, automatic status change and priority recalculation.
func (o *Orchestrator) RunPaidOrders(ctx context.Context) (*Report, error) {
	return o.Run(ctx, Params{
		PeriodDays:             CronPeriodDays,
		LimitPerPage:           DefaultLimitPerPage,
		TargetStatuses:         []int{o.cfg.Sync.SourceStatusID},
		AutoStatusChange:       true,
		RecalculatePriorities:  true,
		RespectManualOverrides: true,
		TriggerSource:          "cron",
	})
}

func (o *Orchestrator) defaultTargetStatuses() []int {
	if len(o.cfg.Sync.TargetStatusIDs) > 0 {
		return o.cfg.Sync.TargetStatusIDs
	}
	return []int{o.cfg.Sync.SourceStatusID}
}

func (o *Orchestrator) fetchOrders(ctx context.Context, params Params) ([]baselinker.Order, int, error) {
	to := o.now()
	from := to.AddDate(0, 0, -params.PeriodDays)
	return o.client.GetOrdersRange(ctx, from, to, params.LimitPerPage)
}

func filterByStatus(orders []baselinker.Order, targetStatuses []int) []baselinker.Order {
	targets := make(map[int]bool, len(targetStatuses))
	for _, id := range targetStatuses {
		targets[id] = true
	}

	var matched []baselinker.Order
	for _, order := range orders {
		if targets[order.StatusID.Int()] {
			matched = append(matched, order)
		}
	}
	return matched
}

func filterByOrderIDs(orders []baselinker.Order, params Params) []baselinker.Order {
	if !params.SelectedOrdersOnly || len(params.FilterOrderIDs) == 0 {
		return orders
	}

	wanted := make(map[int]bool, len(params.FilterOrderIDs))
	for _, id := range params.FilterOrderIDs {
		wanted[id] = true
	}

	var filtered []baselinker.Order
	for _, order := range orders {
		if wanted[order.OrderID] {
			filtered = append(filtered, order)
		}
	}
	return filtered
}

// processOrder runs steps 3-9 for one order, recording every outcome on the
// report. Failures never propagate: an order-level error is counted and the
// run moves on.
func (o *Orchestrator) processOrder(
	ctx context.Context,
	order *baselinker.Order,
	params Params,
	runIDs *RunIDs,
	report *Report,
) {
	log := o.logger.With("order_id", order.OrderID)

	exists, err := o.store.HasPiecesForOrder(order.OrderID)
	if err != nil {
		report.recordError((&PersistenceError{OrderID: order.OrderID, Err: err}).Error())
		return
	}
	if exists && !params.ForceUpdate {
		report.OrdersSkippedExisting++
		log.Debug("order already synced, skipping")
		return
	}

	products := o.filterProducts(order.Products, params, report)
	if len(products) == 0 {
		log.Debug("no products left after exclusion filter")
		return
	}

	if !params.SkipValidation {
		valid, errs := o.validator.Validate(products)
		if !valid {
			vErr := &ValidationError{OrderID: order.OrderID, Errors: errs}
			report.recordError(vErr.Error() + ": " + strings.Join(errs, " | "))
			log.Warn("order failed validation", "errors", len(errs))

			if !params.DryRun {
				o.postValidationComment(ctx, order, errs, log)
			}
			return
		}
	}

	totalPieces := 0
	for i := range products {
		totalPieces += quantityOf(&products[i])
	}

	ids, err := o.idgen.GenerateForOrder(runIDs, order.OrderID, totalPieces)
	if err != nil {
		report.recordError(err.Error())
		log.Error("id generation failed", "error", err)
		return
	}

	if params.DryRun {
		report.OrdersProcessed++
		report.OrdersProcessedList = append(report.OrdersProcessedList, order.OrderID)
		log.Info("dry run: order would create pieces", "pieces", totalPieces, "internal_order", ids.InternalOrderNumber)
		return
	}

	pieces, pieceErrors := o.buildPieces(order, products, ids, log)
	report.ErrorsCount += pieceErrors
	if len(pieces) == 0 {
		report.recordError((&PersistenceError{OrderID: order.OrderID, Err: errAllPiecesFailed}).Error())
		return
	}

	created, err := o.commitOrder(order, pieces, params)
	if err != nil {
		report.recordError(err.Error())
		log.Error("order commit failed", "error", err)
		return
	}

	report.OrdersProcessed++
	report.OrdersProcessedList = append(report.OrdersProcessedList, order.OrderID)
	if exists {
		report.ProductsUpdated += created
	} else {
		report.ProductsCreated += created
	}
	log.Info("order synced", "internal_order", ids.InternalOrderNumber, "pieces", created)

	if params.AutoStatusChange {
		o.pushStatusChange(ctx, order, report, log)
	}
}

// filterProducts drops lines matching excluded keywords or excluded
// product-type categories. Dropped lines count as skipped, never as errors.
func (o *Orchestrator) filterProducts(
	products []baselinker.OrderProduct,
	params Params,
	report *Report,
) []baselinker.OrderProduct {
	var kept []baselinker.OrderProduct
	for _, product := range products {
		if o.isExcluded(product.Name, params.ExcludedKeywords) {
			report.ProductsSkipped += quantityOf(&product)
			continue
		}
		kept = append(kept, product)
	}
	return kept
}

func (o *Orchestrator) isExcluded(name string, keywords []string) bool {
	lower := strings.ToLower(name)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return excludedProductTypes[o.parser.ProductType(name)]
}

var errAllPiecesFailed = errors.New("all pieces of the order failed to build")

// buildPieces expands each product line into quantity pieces. A per-piece
// failure is counted and the remaining pieces continue.
func (o *Orchestrator) buildPieces(
	order *baselinker.Order,
	products []baselinker.OrderProduct,
	ids *OrderIDs,
	log *slog.Logger,
) ([]*storage.ProductionPiece, int) {
	client := SnapshotClient(order)

	var pieces []*storage.ProductionPiece
	failures := 0
	seq := 0

	for i := range products {
		product := &products[i]
		attrs := o.parser.Parse(product.Name)

		for unit := 0; unit < quantityOf(product); unit++ {
			seq++
			if seq > len(ids.ShortProductIDs) {
				failures++
				log.Error("ran out of allocated ids", "sequence", seq)
				continue
			}

			piece := o.factory.Build(order, product, attrs, ids.InternalOrderNumber, ids.ShortProductIDs[seq-1], seq, client)
			pieces = append(pieces, piece)
		}
	}

	return pieces, failures
}

// commitOrder persists an order's pieces in one transaction. force_update
// replaces the existing pieces inside the same transaction.
func (o *Orchestrator) commitOrder(
	order *baselinker.Order,
	pieces []*storage.ProductionPiece,
	params Params,
) (int, error) {
	tx, err := o.store.DB().Begin()
	if err != nil {
		return 0, &PersistenceError{OrderID: order.OrderID, Err: err}
	}

	if params.ForceUpdate {
		if _, err := o.store.DeletePiecesForOrderTx(tx, order.OrderID); err != nil {
			_ = tx.Rollback()
			return 0, &PersistenceError{OrderID: order.OrderID, Err: err}
		}
	}

	if err := o.store.InsertPiecesTx(tx, pieces); err != nil {
		_ = tx.Rollback()
		return 0, &PersistenceError{OrderID: order.OrderID, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return 0, &PersistenceError{OrderID: order.OrderID, Err: err}
	}

	return len(pieces), nil
}

// pushStatusChange resolves the order's production status from its committed
// pieces and pushes it remotely. A push failure is logged and counted but
// the pieces stay committed.
func (o *Orchestrator) pushStatusChange(ctx context.Context, order *baselinker.Order, report *Report, log *slog.Logger) {
	states, err := o.store.FinishStatesForOrder(order.OrderID)
	if err != nil {
		report.recordError((&PersistenceError{OrderID: order.OrderID, Err: err}).Error())
		return
	}

	statusID := o.resolver.Resolve(ctx, states)
	if err := o.client.SetOrderStatus(ctx, order.OrderID, statusID); err != nil {
		report.recordError(err.Error())
		log.Warn("status change failed", "status_id", statusID, "error", err)
		return
	}

	report.StatusChanges++
}

func (o *Orchestrator) postValidationComment(ctx context.Context, order *baselinker.Order, errs []string, log *slog.Logger) {
	comment, shouldPost := BuildValidationComment(order.AdminComments, errs)
	if !shouldPost {
		log.Debug("validation comment already present, not reposting")
		return
	}

	if err := o.client.SetOrderComment(ctx, order.OrderID, comment); err != nil {
		log.Warn("failed to post validation comment", "error", err)
	}
}

func (o *Orchestrator) terminalStatus(report *Report, params Params) string {
	switch {
	case params.DryRun:
		return storage.RunStatusDryRun
	case report.ErrorsCount == 0:
		return storage.RunStatusCompleted
	default:
		return storage.RunStatusPartial
	}
}

// finalize stamps duration, sets the success flag and writes the SyncLog
// row.
func (o *Orchestrator) finalize(report *Report, started time.Time) {
	report.DurationSeconds = o.now().Sub(started).Seconds()
	report.Success = report.Status != storage.RunStatusFailed

	details, _ := json.Marshal(report.ErrorDetails)

	run := &storage.SyncRun{
		ID:                  report.RunID,
		Status:              report.Status,
		DryRun:              report.DryRun,
		PagesProcessed:      report.PagesProcessed,
		OrdersFound:         report.OrdersFound,
		OrdersMatchedStatus: report.OrdersMatchedStatus,
		OrdersProcessed:     report.OrdersProcessed,
		OrdersSkipped:       report.OrdersSkippedExisting,
		ProductsCreated:     report.ProductsCreated,
		ProductsUpdated:     report.ProductsUpdated,
		ProductsSkipped:     report.ProductsSkipped,
		ErrorsCount:         report.ErrorsCount,
		StatusChanges:       report.StatusChanges,
		ErrorDetails:        string(details),
		DurationSeconds:     report.DurationSeconds,
	}

	if err := o.store.CompleteSyncRun(run); err != nil {
		o.logger.Error("failed to finalize sync run", "run_id", report.RunID, "error", err)
	}
}

func quantityOf(product *baselinker.OrderProduct) int {
	q := product.Quantity.Int()
	if q <= 0 {
		return 1
	}
	return q
}
