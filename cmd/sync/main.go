package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/woodpower/baselinker-sync-backend/internal/adapters/baselinker"
	"github.com/woodpower/baselinker-sync-backend/internal/application/priority"
	"github.com/woodpower/baselinker-sync-backend/internal/application/sync"
	"github.com/woodpower/baselinker-sync-backend/internal/domain/status"
	"github.com/woodpower/baselinker-sync-backend/internal/infrastructure/config"
	"github.com/woodpower/baselinker-sync-backend/internal/infrastructure/logging"
	"github.com/woodpower/baselinker-sync-backend/internal/infrastructure/storage"
)

func main() {
	var (
		configPath     = flag.String("config", "config.yaml", "path to config file")
		paid           = flag.Bool("paid", false, "run the scheduled paid-orders variant")
		days           = flag.Int("days", 0, "lookback window in days (1-90)")
		limit          = flag.Int("limit", 0, "orders per API page (10-200)")
		dryRun         = flag.Bool("dry-run", false, "report what would happen without persisting")
		force          = flag.Bool("force", false, "re-sync orders that already have pieces")
		statuses       = flag.String("statuses", "", "comma-separated target status ids")
		exclude        = flag.String("exclude", "", "comma-separated excluded product keywords")
		orderIDs       = flag.String("order-ids", "", "comma-separated order ids to sync exclusively")
		skipValidation = flag.Bool("skip-validation", false, "bypass the production-data validation gate")
		noStatusChange = flag.Bool("no-status-change", false, "do not push remote status changes")
		noPriorities   = flag.Bool("no-priorities", false, "skip priority recalculation")
		debug          = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configPath)
	if *debug {
		cfg.Observability.Logging.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "sync")

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	client := baselinker.NewClient(cfg.Baselinker, logging.NewLoggerWithSystem(cfg.Observability.Logging, "baselinker"))
	resolver := status.NewResolver(store, logging.NewLoggerWithSystem(cfg.Observability.Logging, "status"))
	priorities := priority.NewRecalculator(store, logging.NewLoggerWithSystem(cfg.Observability.Logging, "priority"))
	orchestrator := sync.NewOrchestrator(cfg, client, store, resolver, priorities, logger)

	ctx := context.Background()

	if _, err := sync.RefreshStatusConfigs(ctx, client, store, cfg.Production.TargetStatusID, logger); err != nil {
		logger.Warn("failed to refresh status configs", "error", err)
	}

	var report *sync.Report
	if *paid {
		report, err = orchestrator.RunPaidOrders(ctx)
	} else {
		params := sync.Params{
			PeriodDays:             *days,
			LimitPerPage:           *limit,
			TargetStatuses:         parseIntList(*statuses),
			ExcludedKeywords:       parseStringList(*exclude),
			ForceUpdate:            *force,
			SkipValidation:         *skipValidation,
			DryRun:                 *dryRun,
			DebugMode:              *debug,
			RecalculatePriorities:  !*noPriorities,
			AutoStatusChange:       !*noStatusChange,
			RespectManualOverrides: true,
			FilterOrderIDs:         parseIntList(*orderIDs),
			TriggerSource:          "manual",
		}
		params.SelectedOrdersOnly = len(params.FilterOrderIDs) > 0

		report, err = orchestrator.Run(ctx, params)
	}
	if err != nil {
		logger.Error("sync run failed", "error", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))

	if !report.Success {
		os.Exit(1)
	}
}

func parseIntList(raw string) []int {
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func parseStringList(raw string) []string {
	var items []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}
