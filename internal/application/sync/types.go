package sync

// Default and boundary values for sync parameters.
const (
	DefaultPeriodDays   = 25
	MinPeriodDays       = 1
	MaxPeriodDays       = 90
	DefaultLimitPerPage = 100
	MinLimitPerPage     = 10
	MaxLimitPerPage     = 200

	// CronPeriodDays is the lookback window of the scheduled paid-orders
	// variant.
	CronPeriodDays = 14
)

// Params configures one orchestrator run.
type Params struct {
	PeriodDays             int      `json:"period_days"`
	LimitPerPage           int      `json:"limit_per_page"`
	TargetStatuses         []int    `json:"target_statuses"`
	ExcludedKeywords       []string `json:"excluded_keywords"`
	ForceUpdate            bool     `json:"force_update"`
	SkipValidation         bool     `json:"skip_validation"`
	DryRun                 bool     `json:"dry_run"`
	DebugMode              bool     `json:"debug_mode"`
	RecalculatePriorities  bool     `json:"recalculate_priorities"`
	AutoStatusChange       bool     `json:"auto_status_change"`
	RespectManualOverrides bool     `json:"respect_manual_overrides"`
	FilterOrderIDs         []int    `json:"filter_order_ids"`
	SelectedOrdersOnly     bool     `json:"selected_orders_only"`

	// TriggerSource labels the sync_runs row ("manual", "cron", "api").
	TriggerSource string `json:"-"`
}

// Normalize clamps the period and page size to their allowed ranges and
// fills defaults for zero values.
func (p *Params) Normalize() {
	if p.PeriodDays == 0 {
		p.PeriodDays = DefaultPeriodDays
	}
	if p.PeriodDays < MinPeriodDays {
		p.PeriodDays = MinPeriodDays
	}
	if p.PeriodDays > MaxPeriodDays {
		p.PeriodDays = MaxPeriodDays
	}

	if p.LimitPerPage == 0 {
		p.LimitPerPage = DefaultLimitPerPage
	}
	if p.LimitPerPage < MinLimitPerPage {
		p.LimitPerPage = MinLimitPerPage
	}
	if p.LimitPerPage > MaxLimitPerPage {
		p.LimitPerPage = MaxLimitPerPage
	}

	if p.TriggerSource == "" {
		p.TriggerSource = "manual"
	}
}

// PriorityReport is the outcome of the post-run priority recalculation.
type PriorityReport struct {
	ProductsUpdated          int     `json:"products_updated"`
	ManualOverridesPreserved int     `json:"manual_overrides_preserved"`
	CalculationDuration      float64 `json:"calculation_duration"`
}

// Report is the structured result of one run.
type Report struct {
	Success               bool            `json:"success"`
	RunID                 int64           `json:"run_id,omitempty"`
	Status                string          `json:"status"`
	DryRun                bool            `json:"dry_run"`
	PagesProcessed        int             `json:"pages_processed"`
	OrdersFound           int             `json:"orders_found"`
	OrdersMatchedStatus   int             `json:"orders_matched_status"`
	OrdersProcessed       int             `json:"orders_processed"`
	OrdersProcessedList   []int           `json:"orders_processed_list"`
	OrdersSkippedExisting int             `json:"orders_skipped_existing"`
	ProductsCreated       int             `json:"products_created"`
	ProductsUpdated       int             `json:"products_updated"`
	ProductsSkipped       int             `json:"products_skipped"`
	ErrorsCount           int             `json:"errors_count"`
	StatusChanges         int             `json:"status_changes"`
	ErrorDetails          []string        `json:"error_details"`
	PriorityRecalculation *PriorityReport `json:"priority_recalculation,omitempty"`
	DurationSeconds       float64         `json:"duration_seconds"`
}

func (r *Report) recordError(detail string) {
	r.ErrorsCount++
	r.ErrorDetails = append(r.ErrorDetails, detail)
}
