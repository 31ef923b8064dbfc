package api

import "github.com/woodpower/baselinker-sync-backend/internal/application/sync"

// SyncRequest is the POST /api/sync body.
type SyncRequest struct {
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
}

// ToParams converts the request into orchestrator parameters.
func (r *SyncRequest) ToParams() sync.Params {
	return sync.Params{
		PeriodDays:             r.PeriodDays,
		LimitPerPage:           r.LimitPerPage,
		TargetStatuses:         r.TargetStatuses,
		ExcludedKeywords:       r.ExcludedKeywords,
		ForceUpdate:            r.ForceUpdate,
		SkipValidation:         r.SkipValidation,
		DryRun:                 r.DryRun,
		DebugMode:              r.DebugMode,
		RecalculatePriorities:  r.RecalculatePriorities,
		AutoStatusChange:       r.AutoStatusChange,
		RespectManualOverrides: r.RespectManualOverrides,
		FilterOrderIDs:         r.FilterOrderIDs,
		SelectedOrdersOnly:     r.SelectedOrdersOnly,
		TriggerSource:          "api",
	}
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// JobStartedResponse acknowledges a background sync.
type JobStartedResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}
