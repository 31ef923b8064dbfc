// Package status maps the finish states of an order's pieces to a single
// downstream Baselinker status id.
package status

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Finish categories.
const (
	CategoryOiling     = "oiling"
	CategoryStaining   = "staining"
	CategoryVarnishing = "varnishing"
	CategoryRaw        = "raw"
)

const cacheTTL = 12 * time.Hour

// finishRules classify a piece's finish-state text. Evaluated in order,
// first match wins; anything unmatched is raw.
var finishRules = []struct {
	pattern  string
	category string
}{
	{"olej", CategoryOiling},
	{"bejc", CategoryStaining},
	{"lakie", CategoryVarnishing},
}

// statusNameRules map a Baselinker status display name to a category.
var statusNameRules = []struct {
	pattern  string
	category string
}{
	{"olejowanie", CategoryOiling},
	{"bejcowanie", CategoryStaining},
	{"lakierowanie", CategoryVarnishing},
	{"surowe", CategoryRaw},
}

// fallbackStatusIDs is used when neither a fresh nor a stale lookup is
// available.
var fallbackStatusIDs = map[string]int{
	CategoryOiling:     148832,
	CategoryStaining:   148831,
	CategoryVarnishing: 148830,
	CategoryRaw:        138619,
}

// ConfigSource provides the current order-status definitions, typically the
// locally stored order_status config rows refreshed from the API.
type ConfigSource interface {
	OrderStatuses(ctx context.Context) ([]StatusConfig, error)
}

// StatusConfig is one configured order status.
type StatusConfig struct {
	BaselinkerID int
	Name         string
	IsDefault    bool
}

// Resolver resolves a set of piece finish states to one status id. The
// category→id map is cached with a TTL; when a refresh fails the stale map
// keeps serving, and with no map at all a hardcoded table applies.
type Resolver struct {
	source ConfigSource
	logger *slog.Logger

	mu        sync.Mutex
	cached    map[string]int
	cachedAt  time.Time
	defaultID int
}

// NewResolver creates a Resolver backed by the given config source.
func NewResolver(source ConfigSource, logger *slog.Logger) *Resolver {
	return &Resolver{source: source, logger: logger}
}

// Resolve classifies every finish state and returns the matching status id
// when all pieces agree on one category. Mixed-finish orders and orders
// with no recognizable finish resolve to the raw/default status.
func (r *Resolver) Resolve(ctx context.Context, finishStates []string) int {
	statusIDs := r.statusMap(ctx)

	categories := make(map[string]struct{})
	for _, fs := range finishStates {
		categories[Classify(fs)] = struct{}{}
	}

	if len(categories) == 1 {
		for category := range categories {
			if id, ok := statusIDs[category]; ok {
				return id
			}
		}
	}

	if len(categories) > 1 {
		r.logger.Info("mixed finish states, falling back to raw status", "categories", len(categories))
	}
	return statusIDs[CategoryRaw]
}

// Classify maps a finish-state text to a category. Empty or unrecognized
// text is raw.
func Classify(finishState string) string {
	lower := strings.ToLower(finishState)
	for _, rule := range finishRules {
		if strings.Contains(lower, rule.pattern) {
			return rule.category
		}
	}
	return CategoryRaw
}

// statusMap returns the category→status-id map, refreshing when the TTL
// expired.
func (r *Resolver) statusMap(ctx context.Context) map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != nil && time.Since(r.cachedAt) < cacheTTL {
		return r.cached
	}

	configs, err := r.source.OrderStatuses(ctx)
	if err != nil {
		if r.cached != nil {
			r.logger.Warn("status lookup failed, serving stale cache", "error", err)
			return r.cached
		}
		r.logger.Warn("status lookup failed with no cache, using hardcoded table", "error", err)
		return fallbackStatusIDs
	}

	built := buildStatusMap(configs)
	if len(built) == 0 {
		if r.cached != nil {
			return r.cached
		}
		return fallbackStatusIDs
	}

	r.cached = built
	r.cachedAt = time.Now()
	return r.cached
}

func buildStatusMap(configs []StatusConfig) map[string]int {
	m := make(map[string]int)
	for _, cfg := range configs {
		lower := strings.ToLower(cfg.Name)
		for _, rule := range statusNameRules {
			if strings.Contains(lower, rule.pattern) {
				if _, exists := m[rule.category]; !exists {
					m[rule.category] = cfg.BaselinkerID
				}
				break
			}
		}
		if cfg.IsDefault {
			if _, exists := m[CategoryRaw]; !exists {
				m[CategoryRaw] = cfg.BaselinkerID
			}
		}
	}

	// Resolution must always be able to return something for raw.
	if _, ok := m[CategoryRaw]; !ok && len(m) > 0 {
		m[CategoryRaw] = fallbackStatusIDs[CategoryRaw]
	}
	return m
}

// Invalidate drops the cached map so the next Resolve refreshes it.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = nil
	r.cachedAt = time.Time{}
}
