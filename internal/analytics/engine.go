package analytics

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"chatlink/internal/config"
)

// Engine runs the metric computers over an EventSource. Each computation is
// a pure function over its own paged snapshot; no state is shared between
// concurrent computations.
type Engine struct {
	src              EventSource
	pageSize         int
	idleGap          time.Duration
	reactivationDays int
	log              *zap.SugaredLogger
}

// NewEngine creates an Engine with the given source and tuning knobs.
func NewEngine(src EventSource, cfg config.AnalyticsConfig, log *zap.SugaredLogger) *Engine {
	pageSize := cfg.PageSize
	if pageSize < 1 {
		pageSize = 500
	}
	idleGap := cfg.IdleGap
	if idleGap <= 0 {
		idleGap = 30 * time.Minute
	}
	reactivationDays := cfg.ReactivationDays
	if reactivationDays < 1 {
		reactivationDays = 14
	}
	return &Engine{
		src:              src,
		pageSize:         pageSize,
		idleGap:          idleGap,
		reactivationDays: reactivationDays,
		log:              log,
	}
}

// forEachEvent pages through the window sequentially, invoking fn per event.
// Pages are sequential because each page's cursor depends on the row count
// of the previous one.
func (e *Engine) forEachEvent(ctx context.Context, r TimeRange, fn func(Event)) error {
	for offset := 0; ; offset += e.pageSize {
		page, err := e.src.EventsPage(ctx, r, offset, e.pageSize)
		if err != nil {
			return err
		}
		for _, ev := range page {
			fn(ev)
		}
		if len(page) < e.pageSize {
			return nil
		}
	}
}

// allSignups collects every signup in the window.
func (e *Engine) allSignups(ctx context.Context, r TimeRange) ([]Signup, error) {
	var signups []Signup
	for offset := 0; ; offset += e.pageSize {
		page, err := e.src.SignupsPage(ctx, r, offset, e.pageSize)
		if err != nil {
			return nil, err
		}
		signups = append(signups, page...)
		if len(page) < e.pageSize {
			return signups, nil
		}
	}
}

// eventsByUser collects the window's events grouped per user, each user's
// slice ordered by timestamp.
func (e *Engine) eventsByUser(ctx context.Context, r TimeRange) (map[string][]time.Time, error) {
	byUser := make(map[string][]time.Time)
	err := e.forEachEvent(ctx, r, func(ev Event) {
		byUser[ev.UserID] = append(byUser[ev.UserID], ev.OccurredAt)
	})
	if err != nil {
		return nil, err
	}
	// Computers require each user's slice to be ascending; source ordering
	// alone does not guarantee it across page boundaries.
	for _, times := range byUser {
		sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	}
	return byUser, nil
}

// sortedKeys returns map keys in deterministic order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ratio divides safely, defining x/0 as 0 rather than NaN or Inf.
func ratio(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}
