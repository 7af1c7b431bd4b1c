package analytics

import (
	"context"
	"sort"
	"time"
)

// ActivationResult classifies a window's signups by time to first event.
type ActivationResult struct {
	Signups              int           `json:"signups"`
	ActivatedWithinDay   int           `json:"activated_within_day"`
	ActivatedWithinWeek  int           `json:"activated_within_week"`
	NeverActivated       int           `json:"never_activated"`
	MedianTimeToActivate time.Duration `json:"median_time_to_activate_ns"`
}

// Activation finds each in-window signup's earliest-ever event (not bounded
// to the window) and classifies the elapsed time since signup. The median is
// the sorted-array midpoint, averaging the two central values on even count.
func (e *Engine) Activation(ctx context.Context, r TimeRange) (*ActivationResult, error) {
	signups, err := e.allSignups(ctx, r)
	if err != nil {
		return nil, err
	}

	result := &ActivationResult{Signups: len(signups)}
	if len(signups) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(signups))
	for _, s := range signups {
		ids = append(ids, s.UserID)
	}
	firsts, err := e.src.FirstEvents(ctx, ids)
	if err != nil {
		return nil, err
	}

	var delays []time.Duration
	for _, s := range signups {
		first, ok := firsts[s.UserID]
		if !ok {
			result.NeverActivated++
			continue
		}
		delay := first.Sub(s.SignedUpAt)
		if delay < 0 {
			delay = 0
		}
		delays = append(delays, delay)
		if delay <= 24*time.Hour {
			result.ActivatedWithinDay++
		}
		if delay <= 7*24*time.Hour {
			result.ActivatedWithinWeek++
		}
	}

	result.MedianTimeToActivate = medianDuration(delays)
	return result, nil
}

// medianDuration returns the sorted midpoint, averaging the two central
// values on even count, and 0 for an empty slice.
func medianDuration(values []time.Duration) time.Duration {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// CohortWeek is one row of the retention heatmap: users who signed up in the
// same Monday-aligned UTC week, with per-offset retention rates.
type CohortWeek struct {
	CohortStart time.Time `json:"cohort_start"`
	Size        int       `json:"size"`
	// Retention[k] is the fraction of the cohort with at least one event in
	// week k since their personal cohort start.
	Retention []float64 `json:"retention"`
}

// CohortRetention groups the window's signups into Monday-aligned UTC weekly
// cohorts and computes a retention rate per week offset. depth is clamped to
// [2, 12] offsets beyond week zero.
func (e *Engine) CohortRetention(ctx context.Context, r TimeRange, depth int) ([]CohortWeek, error) {
	if depth < 2 {
		depth = 2
	}
	if depth > 12 {
		depth = 12
	}

	signups, err := e.allSignups(ctx, r)
	if err != nil {
		return nil, err
	}
	if len(signups) == 0 {
		return []CohortWeek{}, nil
	}

	cohorts := make(map[time.Time][]Signup)
	var earliest time.Time
	for _, s := range signups {
		week := mondayWeekStart(s.SignedUpAt)
		cohorts[week] = append(cohorts[week], s)
		if earliest.IsZero() || week.Before(earliest) {
			earliest = week
		}
	}

	// One scan from the earliest cohort start covers every cohort's weeks.
	activity := make(map[string]map[int]bool) // user -> week offsets with activity
	memberWeek := make(map[string]time.Time)
	for _, members := range cohorts {
		for _, m := range members {
			memberWeek[m.UserID] = mondayWeekStart(m.SignedUpAt)
		}
	}
	scanStart := earliest
	scan := TimeRange{Start: &scanStart, End: r.End}
	if r.End != nil {
		horizon := r.End.AddDate(0, 0, 7*(depth+1))
		scan.End = &horizon
	}
	err = e.forEachEvent(ctx, scan, func(ev Event) {
		week, ok := memberWeek[ev.UserID]
		if !ok {
			return
		}
		offset := int(ev.OccurredAt.Sub(week) / (7 * 24 * time.Hour))
		if offset < 0 || offset > depth {
			return
		}
		if activity[ev.UserID] == nil {
			activity[ev.UserID] = make(map[int]bool)
		}
		activity[ev.UserID][offset] = true
	})
	if err != nil {
		return nil, err
	}

	starts := make([]time.Time, 0, len(cohorts))
	for start := range cohorts {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	rows := make([]CohortWeek, 0, len(starts))
	for _, start := range starts {
		members := cohorts[start]
		row := CohortWeek{
			CohortStart: start,
			Size:        len(members),
			Retention:   make([]float64, depth+1),
		}
		for k := 0; k <= depth; k++ {
			retained := 0
			for _, m := range members {
				if activity[m.UserID][k] {
					retained++
				}
			}
			row.Retention[k] = ratio(float64(retained), float64(len(members)))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// RetentionCurve is a cohort's cumulative first-event share by day offset.
type RetentionCurve struct {
	CohortStart time.Time `json:"cohort_start"`
	Size        int       `json:"size"`
	// CumulativeShare[n] is the fraction of the cohort whose first-ever
	// event occurred within n days of signup.
	CumulativeShare []float64 `json:"cumulative_share"`
}

// RetentionCurves computes, per weekly cohort, the cumulative share of
// members whose first-ever event landed within N days of signup.
func (e *Engine) RetentionCurves(ctx context.Context, r TimeRange, maxDays int) ([]RetentionCurve, error) {
	if maxDays < 1 {
		maxDays = 7
	}

	signups, err := e.allSignups(ctx, r)
	if err != nil {
		return nil, err
	}
	if len(signups) == 0 {
		return []RetentionCurve{}, nil
	}

	ids := make([]string, 0, len(signups))
	for _, s := range signups {
		ids = append(ids, s.UserID)
	}
	firsts, err := e.src.FirstEvents(ctx, ids)
	if err != nil {
		return nil, err
	}

	cohorts := make(map[time.Time][]Signup)
	for _, s := range signups {
		week := mondayWeekStart(s.SignedUpAt)
		cohorts[week] = append(cohorts[week], s)
	}

	starts := make([]time.Time, 0, len(cohorts))
	for start := range cohorts {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	curves := make([]RetentionCurve, 0, len(starts))
	for _, start := range starts {
		members := cohorts[start]
		// dayCounts[n] = members whose first event landed on day offset n.
		dayCounts := make([]int, maxDays+1)
		for _, m := range members {
			first, ok := firsts[m.UserID]
			if !ok {
				continue
			}
			days := int(first.Sub(m.SignedUpAt) / (24 * time.Hour))
			if days < 0 {
				days = 0
			}
			if days <= maxDays {
				dayCounts[days]++
			}
		}

		curve := RetentionCurve{
			CohortStart:     start,
			Size:            len(members),
			CumulativeShare: make([]float64, maxDays+1),
		}
		cumulative := 0
		for n := 0; n <= maxDays; n++ {
			cumulative += dayCounts[n]
			curve.CumulativeShare[n] = ratio(float64(cumulative), float64(len(members)))
		}
		curves = append(curves, curve)
	}
	return curves, nil
}

// mondayWeekStart truncates t to the start of its Monday-aligned UTC week.
func mondayWeekStart(t time.Time) time.Time {
	utc := t.UTC()
	day := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	// Weekday runs Sunday=0; shift so Monday=0.
	shift := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -shift)
}
