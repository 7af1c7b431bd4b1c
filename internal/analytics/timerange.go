// Package analytics implements the time-windowed aggregation engine behind
// the admin dashboard: range resolution, bucketization, and the metric
// computers that page through the message store.
package analytics

import "time"

// Preset names a well-known relative time range.
type Preset string

const (
	Preset7d        Preset = "7d"
	Preset30d       Preset = "30d"
	PresetThisMonth Preset = "this_month"
	PresetLifetime  Preset = "lifetime"
)

// LabelCustom tags ranges built from explicit bounds.
const LabelCustom = "custom"

// TimeRange is a half-open [Start, End) interval. A nil Start denotes an
// open lower bound ("lifetime"). Resolved fresh per request, never persisted.
type TimeRange struct {
	Start *time.Time
	End   *time.Time
	Label string
}

// Bounded reports whether both bounds are present.
func (r TimeRange) Bounded() bool {
	return r.Start != nil && r.End != nil
}

// Contains reports whether t falls inside the half-open interval.
func (r TimeRange) Contains(t time.Time) bool {
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && !t.Before(*r.End) {
		return false
	}
	return true
}

// Span returns End-Start for bounded ranges and 0 otherwise.
func (r TimeRange) Span() time.Duration {
	if !r.Bounded() {
		return 0
	}
	return r.End.Sub(*r.Start)
}

// RangeQuery carries the raw range inputs parsed from a request: an optional
// preset name and optional explicit bounds.
type RangeQuery struct {
	Preset string
	Start  *time.Time
	End    *time.Time
}

// ResolveRange turns a preset name or explicit bounds into a concrete range.
// A complete explicit pair takes precedence over any preset and is tagged
// custom; a half-specified pair is invalid and falls back to the preset
// rather than extrapolating the missing bound. Unknown or absent presets
// resolve to the caller's fallback. Pure function of now.
func ResolveRange(q RangeQuery, now time.Time, fallback Preset) TimeRange {
	if q.Start != nil && q.End != nil && !q.End.Before(*q.Start) {
		start, end := *q.Start, *q.End
		return TimeRange{Start: &start, End: &end, Label: LabelCustom}
	}

	preset := Preset(q.Preset)
	switch preset {
	case Preset7d, Preset30d, PresetThisMonth, PresetLifetime:
	default:
		preset = fallback
	}

	return resolvePreset(preset, now)
}

func resolvePreset(preset Preset, now time.Time) TimeRange {
	end := now
	switch preset {
	case Preset7d:
		start := now.AddDate(0, 0, -7)
		return TimeRange{Start: &start, End: &end, Label: string(Preset7d)}
	case Preset30d:
		start := now.AddDate(0, 0, -30)
		return TimeRange{Start: &start, End: &end, Label: string(Preset30d)}
	case PresetThisMonth:
		y, m, _ := now.UTC().Date()
		start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		return TimeRange{Start: &start, End: &end, Label: string(PresetThisMonth)}
	case PresetLifetime:
		return TimeRange{End: &end, Label: string(PresetLifetime)}
	default:
		// Unreachable with a sane fallback; default to trailing 30 days.
		start := now.AddDate(0, 0, -30)
		return TimeRange{Start: &start, End: &end, Label: string(Preset30d)}
	}
}
