package analytics

import (
	"testing"
	"time"
)

func TestResolveRange(t *testing.T) {
	now := at("2024-03-15T00:00:00Z")

	t.Run("7d_is_exact", func(t *testing.T) {
		r := ResolveRange(RangeQuery{Preset: "7d"}, now, Preset30d)
		if !r.Start.Equal(now.AddDate(0, 0, -7)) {
			t.Errorf("expected start %v, got %v", now.AddDate(0, 0, -7), *r.Start)
		}
		if !r.End.Equal(now) {
			t.Errorf("expected end %v, got %v", now, *r.End)
		}
		if r.Label != "7d" {
			t.Errorf("expected label 7d, got %s", r.Label)
		}
	})

	t.Run("this_month_starts_at_calendar_month", func(t *testing.T) {
		r := ResolveRange(RangeQuery{Preset: "this_month"}, now, Preset30d)
		want := at("2024-03-01T00:00:00Z")
		if !r.Start.Equal(want) {
			t.Errorf("expected start %v, got %v", want, *r.Start)
		}
		if !r.End.Equal(now) {
			t.Errorf("expected end %v, got %v", now, *r.End)
		}
	})

	t.Run("lifetime_has_open_lower_bound", func(t *testing.T) {
		r := ResolveRange(RangeQuery{Preset: "lifetime"}, now, Preset30d)
		if r.Start != nil {
			t.Errorf("expected nil start, got %v", *r.Start)
		}
		if r.End == nil || !r.End.Equal(now) {
			t.Errorf("expected end %v, got %v", now, r.End)
		}
		if r.Bounded() {
			t.Error("lifetime range must not report bounded")
		}
	})

	t.Run("explicit_pair_beats_preset", func(t *testing.T) {
		start := at("2024-01-01T00:00:00Z")
		end := at("2024-02-01T00:00:00Z")
		r := ResolveRange(RangeQuery{Preset: "7d", Start: &start, End: &end}, now, Preset30d)
		if !r.Start.Equal(start) || !r.End.Equal(end) {
			t.Errorf("explicit bounds not honored: %v/%v", r.Start, r.End)
		}
		if r.Label != LabelCustom {
			t.Errorf("expected custom label, got %s", r.Label)
		}
	})

	t.Run("half_pair_falls_back_to_preset", func(t *testing.T) {
		start := at("2024-01-01T00:00:00Z")
		r := ResolveRange(RangeQuery{Preset: "7d", Start: &start}, now, Preset30d)
		if r.Label != "7d" {
			t.Errorf("expected preset fallback, got %s", r.Label)
		}
		if !r.Start.Equal(now.AddDate(0, 0, -7)) {
			t.Error("half-specified override must not leak into the result")
		}
	})

	t.Run("inverted_pair_falls_back_to_preset", func(t *testing.T) {
		start := at("2024-02-01T00:00:00Z")
		end := at("2024-01-01T00:00:00Z")
		r := ResolveRange(RangeQuery{Start: &start, End: &end}, now, Preset7d)
		if r.Label != "7d" {
			t.Errorf("inverted explicit pair should fall back, got %s", r.Label)
		}
	})

	t.Run("unknown_preset_uses_fallback", func(t *testing.T) {
		r := ResolveRange(RangeQuery{Preset: "90d"}, now, Preset30d)
		if r.Label != "30d" {
			t.Errorf("expected fallback 30d, got %s", r.Label)
		}
	})

	t.Run("deterministic_for_fixed_now", func(t *testing.T) {
		a := ResolveRange(RangeQuery{Preset: "7d"}, now, Preset30d)
		b := ResolveRange(RangeQuery{Preset: "7d"}, now, Preset30d)
		if !a.Start.Equal(*b.Start) || !a.End.Equal(*b.End) {
			t.Error("resolve must be a pure function of now")
		}
	})
}

func TestTimeRangeContains(t *testing.T) {
	start := at("2024-03-01T00:00:00Z")
	end := at("2024-03-02T00:00:00Z")
	r := rangeBetween(start, end)

	if !r.Contains(start) {
		t.Error("start is inside the half-open interval")
	}
	if r.Contains(end) {
		t.Error("end is outside the half-open interval")
	}
	if !r.Contains(start.Add(time.Hour)) {
		t.Error("interior instant should be contained")
	}
}
