package analytics

import (
	"testing"
	"time"
)

func TestBucketizeCount(t *testing.T) {
	start := at("2024-03-01T00:00:00Z")
	end := at("2024-03-11T00:00:00Z")
	r := rangeBetween(start, end)

	t.Run("partitions_without_gaps_or_overlap", func(t *testing.T) {
		buckets, err := BucketizeCount(r, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(buckets) != 4 {
			t.Fatalf("expected 4 buckets, got %d", len(buckets))
		}
		if !buckets[0].Start.Equal(start) {
			t.Errorf("first bucket must start at range start")
		}
		if !buckets[len(buckets)-1].End.Equal(end) {
			t.Errorf("last bucket must end at range end")
		}
		for i := 1; i < len(buckets); i++ {
			if !buckets[i].Start.Equal(buckets[i-1].End) {
				t.Errorf("gap between bucket %d and %d", i-1, i)
			}
		}
	})

	t.Run("last_bucket_absorbs_remainder", func(t *testing.T) {
		oddEnd := start.Add(10*time.Hour + 1*time.Millisecond)
		buckets, err := BucketizeCount(rangeBetween(start, oddEnd), 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !buckets[len(buckets)-1].End.Equal(oddEnd) {
			t.Error("remainder must land in the final bucket")
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		first, err := BucketizeCount(r, 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := BucketizeCount(r, 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(first) != len(second) {
			t.Fatal("bucket counts differ between identical calls")
		}
		for i := range first {
			if !first[i].Start.Equal(second[i].Start) || !first[i].End.Equal(second[i].End) {
				t.Errorf("bucket %d differs between identical calls", i)
			}
		}
	})

	t.Run("sub_millisecond_span_yields_one_bucket", func(t *testing.T) {
		tiny := rangeBetween(start, start.Add(time.Microsecond))
		buckets, err := BucketizeCount(tiny, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(buckets) != 1 {
			t.Fatalf("expected 1 bucket for degenerate span, got %d", len(buckets))
		}
	})

	t.Run("open_lower_bound_defaults_to_trailing_window", func(t *testing.T) {
		open := TimeRange{End: &end, Label: string(PresetLifetime)}
		buckets, err := BucketizeCount(open, 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		wantStart := end.Add(-defaultBoundWindow)
		if !buckets[0].Start.Equal(wantStart) {
			t.Errorf("expected defaulted start %v, got %v", wantStart, buckets[0].Start)
		}
	})

	t.Run("missing_end_rejected", func(t *testing.T) {
		if _, err := BucketizeCount(TimeRange{}, 3); err == nil {
			t.Error("expected error for range with no end bound")
		}
	})

	t.Run("non_positive_count_rejected", func(t *testing.T) {
		if _, err := BucketizeCount(r, 0); err == nil {
			t.Error("expected error for zero bucket count")
		}
	})
}

func TestBucketizeHours(t *testing.T) {
	start := at("2024-03-01T00:00:00Z")

	t.Run("truncates_final_bucket", func(t *testing.T) {
		end := start.Add(25 * time.Hour)
		buckets, err := BucketizeHours(rangeBetween(start, end), 12)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(buckets) != 3 {
			t.Fatalf("expected ceil(25/12)=3 buckets, got %d", len(buckets))
		}
		if !buckets[2].End.Equal(end) {
			t.Errorf("final bucket must truncate to range end, got %v", buckets[2].End)
		}
		if buckets[2].End.Sub(buckets[2].Start) != time.Hour {
			t.Errorf("expected 1h final bucket, got %s", buckets[2].End.Sub(buckets[2].Start))
		}
	})

	t.Run("exact_multiple_has_no_truncation", func(t *testing.T) {
		end := start.Add(24 * time.Hour)
		buckets, err := BucketizeHours(rangeBetween(start, end), 6)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(buckets) != 4 {
			t.Fatalf("expected 4 buckets, got %d", len(buckets))
		}
		for i, b := range buckets {
			if b.End.Sub(b.Start) != 6*time.Hour {
				t.Errorf("bucket %d has width %s", i, b.End.Sub(b.Start))
			}
		}
	})

	t.Run("empty_span_yields_one_bucket", func(t *testing.T) {
		buckets, err := BucketizeHours(rangeBetween(start, start), 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(buckets) != 1 {
			t.Fatalf("expected 1 bucket, got %d", len(buckets))
		}
	})
}
