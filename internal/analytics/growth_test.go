package analytics

import (
	"context"
	"testing"
)

func TestGrowthDecomposition(t *testing.T) {
	r := rangeBetween(at("2024-03-01T00:00:00Z"), at("2024-03-15T00:00:00Z"))
	buckets, err := BucketizeCount(r, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	src := &memSource{events: []Event{
		// uA was last seen 29 days before the first bucket: reactivated.
		tgEvent("uA", at("2024-02-01T00:00:00Z")),
		tgEvent("uA", at("2024-03-02T00:00:00Z")),
		// uB's first-ever event lands in the first bucket: new there, then
		// continuing in the second.
		tgEvent("uB", at("2024-03-02T12:00:00Z")),
		tgEvent("uB", at("2024-03-09T00:00:00Z")),
		// uC was active 5 days before the first bucket: continuing.
		tgEvent("uC", at("2024-02-25T00:00:00Z")),
		tgEvent("uC", at("2024-03-03T00:00:00Z")),
		// uD appears for the first time in the second bucket.
		tgEvent("uD", at("2024-03-09T12:00:00Z")),
	}}

	results, err := testEngine(src).GrowthDecomposition(context.Background(), r, buckets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(results))
	}

	first := results[0]
	if first.Active != 3 {
		t.Errorf("expected 3 active in first bucket, got %d", first.Active)
	}
	if first.New != 1 {
		t.Errorf("expected 1 new in first bucket, got %d", first.New)
	}
	if first.Reactivated != 1 {
		t.Errorf("expected 1 reactivated in first bucket, got %d", first.Reactivated)
	}
	if first.Continuing != 1 {
		t.Errorf("expected 1 continuing in first bucket, got %d", first.Continuing)
	}
	if first.Churned != 0 {
		t.Errorf("first bucket has no predecessor, got churn %d", first.Churned)
	}

	second := results[1]
	if second.Active != 2 {
		t.Errorf("expected 2 active in second bucket, got %d", second.Active)
	}
	if second.New != 1 {
		t.Errorf("expected 1 new in second bucket, got %d", second.New)
	}
	if second.Continuing != 1 {
		t.Errorf("expected 1 continuing in second bucket, got %d", second.Continuing)
	}
	if second.Reactivated != 0 {
		t.Errorf("expected 0 reactivated in second bucket, got %d", second.Reactivated)
	}
	// uA and uC were active in the first bucket but not the second.
	if second.Churned != 2 {
		t.Errorf("expected churn 2 in second bucket, got %d", second.Churned)
	}

	for i, gb := range results {
		if gb.New+gb.Reactivated+gb.Continuing != gb.Active {
			t.Errorf("bucket %d: partition does not sum to active set", i)
		}
	}
}

func TestGrowthDecompositionNoBuckets(t *testing.T) {
	r := rangeBetween(at("2024-03-01T00:00:00Z"), at("2024-03-15T00:00:00Z"))
	results, err := testEngine(&memSource{}).GrowthDecomposition(context.Background(), r, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no rows, got %d", len(results))
	}
}
