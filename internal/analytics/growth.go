package analytics

import (
	"context"
	"time"
)

// GrowthBucket partitions one bucket's active set into new, reactivated,
// and continuing users, plus an approximate churn count.
type GrowthBucket struct {
	Bucket      Bucket `json:"bucket"`
	Active      int    `json:"active"`
	New         int    `json:"new"`
	Reactivated int    `json:"reactivated"`
	Continuing  int    `json:"continuing"`
	// Churned is the previous bucket's active set minus this bucket's
	// active set. This is a coarse approximation: users who skip a bucket
	// and return later still count as churned for the skipped bucket.
	Churned int `json:"churned"`
}

// GrowthDecomposition partitions each bucket's active users: new (first-ever
// event lands in the bucket), reactivated (active now after at least the
// reactivation threshold of inactivity), and continuing. Churn is the size
// of the previous bucket's active set minus the current one, kept as the
// documented approximation rather than a true lagged-churn measure.
func (e *Engine) GrowthDecomposition(ctx context.Context, r TimeRange, buckets []Bucket) ([]GrowthBucket, error) {
	if len(buckets) == 0 {
		return []GrowthBucket{}, nil
	}

	// One window scan feeds every bucket's active set.
	activeByBucket := make([]map[string]bool, len(buckets))
	for i := range activeByBucket {
		activeByBucket[i] = make(map[string]bool)
	}
	allActive := make(map[string]bool)

	scan := TimeRange{Start: &buckets[0].Start, End: &buckets[len(buckets)-1].End, Label: r.Label}
	if err := e.forEachEvent(ctx, scan, func(ev Event) {
		allActive[ev.UserID] = true
		for i, b := range buckets {
			if b.Contains(ev.OccurredAt) {
				activeByBucket[i][ev.UserID] = true
				break
			}
		}
	}); err != nil {
		return nil, err
	}

	ids := sortedKeys(allActive)
	firsts, err := e.src.FirstEvents(ctx, ids)
	if err != nil {
		return nil, err
	}

	reactivationGap := time.Duration(e.reactivationDays) * 24 * time.Hour

	results := make([]GrowthBucket, len(buckets))
	for i, b := range buckets {
		active := activeByBucket[i]
		gb := GrowthBucket{Bucket: b, Active: len(active)}

		// Last activity strictly before the bucket decides reactivation.
		lasts, err := e.src.LastEventsBefore(ctx, sortedKeys(active), b.Start)
		if err != nil {
			return nil, err
		}

		for user := range active {
			first, ok := firsts[user]
			if ok && b.Contains(first) {
				gb.New++
				continue
			}
			last, hadPrior := lasts[user]
			if hadPrior && b.Start.Sub(last) >= reactivationGap {
				gb.Reactivated++
				continue
			}
			gb.Continuing++
		}

		if i > 0 {
			for user := range activeByBucket[i-1] {
				if !active[user] {
					gb.Churned++
				}
			}
		}
		results[i] = gb
	}
	return results, nil
}
