package analytics

import (
	"context"
	"math"
	"sort"
)

// DistributionBin is one messages-per-user bin. Max of -1 marks the final,
// open-ended bin.
type DistributionBin struct {
	Min      int64 `json:"min"`
	Max      int64 `json:"max"`
	Users    int   `json:"users"`
	Messages int64 `json:"messages"`
}

// MessageDistribution bins per-user message counts by quantile: binCount-1
// interior cut points are picked at floor(p*N) order statistics over the
// sorted counts, deduplicated, and each user lands in the first bin whose
// inclusive range contains their count.
func (e *Engine) MessageDistribution(ctx context.Context, r TimeRange, binCount int) ([]DistributionBin, error) {
	if binCount < 1 {
		binCount = 3
	}

	counts := make(map[string]int64)
	if err := e.forEachEvent(ctx, r, func(ev Event) {
		counts[ev.UserID]++
	}); err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return []DistributionBin{}, nil
	}

	sorted := make([]int64, 0, len(counts))
	for _, c := range counts {
		sorted = append(sorted, c)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	// Interior cut points at floor(p*N) order statistics, deduplicated.
	var cuts []int64
	for i := 1; i < binCount; i++ {
		p := float64(i) / float64(binCount)
		idx := int(math.Floor(p * float64(len(sorted))))
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		cut := sorted[idx]
		if len(cuts) == 0 || cuts[len(cuts)-1] != cut {
			cuts = append(cuts, cut)
		}
	}

	// Build ascending, gapless inclusive ranges; the final bin is open-ended.
	bins := make([]DistributionBin, 0, len(cuts)+1)
	low := sorted[0]
	for _, cut := range cuts {
		if cut < low {
			continue
		}
		bins = append(bins, DistributionBin{Min: low, Max: cut})
		low = cut + 1
	}
	bins = append(bins, DistributionBin{Min: low, Max: -1})

	for _, c := range counts {
		for i := range bins {
			if c >= bins[i].Min && (bins[i].Max == -1 || c <= bins[i].Max) {
				bins[i].Users++
				bins[i].Messages += c
				break
			}
		}
	}
	return bins, nil
}

// ConcentrationPoint reports the top-percentile share of total activity.
type ConcentrationPoint struct {
	Percentile float64 `json:"percentile"`
	Users      int     `json:"users"`
	Share      float64 `json:"share"`
}

// PowerUserConcentration sorts users by event count descending, computes
// prefix sums, and reports for each requested percentile p the share of
// total events contributed by the top ceil(N*p) users.
func (e *Engine) PowerUserConcentration(ctx context.Context, r TimeRange, percentiles []float64) ([]ConcentrationPoint, error) {
	counts := make(map[string]int64)
	if err := e.forEachEvent(ctx, r, func(ev Event) {
		counts[ev.UserID]++
	}); err != nil {
		return nil, err
	}

	sorted := make([]int64, 0, len(counts))
	var total int64
	for _, c := range counts {
		sorted = append(sorted, c)
		total += c
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })

	prefix := make([]int64, len(sorted)+1)
	for i, c := range sorted {
		prefix[i+1] = prefix[i] + c
	}

	points := make([]ConcentrationPoint, 0, len(percentiles))
	for _, p := range percentiles {
		top := int(math.Ceil(float64(len(sorted)) * p))
		if top > len(sorted) {
			top = len(sorted)
		}
		points = append(points, ConcentrationPoint{
			Percentile: p,
			Users:      top,
			Share:      ratio(float64(prefix[top]), float64(total)),
		})
	}
	return points, nil
}
