package analytics

import (
	"time"

	apperrors "chatlink/internal/errors"
)

// defaultBoundWindow is the bounded fallback substituted for an open-ended
// range before bucketization.
const defaultBoundWindow = 30 * 24 * time.Hour

// Bucket is one fully-bounded sub-interval of a bucketized range, half-open
// like its parent.
type Bucket struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the bucket.
func (b Bucket) Contains(t time.Time) bool {
	return !t.Before(b.Start) && t.Before(b.End)
}

// boundRange returns a fully-bounded copy of r, substituting a trailing
// default window for an open lower bound. Bucketizing an unbounded range is
// undefined, so it is always defaulted here, never passed through.
func boundRange(r TimeRange) (TimeRange, error) {
	if r.End == nil {
		return TimeRange{}, apperrors.ErrInvalidTimeRange
	}
	if r.Start == nil {
		start := r.End.Add(-defaultBoundWindow)
		return TimeRange{Start: &start, End: r.End, Label: r.Label}, nil
	}
	if r.End.Before(*r.Start) {
		return TimeRange{}, apperrors.ErrInvalidTimeRange
	}
	return r, nil
}

// BucketizeCount divides the range into count equal-width buckets at
// millisecond precision. The last bucket absorbs any rounding remainder, so
// the union of all buckets reconstructs the range exactly.
func BucketizeCount(r TimeRange, count int) ([]Bucket, error) {
	if count < 1 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "bucket count must be positive")
	}
	bounded, err := boundRange(r)
	if err != nil {
		return nil, err
	}

	start, end := *bounded.Start, *bounded.End
	widthMs := end.Sub(start).Milliseconds() / int64(count)
	if widthMs <= 0 {
		// Degenerate span: a single bucket covering the whole range.
		return []Bucket{{Start: start, End: end}}, nil
	}

	width := time.Duration(widthMs) * time.Millisecond
	buckets := make([]Bucket, 0, count)
	cursor := start
	for i := 0; i < count; i++ {
		next := cursor.Add(width)
		if i == count-1 {
			next = end
		}
		buckets = append(buckets, Bucket{Start: cursor, End: next})
		cursor = next
	}
	return buckets, nil
}

// BucketizeHours divides the range into fixed-width buckets of the given
// hour span, producing ceil(span/width) buckets. The last bucket is
// truncated to the range end rather than overshooting it.
func BucketizeHours(r TimeRange, hours int) ([]Bucket, error) {
	if hours < 1 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "bucket width must be positive")
	}
	bounded, err := boundRange(r)
	if err != nil {
		return nil, err
	}

	start, end := *bounded.Start, *bounded.End
	width := time.Duration(hours) * time.Hour

	var buckets []Bucket
	for cursor := start; cursor.Before(end); cursor = cursor.Add(width) {
		next := cursor.Add(width)
		if next.After(end) {
			next = end
		}
		buckets = append(buckets, Bucket{Start: cursor, End: next})
	}
	if len(buckets) == 0 {
		// Sub-millisecond or empty span still yields one bucket.
		buckets = append(buckets, Bucket{Start: start, End: end})
	}
	return buckets, nil
}
