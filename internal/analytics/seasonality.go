package analytics

import (
	"context"
	"time"
)

// WeekdayLoad is the normalized event load for one UTC weekday.
type WeekdayLoad struct {
	Day          time.Weekday `json:"day"`
	Events       int64        `json:"events"`
	DaysPresent  int          `json:"days_present"`
	AveragePerDay float64     `json:"average_per_day"`
}

// WeekdaySeasonality tallies events by UTC weekday and normalizes each tally
// by how many times that weekday actually occurs in the range, so a ten-day
// range with two Mondays divides by 2, not 7. The result is rotated so
// weekStart leads. Each weekday's divisor is at least 1 even when it never
// occurs in a short range.
func (e *Engine) WeekdaySeasonality(ctx context.Context, r TimeRange, weekStart time.Weekday) ([]WeekdayLoad, error) {
	bounded, err := boundRange(r)
	if err != nil {
		return nil, err
	}

	var tallies [7]int64
	if err := e.forEachEvent(ctx, bounded, func(ev Event) {
		tallies[int(ev.OccurredAt.UTC().Weekday())]++
	}); err != nil {
		return nil, err
	}

	occurrences := weekdayOccurrences(*bounded.Start, *bounded.End)

	loads := make([]WeekdayLoad, 7)
	for i := 0; i < 7; i++ {
		day := time.Weekday((int(weekStart) + i) % 7)
		present := occurrences[int(day)]
		divisor := present
		if divisor < 1 {
			divisor = 1
		}
		loads[i] = WeekdayLoad{
			Day:           day,
			Events:        tallies[int(day)],
			DaysPresent:   present,
			AveragePerDay: float64(tallies[int(day)]) / float64(divisor),
		}
	}
	return loads, nil
}

// weekdayOccurrences counts how many times each UTC weekday begins inside
// [start, end).
func weekdayOccurrences(start, end time.Time) [7]int {
	var counts [7]int
	day := time.Date(start.UTC().Year(), start.UTC().Month(), start.UTC().Day(), 0, 0, 0, 0, time.UTC)
	if day.Before(start.UTC()) {
		counts[int(day.Weekday())]++
		day = day.AddDate(0, 0, 1)
	}
	for ; day.Before(end.UTC()); day = day.AddDate(0, 0, 1) {
		counts[int(day.Weekday())]++
	}
	return counts
}
