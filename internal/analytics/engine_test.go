package analytics

import (
	"context"
	"sort"
	"time"

	"chatlink/internal/config"
	"chatlink/internal/models"
)

// memSource is an in-memory EventSource for computer tests.
type memSource struct {
	events  []Event
	signups []Signup
}

func (m *memSource) sortedEvents() []Event {
	events := make([]Event, len(m.events))
	copy(events, m.events)
	sort.Slice(events, func(i, j int) bool { return events[i].OccurredAt.Before(events[j].OccurredAt) })
	return events
}

func (m *memSource) EventsPage(_ context.Context, r TimeRange, offset, limit int) ([]Event, error) {
	var window []Event
	for _, ev := range m.sortedEvents() {
		if r.Contains(ev.OccurredAt) {
			window = append(window, ev)
		}
	}
	if offset >= len(window) {
		return nil, nil
	}
	end := offset + limit
	if end > len(window) {
		end = len(window)
	}
	return window[offset:end], nil
}

func (m *memSource) SignupsPage(_ context.Context, r TimeRange, offset, limit int) ([]Signup, error) {
	signups := make([]Signup, len(m.signups))
	copy(signups, m.signups)
	sort.Slice(signups, func(i, j int) bool { return signups[i].SignedUpAt.Before(signups[j].SignedUpAt) })

	var window []Signup
	for _, s := range signups {
		if r.Contains(s.SignedUpAt) {
			window = append(window, s)
		}
	}
	if offset >= len(window) {
		return nil, nil
	}
	end := offset + limit
	if end > len(window) {
		end = len(window)
	}
	return window[offset:end], nil
}

func (m *memSource) FirstEvents(_ context.Context, userIDs []string) (map[string]time.Time, error) {
	wanted := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	result := make(map[string]time.Time)
	for _, ev := range m.events {
		if !wanted[ev.UserID] {
			continue
		}
		if first, ok := result[ev.UserID]; !ok || ev.OccurredAt.Before(first) {
			result[ev.UserID] = ev.OccurredAt
		}
	}
	return result, nil
}

func (m *memSource) ActiveBefore(_ context.Context, userIDs []string, before time.Time) (map[string]bool, error) {
	wanted := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	result := make(map[string]bool)
	for _, ev := range m.events {
		if wanted[ev.UserID] && ev.OccurredAt.Before(before) {
			result[ev.UserID] = true
		}
	}
	return result, nil
}

func (m *memSource) LastEventsBefore(_ context.Context, userIDs []string, before time.Time) (map[string]time.Time, error) {
	wanted := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	result := make(map[string]time.Time)
	for _, ev := range m.events {
		if !wanted[ev.UserID] || !ev.OccurredAt.Before(before) {
			continue
		}
		if last, ok := result[ev.UserID]; !ok || ev.OccurredAt.After(last) {
			result[ev.UserID] = ev.OccurredAt
		}
	}
	return result, nil
}

// testEngine builds an Engine over a memSource with a small page size so
// multi-page paths are exercised.
func testEngine(src EventSource) *Engine {
	return NewEngine(src, config.AnalyticsConfig{
		PageSize:         3,
		IdleGap:          30 * time.Minute,
		ReactivationDays: 14,
	}, nil)
}

func at(iso string) time.Time {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		panic(err)
	}
	return t
}

func rangeBetween(start, end time.Time) TimeRange {
	return TimeRange{Start: &start, End: &end, Label: LabelCustom}
}

func tgEvent(user string, occurredAt time.Time) Event {
	return Event{UserID: user, ChannelID: models.ChannelTelegram, OccurredAt: occurredAt}
}
