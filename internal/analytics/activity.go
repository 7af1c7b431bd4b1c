package analytics

import (
	"context"
	"time"

	"chatlink/internal/models"
)

// ActiveUsersResult summarizes distinct active users in a window.
type ActiveUsersResult struct {
	TotalActive int                        `json:"total_active"`
	ByChannel   map[models.ChannelID]int   `json:"by_channel"`
	Events      int                        `json:"events"`
}

// ActiveUsers computes the distinct active-user set for the window via a set
// union over paged rows, keyed by the owning user of each event.
func (e *Engine) ActiveUsers(ctx context.Context, r TimeRange) (*ActiveUsersResult, error) {
	seen := make(map[string]bool)
	byChannel := make(map[models.ChannelID]map[string]bool)
	events := 0

	err := e.forEachEvent(ctx, r, func(ev Event) {
		events++
		seen[ev.UserID] = true
		if byChannel[ev.ChannelID] == nil {
			byChannel[ev.ChannelID] = make(map[string]bool)
		}
		byChannel[ev.ChannelID][ev.UserID] = true
	})
	if err != nil {
		return nil, err
	}

	result := &ActiveUsersResult{
		TotalActive: len(seen),
		ByChannel:   make(map[models.ChannelID]int, len(byChannel)),
		Events:      events,
	}
	for channel, users := range byChannel {
		result.ByChannel[channel] = len(users)
	}
	return result, nil
}

// NewVsReturningResult splits the window's active set by prior activity.
type NewVsReturningResult struct {
	TotalActive     int `json:"total_active"`
	NewActive       int `json:"new_active"`
	ReturningActive int `json:"returning_active"`
}

// NewVsReturning intersects the window's active set against "has any event
// before the window start". The before-check runs only for members of the
// active set, never the whole history table.
func (e *Engine) NewVsReturning(ctx context.Context, r TimeRange) (*NewVsReturningResult, error) {
	active := make(map[string]bool)
	if err := e.forEachEvent(ctx, r, func(ev Event) {
		active[ev.UserID] = true
	}); err != nil {
		return nil, err
	}

	result := &NewVsReturningResult{TotalActive: len(active)}
	if len(active) == 0 {
		return result, nil
	}

	if r.Start == nil {
		// An open lower bound has no "before"; everyone counts as new.
		result.NewActive = len(active)
		return result, nil
	}

	prior, err := e.src.ActiveBefore(ctx, sortedKeys(active), *r.Start)
	if err != nil {
		return nil, err
	}
	for user := range active {
		if prior[user] {
			result.ReturningActive++
		} else {
			result.NewActive++
		}
	}
	return result, nil
}

// EngagementResult holds trailing active-user counts and stickiness.
type EngagementResult struct {
	DAU        int     `json:"dau"`
	WAU        int     `json:"wau"`
	MAU        int     `json:"mau"`
	Stickiness float64 `json:"stickiness"`
}

// Engagement classifies events in the trailing 30 days before end into the
// 1-day, 7-day, and 30-day trailing buckets in a single pass.
// Stickiness is DAU/MAU, defined as 0 when MAU is 0.
func (e *Engine) Engagement(ctx context.Context, end time.Time) (*EngagementResult, error) {
	start := end.AddDate(0, 0, -30)
	window := TimeRange{Start: &start, End: &end}

	dayStart := end.AddDate(0, 0, -1)
	weekStart := end.AddDate(0, 0, -7)

	daily := make(map[string]bool)
	weekly := make(map[string]bool)
	monthly := make(map[string]bool)

	err := e.forEachEvent(ctx, window, func(ev Event) {
		monthly[ev.UserID] = true
		if !ev.OccurredAt.Before(weekStart) {
			weekly[ev.UserID] = true
		}
		if !ev.OccurredAt.Before(dayStart) {
			daily[ev.UserID] = true
		}
	})
	if err != nil {
		return nil, err
	}

	return &EngagementResult{
		DAU:        len(daily),
		WAU:        len(weekly),
		MAU:        len(monthly),
		Stickiness: ratio(float64(len(daily)), float64(len(monthly))),
	}, nil
}
