package analytics

import (
	"context"
	"time"
)

// session is a run of one user's events with no gap reaching the idle
// threshold.
type session struct {
	start time.Time
	end   time.Time
}

// sessionize groups an ascending event-time slice into sessions. A gap of
// idleGap or more between consecutive events starts a new session.
func sessionize(times []time.Time, idleGap time.Duration) []session {
	if len(times) == 0 {
		return nil
	}
	sessions := []session{{start: times[0], end: times[0]}}
	for _, t := range times[1:] {
		last := &sessions[len(sessions)-1]
		if t.Sub(last.end) >= idleGap {
			sessions = append(sessions, session{start: t, end: t})
			continue
		}
		last.end = t
	}
	return sessions
}

// SessionBucket is per-bucket sessionization output.
type SessionBucket struct {
	Bucket            Bucket        `json:"bucket"`
	Sessions          int           `json:"sessions"`
	ActiveUsers       int           `json:"active_users"`
	SessionsPerActive float64       `json:"sessions_per_active"`
	MeanDuration      time.Duration `json:"mean_duration_ns"`
}

// SessionsResult is the sessionization summary for a range.
type SessionsResult struct {
	TotalSessions     int             `json:"total_sessions"`
	ActiveUsers       int             `json:"active_users"`
	SessionsPerActive float64         `json:"sessions_per_active"`
	MeanDuration      time.Duration   `json:"mean_duration_ns"`
	PerBucket         []SessionBucket `json:"per_bucket"`
}

// Sessions groups each user's in-window events into idle-gap sessions and
// reports sessions-per-active-user and mean session duration overall and per
// bucket. A session belongs to the bucket containing its start.
func (e *Engine) Sessions(ctx context.Context, r TimeRange, buckets []Bucket) (*SessionsResult, error) {
	byUser, err := e.eventsByUser(ctx, r)
	if err != nil {
		return nil, err
	}

	result := &SessionsResult{PerBucket: make([]SessionBucket, len(buckets))}
	for i, b := range buckets {
		result.PerBucket[i].Bucket = b
	}

	var totalDuration time.Duration
	bucketDurations := make([]time.Duration, len(buckets))
	bucketUsers := make([]map[string]bool, len(buckets))

	for user, times := range byUser {
		sessions := sessionize(times, e.idleGap)
		result.TotalSessions += len(sessions)
		result.ActiveUsers++

		for _, s := range sessions {
			totalDuration += s.end.Sub(s.start)
			for i, b := range buckets {
				if !b.Contains(s.start) {
					continue
				}
				result.PerBucket[i].Sessions++
				bucketDurations[i] += s.end.Sub(s.start)
				if bucketUsers[i] == nil {
					bucketUsers[i] = make(map[string]bool)
				}
				bucketUsers[i][user] = true
				break
			}
		}
	}

	result.SessionsPerActive = ratio(float64(result.TotalSessions), float64(result.ActiveUsers))
	if result.TotalSessions > 0 {
		result.MeanDuration = totalDuration / time.Duration(result.TotalSessions)
	}
	for i := range result.PerBucket {
		pb := &result.PerBucket[i]
		pb.ActiveUsers = len(bucketUsers[i])
		pb.SessionsPerActive = ratio(float64(pb.Sessions), float64(pb.ActiveUsers))
		if pb.Sessions > 0 {
			pb.MeanDuration = bucketDurations[i] / time.Duration(pb.Sessions)
		}
	}
	return result, nil
}

// FunnelResult is the three-stage first-24h funnel.
type FunnelResult struct {
	SignedUp             int `json:"signed_up"`
	FirstEventWithin24h  int `json:"first_event_within_24h"`
	SecondSessionIn24h   int `json:"second_session_within_24h"`
}

// Funnel computes the first-24h funnel for the window's signups: signed up,
// sent a first event within 24h, and started a second idle-gap session
// within 24h of signup.
func (e *Engine) Funnel(ctx context.Context, r TimeRange) (*FunnelResult, error) {
	signups, err := e.allSignups(ctx, r)
	if err != nil {
		return nil, err
	}

	result := &FunnelResult{SignedUp: len(signups)}
	if len(signups) == 0 {
		return result, nil
	}

	// One scan covers every signup's first day: the earliest signup opens the
	// window and the latest signup plus 24h closes it.
	scanStart := signups[0].SignedUpAt
	scanEnd := signups[0].SignedUpAt
	for _, s := range signups {
		if s.SignedUpAt.Before(scanStart) {
			scanStart = s.SignedUpAt
		}
		if s.SignedUpAt.After(scanEnd) {
			scanEnd = s.SignedUpAt
		}
	}
	scanEnd = scanEnd.Add(24 * time.Hour)
	byUser, err := e.eventsByUser(ctx, TimeRange{Start: &scanStart, End: &scanEnd})
	if err != nil {
		return nil, err
	}

	for _, s := range signups {
		dayEnd := s.SignedUpAt.Add(24 * time.Hour)
		var times []time.Time
		for _, t := range byUser[s.UserID] {
			if !t.Before(s.SignedUpAt) && t.Before(dayEnd) {
				times = append(times, t)
			}
		}
		if len(times) == 0 {
			continue
		}
		result.FirstEventWithin24h++
		if len(sessionize(times, e.idleGap)) >= 2 {
			result.SecondSessionIn24h++
		}
	}
	return result, nil
}
