package analytics

import (
	"context"
	"time"

	"gorm.io/gorm"

	apperrors "chatlink/internal/errors"
	"chatlink/internal/models"
)

// Event is the normalized analytics view of one message row. Join-shape
// ambiguity from the channel-ownership table is resolved before an Event is
// produced; computers never see raw rows.
type Event struct {
	UserID     string
	ChannelID  models.ChannelID
	OccurredAt time.Time
}

// Signup is the analytics view of one user row.
type Signup struct {
	UserID     string
	SignedUpAt time.Time
}

// EventSource is the paged read contract the metric computers consume.
// Within one metric, pages are fetched sequentially; lookup methods are only
// ever evaluated for bounded user sets, never the whole history table.
type EventSource interface {
	// EventsPage returns up to limit in-window events ordered by timestamp.
	EventsPage(ctx context.Context, r TimeRange, offset, limit int) ([]Event, error)
	// SignupsPage returns up to limit users who signed up in the window.
	SignupsPage(ctx context.Context, r TimeRange, offset, limit int) ([]Signup, error)
	// FirstEvents returns each user's earliest-ever event timestamp,
	// omitting users with no events.
	FirstEvents(ctx context.Context, userIDs []string) (map[string]time.Time, error)
	// ActiveBefore reports which of the given users have any event strictly
	// before the instant.
	ActiveBefore(ctx context.Context, userIDs []string, before time.Time) (map[string]bool, error)
	// LastEventsBefore returns each user's most recent event strictly before
	// the instant, omitting users with none.
	LastEventsBefore(ctx context.Context, userIDs []string, before time.Time) (map[string]time.Time, error)
}

// lookupChunk bounds IN-clause sizes for the set-scoped lookups.
const lookupChunk = 500

// gormSource implements EventSource over the messages and users tables.
type gormSource struct {
	db *gorm.DB
}

// NewGormSource creates an EventSource backed by the relational store.
func NewGormSource(db *gorm.DB) EventSource {
	return &gormSource{db: db}
}

// eventRow is the raw scan target for the message/link join. The link columns
// are nullable because the join is optional.
type eventRow struct {
	MessageID     string
	UserID        string
	ChannelID     string
	LinkChannelID *string
	OccurredAt    time.Time
}

// EventsPage pages through in-window messages joined to the channel-ownership
// table. The join can fan out to multiple link rows per message; rows are
// deduplicated on message id and the link's channel wins when present, so a
// single normalized Event leaves this boundary.
func (s *gormSource) EventsPage(ctx context.Context, r TimeRange, offset, limit int) ([]Event, error) {
	query := s.db.WithContext(ctx).
		Table("messages").
		Select("messages.id AS message_id, messages.user_id, messages.channel_id, channel_links.channel_id AS link_channel_id, messages.occurred_at").
		Joins("LEFT JOIN channel_links ON channel_links.id = messages.link_id").
		Order("messages.occurred_at, messages.id").
		Offset(offset).
		Limit(limit)
	if r.Start != nil {
		query = query.Where("messages.occurred_at >= ?", *r.Start)
	}
	if r.End != nil {
		query = query.Where("messages.occurred_at < ?", *r.End)
	}

	var rows []eventRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	events := make([]Event, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if seen[row.MessageID] {
			continue
		}
		seen[row.MessageID] = true

		channel := row.ChannelID
		if row.LinkChannelID != nil && *row.LinkChannelID != "" {
			channel = *row.LinkChannelID
		}
		events = append(events, Event{
			UserID:     row.UserID,
			ChannelID:  models.ChannelID(channel),
			OccurredAt: row.OccurredAt,
		})
	}
	return events, nil
}

// SignupsPage pages through users whose signup falls inside the window.
func (s *gormSource) SignupsPage(ctx context.Context, r TimeRange, offset, limit int) ([]Signup, error) {
	query := s.db.WithContext(ctx).
		Model(&models.User{}).
		Select("id, created_at").
		Order("created_at, id").
		Offset(offset).
		Limit(limit)
	if r.Start != nil {
		query = query.Where("created_at >= ?", *r.Start)
	}
	if r.End != nil {
		query = query.Where("created_at < ?", *r.End)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	signups := make([]Signup, 0, len(users))
	for _, u := range users {
		signups = append(signups, Signup{UserID: u.ID, SignedUpAt: u.CreatedAt})
	}
	return signups, nil
}

// FirstEvents returns each listed user's earliest-ever event timestamp.
func (s *gormSource) FirstEvents(ctx context.Context, userIDs []string) (map[string]time.Time, error) {
	result := make(map[string]time.Time, len(userIDs))
	for _, chunk := range chunkIDs(userIDs, lookupChunk) {
		var rows []struct {
			UserID  string
			FirstAt time.Time
		}
		if err := s.db.WithContext(ctx).
			Table("messages").
			Select("user_id, MIN(occurred_at) AS first_at").
			Where("user_id IN ?", chunk).
			Group("user_id").
			Scan(&rows).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		for _, row := range rows {
			result[row.UserID] = row.FirstAt
		}
	}
	return result, nil
}

// ActiveBefore reports which of the listed users have any event before the
// instant. Scoped to the given set to avoid a full-table scan.
func (s *gormSource) ActiveBefore(ctx context.Context, userIDs []string, before time.Time) (map[string]bool, error) {
	result := make(map[string]bool, len(userIDs))
	for _, chunk := range chunkIDs(userIDs, lookupChunk) {
		var ids []string
		if err := s.db.WithContext(ctx).
			Table("messages").
			Distinct("user_id").
			Where("user_id IN ? AND occurred_at < ?", chunk, before).
			Pluck("user_id", &ids).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		for _, id := range ids {
			result[id] = true
		}
	}
	return result, nil
}

// LastEventsBefore returns each listed user's most recent event before the instant.
func (s *gormSource) LastEventsBefore(ctx context.Context, userIDs []string, before time.Time) (map[string]time.Time, error) {
	result := make(map[string]time.Time, len(userIDs))
	for _, chunk := range chunkIDs(userIDs, lookupChunk) {
		var rows []struct {
			UserID string
			LastAt time.Time
		}
		if err := s.db.WithContext(ctx).
			Table("messages").
			Select("user_id, MAX(occurred_at) AS last_at").
			Where("user_id IN ? AND occurred_at < ?", chunk, before).
			Group("user_id").
			Scan(&rows).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		for _, row := range rows {
			result[row.UserID] = row.LastAt
		}
	}
	return result, nil
}

// chunkIDs splits an id list into bounded slices for IN clauses.
func chunkIDs(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
