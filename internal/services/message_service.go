package services

import (
	"time"

	"gorm.io/gorm"

	apperrors "chatlink/internal/errors"
	"chatlink/internal/models"
	"chatlink/internal/pagination"
)

// messageService handles the message/event store.
type messageService struct {
	db           *gorm.DB
	verification VerificationServicer
}

// NewMessageService creates a new MessageServicer.
func NewMessageService(db *gorm.DB, verification VerificationServicer) MessageServicer {
	return &messageService{db: db, verification: verification}
}

// RecordInbound records a message arriving from a channel, resolving the
// external handle to its link and owning user.
func (s *messageService) RecordInbound(channelID models.ChannelID, externalHandle, body string, occurredAt time.Time) (*models.Message, error) {
	if !channelID.Valid() {
		return nil, apperrors.ErrInvalidChannel
	}

	link, err := s.verification.GetLinkByHandle(channelID, externalHandle)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		UserID:     link.UserID,
		LinkID:     &link.ID,
		ChannelID:  channelID,
		Kind:       models.MessageInbound,
		Body:       body,
		OccurredAt: occurredAt,
	}
	if err := s.db.Create(msg).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return msg, nil
}

// RecordForUser records an event directly against a user id.
func (s *messageService) RecordForUser(userID string, channelID models.ChannelID, kind models.MessageKind, body string, occurredAt time.Time) (*models.Message, error) {
	if !channelID.Valid() {
		return nil, apperrors.ErrInvalidChannel
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	msg := &models.Message{
		UserID:     userID,
		ChannelID:  channelID,
		Kind:       kind,
		Body:       body,
		OccurredAt: occurredAt,
	}
	if err := s.db.Create(msg).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return msg, nil
}

// GetUserMessages lists a user's messages with optional filters.
func (s *messageService) GetUserMessages(userID string, page pagination.PageRequest, filter MessageFilter) (*pagination.PageResponse[models.Message], error) {
	page.Defaults()

	query := s.db.Model(&models.Message{}).Where("user_id = ?", userID)
	if filter.FromDate != nil {
		query = query.Where("occurred_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("occurred_at < ?", *filter.ToDate)
	}
	if filter.ChannelID != nil {
		query = query.Where("channel_id = ?", *filter.ChannelID)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var messages []models.Message
	if err := query.Order("occurred_at DESC").
		Scopes(pagination.Paginate(page)).
		Find(&messages).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(messages, page.Page, page.PageSize, total)
	return &resp, nil
}
