package services

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chatlink/internal/config"
	apperrors "chatlink/internal/errors"
	"chatlink/internal/models"
)

// nonceFormat is the strict UUIDv4 shape every nonce must match. Lookups
// reject non-conforming tokens before touching the database, both to avoid
// wasted queries and to resist enumeration.
var nonceFormat = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// verificationService implements the nonce handshake: issuance, status
// lookups for polling, and atomic finalization into a channel link.
type verificationService struct {
	db          *gorm.DB
	nonceTTL    time.Duration
	botUsername string
}

// NewVerificationService creates a new VerificationServicer.
func NewVerificationService(db *gorm.DB, cfg *config.Config) VerificationServicer {
	return &verificationService{
		db:          db,
		nonceTTL:    cfg.Verification.NonceTTL,
		botUsername: cfg.TelegramBotUsername,
	}
}

// IssueNonce generates a fresh random nonce bound to the channel, persists it
// with an expiry, and derives the channel-specific deep link and command.
func (s *verificationService) IssueNonce(channelID models.ChannelID, requestingUserID *string) (*IssuedNonce, error) {
	if !channelID.Valid() {
		return nil, apperrors.ErrInvalidChannel
	}

	nonce := uuid.NewString()
	expiresAt := time.Now().Add(s.nonceTTL)

	record := &models.VerificationRecord{
		Nonce:     nonce,
		ChannelID: channelID,
		UserID:    requestingUserID,
		ExpiresAt: expiresAt,
	}
	// The nonce is fresh random, so the insert is not expected to conflict.
	if err := s.db.Create(record).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	deepLink, command := s.deriveDeepLink(channelID, nonce)
	return &IssuedNonce{
		Nonce:     nonce,
		DeepLink:  deepLink,
		Command:   command,
		ExpiresAt: expiresAt,
	}, nil
}

// deriveDeepLink builds the per-channel deep link and bot command embedding
// the nonce. Deterministic for a given (channel, nonce) pair.
func (s *verificationService) deriveDeepLink(channelID models.ChannelID, nonce string) (deepLink, command string) {
	switch channelID {
	case models.ChannelTelegram:
		return fmt.Sprintf("https://t.me/%s?start=%s", s.botUsername, nonce),
			fmt.Sprintf("/start %s", nonce)
	case models.ChannelWhatsApp:
		command = fmt.Sprintf("VERIFY %s", nonce)
		return "https://wa.me/" + s.botUsername + "?text=" + url.QueryEscape(command), command
	default:
		return "", ""
	}
}

// Status reports the state of a verification attempt for status polling.
// Expired records keep their rows; expiry is a clock check, not a deletion.
func (s *verificationService) Status(nonce string) (*VerificationStatus, error) {
	record, err := s.lookup(nonce)
	if err != nil {
		return nil, err
	}

	if record.Resolved() {
		link, err := s.linkForRecord(record)
		if err != nil {
			return nil, err
		}
		return &VerificationStatus{State: VerificationDone, Link: link}, nil
	}

	if record.Expired(time.Now()) {
		return &VerificationStatus{State: VerificationExpired}, nil
	}

	return &VerificationStatus{State: VerificationPending}, nil
}

// Finalize atomically resolves a nonce to a confirmed handle and upserts the
// channel link. Called by the channel's bot backend, not the web client.
//
// A registration-time nonce (no owner) materializes a placeholder user in the
// same transaction, so a resolved nonce can never exist without a link row.
// Duplicate webhook delivery with the same handle re-confirms the existing
// link instead of failing or duplicating it.
func (s *verificationService) Finalize(nonce, externalHandle, displayName string) (*models.ChannelLink, error) {
	if externalHandle == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "external handle is required")
	}

	record, err := s.lookup(nonce)
	if err != nil {
		return nil, err
	}

	if record.Resolved() {
		// Duplicate delivery: re-confirm only when the handle matches.
		if *record.ResolvedHandle != externalHandle {
			return nil, apperrors.ErrHandleAlreadyLinked
		}
		return s.linkForRecord(record)
	}

	if record.Expired(time.Now()) {
		return nil, apperrors.ErrNonceExpired
	}

	var link *models.ChannelLink
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		// Refuse to steal a handle already linked to a different user.
		var other models.ChannelLink
		err := tx.Where("channel_id = ? AND external_handle = ?", record.ChannelID, externalHandle).First(&other).Error
		if err == nil && (record.UserID == nil || other.UserID != *record.UserID) {
			return apperrors.ErrHandleAlreadyLinked
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		userID := ""
		if record.UserID != nil {
			userID = *record.UserID
		} else {
			// Registration-time nonce: create the account the handle will
			// belong to inside the same transaction.
			user, err := s.createPendingUser(tx, record.ChannelID, externalHandle, displayName)
			if err != nil {
				return err
			}
			userID = user.ID
			record.UserID = &userID
		}

		record.ResolvedHandle = &externalHandle
		if err := tx.Model(&models.VerificationRecord{}).
			Where("id = ?", record.ID).
			Updates(map[string]interface{}{
				"user_id":         userID,
				"resolved_handle": externalHandle,
			}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		now := time.Now()
		link = &models.ChannelLink{
			UserID:         userID,
			ChannelID:      record.ChannelID,
			ExternalHandle: externalHandle,
			DisplayName:    displayName,
			VerifiedAt:     &now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "channel_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"external_handle", "display_name", "verified_at", "updated_at",
			}),
		}).Create(link).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if txErr != nil {
		var appErr *apperrors.AppError
		if errors.As(txErr, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, txErr)
	}

	return link, nil
}

// GetUserLinks returns all channel links for a user.
func (s *verificationService) GetUserLinks(userID string) ([]models.ChannelLink, error) {
	var links []models.ChannelLink
	if err := s.db.Where("user_id = ?", userID).Order("channel_id").Find(&links).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return links, nil
}

// GetLinkByHandle resolves a channel handle back to its link row.
func (s *verificationService) GetLinkByHandle(channelID models.ChannelID, externalHandle string) (*models.ChannelLink, error) {
	var link models.ChannelLink
	if err := s.db.Where("channel_id = ? AND external_handle = ?", channelID, externalHandle).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrLinkNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &link, nil
}

// Unlink removes a user's link on one channel.
func (s *verificationService) Unlink(userID string, channelID models.ChannelID) error {
	if !channelID.Valid() {
		return apperrors.ErrInvalidChannel
	}
	result := s.db.Where("user_id = ? AND channel_id = ?", userID, channelID).Delete(&models.ChannelLink{})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrLinkNotFound
	}
	return nil
}

// lookup validates the nonce format and fetches the record.
func (s *verificationService) lookup(nonce string) (*models.VerificationRecord, error) {
	if !nonceFormat.MatchString(nonce) {
		return nil, apperrors.ErrMalformedNonce
	}
	var record models.VerificationRecord
	if err := s.db.Where("nonce = ?", nonce).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNonceNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &record, nil
}

// linkForRecord loads the link row for a resolved record.
func (s *verificationService) linkForRecord(record *models.VerificationRecord) (*models.ChannelLink, error) {
	if record.UserID == nil {
		// A resolved record always carries an owner; treat anything else
		// as a store-level atomicity defect.
		return nil, apperrors.WithMessage(apperrors.ErrInternalServer, "resolved nonce has no owner")
	}
	var link models.ChannelLink
	if err := s.db.Where("user_id = ? AND channel_id = ?", *record.UserID, record.ChannelID).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.WithMessage(apperrors.ErrInternalServer, "resolved nonce has no link row")
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &link, nil
}

// createPendingUser materializes an account for a registration-time nonce.
// The user completes their profile (email, password) after first login.
func (s *verificationService) createPendingUser(tx *gorm.DB, channelID models.ChannelID, externalHandle, displayName string) (*models.User, error) {
	placeholder, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	user := &models.User{
		Email:     fmt.Sprintf("%s.%s@pending.chatlink.local", channelID, externalHandle),
		Password:  string(placeholder),
		FirstName: displayName,
		IsActive:  true,
	}
	if err := tx.Create(user).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return user, nil
}
