package services

import (
	"time"

	"chatlink/internal/models"
	"chatlink/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// IssuedNonce is the result of starting a verification attempt.
type IssuedNonce struct {
	Nonce     string    `json:"nonce"`
	DeepLink  string    `json:"deep_link"`
	Command   string    `json:"command"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VerificationState is the server-side view of a verification attempt.
type VerificationState string

const (
	VerificationPending VerificationState = "pending"
	VerificationDone    VerificationState = "done"
	VerificationExpired VerificationState = "expired"
)

// VerificationStatus is returned by status lookups during polling.
type VerificationStatus struct {
	State VerificationState   `json:"status"`
	Link  *models.ChannelLink `json:"link,omitempty"`
}

// VerificationServicer defines the contract for the channel verification protocol.
type VerificationServicer interface {
	// IssueNonce starts a verification attempt for the channel. A nil
	// requestingUserID marks a registration-time nonce with no owner yet.
	IssueNonce(channelID models.ChannelID, requestingUserID *string) (*IssuedNonce, error)
	// Status reports the current state of a nonce for status polling.
	Status(nonce string) (*VerificationStatus, error)
	// Finalize resolves a nonce to a confirmed external handle and
	// materializes the channel link. Idempotent on repeated delivery.
	Finalize(nonce, externalHandle, displayName string) (*models.ChannelLink, error)
	// GetUserLinks returns all verified links for a user.
	GetUserLinks(userID string) ([]models.ChannelLink, error)
	// GetLinkByHandle resolves a channel handle back to its link row.
	GetLinkByHandle(channelID models.ChannelID, externalHandle string) (*models.ChannelLink, error)
	// Unlink removes a user's link on one channel.
	Unlink(userID string, channelID models.ChannelID) error
}

// MessageFilter holds optional filter parameters for listing messages.
type MessageFilter struct {
	FromDate  *time.Time
	ToDate    *time.Time
	ChannelID *models.ChannelID
	Kind      *models.MessageKind
}

// MessageServicer defines the contract for the message/event store.
type MessageServicer interface {
	RecordInbound(channelID models.ChannelID, externalHandle, body string, occurredAt time.Time) (*models.Message, error)
	RecordForUser(userID string, channelID models.ChannelID, kind models.MessageKind, body string, occurredAt time.Time) (*models.Message, error)
	GetUserMessages(userID string, page pagination.PageRequest, filter MessageFilter) (*pagination.PageResponse[models.Message], error)
}

// BillingServicer defines the contract for subscription state management.
// Checkout, portal sessions, and payment collection belong to the external
// processor; this service only tracks the resulting subscription state.
type BillingServicer interface {
	GetSubscription(userID string) (*models.Subscription, error)
	EnsureSubscription(userID string) (*models.Subscription, error)
	ApplyProcessorEvent(externalSubID string, plan models.SubscriptionPlan, status models.SubscriptionStatus, periodEnd *time.Time) (*models.Subscription, error)
	ChangePlan(userID string, plan models.SubscriptionPlan) (*models.Subscription, error)
	CancelSubscription(userID string) (*models.Subscription, error)
}

// AuditServicer defines the contract for audit log recording.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]any)
}
