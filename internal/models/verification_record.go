package models

import "time"

// VerificationRecord binds a single-use verification nonce to a channel and,
// once an account exists, to its owning user. A nil UserID means the nonce
// was issued during registration, before the account was created.
//
// Records are never deleted; expiry is enforced by filtering lookups on
// expires_at, not by removing rows.
type VerificationRecord struct {
	Base
	Nonce          string    `gorm:"type:uuid;uniqueIndex;not null" json:"nonce"`
	ChannelID      ChannelID `gorm:"size:16;not null;index" json:"channel_id"`
	UserID         *string   `gorm:"type:uuid;index" json:"user_id,omitempty"`
	ResolvedHandle *string   `json:"resolved_handle,omitempty"`
	ExpiresAt      time.Time `gorm:"not null" json:"expires_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// Expired reports whether the record's lifetime has passed at the given instant.
func (r *VerificationRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Resolved reports whether the nonce has been finalized to a handle.
func (r *VerificationRecord) Resolved() bool {
	return r.ResolvedHandle != nil
}
