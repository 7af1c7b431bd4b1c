package models

import "time"

// ChannelLink represents a verified link between a user and an external chat
// handle on one channel. Unique on (user_id, channel_id).
type ChannelLink struct {
	Base
	UserID         string     `gorm:"type:uuid;not null;uniqueIndex:idx_user_channel" json:"user_id"`
	ChannelID      ChannelID  `gorm:"size:16;not null;uniqueIndex:idx_user_channel" json:"channel_id"`
	ExternalHandle string     `gorm:"not null;index" json:"external_handle"`
	DisplayName    string     `json:"display_name,omitempty"`
	VerifiedAt     *time.Time `json:"verified_at,omitempty"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
