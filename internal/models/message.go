package models

import "time"

// MessageKind classifies an event row in the message store.
type MessageKind string

const (
	MessageInbound  MessageKind = "inbound"
	MessageOutbound MessageKind = "outbound"
	MessageSystem   MessageKind = "system"
)

// Message is an event row in the message store. The analytics engine pages
// through this table; OccurredAt is the timestamp every window filter uses.
type Message struct {
	Base
	UserID     string      `gorm:"type:uuid;not null;index:idx_messages_user_time" json:"user_id"`
	LinkID     *string     `gorm:"type:uuid;index" json:"link_id,omitempty"`
	ChannelID  ChannelID   `gorm:"size:16;not null;index" json:"channel_id"`
	Kind       MessageKind `gorm:"size:16;not null;default:'inbound'" json:"kind"`
	Body       string      `json:"body,omitempty"`
	OccurredAt time.Time   `gorm:"not null;index:idx_messages_user_time;index" json:"occurred_at"`

	User User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Link *ChannelLink `gorm:"foreignKey:LinkID" json:"link,omitempty"`
}
