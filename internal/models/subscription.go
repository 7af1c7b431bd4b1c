package models

import "time"

// SubscriptionPlan enumerates the billable plans.
type SubscriptionPlan string

const (
	PlanFree SubscriptionPlan = "free"
	PlanPro  SubscriptionPlan = "pro"
	PlanTeam SubscriptionPlan = "team"
)

// SubscriptionStatus mirrors the payment processor's lifecycle states.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Subscription holds the billing state for one user. The processor's own
// customer and subscription identifiers are stored as opaque strings; all
// checkout and portal mechanics live with the processor.
type Subscription struct {
	Base
	UserID             string             `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Plan               SubscriptionPlan   `gorm:"size:16;not null;default:'free'" json:"plan"`
	Status             SubscriptionStatus `gorm:"size:16;not null;default:'active'" json:"status"`
	ExternalCustomerID string             `gorm:"index" json:"-"`
	ExternalSubID      string             `gorm:"index" json:"-"`
	CurrentPeriodEnd   *time.Time         `json:"current_period_end,omitempty"`
	CanceledAt         *time.Time         `json:"canceled_at,omitempty"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
