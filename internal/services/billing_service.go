package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "chatlink/internal/errors"
	"chatlink/internal/models"
)

// validPlans is the allow-list for plan changes.
var validPlans = map[models.SubscriptionPlan]bool{
	models.PlanFree: true,
	models.PlanPro:  true,
	models.PlanTeam: true,
}

// billingService tracks subscription state. The payment processor owns
// checkout and collection; we only mirror the resulting state.
type billingService struct {
	db *gorm.DB
}

// NewBillingService creates a new BillingServicer.
func NewBillingService(db *gorm.DB) BillingServicer {
	return &billingService{db: db}
}

// GetSubscription returns the user's subscription.
func (s *billingService) GetSubscription(userID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSubscriptionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &sub, nil
}

// EnsureSubscription returns the user's subscription, creating a free one
// when none exists yet.
func (s *billingService) EnsureSubscription(userID string) (*models.Subscription, error) {
	sub, err := s.GetSubscription(userID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, apperrors.ErrSubscriptionNotFound) {
		return nil, err
	}

	sub = &models.Subscription{
		UserID: userID,
		Plan:   models.PlanFree,
		Status: models.SubscriptionActive,
	}
	if err := s.db.Create(sub).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return sub, nil
}

// ApplyProcessorEvent applies a webhook-delivered state change from the
// payment processor, keyed by its subscription identifier.
func (s *billingService) ApplyProcessorEvent(externalSubID string, plan models.SubscriptionPlan, status models.SubscriptionStatus, periodEnd *time.Time) (*models.Subscription, error) {
	if externalSubID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "external subscription id is required")
	}
	if !validPlans[plan] {
		return nil, apperrors.ErrInvalidPlan
	}

	var sub models.Subscription
	if err := s.db.Where("external_sub_id = ?", externalSubID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSubscriptionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	updates := map[string]interface{}{
		"plan":   plan,
		"status": status,
	}
	if periodEnd != nil {
		updates["current_period_end"] = *periodEnd
	}
	if status == models.SubscriptionCanceled && sub.CanceledAt == nil {
		updates["canceled_at"] = time.Now()
	}

	if err := s.db.Model(&sub).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &sub, nil
}

// ChangePlan updates the user's plan directly (admin/backfill path).
func (s *billingService) ChangePlan(userID string, plan models.SubscriptionPlan) (*models.Subscription, error) {
	if !validPlans[plan] {
		return nil, apperrors.ErrInvalidPlan
	}

	sub, err := s.EnsureSubscription(userID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(sub).Updates(map[string]interface{}{
		"plan":   plan,
		"status": models.SubscriptionActive,
	}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return sub, nil
}

// CancelSubscription marks the user's subscription canceled.
func (s *billingService) CancelSubscription(userID string) (*models.Subscription, error) {
	sub, err := s.GetSubscription(userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.db.Model(sub).Updates(map[string]interface{}{
		"status":      models.SubscriptionCanceled,
		"canceled_at": now,
	}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return sub, nil
}
