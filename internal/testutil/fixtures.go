package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"chatlink/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestAdmin creates an admin user.
func CreateTestAdmin(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := CreateTestUser(t, db)
	if err := db.Model(user).Update("is_admin", true).Error; err != nil {
		t.Fatalf("failed to promote test admin: %v", err)
	}
	user.IsAdmin = true
	return user
}

// CreateTestUserAt creates a user whose created_at is backdated to signedUp.
// Cohort and activation metrics key off this timestamp.
func CreateTestUserAt(t *testing.T, db *gorm.DB, signedUp time.Time) *models.User {
	t.Helper()

	user := CreateTestUser(t, db)
	if err := db.Model(user).Update("created_at", signedUp).Error; err != nil {
		t.Fatalf("failed to backdate test user: %v", err)
	}
	user.CreatedAt = signedUp
	return user
}

// CreateTestLink creates a verified channel link for a user.
func CreateTestLink(t *testing.T, db *gorm.DB, userID string, channelID models.ChannelID) *models.ChannelLink {
	t.Helper()

	now := time.Now()
	link := &models.ChannelLink{
		UserID:         userID,
		ChannelID:      channelID,
		ExternalHandle: fmt.Sprintf("handle%d", nextID()),
		VerifiedAt:     &now,
	}
	if err := db.Create(link).Error; err != nil {
		t.Fatalf("failed to create test link: %v", err)
	}
	return link
}

// CreateTestMessage creates a message event for a user at the given instant.
func CreateTestMessage(t *testing.T, db *gorm.DB, userID string, occurredAt time.Time) *models.Message {
	t.Helper()

	msg := &models.Message{
		UserID:     userID,
		ChannelID:  models.ChannelTelegram,
		Kind:       models.MessageInbound,
		Body:       fmt.Sprintf("message %d", nextID()),
		OccurredAt: occurredAt,
	}
	if err := db.Create(msg).Error; err != nil {
		t.Fatalf("failed to create test message: %v", err)
	}
	return msg
}

// CreateTestSubscription creates an active subscription on the given plan.
func CreateTestSubscription(t *testing.T, db *gorm.DB, userID string, plan models.SubscriptionPlan) *models.Subscription {
	t.Helper()

	sub := &models.Subscription{
		UserID: userID,
		Plan:   plan,
		Status: models.SubscriptionActive,
	}
	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("failed to create test subscription: %v", err)
	}
	return sub
}
