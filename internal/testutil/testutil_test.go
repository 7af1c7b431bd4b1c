package testutil_test

import (
	"testing"
	"time"

	"chatlink/internal/errors"
	"chatlink/internal/models"
	"chatlink/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	// Verify all tables exist by doing a simple count query on each model.
	var count int64
	for _, table := range []string{"users", "verification_records", "channel_links", "messages", "subscriptions", "audit_logs"} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	testutil.AssertValidUUID(t, user.ID)

	signedUp := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	backdated := testutil.CreateTestUserAt(t, db, signedUp)
	if !backdated.CreatedAt.Equal(signedUp) {
		t.Errorf("expected created_at %v, got %v", signedUp, backdated.CreatedAt)
	}

	link := testutil.CreateTestLink(t, db, user.ID, models.ChannelTelegram)
	if link.VerifiedAt == nil {
		t.Error("expected link to be verified")
	}

	msg := testutil.CreateTestMessage(t, db, user.ID, time.Now())
	if msg.UserID != user.ID {
		t.Errorf("expected message user %s, got %s", user.ID, msg.UserID)
	}

	sub := testutil.CreateTestSubscription(t, db, user.ID, models.PlanPro)
	if sub.Plan != models.PlanPro {
		t.Errorf("expected pro plan, got %s", sub.Plan)
	}
}

func TestAssertAppError(t *testing.T) {
	err := errors.WithMessage(errors.ErrNonceNotFound, "custom message")
	testutil.AssertAppError(t, err, "NONCE_NOT_FOUND")
}

func TestAssertNoError(t *testing.T) {
	testutil.AssertNoError(t, nil)
}

func TestAssertValidUUID(t *testing.T) {
	testutil.AssertValidUUID(t, "0191b6a8-1e9b-7c1a-8f2e-3d4c5b6a7f80")
}
