package integration

import (
	"net/http"
	"testing"
)

func TestDashboardFlow_AdminOnly(t *testing.T) {
	app := setupApp(t)
	_, _, userID := app.registerUser(t, "admin@test.com", "password123")

	// Plain user is refused
	accessToken, _ := app.loginUser(t, "admin@test.com", "password123")
	rec := app.request("GET", "/api/v1/admin/dashboard", "", accessToken)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d: %s", rec.Code, rec.Body.String())
	}

	// Promote and log in again so the token carries the admin claim
	app.makeAdmin(t, userID)
	adminToken, _ := app.loginUser(t, "admin@test.com", "password123")

	rec = app.request("GET", "/api/v1/admin/dashboard", "", adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	if result["ranges"] == nil {
		t.Error("expected resolved ranges in dashboard")
	}
	if result["engagement"] == nil {
		t.Error("expected engagement widget in dashboard")
	}
}

func TestDashboardFlow_CountsLinkedActivity(t *testing.T) {
	app := setupApp(t)

	// An admin to read the dashboard
	_, _, adminID := app.registerUser(t, "reader@test.com", "password123")
	app.makeAdmin(t, adminID)
	adminToken, _ := app.loginUser(t, "reader@test.com", "password123")

	// A user with a linked channel and some activity
	userToken, _, _ := app.registerUser(t, "active@test.com", "password123")
	nonce := app.generateNonce(t, userToken, "telegram")
	app.finalizeNonce(t, nonce, "tg-dash")
	for i := 0; i < 3; i++ {
		rec := app.internalRequest("POST", "/api/v1/internal/messages",
			`{"channel_id":"telegram","external_handle":"tg-dash","body":"ping"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("ingest failed: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec := app.request("GET", "/api/v1/admin/dashboard?range=7d", "", adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	active := result["active_users"].(map[string]interface{})
	if active["total_active"] != float64(1) {
		t.Errorf("expected 1 active user, got %v", active["total_active"])
	}
	if active["events"] != float64(3) {
		t.Errorf("expected 3 events, got %v", active["events"])
	}
}
