package testutil

import (
	"errors"
	"testing"

	apperrors "chatlink/internal/errors"
	"chatlink/internal/uuid"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertAppError checks that err is an *AppError with the expected code,
// reporting the code, status, and message on mismatch.
func AssertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}

	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (status %d, message: %s)",
			expectedCode, appErr.Code, appErr.StatusCode, appErr.Message)
	}
}

// AssertValidUUID checks that id parses as a UUID, the format of every
// persisted primary key.
func AssertValidUUID(t *testing.T, id string) {
	t.Helper()

	if !uuid.IsValid(id) {
		t.Errorf("expected a UUID, got %q", id)
	}
}
