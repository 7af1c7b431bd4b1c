// Package uuid generates time-ordered identifiers for primary keys.
package uuid

import (
	googleuuid "github.com/google/uuid"
)

// New returns a UUIDv7 string. The leading 48 bits carry a millisecond
// timestamp, so freshly inserted rows cluster at the tail of the index.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		// Random source exhaustion; fall back to v4 rather than fail the insert.
		return googleuuid.New().String()
	}
	return id.String()
}

// IsValid reports whether s parses as a UUID of any version.
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}
