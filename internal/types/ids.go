package types

import (
	"time"

	"github.com/google/uuid"
)

// NewViewID generates a UUIDv7 view identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewViewID() ViewID {
	return ViewID(uuid.Must(uuid.NewV7()).String())
}

// NewRecordKey generates a UUIDv7 record key for records created without one.
func NewRecordKey() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewAPIKeyID generates the row identifier of a stored API key.
func NewAPIKeyID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ParseViewID validates and converts a string to ViewID.
func ParseViewID(s string) (ViewID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return ViewID(s), nil
}

// ViewIDTime extracts the timestamp embedded in a UUIDv7 view ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func ViewIDTime(id ViewID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
