package internal

import "github.com/google/uuid"

// NewSessionID returns a fresh opaque session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// NewDeviceID returns a fresh client device identifier. Clients persist
// this value and replay it on subsequent logins.
func NewDeviceID() string {
	return uuid.NewString()
}

// ValidDeviceID reports whether v is a well-formed device identifier.
// Device IDs are client-supplied and must never be trusted beyond shape.
func ValidDeviceID(v string) bool {
	if v == "" {
		return false
	}
	_, err := uuid.Parse(v)
	return err == nil
}
