// Package session implements the Redis-backed session store: creation,
// enumeration with current-session annotation, idempotent revocation,
// and bulk reclamation of expired or revoked records.
package session

import "time"

// Device describes the client that opened the session.
type Device struct {
	ID      string `json:"id,omitempty"`
	Browser string `json:"browser,omitempty"`
	OS      string `json:"os,omitempty"`
	Class   string `json:"class,omitempty"`
}

// Network describes where the session was opened from.
type Network struct {
	IP      string `json:"ip,omitempty"`
	GeoHint string `json:"geo_hint,omitempty"`
}

// Session is a server-tracked record backing an issued bearer token.
// A session belongs to exactly one account. It is destroyed by the
// reclamation job once revoked or expired; until then the record stays
// readable so that revocation state can be inspected.
type Session struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	Handle    string `json:"handle,omitempty"`

	Device  Device  `json:"device"`
	Network Network `json:"network"`

	MFARemembered bool `json:"mfa_remembered"`
	Revoked       bool `json:"revoked"`

	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	ExpiresAt    time.Time `json:"expires_at"`

	LoginSeq uint64 `json:"login_seq,omitempty"`
}

// Live reports whether the session is neither revoked nor expired at now.
func (s *Session) Live(now time.Time) bool {
	return s != nil && !s.Revoked && now.Before(s.ExpiresAt)
}

// View is the listing projection of a session, annotated with whether it
// is the caller's own session.
type View struct {
	Session
	IsCurrent bool `json:"is_current_session"`
}
