package authcore

import (
	"context"
	"errors"

	"github.com/pulseboard/authcore/internal/metrics"
	"github.com/pulseboard/authcore/session"
)

// ListSessions returns the caller's live sessions, each annotated with
// whether it is the session behind the presented token.
func (m *Manager) ListSessions(ctx context.Context, tokenStr string) ([]session.View, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}

	account, sess, err := m.Validate(ctx, tokenStr)
	if err != nil {
		return nil, err
	}

	return m.sessions.List(ctx, account.ID, sess.ID)
}

// RevokeSession revokes one of the caller's sessions by ID. Revoking an
// already-revoked session succeeds (idempotent); a session belonging to
// another account reads as not found.
func (m *Manager) RevokeSession(ctx context.Context, tokenStr, sessionID string) error {
	if err := m.ready(); err != nil {
		return err
	}

	account, _, err := m.Validate(ctx, tokenStr)
	if err != nil {
		return err
	}

	target, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	if target.AccountID != account.ID {
		return ErrSessionNotFound
	}

	err = m.sessions.Revoke(ctx, sessionID)
	switch {
	case err == nil:
		m.metrics.Inc(metrics.MetricSessionRevoked)
		m.emitAudit(ctx, EventSessionRevoke, account.ID, sessionID, true, nil, nil)
		return nil
	case errors.Is(err, session.ErrAlreadyRevoked):
		m.emitAudit(ctx, EventSessionRevoke, account.ID, sessionID, true, nil, map[string]string{
			"already_revoked": "true",
		})
		return nil
	case errors.Is(err, session.ErrNotFound):
		return ErrSessionNotFound
	default:
		return err
	}
}

// RevokeOtherSessions revokes every live session of the caller except
// the one behind the presented token, and returns the count revoked.
func (m *Manager) RevokeOtherSessions(ctx context.Context, tokenStr string) (int, error) {
	if err := m.ready(); err != nil {
		return 0, err
	}

	account, sess, err := m.Validate(ctx, tokenStr)
	if err != nil {
		return 0, err
	}

	revoked, err := m.sessions.RevokeAllExcept(ctx, account.ID, sess.ID)
	if err != nil {
		return revoked, err
	}

	for i := 0; i < revoked; i++ {
		m.metrics.Inc(metrics.MetricSessionRevoked)
	}
	m.emitAudit(ctx, EventSessionRevokeAll, account.ID, sess.ID, true, nil, nil)

	return revoked, nil
}
