package authcore

import (
	"context"
	"errors"
	"strings"

	"github.com/pulseboard/authcore/capability"
	"github.com/pulseboard/authcore/internal/metrics"
)

// Signup creates an account and opens its first session. Creating the
// first account clears the instance's first-time-setup flag.
func (m *Manager) Signup(ctx context.Context, input CreateAccountInput) (*LoginResult, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}

	input.Handle = strings.TrimSpace(input.Handle)
	if input.Handle == "" || input.Secret == "" {
		return nil, errors.New("handle and secret are required")
	}
	if input.Role == "" {
		input.Role = "viewer"
	}
	if _, err := m.caps.Resolve(input.Role); err != nil {
		return nil, err
	}

	hash, err := m.verifier.Hash(input.Secret)
	if err != nil {
		return nil, err
	}

	account := &AccountRecord{
		Handle:       input.Handle,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
	}
	if err := m.accounts.Create(ctx, account); err != nil {
		m.emitAudit(ctx, EventSignup, "", "", false, err, nil)
		return nil, err
	}

	if m.setupRequired.CompareAndSwap(true, false) {
		if err := m.accounts.SetFirstSetupDone(ctx, account.ID); err != nil {
			return nil, err
		}
	}

	m.emitAudit(ctx, EventSignup, account.ID, "", true, nil, nil)
	return m.openSession(ctx, account, false)
}

// UpdateProfile mutates the caller's account profile fields.
func (m *Manager) UpdateProfile(ctx context.Context, tokenStr, email string) (*PublicAccount, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}

	account, _, err := m.Validate(ctx, tokenStr)
	if err != nil {
		return nil, err
	}

	if err := m.accounts.UpdateProfile(ctx, account.ID, email); err != nil {
		m.emitAudit(ctx, EventProfileUpdate, account.ID, "", false, err, nil)
		return nil, err
	}

	m.emitAudit(ctx, EventProfileUpdate, account.ID, "", true, nil, nil)

	updated, err := m.accounts.GetByID(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	pub := updated.Public()
	return &pub, nil
}

// ChangePassword verifies the current secret and stores a hash of the
// new one. Other live sessions are revoked only when the cascade policy
// is enabled; the caller's own session always survives.
func (m *Manager) ChangePassword(ctx context.Context, tokenStr, current, next string) error {
	if err := m.ready(); err != nil {
		return err
	}

	account, sess, err := m.Validate(ctx, tokenStr)
	if err != nil {
		return err
	}

	record, err := m.accounts.GetByID(ctx, account.ID)
	if err != nil {
		return err
	}

	ok, err := m.verifyBounded(ctx, func(vctx context.Context) (bool, error) {
		return m.verifier.Verify(current, record.PasswordHash)
	})
	if err != nil || !ok {
		m.emitAudit(ctx, EventPasswordChange, account.ID, "", false, ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	hash, err := m.verifier.Hash(next)
	if err != nil {
		return err
	}
	if err := m.accounts.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		m.emitAudit(ctx, EventPasswordChange, account.ID, "", false, err, nil)
		return err
	}

	if m.cfg.CascadeOnPasswordChange {
		revoked, err := m.sessions.RevokeAllExcept(ctx, account.ID, sess.ID)
		if err != nil {
			return err
		}
		for i := 0; i < revoked; i++ {
			m.metrics.Inc(metrics.MetricSessionRevoked)
		}
	}

	m.emitAudit(ctx, EventPasswordChange, account.ID, "", true, nil, nil)
	return nil
}

// RefreshPermissions re-reads the caller's capability set from the
// registry. Read-only and idempotent.
func (m *Manager) RefreshPermissions(ctx context.Context, tokenStr string) (capability.Set, error) {
	if err := m.ready(); err != nil {
		return capability.Set{}, err
	}

	account, _, err := m.Validate(ctx, tokenStr)
	if err != nil {
		return capability.Set{}, err
	}

	return m.caps.Resolve(account.Role)
}
