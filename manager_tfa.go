package authcore

import (
	"context"
	"log"

	"github.com/pulseboard/authcore/internal/metrics"
)

// SetupTFA starts second-factor enrollment for the caller's account.
func (m *Manager) SetupTFA(ctx context.Context, tokenStr string) (*TFASetup, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}

	account, _, err := m.Validate(ctx, tokenStr)
	if err != nil {
		return nil, err
	}

	setup, err := m.tfa.Setup(ctx, account.ID, account.Handle)
	if err != nil {
		m.emitAudit(ctx, EventTFASetup, account.ID, "", false, err, nil)
		return nil, err
	}

	m.emitAudit(ctx, EventTFASetup, account.ID, "", true, nil, nil)
	return setup, nil
}

// VerifyTFASetup confirms enrollment with a first code, enables the
// factor on the account, and returns the one-time backup codes.
func (m *Manager) VerifyTFASetup(ctx context.Context, tokenStr, code string) ([]string, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}

	account, _, err := m.Validate(ctx, tokenStr)
	if err != nil {
		return nil, err
	}

	codes, err := m.tfa.VerifySetup(ctx, account.ID, code)
	if err != nil {
		m.emitAudit(ctx, EventTFAEnable, account.ID, "", false, err, nil)
		return nil, err
	}

	if err := m.accounts.SetMFAEnabled(ctx, account.ID, true); err != nil {
		// The credential must not stay active while logins still skip
		// the challenge; drop it so enrollment can be retried.
		if rerr := m.tfa.Disable(ctx, account.ID); rerr != nil {
			log.Printf("authcore: tfa enable rollback failed for account %s: %v", account.ID, rerr)
		}
		m.emitAudit(ctx, EventTFAEnable, account.ID, "", false, err, nil)
		return nil, err
	}

	m.metrics.Inc(metrics.MetricTFAEnabled)
	m.emitAudit(ctx, EventTFAEnable, account.ID, "", true, nil, nil)
	return codes, nil
}

// DisableTFA removes the second factor after re-verifying the account
// password. Device trust entries are dropped with it.
func (m *Manager) DisableTFA(ctx context.Context, tokenStr, password string) error {
	if err := m.ready(); err != nil {
		return err
	}

	account, _, err := m.Validate(ctx, tokenStr)
	if err != nil {
		return err
	}

	record, err := m.accounts.GetByID(ctx, account.ID)
	if err != nil {
		return err
	}

	ok, err := m.verifyBounded(ctx, func(vctx context.Context) (bool, error) {
		return m.verifier.Verify(password, record.PasswordHash)
	})
	if err != nil || !ok {
		m.emitAudit(ctx, EventTFADisable, account.ID, "", false, ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	if err := m.tfa.Disable(ctx, account.ID); err != nil {
		return err
	}
	if err := m.accounts.SetMFAEnabled(ctx, account.ID, false); err != nil {
		return err
	}
	if err := m.devices.ForgetAll(ctx, account.ID); err != nil {
		return err
	}

	m.metrics.Inc(metrics.MetricTFADisabled)
	m.emitAudit(ctx, EventTFADisable, account.ID, "", true, nil, nil)
	return nil
}

// RegenerateBackupCodes replaces the caller's unused backup codes and
// returns the new plaintext set.
func (m *Manager) RegenerateBackupCodes(ctx context.Context, tokenStr string) ([]string, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}

	account, _, err := m.Validate(ctx, tokenStr)
	if err != nil {
		return nil, err
	}

	codes, err := m.tfa.RegenerateBackupCodes(ctx, account.ID)
	if err != nil {
		m.emitAudit(ctx, EventBackupRegenerate, account.ID, "", false, err, nil)
		return nil, err
	}

	m.metrics.Inc(metrics.MetricBackupCodesRegenerated)
	m.emitAudit(ctx, EventBackupRegenerate, account.ID, "", true, nil, nil)
	return codes, nil
}
