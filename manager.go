// Package authcore is the identity and access core of the pulseboard
// monitoring dashboard: credential and second-factor login, Redis-backed
// sessions with device trust, scope-checked API tokens, and scheduled
// reclamation of dead sessions.
package authcore

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/pulseboard/authcore/capability"
	"github.com/pulseboard/authcore/internal"
	"github.com/pulseboard/authcore/internal/audit"
	"github.com/pulseboard/authcore/internal/metrics"
	"github.com/pulseboard/authcore/schedule"
	"github.com/pulseboard/authcore/session"
	"github.com/pulseboard/authcore/token"
)

// Manager orchestrates the login, MFA, session, and profile flows. It
// starts in the initialising phase; Start moves it through the setup
// check into ready, and every request-path operation is guarded until
// then.
type Manager struct {
	cfg Config

	accounts  AccountProvider
	verifier  CredentialVerifier
	sessions  *session.Store
	tokens    *token.Manager
	devices   *DeviceTrustStore
	tfa       *TfaEngine
	caps      *capability.Registry
	validator *ScopedTokenValidator
	scheduler *schedule.Scheduler

	dispatcher *audit.Dispatcher
	metrics    *metrics.Metrics

	phase         atomic.Int32
	setupRequired atomic.Bool
}

// Phase returns the manager's current startup phase.
func (m *Manager) Phase() Phase {
	return Phase(m.phase.Load())
}

// SetupRequired reports whether the instance has no accounts yet and
// needs first-time setup. Meaningful once Start has run.
func (m *Manager) SetupRequired() bool {
	return m.setupRequired.Load()
}

func (m *Manager) advance(to Phase) error {
	for {
		cur := Phase(m.phase.Load())
		next, err := cur.next(to)
		if err != nil {
			return err
		}
		if m.phase.CompareAndSwap(int32(cur), int32(next)) {
			return nil
		}
	}
}

func (m *Manager) ready() error {
	if m.Phase() != PhaseReady {
		return ErrNotReady
	}
	return nil
}

// Start moves the manager into the ready phase. A parseable stored
// token proves the instance has issued sessions before, so startup goes
// straight to ready and the token is re-validated server-side; when the
// backing session is still live the restored account is returned, and a
// dead session degrades to an unauthenticated start. Without such a
// token startup passes through the setup check first.
func (m *Manager) Start(ctx context.Context, storedToken string) (*PublicAccount, error) {
	var parseErr error
	if storedToken != "" {
		if _, parseErr = m.tokens.Parse(storedToken); parseErr == nil {
			return m.startFromToken(ctx, storedToken)
		}
	}

	if err := m.advance(PhaseCheckingSetup); err != nil {
		return nil, err
	}

	hasAccounts, err := m.accounts.HasAccounts(ctx)
	if err != nil {
		return nil, err
	}
	m.setupRequired.Store(!hasAccounts)

	if err := m.advance(PhaseReady); err != nil {
		return nil, err
	}

	if storedToken != "" {
		m.emitAudit(ctx, EventSessionRestored, "", "", false, parseErr, nil)
	}
	return nil, nil
}

func (m *Manager) startFromToken(ctx context.Context, storedToken string) (*PublicAccount, error) {
	if err := m.advance(PhaseReady); err != nil {
		return nil, err
	}

	account, _, err := m.Validate(ctx, storedToken)
	if err != nil {
		// The session behind the token may have expired or been
		// revoked since; startup proceeds unauthenticated.
		m.emitAudit(ctx, EventSessionRestored, "", "", false, err, nil)
		return nil, nil
	}

	m.emitAudit(ctx, EventSessionRestored, account.ID, "", true, nil, nil)
	return account, nil
}

// Login authenticates handle and secret. For MFA-enabled accounts on an
// untrusted device it returns a result with MFARequired set and creates
// no session. Unknown handles, wrong secrets, and verification timeouts
// all return ErrInvalidCredentials.
func (m *Manager) Login(ctx context.Context, handle, secret string) (*LoginResult, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}

	account, err := m.accounts.GetByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			m.metrics.Inc(metrics.MetricLoginFailure)
			m.emitAudit(ctx, EventLogin, "", "", false, ErrInvalidCredentials, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := m.verifyBounded(ctx, func(vctx context.Context) (bool, error) {
		return m.verifier.Verify(secret, account.PasswordHash)
	})
	if err != nil || !ok {
		m.metrics.Inc(metrics.MetricLoginFailure)
		m.emitAudit(ctx, EventLogin, account.ID, "", false, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	if account.MFAEnabled {
		deviceID := DeviceIDFromContext(ctx)
		trusted, err := m.devices.IsTrusted(ctx, account.ID, deviceID)
		if err != nil {
			return nil, err
		}
		if !trusted {
			m.metrics.Inc(metrics.MetricMFARequired)
			m.emitAudit(ctx, EventLoginMFARequired, account.ID, "", true, nil, nil)
			return &LoginResult{MFARequired: true}, nil
		}
	}

	return m.openSession(ctx, account, account.MFAEnabled)
}

// VerifyMFA completes a login that branched into the MFA challenge. On
// success a session is created; with rememberDevice set the device is
// trusted for the configured window. Wrong codes and unknown handles
// collapse into ErrMFAInvalid; a locked account returns ErrMFALocked.
func (m *Manager) VerifyMFA(ctx context.Context, handle, code string, rememberDevice bool) (*LoginResult, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}

	account, err := m.accounts.GetByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			m.metrics.Inc(metrics.MetricMFAFailure)
			return nil, ErrMFAInvalid
		}
		return nil, err
	}

	usedBackup, err := m.verifyMFABounded(ctx, account.ID, code)
	if err != nil {
		switch {
		case errors.Is(err, ErrMFALocked):
			m.metrics.Inc(metrics.MetricMFALocked)
			m.emitAudit(ctx, EventMFALocked, account.ID, "", false, err, nil)
			return nil, ErrMFALocked
		case errors.Is(err, ErrBackendUnavailable):
			return nil, err
		default:
			// Factor type and failure cause stay hidden.
			m.metrics.Inc(metrics.MetricMFAFailure)
			m.emitAudit(ctx, EventMFAVerify, account.ID, "", false, ErrMFAInvalid, nil)
			return nil, ErrMFAInvalid
		}
	}

	m.metrics.Inc(metrics.MetricMFASuccess)
	if usedBackup {
		m.metrics.Inc(metrics.MetricBackupCodeUsed)
	}
	m.emitAudit(ctx, EventMFAVerify, account.ID, "", true, nil, nil)

	if rememberDevice {
		if deviceID := DeviceIDFromContext(ctx); internal.ValidDeviceID(deviceID) {
			if err := m.devices.Trust(ctx, account.ID, deviceID); err != nil {
				return nil, err
			}
			m.metrics.Inc(metrics.MetricDeviceTrusted)
			m.emitAudit(ctx, EventDeviceTrusted, account.ID, "", true, nil, nil)
		}
	}

	return m.openSession(ctx, account, rememberDevice)
}

// Logout revokes the caller's session best-effort. A failed revoke is
// logged and audited but never surfaced: the client has already
// discarded its local state.
func (m *Manager) Logout(ctx context.Context, tokenStr string) {
	claims, err := m.tokens.Parse(tokenStr)
	if err != nil {
		m.emitAudit(ctx, EventLogout, "", "", false, err, nil)
		return
	}

	if err := m.sessions.Revoke(ctx, claims.SID); err != nil && !errors.Is(err, session.ErrAlreadyRevoked) {
		log.Printf("authcore: logout revoke failed for session %s: %v", claims.SID, err)
		m.emitAudit(ctx, EventLogout, claims.UID, claims.SID, false, err, nil)
		return
	}

	m.metrics.Inc(metrics.MetricLogout)
	m.emitAudit(ctx, EventLogout, claims.UID, claims.SID, true, nil, nil)
}

// Validate checks a bearer token against its backing session and
// returns the account projection and session record. Activity is
// touched as a side effect.
func (m *Manager) Validate(ctx context.Context, tokenStr string) (*PublicAccount, *session.Session, error) {
	claims, err := m.tokens.Parse(tokenStr)
	if err != nil {
		return nil, nil, ErrSessionNotFound
	}

	sess, err := m.sessions.Get(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, err
	}
	if sess.Revoked {
		return nil, nil, ErrSessionRevoked
	}
	if !sess.Live(time.Now()) {
		return nil, nil, ErrSessionNotFound
	}

	account, err := m.accounts.GetByID(ctx, sess.AccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, err
	}

	if err := m.sessions.Touch(ctx, sess.ID); err != nil {
		log.Printf("authcore: touch failed for session %s: %v", sess.ID, err)
	}

	pub := account.Public()
	return &pub, sess, nil
}

// AuthorizeToken runs the scope check for a programmatic API token.
func (m *Manager) AuthorizeToken(ctx context.Context, apiToken *APIToken, resource, action string) error {
	err := m.validatorAuthorize(apiToken, resource, action)
	switch {
	case err == nil:
		m.metrics.Inc(metrics.MetricScopeAllowed)
	case errors.Is(err, ErrScopeConfigInvalid):
		m.metrics.Inc(metrics.MetricScopeConfigInvalid)
	case errors.Is(err, ErrScopeDenied):
		m.metrics.Inc(metrics.MetricScopeDenied)
	}

	accountID := ""
	if apiToken != nil {
		accountID = apiToken.AccountID
	}
	m.emitAudit(ctx, EventScopeDecision, accountID, "", err == nil, err, map[string]string{
		"resource": resource,
		"action":   action,
	})

	return err
}

func (m *Manager) validatorAuthorize(apiToken *APIToken, resource, action string) error {
	return m.validator.Authorize(apiToken, resource, action)
}

// Close shuts down the scheduler and audit dispatcher. In-flight work
// finishes first.
func (m *Manager) Close() {
	if m.scheduler != nil {
		m.scheduler.Close()
	}
	m.dispatcher.Close()
}

// openSession creates the session record, bumps the login counter, and
// issues the bearer token.
func (m *Manager) openSession(ctx context.Context, account *AccountRecord, mfaRemembered bool) (*LoginResult, error) {
	seq, err := m.accounts.IncrementLoginCount(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &session.Session{
		ID:        internal.NewSessionID(),
		AccountID: account.ID,
		Handle:    account.Handle,
		Device: session.Device{
			ID:      DeviceIDFromContext(ctx),
			Browser: UserAgentFromContext(ctx),
		},
		Network: session.Network{
			IP:      ClientIPFromContext(ctx),
			GeoHint: GeoHintFromContext(ctx),
		},
		MFARemembered: mfaRemembered,
		CreatedAt:     now,
		LastActiveAt:  now,
		ExpiresAt:     now.Add(m.cfg.Session.TTL),
		LoginSeq:      seq,
	}

	if err := m.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	bearer, err := m.tokens.Issue(sess.ID, account.ID, account.Handle)
	if err != nil {
		return nil, err
	}

	m.metrics.Inc(metrics.MetricLoginSuccess)
	m.metrics.Inc(metrics.MetricSessionCreated)
	m.emitAudit(ctx, EventLogin, account.ID, sess.ID, true, nil, nil)

	return &LoginResult{
		Token:     bearer,
		Account:   account.Public(),
		SessionID: sess.ID,
	}, nil
}

// verifyBounded runs a verification under the configured timeout. A
// deadline or cancellation fails closed.
func (m *Manager) verifyBounded(ctx context.Context, fn func(ctx context.Context) (bool, error)) (bool, error) {
	vctx, cancel := context.WithTimeout(ctx, m.cfg.VerifyTimeout)
	defer cancel()

	type outcome struct {
		ok  bool
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		ok, err := fn(vctx)
		done <- outcome{ok: ok, err: err}
	}()

	select {
	case out := <-done:
		return out.ok, out.err
	case <-vctx.Done():
		return false, vctx.Err()
	}
}

// verifyMFABounded runs the second-factor check under the configured
// timeout, preserving the lockout error across the boundary.
func (m *Manager) verifyMFABounded(ctx context.Context, accountID, code string) (bool, error) {
	vctx, cancel := context.WithTimeout(ctx, m.cfg.VerifyTimeout)
	defer cancel()

	type outcome struct {
		usedBackup bool
		err        error
	}
	done := make(chan outcome, 1)
	go func() {
		usedBackup, err := m.tfa.Verify(vctx, accountID, code)
		done <- outcome{usedBackup: usedBackup, err: err}
	}()

	select {
	case out := <-done:
		return out.usedBackup, out.err
	case <-vctx.Done():
		return false, ErrMFAInvalid
	}
}
