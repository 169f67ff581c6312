package authcore

import "errors"

// Sentinel errors returned by the identity core. Authentication
// failures collapse into ErrInvalidCredentials or ErrMFAInvalid so that
// no response reveals whether a handle exists or which factor failed.
var (
	// ErrInvalidCredentials is the single error for any failed
	// credential check, including unknown handles and verification
	// timeouts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrMFAInvalid is the single error for any failed second-factor
	// check: wrong code, wrong backup code, or a verification timeout.
	ErrMFAInvalid = errors.New("invalid mfa code")

	// ErrMFALocked is returned when an account exceeded the MFA failure
	// threshold within the lockout window.
	ErrMFALocked = errors.New("mfa temporarily locked")

	// ErrMFANotEnabled is returned by second-factor operations on an
	// account without an enabled factor.
	ErrMFANotEnabled = errors.New("mfa not enabled")

	// ErrMFAAlreadyEnabled is returned by Setup when a factor is
	// already enabled; it must be disabled first.
	ErrMFAAlreadyEnabled = errors.New("mfa already enabled")

	// ErrScopeConfigInvalid is returned when a token's scope grant is
	// structurally malformed. The request is denied (fail closed).
	ErrScopeConfigInvalid = errors.New("scope configuration invalid")

	// ErrScopeDenied is returned when a scope grant does not permit the
	// requested action on the requested resource.
	ErrScopeDenied = errors.New("scope denied")

	// ErrSessionNotFound is returned when a referenced session does not
	// exist or has been reclaimed.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionRevoked is returned when validating a token whose
	// session has been revoked.
	ErrSessionRevoked = errors.New("session revoked")

	// ErrReclamationFailed wraps a failed session-reclamation run.
	ErrReclamationFailed = errors.New("session reclamation failed")

	// ErrNotReady guards operations invoked before the manager reached
	// the ready phase.
	ErrNotReady = errors.New("auth manager not ready")

	// ErrHandleTaken is returned by Signup for a duplicate handle.
	ErrHandleTaken = errors.New("handle already taken")

	// ErrAccountNotFound is returned by provider lookups by ID. Lookups
	// by handle during login collapse into ErrInvalidCredentials.
	ErrAccountNotFound = errors.New("account not found")

	// ErrBackendUnavailable wraps storage transport failures.
	ErrBackendUnavailable = errors.New("backend unavailable")
)
