package authcore

import (
	"context"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TfaEngine enrolls, verifies, and disables the time-based second
// factor, and manages single-use backup codes. Failure responses never
// reveal which factor type was tried; everything collapses into
// ErrMFAInvalid or ErrMFALocked.
type TfaEngine struct {
	provider TFAProvider
	limiter  *mfaLimiter
	cfg      MFAConfig
	now      func() time.Time
}

func NewTfaEngine(provider TFAProvider, limiter *mfaLimiter, cfg MFAConfig) *TfaEngine {
	return &TfaEngine{
		provider: provider,
		limiter:  limiter,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Setup generates a fresh shared secret for the account and stores it
// in disabled state. The secret and provisioning URL are returned to
// the client exactly once; verification of a first code (VerifySetup)
// is what enables the factor.
func (e *TfaEngine) Setup(ctx context.Context, accountID, accountName string) (*TFASetup, error) {
	cred, err := e.provider.GetTFACredential(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if cred != nil && cred.Enabled {
		return nil, ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.cfg.Issuer,
		AccountName: accountName,
	})
	if err != nil {
		return nil, err
	}

	if err := e.provider.SaveTFACredential(ctx, accountID, &TFACredential{
		Secret:  key.Secret(),
		Enabled: false,
	}); err != nil {
		return nil, err
	}

	return &TFASetup{Secret: key.Secret(), URL: key.URL()}, nil
}

// VerifySetup checks the first code against the pending secret. On
// success the factor is enabled and the plaintext backup codes are
// returned, the only time they exist outside the client.
func (e *TfaEngine) VerifySetup(ctx context.Context, accountID, code string) ([]string, error) {
	cred, err := e.provider.GetTFACredential(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if cred == nil || cred.Enabled {
		return nil, ErrMFAInvalid
	}

	if !e.validateCode(ctx, code, cred.Secret) {
		return nil, ErrMFAInvalid
	}

	codes, hashes, err := generateBackupCodes(e.cfg.BackupCodeCount)
	if err != nil {
		return nil, err
	}

	cred.Enabled = true
	cred.BackupCodeHashes = hashes
	if err := e.provider.SaveTFACredential(ctx, accountID, cred); err != nil {
		return nil, err
	}

	return codes, nil
}

// Verify checks a login-time second factor: first the time-based code
// with one period of skew either side, then the backup code set. It
// returns whether a backup code was consumed. Failures are counted
// toward the per-account lockout.
func (e *TfaEngine) Verify(ctx context.Context, accountID, code string) (bool, error) {
	locked, err := e.limiter.Locked(ctx, accountID)
	if err != nil {
		return false, err
	}
	if locked {
		return false, ErrMFALocked
	}

	cred, err := e.provider.GetTFACredential(ctx, accountID)
	if err != nil {
		return false, err
	}
	if cred == nil || !cred.Enabled {
		return false, ErrMFANotEnabled
	}

	if e.validateCode(ctx, code, cred.Secret) {
		if err := e.limiter.Reset(ctx, accountID); err != nil {
			return false, err
		}
		return false, nil
	}

	if remaining, ok := consumeBackupCode(cred.BackupCodeHashes, code); ok {
		cred.BackupCodeHashes = remaining
		if err := e.provider.SaveTFACredential(ctx, accountID, cred); err != nil {
			return false, err
		}
		if err := e.limiter.Reset(ctx, accountID); err != nil {
			return false, err
		}
		return true, nil
	}

	nowLocked, err := e.limiter.RecordFailure(ctx, accountID)
	if err != nil {
		return false, err
	}
	if nowLocked {
		return false, ErrMFALocked
	}
	return false, ErrMFAInvalid
}

// Enabled reports whether the account has an enabled factor.
func (e *TfaEngine) Enabled(ctx context.Context, accountID string) (bool, error) {
	cred, err := e.provider.GetTFACredential(ctx, accountID)
	if err != nil {
		return false, err
	}
	return cred != nil && cred.Enabled, nil
}

// Disable destroys the credential: secret and backup codes are gone.
// Callers verify the account password before invoking this.
func (e *TfaEngine) Disable(ctx context.Context, accountID string) error {
	return e.provider.DeleteTFACredential(ctx, accountID)
}

// RegenerateBackupCodes replaces the unused backup set and returns the
// new plaintext codes. Previously issued codes stop working.
func (e *TfaEngine) RegenerateBackupCodes(ctx context.Context, accountID string) ([]string, error) {
	cred, err := e.provider.GetTFACredential(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if cred == nil || !cred.Enabled {
		return nil, ErrMFANotEnabled
	}

	codes, hashes, err := generateBackupCodes(e.cfg.BackupCodeCount)
	if err != nil {
		return nil, err
	}

	cred.BackupCodeHashes = hashes
	if err := e.provider.SaveTFACredential(ctx, accountID, cred); err != nil {
		return nil, err
	}

	return codes, nil
}

// validateCode checks a time-based code with ±1 period of clock skew.
// A cancelled or expired context fails closed.
func (e *TfaEngine) validateCode(ctx context.Context, code, secret string) bool {
	if ctx.Err() != nil {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, e.now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
