package authcore

import "context"

// AccountRecord is the stored identity record. PasswordHash is a PHC
// string consumed by the configured CredentialVerifier.
type AccountRecord struct {
	ID           string
	Handle       string
	Email        string
	PasswordHash string
	Role         string
	MFAEnabled   bool
	LoginCount   uint64
	FirstSetup   bool
}

// PublicAccount is the projection of an account safe to return to
// clients. No hash, no factor state beyond the enabled flag.
type PublicAccount struct {
	ID         string `json:"id"`
	Handle     string `json:"handle"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	MFAEnabled bool   `json:"mfa_enabled"`
}

// Public returns the client-facing projection of the record.
func (a *AccountRecord) Public() PublicAccount {
	return PublicAccount{
		ID:         a.ID,
		Handle:     a.Handle,
		Email:      a.Email,
		Role:       a.Role,
		MFAEnabled: a.MFAEnabled,
	}
}

// AccountProvider is the host application's account storage. Lookup
// misses return ErrAccountNotFound; the manager maps login-path misses
// to ErrInvalidCredentials before they reach a client.
type AccountProvider interface {
	HasAccounts(ctx context.Context) (bool, error)
	GetByHandle(ctx context.Context, handle string) (*AccountRecord, error)
	GetByID(ctx context.Context, id string) (*AccountRecord, error)
	Create(ctx context.Context, account *AccountRecord) error
	UpdateProfile(ctx context.Context, id string, email string) error
	UpdatePasswordHash(ctx context.Context, id string, hash string) error
	IncrementLoginCount(ctx context.Context, id string) (uint64, error)
	SetMFAEnabled(ctx context.Context, id string, enabled bool) error
	SetFirstSetupDone(ctx context.Context, id string) error
}

// CredentialVerifier checks a submitted secret against a stored hash
// and produces hashes for new secrets. password.Argon2 is the default.
type CredentialVerifier interface {
	Hash(secret string) (string, error)
	Verify(secret, encoded string) (bool, error)
}

// TFACredential is the stored second-factor state for one account. The
// backup set holds hashes only; plaintext codes exist once, at
// generation time.
type TFACredential struct {
	Secret           string
	BackupCodeHashes []string
	Enabled          bool
}

// TFAProvider is the host application's second-factor storage. A miss
// on GetTFACredential returns (nil, nil), not an error.
type TFAProvider interface {
	GetTFACredential(ctx context.Context, accountID string) (*TFACredential, error)
	SaveTFACredential(ctx context.Context, accountID string, cred *TFACredential) error
	DeleteTFACredential(ctx context.Context, accountID string) error
}

// IntegrationTypeAPI marks programmatic tokens whose requests are
// authorized by scope grants. Any other integration type is authorized
// by session validity alone and skips scope validation.
const IntegrationTypeAPI = "api"

// APIToken is a long-lived non-interactive credential. Scopes maps a
// resource name to its permitted actions; the value type is
// deliberately loose so malformed grants can be detected and denied
// rather than silently allowed.
type APIToken struct {
	Key             string
	AccountID       string
	IntegrationType string
	Scopes          map[string]interface{}
}

// LoginResult is the outcome of Login or VerifyMFA. When MFARequired is
// set, Token and Account are empty and no session was created.
type LoginResult struct {
	Token       string
	Account     PublicAccount
	SessionID   string
	MFARequired bool
}

// TFASetup is returned by TfaEngine.Setup; the secret and provisioning
// URL go to the client exactly once.
type TFASetup struct {
	Secret string
	URL    string
}

// CreateAccountInput carries the fields for Signup.
type CreateAccountInput struct {
	Handle string
	Email  string
	Secret string
	Role   string
}
