package authcore

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/pulseboard/authcore/capability"
	"github.com/pulseboard/authcore/internal/audit"
	"github.com/pulseboard/authcore/internal/metrics"
	"github.com/pulseboard/authcore/password"
	"github.com/pulseboard/authcore/schedule"
	"github.com/pulseboard/authcore/session"
	"github.com/pulseboard/authcore/token"
)

// Builder assembles a Manager. Redis, an account provider, a TFA
// provider, and a token signing key are required; everything else has a
// default.
type Builder struct {
	cfg        Config
	redis      redis.UniversalClient
	accounts   AccountProvider
	tfaStore   TFAProvider
	verifier   CredentialVerifier
	caps       *capability.Registry
	auditSink  audit.Sink
	signingKey []byte
	verifyKey  []byte
}

func NewBuilder() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

// WithConfig replaces the default configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithRedis sets the Redis client backing sessions, device trust, and
// the MFA lockout counters.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAccountProvider sets the host application's account storage.
func (b *Builder) WithAccountProvider(p AccountProvider) *Builder {
	b.accounts = p
	return b
}

// WithTFAProvider sets the host application's second-factor storage.
func (b *Builder) WithTFAProvider(p TFAProvider) *Builder {
	b.tfaStore = p
	return b
}

// WithCredentialVerifier overrides the default argon2id verifier.
func (b *Builder) WithCredentialVerifier(v CredentialVerifier) *Builder {
	b.verifier = v
	return b
}

// WithCapabilityRegistry overrides the default role registry.
func (b *Builder) WithCapabilityRegistry(r *capability.Registry) *Builder {
	b.caps = r
	return b
}

// WithAuditSink sets the destination for audit events; audit must also
// be enabled in the configuration.
func (b *Builder) WithAuditSink(sink audit.Sink) *Builder {
	b.auditSink = sink
	return b
}

// WithTokenKey sets the bearer-token signing key. For hs256 only the
// signing key is used; for ed25519 the verify key may differ.
func (b *Builder) WithTokenKey(signingKey, verifyKey []byte) *Builder {
	b.signingKey = signingKey
	b.verifyKey = verifyKey
	return b
}

// Build validates the configuration, wires the stores, and returns a
// Manager in the initialising phase. Call Start to make it ready.
func (b *Builder) Build() (*Manager, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if b.accounts == nil {
		return nil, errors.New("account provider is required")
	}
	if b.tfaStore == nil {
		return nil, errors.New("tfa provider is required")
	}
	if len(b.signingKey) == 0 {
		return nil, errors.New("token signing key is required")
	}

	verifier := b.verifier
	if verifier == nil {
		var err error
		verifier, err = password.NewArgon2(password.DefaultConfig())
		if err != nil {
			return nil, err
		}
	}

	caps := b.caps
	if caps == nil {
		caps = capability.DefaultRegistry()
	}

	tokens, err := token.NewManager(token.Config{
		TTL:           b.cfg.Token.TTL,
		SigningMethod: token.SigningMethod(b.cfg.Token.Method),
		PrivateKey:    b.signingKey,
		PublicKey:     b.verifyKey,
		Issuer:        b.cfg.Token.Issuer,
	})
	if err != nil {
		return nil, err
	}

	prefix := b.cfg.Session.RedisPrefix
	limiter := newMFALimiter(b.redis, prefix, b.cfg.MFA)

	m := &Manager{
		cfg:        b.cfg,
		accounts:   b.accounts,
		verifier:   verifier,
		sessions:   session.NewStore(b.redis, prefix),
		tokens:     tokens,
		devices:    NewDeviceTrustStore(b.redis, prefix, b.cfg.MFA.RememberWindow),
		tfa:        NewTfaEngine(b.tfaStore, limiter, b.cfg.MFA),
		caps:       caps,
		validator:  NewScopedTokenValidator(),
		scheduler:  schedule.New(),
		dispatcher: audit.NewDispatcher(b.cfg.auditConfig(), b.auditSink),
		metrics:    metrics.New(metrics.Config{Enabled: b.cfg.MetricsEnabled}),
	}
	m.phase.Store(int32(PhaseInitialising))

	return m, nil
}
