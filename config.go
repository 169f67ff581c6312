package authcore

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/pulseboard/authcore/internal/audit"
	"github.com/pulseboard/authcore/token"
)

// SessionConfig controls session lifetime and storage.
type SessionConfig struct {
	TTL         time.Duration `env:"AUTHCORE_SESSION_TTL" envDefault:"12h"`
	RedisPrefix string        `env:"AUTHCORE_REDIS_PREFIX" envDefault:"ps"`
}

// MFAConfig controls second-factor verification and lockout.
type MFAConfig struct {
	Issuer           string        `env:"AUTHCORE_MFA_ISSUER" envDefault:"pulseboard"`
	RememberWindow   time.Duration `env:"AUTHCORE_MFA_REMEMBER_WINDOW" envDefault:"720h"`
	LockoutThreshold int           `env:"AUTHCORE_MFA_LOCKOUT_THRESHOLD" envDefault:"5"`
	LockoutWindow    time.Duration `env:"AUTHCORE_MFA_LOCKOUT_WINDOW" envDefault:"15m"`
	BackupCodeCount  int           `env:"AUTHCORE_MFA_BACKUP_CODES" envDefault:"10"`
}

// ReclaimConfig controls the recurring session-reclamation job.
type ReclaimConfig struct {
	Cadence time.Duration `env:"AUTHCORE_RECLAIM_CADENCE" envDefault:"1h"`
	JobID   string        `env:"AUTHCORE_RECLAIM_JOB_ID" envDefault:"reclaim-sessions"`
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `env:"AUTHCORE_AUDIT_ENABLED" envDefault:"false"`
	BufferSize int  `env:"AUTHCORE_AUDIT_BUFFER" envDefault:"256"`
	DropIfFull bool `env:"AUTHCORE_AUDIT_DROP_IF_FULL" envDefault:"true"`
}

// TokenConfig controls bearer-token signing. The key itself is not
// env-mapped; it is injected through the builder.
type TokenConfig struct {
	TTL    time.Duration `env:"AUTHCORE_TOKEN_TTL" envDefault:"12h"`
	Issuer string        `env:"AUTHCORE_TOKEN_ISSUER" envDefault:"pulseboard"`
	Method string        `env:"AUTHCORE_TOKEN_METHOD" envDefault:"hs256"`
}

// Config is the full configuration surface of the identity core.
type Config struct {
	Session SessionConfig
	MFA     MFAConfig
	Reclaim ReclaimConfig
	Audit   AuditConfig
	Token   TokenConfig

	// VerifyTimeout bounds credential and second-factor verification.
	// On timeout the flow fails closed.
	VerifyTimeout time.Duration `env:"AUTHCORE_VERIFY_TIMEOUT" envDefault:"5s"`

	// CascadeOnPasswordChange revokes all other live sessions after a
	// password change. Off by default.
	CascadeOnPasswordChange bool `env:"AUTHCORE_CASCADE_ON_PASSWORD_CHANGE" envDefault:"false"`

	MetricsEnabled bool `env:"AUTHCORE_METRICS_ENABLED" envDefault:"true"`
}

// DefaultConfig returns the reference policy: 12h sessions, 30-day
// device trust, hourly reclamation, 5 MFA failures per 15 minutes.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{TTL: 12 * time.Hour, RedisPrefix: "ps"},
		MFA: MFAConfig{
			Issuer:           "pulseboard",
			RememberWindow:   720 * time.Hour,
			LockoutThreshold: 5,
			LockoutWindow:    15 * time.Minute,
			BackupCodeCount:  10,
		},
		Reclaim:        ReclaimConfig{Cadence: time.Hour, JobID: "reclaim-sessions"},
		Audit:          AuditConfig{Enabled: false, BufferSize: 256, DropIfFull: true},
		Token:          TokenConfig{TTL: 12 * time.Hour, Issuer: "pulseboard", Method: "hs256"},
		VerifyTimeout:  5 * time.Second,
		MetricsEnabled: true,
	}
}

// ConfigFromEnv parses configuration from AUTHCORE_* environment
// variables, falling back to the reference defaults.
func ConfigFromEnv() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that would weaken the core's
// guarantees.
func (c Config) Validate() error {
	if c.Session.TTL <= 0 {
		return errors.New("session TTL must be positive")
	}
	if c.MFA.RememberWindow <= 0 {
		return errors.New("MFA remember window must be positive")
	}
	if c.MFA.LockoutThreshold < 1 {
		return errors.New("MFA lockout threshold must be at least 1")
	}
	if c.MFA.LockoutWindow <= 0 {
		return errors.New("MFA lockout window must be positive")
	}
	if c.MFA.BackupCodeCount < 1 || c.MFA.BackupCodeCount > 32 {
		return errors.New("backup code count out of range")
	}
	if c.Reclaim.Cadence <= 0 {
		return errors.New("reclamation cadence must be positive")
	}
	if c.Reclaim.JobID == "" {
		return errors.New("reclamation job ID is required")
	}
	if c.VerifyTimeout <= 0 {
		return errors.New("verification timeout must be positive")
	}
	switch token.SigningMethod(c.Token.Method) {
	case token.MethodHS256, token.MethodEd25519:
	default:
		return errors.New("unsupported token signing method")
	}
	if c.Token.TTL <= 0 {
		return errors.New("token TTL must be positive")
	}
	return nil
}

func (c Config) auditConfig() audit.Config {
	return audit.Config{
		Enabled:    c.Audit.Enabled,
		BufferSize: c.Audit.BufferSize,
		DropIfFull: c.Audit.DropIfFull,
	}
}
