// Package metrics provides lock-free counters for identity-core
// observability. Counters are incremented atomically and read through
// point-in-time snapshots; export (OTel) lives in metrics/export and
// only consumes Snapshot values.
package metrics

import "sync/atomic"

// MetricID identifies a single counter slot.
type MetricID int

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricMFARequired
	MetricMFASuccess
	MetricMFAFailure
	MetricMFALocked
	MetricSessionCreated
	MetricSessionRevoked
	MetricSessionsReclaimed
	MetricReclamationFailure
	MetricScopeAllowed
	MetricScopeDenied
	MetricScopeConfigInvalid
	MetricDeviceTrusted
	MetricBackupCodeUsed
	MetricBackupCodesRegenerated
	MetricTFAEnabled
	MetricTFADisabled
	MetricLogout

	MetricIDCount
)

// Config controls metric collection.
type Config struct {
	Enabled bool
}

// Metrics holds one atomic counter per MetricID. A nil or disabled
// Metrics value is a no-op on every operation.
type Metrics struct {
	enabled  bool
	counters [MetricIDCount]atomic.Uint64
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Counters map[MetricID]uint64
}

func New(cfg Config) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id < 0 || id >= MetricIDCount {
		return
	}
	m.counters[id].Add(1)
}

func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || !m.enabled || id < 0 || id >= MetricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

func (m *Metrics) SnapshotNow() Snapshot {
	snap := Snapshot{Counters: make(map[MetricID]uint64, MetricIDCount)}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < MetricIDCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}

// Name returns the stable export name for a counter.
func Name(id MetricID) string {
	switch id {
	case MetricLoginSuccess:
		return "authcore_login_success_total"
	case MetricLoginFailure:
		return "authcore_login_failure_total"
	case MetricMFARequired:
		return "authcore_mfa_required_total"
	case MetricMFASuccess:
		return "authcore_mfa_success_total"
	case MetricMFAFailure:
		return "authcore_mfa_failure_total"
	case MetricMFALocked:
		return "authcore_mfa_locked_total"
	case MetricSessionCreated:
		return "authcore_session_created_total"
	case MetricSessionRevoked:
		return "authcore_session_revoked_total"
	case MetricSessionsReclaimed:
		return "authcore_sessions_reclaimed_total"
	case MetricReclamationFailure:
		return "authcore_reclamation_failure_total"
	case MetricScopeAllowed:
		return "authcore_scope_allowed_total"
	case MetricScopeDenied:
		return "authcore_scope_denied_total"
	case MetricScopeConfigInvalid:
		return "authcore_scope_config_invalid_total"
	case MetricDeviceTrusted:
		return "authcore_device_trusted_total"
	case MetricBackupCodeUsed:
		return "authcore_backup_code_used_total"
	case MetricBackupCodesRegenerated:
		return "authcore_backup_codes_regenerated_total"
	case MetricTFAEnabled:
		return "authcore_tfa_enabled_total"
	case MetricTFADisabled:
		return "authcore_tfa_disabled_total"
	case MetricLogout:
		return "authcore_logout_total"
	default:
		return "authcore_unknown"
	}
}
