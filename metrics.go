package authcore

import "github.com/pulseboard/authcore/internal/metrics"

// MetricsSnapshot returns a point-in-time copy of the core's counters,
// keyed by their stable export names. Exporters (metrics/export) read
// these; nothing in the request path ever blocks on metrics.
func (m *Manager) MetricsSnapshot() map[string]uint64 {
	snap := m.metrics.SnapshotNow()
	out := make(map[string]uint64, len(snap.Counters))
	for id, v := range snap.Counters {
		out[metrics.Name(id)] = v
	}
	return out
}

// AuditDropped returns how many audit events were dropped because the
// dispatcher buffer was full.
func (m *Manager) AuditDropped() uint64 {
	return m.dispatcher.Dropped()
}
