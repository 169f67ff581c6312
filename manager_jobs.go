package authcore

import (
	"context"
	"fmt"

	"github.com/pulseboard/authcore/internal/metrics"
	"github.com/pulseboard/authcore/schedule"
)

// StartReclamation registers the recurring session-reclamation job
// under its stable identifier and starts the cadence timer. Calling it
// again (e.g. after a restart within the same process) is a no-op.
func (m *Manager) StartReclamation() error {
	return m.scheduler.RegisterRecurring(m.cfg.Reclaim.JobID, m.cfg.Reclaim.Cadence, m.reclaimTask)
}

// TriggerReclamation dispatches a manual reclamation run with priority
// over any queued recurring instance and returns a channel carrying the
// single result. The call acknowledges dispatch without blocking on the
// run.
func (m *Manager) TriggerReclamation() (<-chan schedule.Result, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	return m.scheduler.TriggerNow(m.cfg.Reclaim.JobID)
}

func (m *Manager) reclaimTask(ctx context.Context) (int, error) {
	removed, err := m.sessions.Reclaim(ctx)
	if err != nil {
		m.metrics.Inc(metrics.MetricReclamationFailure)
		m.emitAudit(ctx, EventSessionReclaim, "", "", false, err, nil)
		return removed, fmt.Errorf("%w: %v", ErrReclamationFailed, err)
	}

	for i := 0; i < removed; i++ {
		m.metrics.Inc(metrics.MetricSessionsReclaimed)
	}
	m.emitAudit(ctx, EventSessionReclaim, "", "", true, nil, map[string]string{
		"removed": fmt.Sprintf("%d", removed),
	})

	return removed, nil
}
