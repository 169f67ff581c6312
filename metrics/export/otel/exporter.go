// Package otel bridges the core's internal counters into OpenTelemetry
// observable instruments. The bridge pulls snapshots on collection; the
// request path never touches the OTel SDK.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// SnapshotFunc returns a point-in-time copy of the core's counters
// keyed by export name, e.g. Manager.MetricsSnapshot.
type SnapshotFunc func() map[string]uint64

// Exporter owns the observable instruments registered on a meter.
type Exporter struct {
	registration metric.Registration
}

// New registers one Int64ObservableCounter per counter present in the
// first snapshot and observes fresh values on every collection cycle.
func New(meter metric.Meter, snapshot SnapshotFunc) (*Exporter, error) {
	initial := snapshot()

	instruments := make(map[string]metric.Int64ObservableCounter, len(initial))
	observables := make([]metric.Observable, 0, len(initial))
	for name := range initial {
		counter, err := meter.Int64ObservableCounter(name)
		if err != nil {
			return nil, err
		}
		instruments[name] = counter
		observables = append(observables, counter)
	}

	registration, err := meter.RegisterCallback(func(ctx context.Context, observer metric.Observer) error {
		for name, value := range snapshot() {
			counter, ok := instruments[name]
			if !ok {
				continue
			}
			observer.ObserveInt64(counter, int64(value))
		}
		return nil
	}, observables...)
	if err != nil {
		return nil, err
	}

	return &Exporter{registration: registration}, nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	return e.registration.Unregister()
}
