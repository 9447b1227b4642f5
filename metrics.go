package ddlog

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// newMetrics initialize Prometheus metrics for monitoring the ddl log.
func newMetrics(name, namespace string, registerer prometheus.Registerer) *metrics {
	z := &metrics{
		name: name,
		entriesWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ddl_log",
				Name:      "entries_written_total",
				Help:      "Indicates how many entries have been written",
			},
			[]string{"name", "entry_type"},
		),
		syncs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ddl_log",
				Name:      "syncs_total",
				Help:      "Indicates how many times the log has been synced",
			},
			[]string{"name"},
		),
		phaseAdvances: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ddl_log",
				Name:      "phase_advances_total",
				Help:      "Indicates how many phases have been durably recorded",
			},
			[]string{"name", "action"},
		),
		usedEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "ddl_log",
				Name:      "used_entries",
				Help:      "Indicates how many entries are currently used by statements",
			},
			[]string{"name"},
		),
		recoveredChains: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ddl_log",
				Name:      "recovered_chains_total",
				Help:      "Indicates how many chains have been replayed during recovery",
			},
			[]string{"name"},
		),
		recoveryFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ddl_log",
				Name:      "recovery_failures_total",
				Help:      "Indicates how many entries recovery failed to replay",
			},
			[]string{"name", "reason"},
		),
		recoveryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ddl_log",
			Name:      "recovery_duration_seconds",
			Help:      "Indicates how much time it took to recover the ddl log",
		},
			[]string{"name"},
		),
	}

	if registerer != nil {
		z.entriesWritten = register(registerer, z.entriesWritten)
		z.syncs = register(registerer, z.syncs)
		z.phaseAdvances = register(registerer, z.phaseAdvances)
		z.usedEntries = register(registerer, z.usedEntries)
		z.recoveredChains = register(registerer, z.recoveredChains)
		z.recoveryFailures = register(registerer, z.recoveryFailures)
		z.recoveryDuration = register(registerer, z.recoveryDuration)
	}
	return z
}

// register registers the collector or returns the one
// already registered under the same description
func register[T prometheus.Collector](registerer prometheus.Registerer, collector T) T {
	if err := registerer.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return collector
}

// entryWritten increments the entries written counter
func (m *metrics) entryWritten(entryType EntryType) {
	if m == nil {
		return
	}
	m.entriesWritten.With(prometheus.Labels{"name": m.name, "entry_type": entryType.String()}).Inc()
}

// synced increments the syncs counter
func (m *metrics) synced() {
	if m == nil {
		return
	}
	m.syncs.With(prometheus.Labels{"name": m.name}).Inc()
}

// phaseAdvanced increments the phase advances counter
func (m *metrics) phaseAdvanced(action ActionType) {
	if m == nil {
		return
	}
	m.phaseAdvances.With(prometheus.Labels{"name": m.name, "action": action.String()}).Inc()
}

// setUsedEntries sets the used entries gauge
func (m *metrics) setUsedEntries(used int) {
	if m == nil {
		return
	}
	m.usedEntries.With(prometheus.Labels{"name": m.name}).Set(float64(used))
}

// chainRecovered increments the recovered chains counter
func (m *metrics) chainRecovered() {
	if m == nil {
		return
	}
	m.recoveredChains.With(prometheus.Labels{"name": m.name}).Inc()
}

// recoveryFailed increments the recovery failures counter with the provided reason
func (m *metrics) recoveryFailed(reason string) {
	if m == nil {
		return
	}
	m.recoveryFailures.With(prometheus.Labels{"name": m.name, "reason": reason}).Inc()
}

// timeSince will set an histogram showing how much time recovery took
func (m *metrics) timeSince(start time.Time) {
	if m == nil {
		return
	}
	elapsed := float64(time.Since(start)) / float64(time.Second)
	m.recoveryDuration.With(prometheus.Labels{"name": m.name}).Observe(elapsed)
}
