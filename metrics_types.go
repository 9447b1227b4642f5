package ddlog

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds Prometheus metrics for monitoring the ddl log.
type metrics struct {
	// name is the log name used as a label for the metrics
	name string

	// entriesWritten is a counter of action and execute entries written
	entriesWritten *prometheus.CounterVec

	// syncs is a counter of file syncs
	syncs *prometheus.CounterVec

	// phaseAdvances is a counter of durable phase changes
	phaseAdvances *prometheus.CounterVec

	// usedEntries is a gauge of positions currently owned by a statement
	usedEntries *prometheus.GaugeVec

	// recoveredChains is a counter of chains replayed by recovery
	recoveredChains *prometheus.CounterVec

	// recoveryFailures is a counter of chains recovery could not replay
	recoveryFailures *prometheus.CounterVec

	// recoveryDuration is an histogram that indicates how much time recovery took
	recoveryDuration *prometheus.HistogramVec
}
