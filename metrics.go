package savedata

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "savedata"

type metrics struct {
	writes            prometheus.Counter
	commits           prometheus.Counter
	compactions       prometheus.Counter
	removedEntries    prometheus.Counter
	hydrationFailures prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "leaf_writes_total",
			Help:      "Number of leaf values written to the store by staging.",
		}),
		commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "commits_total",
			Help:      "Number of store commits.",
		}),
		compactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "compactions_total",
			Help:      "Number of CleanData passes.",
		}),
		removedEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "removed_entries_total",
			Help:      "Number of store entries removed by compaction.",
		}),
		hydrationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "hydration_failures_total",
			Help:      "Number of persisted values that failed to parse and fell back to defaults.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.writes, m.commits, m.compactions, m.removedEntries, m.hydrationFailures)
	}
	return m
}
