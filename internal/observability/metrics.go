package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var (
	// SnapshotsRecorded counts snapshots appended to the store.
	SnapshotsRecorded = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Name: "quill_snapshots_recorded_total",
		Help: "Number of snapshots recorded by the mutation recorder.",
	})

	// RestoreOperations counts group restores by target boundary.
	RestoreOperations = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: "quill_restore_operations_total",
		Help: "Number of restore-to-state operations by target.",
	}, []string{"target"})

	// RestoreFailures counts per-file failures inside restore reports.
	RestoreFailures = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Name: "quill_restore_file_failures_total",
		Help: "Number of per-file failures recorded in restore reports.",
	})

	// ApprovalDecisions counts gateway terminal transitions by outcome.
	ApprovalDecisions = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: "quill_approval_decisions_total",
		Help: "Number of tool invocations reaching a terminal state, by outcome.",
	}, []string{"outcome"})
)

// Handler exposes the process metrics registry over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
