package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "engagectl",
		Name:      "actions_total",
		Help:      "Action invocations by kind and result.",
	}, []string{"kind", "result"})
	metricTicksSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "engagectl",
		Name:      "ticks_skipped_total",
		Help:      "Ticks that slept without invoking an action.",
	})
	metricSessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "engagectl",
		Name:      "sessions_started_total",
		Help:      "Sessions launched by the registry.",
	})
	metricSessionsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "engagectl",
		Name:      "sessions_finished_total",
		Help:      "Sessions that reached a terminal state.",
	}, []string{"state"})
	metricSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "engagectl",
		Name:      "sessions_active",
		Help:      "Sessions currently running.",
	})
	metricSinkDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "engagectl",
		Name:      "log_events_dropped_total",
		Help:      "Log events evicted from a full sink.",
	})
)

func RecordAction(kind string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	metricActions.WithLabelValues(kind, result).Inc()
}

func RecordSkip() {
	metricTicksSkipped.Inc()
}

func RecordSessionStart() {
	metricSessionsStarted.Inc()
	metricSessionsActive.Inc()
}

func RecordSessionFinish(state string) {
	metricSessionsFinished.WithLabelValues(state).Inc()
	metricSessionsActive.Dec()
}

func RecordSinkDrop() {
	metricSinkDropped.Inc()
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
