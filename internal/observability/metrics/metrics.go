package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulerMetrics exposes counters/histograms for the scheduling flow.
type SchedulerMetrics struct {
	conversationsTotal *prometheus.CounterVec
	turnsTotal         prometheus.Counter
	reconcileTotal     *prometheus.CounterVec
	commitsTotal       *prometheus.CounterVec
	notifyFailures     prometheus.Counter
	turnLatency        prometheus.Histogram
}

func NewSchedulerMetrics(reg prometheus.Registerer) *SchedulerMetrics {
	m := &SchedulerMetrics{
		conversationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduler",
			Name:      "conversations_total",
			Help:      "Conversations by terminal outcome",
		}, []string{"outcome"}),
		turnsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduler",
			Name:      "turns_total",
			Help:      "Total patient turns processed",
		}),
		reconcileTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduler",
			Name:      "reconcile_total",
			Help:      "Availability reconciliations by outcome",
		}, []string{"outcome"}),
		commitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduler",
			Name:      "commits_total",
			Help:      "Booking commits by result",
		}, []string{"result"}),
		notifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduler",
			Name:      "notify_failures_total",
			Help:      "Confirmation emails that failed to send",
		}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "scheduler",
			Name:      "turn_latency_seconds",
			Help:      "Latency of a full conversation turn",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.conversationsTotal, m.turnsTotal, m.reconcileTotal, m.commitsTotal, m.notifyFailures, m.turnLatency)
	return m
}

func (m *SchedulerMetrics) ObserveConversationEnd(outcome string) {
	if m == nil {
		return
	}
	m.conversationsTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulerMetrics) ObserveTurn(seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.Inc()
	m.turnLatency.Observe(seconds)
}

func (m *SchedulerMetrics) ObserveReconcile(outcome string) {
	if m == nil {
		return
	}
	m.reconcileTotal.WithLabelValues(outcome).Inc()
}

// ObserveCommit records a commit result: "booked", "replayed",
// "slot_taken", "rejected" or "error".
func (m *SchedulerMetrics) ObserveCommit(result string) {
	if m == nil {
		return
	}
	m.commitsTotal.WithLabelValues(result).Inc()
}

func (m *SchedulerMetrics) ObserveNotifyFailure() {
	if m == nil {
		return
	}
	m.notifyFailures.Inc()
}
