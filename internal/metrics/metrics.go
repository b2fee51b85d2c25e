package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "symposium"

// Metrics holds the counters recorded by the attempt state machine.
type Metrics struct {
	AttemptsStarted  prometheus.Counter
	AnswersRecorded  prometheus.Counter
	Violations       *prometheus.CounterVec
	Submissions      *prometheus.CounterVec
	Disqualified     prometheus.Counter
	ExpirySweepRuns  prometheus.Counter
	EmailsDispatched prometheus.Counter
}

// NewRegistry returns a registry with the Go and process collectors attached.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AttemptsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_started_total",
			Help:      "Attempts started by participants.",
		}),
		AnswersRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_recorded_total",
			Help:      "Answer upserts accepted.",
		}),
		Violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Proctoring violations recorded, by type.",
		}, []string{"type"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Attempts submitted, by trigger.",
		}, []string{"trigger"}),
		Disqualified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "participants_disqualified_total",
			Help:      "Participants disqualified manually or by the violation threshold.",
		}),
		ExpirySweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expiry_sweep_runs_total",
			Help:      "Completed runs of the attempt expiry sweep.",
		}),
		EmailsDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_dispatched_total",
			Help:      "Emails handed to the background dispatcher.",
		}),
	}
	reg.MustRegister(
		m.AttemptsStarted,
		m.AnswersRecorded,
		m.Violations,
		m.Submissions,
		m.Disqualified,
		m.ExpirySweepRuns,
		m.EmailsDispatched,
	)
	return m
}

// NewNoop returns metrics registered on a throwaway registry, for tests.
func NewNoop() *Metrics {
	return New(prometheus.NewRegistry())
}
