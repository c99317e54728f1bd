package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "anxiety_quiz"

var (
	AttemptsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attempts_started_total",
		Help:      "Quiz attempts started or restarted.",
	})

	AnswersRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "answers_recorded_total",
		Help:      "Answers accepted and persisted.",
	})

	AnswersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "answers_rejected_total",
		Help:      "Answers rejected before reaching the store, by reason.",
	}, []string{"reason"})

	AttemptsFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attempts_finalized_total",
		Help:      "Finalized attempts by result type.",
	}, []string{"result_type"})

	SubscriptionChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "subscription_checks_total",
		Help:      "Gated content subscription checks by outcome.",
	}, []string{"outcome"})

	EventsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_handled_total",
		Help:      "Inbound user events by kind and transport.",
	}, []string{"event", "transport"})
)
