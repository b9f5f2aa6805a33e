package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels of dispatchContactsTotal
const (
	outcomeSent    = "sent"
	outcomeInvalid = "invalid"
	outcomeFailed  = "failed"
	outcomeSkipped = "skipped"
	outcomeDone    = "done"
)

var (
	dispatchContactsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_contacts_total",
			Help: "Campaign contacts handled by dispatch, partitioned by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	providerChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_chunks_total",
			Help: "Provider campaign submissions partitioned by outcome",
		},
		[]string{"outcome"},
	)

	queueRowsDrainedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_rows_drained_total",
			Help: "Scheduling queue rows deleted after confirmed provider acceptance",
		},
	)
)
