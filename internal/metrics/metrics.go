package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ClaimsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "farmershield_claims_created_total",
		Help: "Claims created by the settlement coordinator.",
	})
	ClaimsPaid = promauto.NewCounter(prometheus.CounterOpts{
		Name: "farmershield_claims_paid_total",
		Help: "Claims settled with a confirmed on-chain transfer.",
	})
	ClaimsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "farmershield_claims_failed_total",
		Help: "Claims that reached terminal transfer failure.",
	})
	TransferRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "farmershield_transfer_retries_total",
		Help: "Retryable transfer failures left pending for a later pass.",
	})
	SettlementsNoClaim = promauto.NewCounter(prometheus.CounterOpts{
		Name: "farmershield_settlements_no_claim_total",
		Help: "Settlement passes that produced no claim.",
	})
	SettlementDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "farmershield_settlement_duration_seconds",
		Help:    "Wall time of a single settle invocation.",
		Buckets: prometheus.DefBuckets,
	})
)
