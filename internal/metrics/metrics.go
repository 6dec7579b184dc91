package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ContributionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "knightlands_ledger_contributions_total",
			Help: "Total number of point contributions folded into epoch totals",
		},
		[]string{"kind", "tier"},
	)

	ContributionsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "knightlands_ledger_contributions_dropped_total",
			Help: "Contributions rejected before reaching the ledger",
		},
		[]string{"kind", "reason"},
	)

	RolloversTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "knightlands_ledger_epoch_rollovers_total",
			Help: "Epoch rollovers performed, by what first observed the boundary",
		},
		[]string{"kind", "trigger"},
	)

	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "knightlands_ledger_settlements_total",
			Help: "User settlements against closed epochs",
		},
		[]string{"kind", "status"},
	)

	SettlementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "knightlands_ledger_settlement_duration_seconds",
			Help:    "Duration of settlement including the external credit call",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4.1s
		},
		[]string{"kind"},
	)
)
