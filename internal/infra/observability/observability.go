// Package observability exposes Prometheus metrics for the rewards
// economy. Counters only reflect what the ledger already records — the
// ledger stays the source of truth, metrics are a monitoring view.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Economy Metrics ────────────────────────────────────────────────────────

// TaskCompletions counts complete() calls by outcome.
var TaskCompletions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "taskmint",
	Subsystem: "economy",
	Name:      "task_completions_total",
	Help:      "Total task completion calls by outcome (claimed, already_claimed).",
}, []string{"outcome"})

// PointsMinted counts points credited by completions and lottery payouts.
var PointsMinted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "taskmint",
	Subsystem: "economy",
	Name:      "points_minted_total",
	Help:      "Total points credited by the completion engine.",
})

// LotteryOutcomes counts Top3 lottery draws by result.
var LotteryOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "taskmint",
	Subsystem: "economy",
	Name:      "lottery_outcomes_total",
	Help:      "Total Top3 lottery draws by result (prize, consolation).",
}, []string{"result"})

// Redemptions counts recipe redemptions by outcome.
var Redemptions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "taskmint",
	Subsystem: "economy",
	Name:      "redemptions_total",
	Help:      "Total recipe redemptions by outcome (ok, insufficient).",
}, []string{"outcome"})
