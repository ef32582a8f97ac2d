// Package metrics exposes the reward engine's operational counters and
// gauges as a Prometheus registry (github.com/prometheus/client_golang),
// served over HTTP via gorilla/mux the way the teacher wires its own
// monitoring server.
package metrics

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the engine's metrics. It only defines and serves them:
// no code in this repository increments or sets any of them, so every
// series stays at its zero value.
type Registry struct {
	registry *prometheus.Registry

	MintsTotal       prometheus.Counter
	TransfersTotal   prometheus.Counter
	RewardsAccrued   prometheus.Counter
	DepositsTotal    prometheus.Counter
	RedeemsTotal     prometheus.Counter
	TotalWeight      prometheus.Gauge
	IncTokenSupply   prometheus.Gauge
	AccRewardPerShare prometheus.Gauge
	HandleErrors     *prometheus.CounterVec
	HandleLatency    *prometheus.HistogramVec
}

func New() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		MintsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reward_engine",
			Name:      "mints_total",
			Help:      "Total mint messages emitted by the master allocator.",
		}),
		TransfersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reward_engine",
			Name:      "transfers_total",
			Help:      "Total token transfer messages emitted by any sink.",
		}),
		RewardsAccrued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reward_engine",
			Name:      "rewards_accrued_total",
			Help:      "Total reward units vested by update_rewards across all calls.",
		}),
		DepositsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reward_engine",
			Name:      "deposits_total",
			Help:      "Total Deposit calls handled by the staking engine.",
		}),
		RedeemsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reward_engine",
			Name:      "redeems_total",
			Help:      "Total Redeem calls handled by the staking engine.",
		}),
		TotalWeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "reward_engine",
			Name:      "master_total_weight",
			Help:      "Current sum of sink weights registered with the master.",
		}),
		IncTokenSupply: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "reward_engine",
			Name:      "staking_inc_token_supply",
			Help:      "Current sum of locked balances in the staking pool.",
		}),
		AccRewardPerShare: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "reward_engine",
			Name:      "staking_acc_reward_per_share",
			Help:      "Current value of the staking pool's reward accumulator.",
		}),
		HandleErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reward_engine",
			Name:      "handle_errors_total",
			Help:      "Handle calls that failed, by error kind.",
		}, []string{"kind"}),
		HandleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reward_engine",
			Name:      "handle_duration_seconds",
			Help:      "Latency of handle calls, by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	r.registry.MustRegister(
		r.MintsTotal,
		r.TransfersTotal,
		r.RewardsAccrued,
		r.DepositsTotal,
		r.RedeemsTotal,
		r.TotalWeight,
		r.IncTokenSupply,
		r.AccRewardPerShare,
		r.HandleErrors,
		r.HandleLatency,
	)
	return r
}

// Handler returns the HTTP handler serving Prometheus exposition format
// and a liveness probe, routed through gorilla/mux.
func (r *Registry) Handler() http.Handler {
	router := mux.NewRouter()
	router.Path("/metrics").Handler(promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	router.Path("/healthz").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return router
}
