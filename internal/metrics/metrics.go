package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of market ticks ingested"},
		[]string{"instrument"},
	)
	EmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "emissions_total", Help: "Trading decisions produced by the state machine"},
		[]string{"kind"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Order instructions submitted"},
		[]string{"instrument", "side"},
	)
	RiskRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "risk_rejections_total", Help: "Emissions dropped by the risk gate"},
		[]string{"reason"},
	)
	DegenerateUpdatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "degenerate_updates_total", Help: "Filter updates rejected for non-positive innovation variance"},
	)
	DeviationScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "deviation_score", Help: "Latest standardized spread deviation per pair"},
		[]string{"pair"},
	)
	HedgeRatio = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "hedge_ratio", Help: "Latest estimated hedge ratio per pair"},
		[]string{"pair"},
	)
)

func init() {
	prometheus.MustRegister(
		TicksTotal, EmissionsTotal, OrdersTotal,
		RiskRejectionsTotal, DegenerateUpdatesTotal,
		DeviationScore, HedgeRatio,
	)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
