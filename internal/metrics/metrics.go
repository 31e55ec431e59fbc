package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MarketsScannedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "markets_scanned_total", Help: "Markets evaluated across all cycles"},
	)
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "decisions_total", Help: "Trade decisions generated"},
		[]string{"side"},
	)
	SkipsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "skips_total", Help: "Markets skipped by reason"},
		[]string{"reason"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders dispatched to an executor"},
		[]string{"mode"},
	)
	FillsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fills_total", Help: "Fills and would-trades recorded"},
		[]string{"mode"},
	)
)

func init() {
	prometheus.MustRegister(MarketsScannedTotal, DecisionsTotal, SkipsTotal, OrdersTotal, FillsTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
