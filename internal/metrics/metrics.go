// Package metrics exposes Prometheus instrumentation for the trading loop.
package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pairs_cycles_total",
		Help: "Completed lifecycle cycles.",
	})

	CyclePanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pairs_cycle_panics_total",
		Help: "Cycles aborted by a recovered panic.",
	})

	TradesOpenedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pairs_trades_opened_total",
		Help: "Positions opened, by direction.",
	}, []string{"direction"})

	TradesClosedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pairs_trades_closed_total",
		Help: "Positions closed, by exit reason.",
	}, []string{"reason"})

	CompensationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pairs_saga_compensations_total",
		Help: "Saga leg compensations executed after a partial failure.",
	})

	DegradedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pairs_saga_degraded_total",
		Help: "Sagas that ended in a degraded state.",
	})

	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pairs_open_positions",
		Help: "Currently open positions.",
	})

	VenueErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pairs_venue_errors_total",
		Help: "Venue call failures observed by the controller.",
	})
)

// Serve runs the /metrics endpoint until ctx is cancelled.
func Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	slog.Info("metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("metrics server failed", "error", err)
	}
}
