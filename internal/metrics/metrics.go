package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GraphQLRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geotree_graphql_requests_total",
		Help: "Total GraphQL requests by operation",
	}, []string{"operation"})
	GraphQLFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geotree_graphql_failures_total",
		Help: "Total failed GraphQL requests by operation",
	}, []string{"operation"})
	GraphQLDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "geotree_graphql_duration_ms",
		Help:    "GraphQL request duration in milliseconds",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geotree_cache_hits_total",
		Help: "Total response cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geotree_cache_misses_total",
		Help: "Total response cache misses",
	})
	SelectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geotree_selections_total",
		Help: "Total node selections by level",
	}, []string{"level"})
	StaleResultsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geotree_stale_results_total",
		Help: "Fetch results discarded because a newer request superseded them",
	})
)

func init() {
	prometheus.MustRegister(
		GraphQLRequestsTotal,
		GraphQLFailTotal,
		GraphQLDurationMs,
		CacheHitsTotal,
		CacheMissesTotal,
		SelectionsTotal,
		StaleResultsTotal,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
