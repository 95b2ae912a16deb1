// Package metrics holds the run metrics of the sync tool. They live in their
// own registry so a finished run can push them to a Pushgateway.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "strava_sync"

var Registry = prometheus.NewRegistry()

var (
	PagesFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "export",
		Name:      "pages_fetched_total",
		Help:      "Number of activity pages fetched from the remote API.",
	})

	ActivitiesExported = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "export",
		Name:      "activities_appended_total",
		Help:      "Number of activities appended to the record store.",
	})

	LastExportTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "export",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last successful export run.",
	})

	Uploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "upload",
		Name:      "files_total",
		Help:      "Number of uploaded files grouped by outcome.",
	}, []string{"status"})

	ActivitiesPatched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "upload",
		Name:      "activities_patched_total",
		Help:      "Number of activities whose metadata was patched after upload.",
	})

	RateLimitWaits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "retry",
		Name:      "rate_limit_waits_total",
		Help:      "Number of backoff waits caused by rate-limited requests.",
	}, []string{"operation"})
)

func init() {
	Registry.MustRegister(
		PagesFetched,
		ActivitiesExported,
		LastExportTimestamp,
		Uploads,
		ActivitiesPatched,
		RateLimitWaits,
	)
}

// Push sends the current values to a Prometheus Pushgateway.
func Push(ctx context.Context, gatewayURL, job string) error {
	err := push.New(gatewayURL, job).
		Gatherer(Registry).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
