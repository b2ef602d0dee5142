// Package metrics exposes Prometheus collectors for the watcher.
//
// A watch run is a short-lived batch process, so collectors live on a
// private registry and are pushed to a Pushgateway at the end of the run
// instead of being scraped.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics bundles the per-run collectors.
type Metrics struct {
	registry *prometheus.Registry

	FetchAttempts      prometheus.Counter
	RunsTotal          *prometheus.CounterVec
	VerdictsTotal      *prometheus.CounterVec
	NotificationsTotal *prometheus.CounterVec
	RunDurationSeconds prometheus.Histogram
}

// New builds the collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		FetchAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "pagewatch_fetch_attempts_total",
			Help: "Total number of HTTP fetch attempts, including retries.",
		}),
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pagewatch_runs_total",
			Help: "Total watch runs, labeled by outcome.",
		}, []string{"outcome"}),
		VerdictsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pagewatch_verdicts_total",
			Help: "Detection verdicts, labeled by kind.",
		}, []string{"kind"}),
		NotificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pagewatch_notifications_total",
			Help: "Notification sends, labeled by channel and outcome.",
		}, []string{"channel", "outcome"}),
		RunDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pagewatch_run_duration_seconds",
			Help:    "Wall-clock duration of a full watch run.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
}

// ObserveNotification records a channel outcome.
func (m *Metrics) ObserveNotification(channel string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.NotificationsTotal.WithLabelValues(channel, outcome).Inc()
}

// Push delivers the registry contents to a Pushgateway. No-op when the
// gateway URL is empty.
func (m *Metrics) Push(gatewayURL, job string) error {
	if gatewayURL == "" {
		return nil
	}
	if err := push.New(gatewayURL, job).Gatherer(m.registry).Push(); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
