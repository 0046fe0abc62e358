// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielhkuo/movienight/apperr"
)

// Result labels
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// ResultOf labels an operation outcome by its apperr code.
func ResultOf(err error) string {
	if err == nil {
		return ResultOK
	}
	if e, ok := apperr.As(err); ok {
		return string(e.Code)
	}
	return ResultError
}

// Metrics owns a private registry so tests can build as many as they like.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Claims         *prometheus.CounterVec
	Votes          *prometheus.CounterVec
	Nominations    *prometheus.CounterVec
	SessionsClosed *prometheus.CounterVec
	ExternalErrors *prometheus.CounterVec
	SweepDuration  prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "movienight",
			Name:      "invite_claims_total",
			Help:      "Invite code claims by outcome code.",
		}, []string{"result"}),
		Votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "movienight",
			Name:      "votes_total",
			Help:      "Vote casts and retractions by outcome code.",
		}, []string{"action", "result"}),
		Nominations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "movienight",
			Name:      "nominations_total",
			Help:      "Nominations by source and outcome code.",
		}, []string{"source", "result"}),
		SessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "movienight",
			Name:      "sessions_closed_total",
			Help:      "Closed sessions by trigger.",
		}, []string{"trigger"}),
		ExternalErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "movienight",
			Name:      "external_failures_total",
			Help:      "Failed calls to media services.",
		}, []string{"service"}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "movienight",
			Name:      "expiry_sweep_duration_seconds",
			Help:      "Duration of the expired-session sweep.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Claims, m.Votes, m.Nominations, m.SessionsClosed, m.ExternalErrors, m.SweepDuration,
	)
	return m
}

// Registry exposes the registry for handlers and tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) Claim(result string) {
	if m == nil {
		return
	}
	m.Claims.WithLabelValues(result).Inc()
}

func (m *Metrics) Vote(action, result string) {
	if m == nil {
		return
	}
	m.Votes.WithLabelValues(action, result).Inc()
}

func (m *Metrics) Nomination(source, result string) {
	if m == nil {
		return
	}
	m.Nominations.WithLabelValues(source, result).Inc()
}

func (m *Metrics) SessionClosed(trigger string) {
	if m == nil {
		return
	}
	m.SessionsClosed.WithLabelValues(trigger).Inc()
}

func (m *Metrics) ExternalFailure(service string) {
	if m == nil {
		return
	}
	m.ExternalErrors.WithLabelValues(service).Inc()
}

func (m *Metrics) ObserveSweep(d time.Duration) {
	if m == nil {
		return
	}
	m.SweepDuration.Observe(d.Seconds())
}
