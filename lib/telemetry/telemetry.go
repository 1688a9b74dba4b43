// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry holds the Prometheus metrics exported by actor
// handles, session stores and dashboard builds.
//
// All recording methods are safe to call on a nil *Metrics, so
// components take an optional metrics value and never branch on it.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Call outcomes recorded by ObserveCall.
const (
	OutcomeOK             = "ok"
	OutcomeTransportError = "transport_error"
	OutcomeUnauthorized   = "unauthorized"
	OutcomeDecodeError    = "decode_error"
	OutcomeRemoteError    = "remote_error"
	OutcomeClosed         = "handle_closed"
)

// Metrics is the set of collectors for one process.
type Metrics struct {
	calls          *prometheus.CounterVec
	callDuration   *prometheus.HistogramVec
	variantMatches *prometheus.CounterVec
	decodeFailures *prometheus.CounterVec
	binds          *prometheus.CounterVec
	handlesClosed  *prometheus.CounterVec
	fieldSources   *prometheus.CounterVec
	buildDuration  prometheus.Histogram
	dispatches     *prometheus.CounterVec
}

// New creates the collectors and registers them with registerer.
// Registration panics on duplicate collectors, as MustRegister does.
func New(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actorlink_calls_total",
			Help: "Remote calls issued through actor handles, by outcome.",
		}, []string{"service", "method", "outcome"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "actorlink_call_duration_seconds",
			Help:    "Latency of remote calls including reply decoding.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"service", "method"}),
		variantMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actorlink_decode_variant_matches_total",
			Help: "Replies accepted by the tolerant decoder, by the variant that matched.",
		}, []string{"service", "method", "variant"}),
		decodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actorlink_decode_failures_total",
			Help: "Replies that matched no decode variant.",
		}, []string{"service", "method"}),
		binds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actorlink_session_binds_total",
			Help: "Actor handles created by session stores, by reason.",
		}, []string{"service", "reason"}),
		handlesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actorlink_session_handles_closed_total",
			Help: "Actor handles dropped by session stores.",
		}, []string{"service"}),
		fieldSources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actorlink_dashboard_field_sources_total",
			Help: "Dashboard fields built, by which source supplied the value.",
		}, []string{"field", "source"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "actorlink_dashboard_build_duration_seconds",
			Help:    "Wall time of complete dashboard builds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actorlink_backend_dispatches_total",
			Help: "Requests handled by a backend dispatcher, by result code.",
		}, []string{"canister", "method", "code"}),
	}
	registerer.MustRegister(
		m.calls, m.callDuration, m.variantMatches, m.decodeFailures,
		m.binds, m.handlesClosed, m.fieldSources, m.buildDuration, m.dispatches,
	)
	return m
}

// ObserveCall records one remote call.
func (m *Metrics) ObserveCall(service, method, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(service, method, outcome).Inc()
	m.callDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// ObserveVariant records which decode variant accepted a reply.
func (m *Metrics) ObserveVariant(service, method, variant string) {
	if m == nil {
		return
	}
	m.variantMatches.WithLabelValues(service, method, variant).Inc()
}

// ObserveDecodeFailure records a reply no variant accepted.
func (m *Metrics) ObserveDecodeFailure(service, method string) {
	if m == nil {
		return
	}
	m.decodeFailures.WithLabelValues(service, method).Inc()
}

// ObserveBind records a handle created by a session store. reason is
// "initial" or "identity_change".
func (m *Metrics) ObserveBind(service, reason string) {
	if m == nil {
		return
	}
	m.binds.WithLabelValues(service, reason).Inc()
}

// ObserveHandleClosed records a handle dropped by a session store.
func (m *Metrics) ObserveHandleClosed(service string) {
	if m == nil {
		return
	}
	m.handlesClosed.WithLabelValues(service).Inc()
}

// ObserveField records where a dashboard field's value came from.
func (m *Metrics) ObserveField(field, source string) {
	if m == nil {
		return
	}
	m.fieldSources.WithLabelValues(field, source).Inc()
}

// ObserveBuild records one complete dashboard build.
func (m *Metrics) ObserveBuild(duration time.Duration) {
	if m == nil {
		return
	}
	m.buildDuration.Observe(duration.Seconds())
}

// ObserveDispatch records one request handled by a backend. code is
// empty for successful calls.
func (m *Metrics) ObserveDispatch(canister, method, code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "ok"
	}
	m.dispatches.WithLabelValues(canister, method, code).Inc()
}

// Handler serves the metrics gathered by gatherer in the Prometheus
// exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
