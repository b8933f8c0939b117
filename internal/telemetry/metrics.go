/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP API metrics
var (
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panelforge_api_requests_total",
		Help: "Total HTTP API requests by method, endpoint and status code.",
	}, []string{"method", "endpoint", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "panelforge_api_request_duration_seconds",
		Help:    "HTTP API request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "panelforge_api_active_connections",
		Help: "Number of HTTP requests currently being served.",
	})
)

// Planning metrics
var (
	PlanRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panelforge_plan_runs_total",
		Help: "Total planning runs by outcome.",
	}, []string{"status"})

	PlanSearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "panelforge_plan_search_duration_seconds",
		Help:    "Wall time of the agenda search per planning run.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	})

	PlanOptionsFound = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "panelforge_plan_options_found",
		Help:    "Number of agenda options surfaced per planning run.",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
	})

	ImportRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panelforge_import_rows_total",
		Help: "Availability rows processed by ingestion, by outcome.",
	}, []string{"outcome"})
)

// Database metrics
var (
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "panelforge_database_query_duration_seconds",
		Help:    "Database operation duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panelforge_database_errors_total",
		Help: "Total database errors by operation and kind.",
	}, []string{"operation", "kind"})

	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "panelforge_database_connections_active",
		Help: "Open database connections.",
	})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
