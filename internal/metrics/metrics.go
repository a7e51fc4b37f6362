package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Report execution metrics
var (
	// ReportExecutionsTotal tracks report executions by outcome (ok, empty, error, timeout)
	ReportExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queryex_report_executions_total",
			Help: "Total number of report executions by status",
		},
		[]string{"status"},
	)

	// ReportExecutionDuration tracks report execution duration
	ReportExecutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "queryex_report_execution_duration_seconds",
			Help:    "Report execution duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// ReportRowsReturned tracks the size of materialized results
	ReportRowsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "queryex_report_rows_returned",
			Help:    "Number of rows returned per report execution",
			Buckets: []float64{0, 1, 10, 100, 1000, 10000, 100000},
		},
	)

	// DropdownQueriesTotal tracks dropdown option lookups by status
	DropdownQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queryex_dropdown_queries_total",
			Help: "Total number of dropdown option queries by status",
		},
		[]string{"status"},
	)
)

// Principal metrics
var (
	// PrincipalResolutionsTotal tracks principal resolutions by group source (claims, ldap, os, none)
	PrincipalResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queryex_principal_resolutions_total",
			Help: "Total number of principal resolutions by group source",
		},
		[]string{"source"},
	)

	// PrincipalCacheTotal tracks principal cache lookups (hit, miss, error)
	PrincipalCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queryex_principal_cache_total",
			Help: "Total number of principal cache lookups by result",
		},
		[]string{"result"},
	)
)
