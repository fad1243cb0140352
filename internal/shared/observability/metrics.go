package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "calcscript_stage_seconds",
		Help:    "Time spent in one pipeline stage for a single statement.",
		Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
	}, []string{"stage"})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calcscript_runs_total",
		Help: "Total number of script runs by outcome.",
	}, []string{"status"})

	StatementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calcscript_statements_total",
		Help: "Total number of non-empty statements executed.",
	})

	TokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calcscript_tokens_total",
		Help: "Total number of tokens produced by the scanner, by kind.",
	}, []string{"kind"})

	ErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calcscript_errors_total",
		Help: "Total number of faults surfaced to callers, by error code.",
	}, []string{"code"})

	VariablesAssigned = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "calcscript_last_run_variables",
		Help: "Number of variables bound at the end of the most recent run.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calcscript_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	HistoryWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calcscript_history_writes_total",
		Help: "Total number of run records written to the history store.",
	}, []string{"result"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calcscript_http_requests_total",
		Help: "Total number of API requests by route and status code.",
	}, []string{"route", "code"})
)
