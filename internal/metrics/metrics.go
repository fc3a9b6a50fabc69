package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	threatsProcessedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aegis_threats_processed_total",
		Help: "Total number of threat records run through the decision pipeline",
	})
	pipelineErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aegis_pipeline_errors_total",
		Help: "Total number of per-record pipeline failures (classification or dispatch)",
	})
	dispatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aegis_dispatches_total",
		Help: "Total number of ledger dispatch attempts by result status",
	}, []string{"status"})
	actionsExecutedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aegis_actions_executed_total",
		Help: "Total number of enforcement actions that completed successfully",
	})
	actionsFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aegis_actions_failed_total",
		Help: "Total number of enforcement actions that failed or timed out",
	})
	endpointsOffline = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "aegis_endpoints_offline",
		Help: "Number of endpoints currently marked OFFLINE",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(
		threatsProcessedTotal,
		pipelineErrorsTotal,
		dispatchesTotal,
		actionsExecutedTotal,
		actionsFailedTotal,
		endpointsOffline,
	)
}

// IncThreatProcessed increments the processed-threats counter.
func IncThreatProcessed() { threatsProcessedTotal.Inc() }

// IncPipelineError increments the per-record pipeline failure counter.
func IncPipelineError() { pipelineErrorsTotal.Inc() }

// IncDispatch increments the dispatch counter for a result status.
func IncDispatch(status string) { dispatchesTotal.WithLabelValues(status).Inc() }

// IncActionExecuted increments the executed-actions counter.
func IncActionExecuted() { actionsExecutedTotal.Inc() }

// IncActionFailed increments the failed-actions counter.
func IncActionFailed() { actionsFailedTotal.Inc() }

// SetEndpointsOffline records the current OFFLINE endpoint count.
func SetEndpointsOffline(n float64) { endpointsOffline.Set(n) }
