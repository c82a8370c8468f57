package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Process-wide counters, registered on the default registry and served by
// the /metrics endpoint.
var (
	// PipelineRunsTotal counts finished pipeline runs by outcome:
	// completed, stopped, empty, failed.
	PipelineRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "socialpulse",
		Name:      "pipeline_runs_total",
		Help:      "Finished pipeline runs by terminal outcome.",
	}, []string{"outcome"})

	// OutboundRequestsTotal counts requests to the remote platform API by
	// method name and result: ok, empty, api_error, transport_error.
	OutboundRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "socialpulse",
		Name:      "outbound_requests_total",
		Help:      "Requests issued to the remote platform API.",
	}, []string{"method", "result"})

	// PredictionsSavedTotal counts prediction rows by write result:
	// inserted or duplicate.
	PredictionsSavedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "socialpulse",
		Name:      "predictions_saved_total",
		Help:      "Prediction records written during save phases.",
	}, []string{"result"})

	// HTTPRequestsTotal counts inbound API requests by route and status class
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "socialpulse",
		Name:      "http_requests_total",
		Help:      "Inbound HTTP requests by route and status class.",
	}, []string{"route", "class"})
)
