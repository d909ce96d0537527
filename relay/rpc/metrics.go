package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpc_requests_total",
			Help: "Requests served by the query shell, by route template and status code.",
		},
		[]string{"route", "code"},
	)
	httpRequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rpc_request_duration_seconds",
			Help:    "Time to serve a query shell request, by route template.",
			Buckets: []float64{0.001, 0.005, 0.025, 0.1, 0.5, 2.5},
		},
		[]string{"route"},
	)
)
