package ingress

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesReceivedCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingress_frames_received_total",
		Help: "Count of frames received from upstream, by websocket message kind.",
	}, []string{"kind"})
	repliesSentCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingress_replies_sent_total",
		Help: "Count of reply envelopes sent to upstream, by status code.",
	}, []string{"status"})
	bytesReceivedCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingress_bytes_received_total",
		Help: "Total bytes received on the ingress socket.",
	})
	activeConnectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ingress_active_connections",
		Help: "Number of upstream connections currently open.",
	})
	archiveJobsProcessedCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingress_archive_jobs_processed_total",
		Help: "Count of binary archive deliveries processed, by category.",
	}, []string{"category"})
)
