package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesProcessedCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hub_frames_processed_total",
		Help: "Count of frames merged into hub state, by frame type.",
	}, []string{"type"})
	fopVersionGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hub_fop_state_version",
		Help: "Current state version per platform, bumped on every merged frame.",
	}, []string{"fop"})
	fopContentVersionGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hub_fop_content_version",
		Help: "Current content version per platform, bumped on frames that can change ordering or results.",
	}, []string{"fop"})
	databaseReloadCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hub_database_reloads_total",
		Help: "Count of database payloads that replaced the global state.",
	})
	sessionTransitionCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hub_session_transitions_total",
		Help: "Count of session lifecycle transitions, by resulting state.",
	}, []string{"state"})
)
