// Package ingress terminates the websocket connection from the competition
// software and feeds decoded frames into the hub. It owns the precondition
// handshake: event frames arriving before the database and translations have
// been delivered are answered with a 428 envelope naming what is missing, and
// the socket stays open so the upstream can supply the resources and resend.
package ingress

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/openlifting/liftcast/config/params"
	"github.com/openlifting/liftcast/io/logs"
	"github.com/openlifting/liftcast/relay/archive"
	"github.com/openlifting/liftcast/relay/store"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "ingress")

const (
	// Time allowed to write a message to the upstream.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong before the connection is presumed dead.
	pongWait = 60 * time.Second
	// Send pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Pending archive deliveries before frame reading blocks.
	archiveQueueDepth = 4
)

// Config options for the ingress service.
type Config struct {
	Host      string
	Port      int
	Store     *store.Store
	Extractor *archive.Extractor
}

// Service accepts upstream websocket connections and relays their frames
// into the competition hub.
type Service struct {
	cfg          *Config
	ctx          context.Context
	cancel       context.CancelFunc
	server       *http.Server
	upgrader     websocket.Upgrader
	startFailure error
}

// NewService initializes the ingress service from its configuration.
func NewService(ctx context.Context, cfg *Config) *Service {
	ctx, cancel := context.WithCancel(ctx)
	s := &Service{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The upstream is competition software, not a browser.
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}
	router := mux.NewRouter()
	router.HandleFunc(params.Relay().IngressPath, s.handleUpgrade)
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start the ingress listener.
func (s *Service) Start() {
	log.WithFields(logrus.Fields{
		"address": s.server.Addr,
		"path":    params.Relay().IngressPath,
	}).Info("Starting ingress service")
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Could not listen on ingress endpoint")
			s.startFailure = err
		}
	}()
}

// Stop the ingress listener and close all upstream connections.
func (s *Service) Stop() error {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Status reports a listener failure, if any occurred.
func (s *Service) Status() error {
	return s.startFailure
}

func (s *Service) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if key := params.Relay().UpdateKey; key != "" {
		presented := r.URL.Query().Get("updateKey")
		if presented == "" {
			presented = r.Header.Get("X-Update-Key")
		}
		if presented != key {
			log.WithField("url", logs.MaskCredentialsLogging(r.URL.String())).Warn("Rejected upstream connection: bad update key")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Error("Could not upgrade ingress connection")
		return
	}
	c := newConnection(s, ws)
	activeConnectionsGauge.Inc()
	log.WithFields(logrus.Fields{
		"conn":   c.id,
		"remote": ws.RemoteAddr().String(),
	}).Info("Upstream connected")
	go c.writePump()
	go c.archivePump()
	go c.readPump()
}
