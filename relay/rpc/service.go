// Package rpc is the fan-facing query shell: projection reads, discovery
// actions, the push stream and the local asset files, served over plain
// HTTP JSON.
package rpc

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/openlifting/liftcast/competition"
	"github.com/openlifting/liftcast/relay/broker"
	"github.com/openlifting/liftcast/relay/projection"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "rpc")

// StateReader is the part of the hub the shell reports on.
type StateReader interface {
	IsReady() bool
	MissingPreconditions() []string
	ListFOPs() []string
	Locales() []string
	Snapshot(fop string) *competition.FOPUpdate
	Lifecycle(fop string) competition.SessionLifecycle
}

// Config options for the query shell.
type Config struct {
	Host           string
	Port           int
	Projections    *projection.Host
	Broker         *broker.Broker
	Reader         StateReader
	LocalDir       string
	AllowedOrigins []string
}

// Service serves the HTTP query surface.
type Service struct {
	cfg          *Config
	ctx          context.Context
	cancel       context.CancelFunc
	router       *mux.Router
	server       *http.Server
	startFailure error
}

// NewService builds the router and the underlying http server.
func NewService(ctx context.Context, cfg *Config) *Service {
	ctx, cancel := context.WithCancel(ctx)
	s := &Service{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		router: mux.NewRouter(),
	}
	s.router.Use(s.observeRequests)
	s.router.HandleFunc("/projection/{name}/{fop}", s.handleProjection).Methods(http.MethodGet)
	s.router.HandleFunc("/action", s.handleAction).Methods(http.MethodPost)
	s.router.HandleFunc("/push", s.cfg.Broker.PushHandler).Methods(http.MethodGet)
	s.router.PathPrefix("/local/").Handler(
		http.StripPrefix("/local/", http.FileServer(http.Dir(cfg.LocalDir))),
	).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.corsMiddleware(s.router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until Stop.
func (s *Service) Start() {
	go func() {
		log.WithField("address", s.server.Addr).Info("Starting query shell")
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			log.WithError(err).Error("Failed to start query shell")
			s.startFailure = err
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Service) Stop() error {
	defer s.cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(s.ctx, 2*time.Second)
	defer shutdownCancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("Existing connections terminated")
		} else {
			return err
		}
	}
	return nil
}

// Status returns an error when the listener failed to come up.
func (s *Service) Status() error {
	return s.startFailure
}

func (s *Service) corsMiddleware(h http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowCredentials: true,
		MaxAge:           600,
		AllowedHeaders:   []string{"*"},
	})
	return c.Handler(h)
}

// observeRequests logs and measures every routed request.
func (s *Service) observeRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		elapsed := time.Since(start)
		httpRequestCount.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		httpRequestLatency.WithLabelValues(route).Observe(elapsed.Seconds())
		log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": elapsed,
		}).Debug("Served request")
	})
}

// statusRecorder captures the response code and keeps the flusher visible
// for the push stream.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
