// Package server provides the HTTP exposition server for the exporter. It
// serves Prometheus metrics, a health endpoint, and a GeoIP cache debug
// endpoint.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/netsweep/netsweep/internal/geoip"
	"github.com/netsweep/netsweep/internal/logging"
	"github.com/netsweep/netsweep/internal/metrics"
)

// Server timeout constants.
const (
	serverShutdownTimeout = 30 * time.Second
	serverReadTimeout     = 10 * time.Second
	serverWriteTimeout    = 30 * time.Second
	serverIdleTimeout     = 60 * time.Second
)

// Server serves the exporter's HTTP endpoints.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	sink       *metrics.PrometheusSink
	enricher   *geoip.Enricher
	logger     *logging.Logger
}

// debugGeoIPResponse is the /debug/geoip payload.
type debugGeoIPResponse struct {
	Stats      geoip.CacheStats           `json:"stats"`
	CachedData map[string]geoip.DumpEntry `json:"cached_data"`
}

// New creates a server exposing the sink's registry. The enricher may be nil
// when GeoIP enrichment is disabled; /debug/geoip then serves an empty cache.
func New(addr string, sink *metrics.PrometheusSink, enricher *geoip.Enricher) *Server {
	server := &Server{
		router:   mux.NewRouter(),
		sink:     sink,
		enricher: enricher,
		logger:   logging.Default().WithComponent("server"),
	}

	server.setupRoutes()

	handler := handlers.RecoveryHandler()(server.router)
	handler = handlers.CORS(handlers.AllowedMethods([]string{"GET"}))(handler)

	server.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	return server
}

// Start serves until the context is canceled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting metrics server", "address", s.httpServer.Addr)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("metrics server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errChan:
		return err
	}
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	s.logger.Info("Stopping metrics server")

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Metrics server shutdown error", "error", err)
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("Metrics server stopped successfully")
	return nil
}

// Handler returns the configured router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.HandlerFor(
		s.sink.Registry(),
		promhttp.HandlerOpts{},
	)).Methods("GET")

	s.router.HandleFunc("/healthz", s.healthHandler).Methods("GET")
	s.router.HandleFunc("/debug/geoip", s.debugGeoIPHandler).Methods("GET")
	s.router.HandleFunc("/", s.rootHandler).Methods("GET")
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

// debugGeoIPHandler dumps cache statistics and every cached record with its
// fetch timestamp and validity.
func (s *Server) debugGeoIPHandler(w http.ResponseWriter, _ *http.Request) {
	response := debugGeoIPResponse{
		CachedData: map[string]geoip.DumpEntry{},
	}
	if s.enricher != nil {
		response.Stats = s.enricher.Stats()
		response.CachedData = s.enricher.Dump()
	}
	s.writeJSON(w, response)
}

func (s *Server) rootHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprint(w, `<html><head><title>netsweep</title></head>
<body><h1>netsweep</h1><p><a href="/metrics">Metrics</a></p></body></html>`)
}

func (s *Server) writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}
