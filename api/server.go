package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/michaelpento.lv/triscan/config"
	"github.com/michaelpento.lv/triscan/scanner"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes the scanner over HTTP and WebSocket
type Server struct {
	cfg      config.ServerConfig
	watch    config.ScannerConfig
	metrics  string
	scanner  *scanner.Scanner
	gatherer prometheus.Gatherer
	sinks    []scanner.Sink
	upgrader websocket.Upgrader
	logger   *zap.Logger
	router   *mux.Router
}

// NewServer builds the router. Extra sinks receive every opportunity found
// by WebSocket watch sessions, next to the session itself.
func NewServer(cfg *config.Config, s *scanner.Scanner, gatherer prometheus.Gatherer, logger *zap.Logger, sinks ...scanner.Sink) *Server {
	srv := &Server{
		cfg:      cfg.Server,
		watch:    cfg.Scanner,
		metrics:  cfg.Metrics.Path,
		scanner:  s,
		gatherer: gatherer,
		sinks:    sinks,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
	if srv.metrics == "" {
		srv.metrics = "/metrics"
	}
	srv.router = srv.routes()
	return srv
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.withLogging, withCORS)

	router.HandleFunc("/scan", s.handleScan).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/analyze-path", s.handleAnalyzePath).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/tokens/{network}", s.handleTokens).Methods(http.MethodGet)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/ws", s.handleWatch)
	router.Handle(s.metrics, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})).Methods(http.MethodGet)

	return router
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is done and then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server starting", zap.String("addr", s.cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// upgraded connections need the raw writer
		if websocket.IsWebSocketUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}
