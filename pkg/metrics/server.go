package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shawkym/chatpane/pkg/log"
)

// Server exposes the chatpane collectors over HTTP on its own listener, so
// scraping never shares a port with the chat pages.
type Server struct {
	http     *http.Server
	registry *prometheus.Registry
	metrics  *Metrics
}

// ServerConfig configures the metrics listener. Zero values get defaults.
type ServerConfig struct {
	Addr         string        // default ":9090"
	ReadTimeout  time.Duration // default 5s
	WriteTimeout time.Duration // default 10s

	// Registry to register into. A private one is created when nil.
	Registry *prometheus.Registry
}

// endpoints is what the index page lists, in order.
var endpoints = []struct{ path, about string }{
	{"/metrics", "OpenMetrics exposition of every chatpane_* series"},
	{"/health", "liveness as JSON"},
}

// NewServer creates a metrics server and the collectors it serves.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":9090"
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 5 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{registry: reg, metrics: NewMetrics(reg)}
	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the routes served by the metrics listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"healthy","service":"chatpane-metrics"}`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		var b strings.Builder
		b.WriteString("chatpane metrics\n\n")
		for _, e := range endpoints {
			fmt.Fprintf(&b, "  %-10s %s\n", e.path, e.about)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, b.String())
	})
	return mux
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	log.WithField("addr", s.http.Addr).Info("metrics listener up")
	err := s.http.ListenAndServe()
	if err == nil || err == http.ErrServerClosed {
		return nil
	}
	return fmt.Errorf("metrics listener: %w", err)
}

// Stop drains in-flight scrapes and closes the listener.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("metrics listener shutdown: %w", err)
	}
	log.Info("metrics listener down")
	return nil
}

// GetMetrics returns the collectors for recording.
func (s *Server) GetMetrics() *Metrics {
	return s.metrics
}
