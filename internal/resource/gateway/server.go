// Package gateway is the HTTP face of a resource guard: it matches the
// service's route table, enforces each route's policy and forwards admitted
// requests to the upstream service.
package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/shopauth/internal/logging"
	"github.com/dmitrijs2005/shopauth/internal/metrics"
	"github.com/dmitrijs2005/shopauth/internal/resource/guard"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	address string
	routes  []Route
	guard   *guard.Guard
	proxy   http.Handler
	logger  logging.Logger
}

func NewServer(address string, upstream *url.URL, routes []Route, g *guard.Guard, l logging.Logger) *Server {
	logger := l.With("module", "gateway")
	return &Server{
		address: address,
		routes:  routes,
		guard:   g,
		proxy:   newProxy(upstream, logger),
		logger:  logger,
	}
}

// Handler returns the routed, instrumented handler. Paths outside the route
// table are answered locally with 404 and never reach the upstream.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}` + "\n"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	for _, rt := range s.routes {
		h := s.proxy
		if !rt.Anonymous {
			h = s.guard.Require(rt.Policy)(h)
		}
		r.Handle(rt.Path, h).Methods(rt.Method)
	}

	r.Use(metrics.Instrument)
	return r
}

func (s *Server) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
