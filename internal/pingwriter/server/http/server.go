package http

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/service"
	"github.com/autopeer-io/drivertrack/internal/pkg/metrics"
	"github.com/autopeer-io/drivertrack/pkg/log"
	"github.com/autopeer-io/drivertrack/pkg/options"
)

// ReadinessFunc returns nil when the service can accept writes.
type ReadinessFunc func() error

type Server struct {
	server  *http.Server
	options *options.HttpOptions
}

func NewServer(opts *options.HttpOptions, svc *service.Service, ready ReadinessFunc) *Server {
	return &Server{
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           NewRouter(opts, svc, ready),
			ReadHeaderTimeout: opts.ReadHeaderTimeout,
		},
		options: opts,
	}
}

// NewRouter wires every route of the ping writer.
func NewRouter(opts *options.HttpOptions, svc *service.Service, ready ReadinessFunc) http.Handler {
	h := &handler{svc: svc, ready: ready, maxBody: opts.MaxBodyBytes}

	r := mux.NewRouter()
	r.Use(recoverer, requestLogger, instrument)
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.liveness).Methods(http.MethodGet)
	r.HandleFunc("/readyz", h.readiness).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/drivers/ping", h.createPing).Methods(http.MethodPost)
	v1.HandleFunc("/drivers/{driverId}/pings", h.listPings).Methods(http.MethodGet)

	return r
}

func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen(s.options.Network, s.server.Addr)
	if err != nil {
		return err
	}

	log.Info("Starting HTTP Server", "addr", lis.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("Shutting down HTTP Server", "timeout", s.options.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
