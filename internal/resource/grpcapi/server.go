// Package grpcapi runs a guard's gRPC listener: the standard health service
// plus any resource services mounted behind the guard interceptor.
package grpcapi

import (
	"context"
	"net"

	"github.com/dmitrijs2005/shopauth/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Readiness reports whether the guard can validate tokens.
type Readiness interface {
	Len() int
}

type GRPCServer struct {
	address     string
	service     string
	interceptor grpc.UnaryServerInterceptor
	register    func(*grpc.Server)
	ready       Readiness
	health      *health.Server
	logger      logging.Logger
}

// NewGRPCServer builds a server for service. register mounts resource
// handlers, which run behind interceptor; it may be nil.
func NewGRPCServer(a, service string, l logging.Logger, interceptor grpc.UnaryServerInterceptor, ready Readiness, register func(*grpc.Server)) *GRPCServer {
	return &GRPCServer{
		address:     a,
		service:     service,
		interceptor: interceptor,
		register:    register,
		ready:       ready,
		health:      health.NewServer(),
		logger:      l.With("module", "grpc_server"),
	}
}

// UpdateHealth publishes SERVING while verification keys are loaded and
// NOT_SERVING otherwise.
func (s *GRPCServer) UpdateHealth() {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if s.ready.Len() > 0 {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(s.service, st)
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on listen until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {

	// creates gRPC-server
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.interceptor))

	// registers services
	healthpb.RegisterHealthServer(srv, s.health)
	if s.register != nil {
		s.register(srv)
	}
	s.UpdateHealth()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
