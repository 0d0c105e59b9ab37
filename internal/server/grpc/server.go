package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/emmett/lens/internal/ocr"
	"github.com/emmett/lens/internal/service"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Server wraps the gRPC server and services
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	service    *service.Service
	port       int

	pollInterval    time.Duration
	refreshInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// Config holds server configuration
type Config struct {
	Port    int
	Service *service.Service

	// PollInterval is how often the health status follows the tracker
	PollInterval time.Duration

	// RefreshInterval is how often availability is probed again
	RefreshInterval time.Duration
}

// NewServer creates a new gRPC server
func NewServer(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("service is required")
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}

	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Minute
	}

	s := &Server{
		grpcServer: grpc.NewServer(
			grpc.MaxRecvMsgSize(service.MaxImageSize*2),
			grpc.ChainUnaryInterceptor(logInterceptor),
		),
		health:          health.NewServer(),
		service:         cfg.Service,
		port:            cfg.Port,
		pollInterval:    cfg.PollInterval,
		refreshInterval: cfg.RefreshInterval,
	}

	// Register services
	RegisterRecognizerServer(s.grpcServer, NewRecognizerService(cfg.Service))
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	reflection.Register(s.grpcServer)

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.setStatus(cfg.Service.Availability())

	return s, nil
}

// Start listens on the configured port and serves until stopped
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}

	slog.Info("gRPC server listening", "addr", lis.Addr().String())
	return s.Serve(lis)
}

// Serve serves on an existing listener
func (s *Server) Serve(lis net.Listener) error {
	go s.watchAvailability(s.ctx)

	return s.grpcServer.Serve(lis)
}

// Stop gracefully stops the server
func (s *Server) Stop() {
	s.cancel()

	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

// watchAvailability keeps the health status in line with the tracker
func (s *Server) watchAvailability(ctx context.Context) {
	poll := time.NewTicker(s.pollInterval)
	defer poll.Stop()

	refresh := time.NewTicker(s.refreshInterval)
	defer refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-refresh.C:
			s.service.Refresh()

		case <-poll.C:
			s.setStatus(s.service.Availability())
		}
	}
}

func (s *Server) setStatus(state ocr.Availability) {
	status := healthpb.HealthCheckResponse_UNKNOWN

	switch state {
	case ocr.Available:
		status = healthpb.HealthCheckResponse_SERVING
	case ocr.Unavailable:
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

func logInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	if err != nil {
		slog.Warn("gRPC call failed", "method", info.FullMethod, "duration", time.Since(start), "error", err)
	} else {
		slog.Debug("gRPC call", "method", info.FullMethod, "duration", time.Since(start))
	}

	return resp, err
}
