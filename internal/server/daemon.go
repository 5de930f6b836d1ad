package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vibealong/vibealong/internal/config"
	"github.com/vibealong/vibealong/internal/logging"
	"github.com/vibealong/vibealong/internal/playback"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// Daemon runs the HTTP API and a gRPC health endpoint until its context ends.
type Daemon struct {
	cfg      config.ServerConfig
	server   *Server
	playback *playback.Service
	limiter  *RateLimiter
	logger   zerolog.Logger

	httpServer *http.Server
	grpcServer *grpc.Server
	health     *health.Server

	httpListener net.Listener
	grpcListener net.Listener
}

// NewDaemon wires a daemon around an HTTP server.
func NewDaemon(cfg config.ServerConfig, srv *Server, svc *playback.Service) (*Daemon, error) {
	if srv == nil || svc == nil {
		return nil, errors.New("server and playback service are required")
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}

	healthServer := health.NewServer()
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(srv.opts.RateLimiter.UnaryServerInterceptor()),
		grpc.StreamInterceptor(srv.opts.RateLimiter.StreamServerInterceptor()),
	)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	return &Daemon{
		cfg:      cfg,
		server:   srv,
		playback: svc,
		limiter:  srv.opts.RateLimiter,
		logger:   logging.Component("daemon"),
		httpServer: &http.Server{
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		grpcServer: grpcServer,
		health:     healthServer,
	}, nil
}

// Listen binds both listeners. Port 0 picks a free port.
func (d *Daemon) Listen() error {
	httpAddr := net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port))
	httpListener, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", httpAddr, err)
	}

	grpcAddr := net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.GRPCPort))
	grpcListener, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		_ = httpListener.Close()
		return fmt.Errorf("failed to listen on %s: %w", grpcAddr, err)
	}

	d.httpListener = httpListener
	d.grpcListener = grpcListener
	return nil
}

// HTTPAddr returns the bound HTTP address, empty before Listen.
func (d *Daemon) HTTPAddr() string {
	if d.httpListener == nil {
		return ""
	}
	return d.httpListener.Addr().String()
}

// GRPCAddr returns the bound gRPC address, empty before Listen.
func (d *Daemon) GRPCAddr() string {
	if d.grpcListener == nil {
		return ""
	}
	return d.grpcListener.Addr().String()
}

// Run listens if needed and serves until ctx is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if d.httpListener == nil {
		if err := d.Listen(); err != nil {
			return err
		}
	}

	d.logger.Info().
		Str("http", d.HTTPAddr()).
		Str("grpc", d.GRPCAddr()).
		Str("version", d.server.opts.Version).
		Msg("vibealong server starting")

	errCh := make(chan error, 2)
	go func() {
		if err := d.httpServer.Serve(d.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()
	go func() {
		if err := d.grpcServer.Serve(d.grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()
	d.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go d.playback.RunJanitor(janitorCtx)

	var runErr error
	select {
	case <-ctx.Done():
		d.logger.Info().Msg("vibealong server shutting down...")
	case runErr = <-errCh:
		d.logger.Error().Err(runErr).Msg("server failed")
	}

	d.health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := d.httpServer.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn().Err(err).Msg("http shutdown incomplete")
	}
	d.grpcServer.GracefulStop()
	stopJanitor()
	d.playback.Shutdown()

	d.logger.Info().Msg("vibealong server shutdown complete")
	return runErr
}
