package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emmett/lens/internal/config"
	"github.com/emmett/lens/internal/otel"
	"github.com/emmett/lens/internal/server/api"
	grpcserver "github.com/emmett/lens/internal/server/grpc"
	"github.com/emmett/lens/internal/server/mcp"
	"github.com/emmett/lens/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file (default: ~/.lensrc or /etc/lens/config.yaml)")
	port        = flag.Int("port", 0, "gRPC server port (default: 50051)")
	httpAddr    = flag.String("http-addr", "", "HTTP listen address (default: :8080)")
	rateLimit   = flag.Float64("rate-limit", -1, "Recognition runs per second (0 = unlimited)")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Lens Server v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	fmt.Printf("Lens Server v%s (commit: %s)\n", Version, GitCommit)

	godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := otel.Setup(ctx, "lens-server", Version, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up telemetry: %v\n", err)
		os.Exit(1)
	}
	defer shutdown(context.Background())

	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *port > 0 {
		cfg.Server.GRPCPort = *port
	}
	if *httpAddr != "" {
		cfg.Server.HTTPAddr = *httpAddr
	}
	if *rateLimit >= 0 {
		cfg.Server.RateLimit = *rateLimit
	}

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	svc := service.New(service.Config{
		Settings:  cfg.Settings(),
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
		Logger:    slog.Default(),
	})

	grpcServer, err := grpcserver.NewServer(grpcserver.Config{
		Port:    cfg.Server.GRPCPort,
		Service: svc,
	})
	if err != nil {
		return fmt.Errorf("failed to create gRPC server: %w", err)
	}

	handler, err := api.New(svc)
	if err != nil {
		return fmt.Errorf("failed to create HTTP handler: %w", err)
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		ServerName:    "lens-mcp",
		ServerVersion: Version,
		Service:       svc,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	r := chi.NewRouter()
	r.Mount("/mcp", mcpServer.Handler())
	r.Mount("/", handler.Router())

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 2)

	go func() {
		errChan <- grpcServer.Start()
	}()

	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)

		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
			return
		}
		errChan <- nil
	}()

	select {
	case <-ctx.Done():
		fmt.Println("\nShutting down...")

	case err := <-errChan:
		if err != nil {
			grpcServer.Stop()
			httpServer.Close()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcServer.Stop()
	return httpServer.Shutdown(shutdownCtx)
}
