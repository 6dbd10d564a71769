package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/po-extract/internal/common"
	processor "github.com/joseph-ayodele/po-extract/internal/pipeline"
	"github.com/joseph-ayodele/po-extract/internal/server"
)

func main() {
	configPath := flag.String("config", "", "YAML config file overriding the environment")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	logger := common.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, jobs, err := server.OpenJournal(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("journal setup failed", "error", err)
		os.Exit(1)
	}
	defer db.Close(logger)

	proc := processor.NewFromConfig(cfg.OCR, logger)
	if jobs != nil {
		proc.WithJournal(jobs)
	}

	svc := server.NewExtractionService(proc, jobs, cfg.Server, logger)
	grpcServer, hs := server.NewGRPCServer(svc, cfg.Server.MaxUploadBytes, logger)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("listen failed", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	logger.Info("gRPC serving", "addr", lis.Addr().String(), "journal", jobs != nil)

	serveErr := make(chan error, 1)
	go func() { serveErr <- grpcServer.Serve(lis) }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down...")
	case err := <-serveErr:
		logger.Error("grpc serve failed", "error", err)
	}
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	grpcServer.GracefulStop()
	logger.Info("stopped")
}
