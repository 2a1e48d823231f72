package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/brew-water-service/internal/adapter/geoapi"
	"github.com/couchcryptid/brew-water-service/internal/adapter/httpadapter"
	"github.com/couchcryptid/brew-water-service/internal/adapter/hubeau"
	kafkaadapter "github.com/couchcryptid/brew-water-service/internal/adapter/kafka"
	"github.com/couchcryptid/brew-water-service/internal/config"
	"github.com/couchcryptid/brew-water-service/internal/domain"
	"github.com/couchcryptid/brew-water-service/internal/observability"
	"github.com/couchcryptid/brew-water-service/internal/pipeline"
	"github.com/couchcryptid/brew-water-service/internal/report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	shutdownTracing, err := observability.InitTracing(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}

	source := hubeau.NewClient(cfg, metrics, logger)
	directory := geoapi.NewCachedDirectory(geoapi.NewClient(cfg, metrics, logger), cfg.GeoCacheSize, metrics)

	svc, err := report.NewService(source, directory, domain.DefaultRegistry(), metrics, logger)
	if err != nil {
		logger.Error("invalid registry", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Readiness follows the pipeline when it runs, otherwise the directory probe.
	var ready sharedobs.ReadinessChecker = svc
	var reader *kafkaadapter.Reader
	var writer *kafkaadapter.Writer
	pipelineDone := make(chan struct{})

	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		p := pipeline.New(reader, pipeline.NewTransformer(svc, logger), writer, logger, metrics, cfg.BatchSize, cfg.PipelineConcurrency)
		ready = p

		go func() {
			defer close(pipelineDone)
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	} else {
		close(pipelineDone)
		logger.Info("report pipeline disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, ready, metrics, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	select {
	case <-pipelineDone:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracer shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
