package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	holidayadapter "github.com/couchcryptid/suspension-forecast/internal/adapter/holidays"
	httpadapter "github.com/couchcryptid/suspension-forecast/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/suspension-forecast/internal/adapter/kafka"
	"github.com/couchcryptid/suspension-forecast/internal/adapter/store"
	"github.com/couchcryptid/suspension-forecast/internal/config"
	"github.com/couchcryptid/suspension-forecast/internal/domain"
	"github.com/couchcryptid/suspension-forecast/internal/feature"
	"github.com/couchcryptid/suspension-forecast/internal/model"
	"github.com/couchcryptid/suspension-forecast/internal/observability"
	"github.com/couchcryptid/suspension-forecast/internal/pipeline"
	"github.com/couchcryptid/suspension-forecast/internal/risk"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	units, err := config.LoadUnits(os.Getenv("UNITS_CONFIG"))
	if err != nil {
		logger.Error("failed to load unit table", "error", err)
		os.Exit(1)
	}

	artifact, err := model.LoadArtifact(cfg.ModelArtifactPath)
	if err != nil {
		logger.Error("failed to load model artifact", "error", err)
		os.Exit(1)
	}
	scorer, err := model.NewScorer(artifact)
	if err != nil {
		logger.Error("failed to compile model", "error", err)
		os.Exit(1)
	}
	logger.Info("model loaded", "version", scorer.Version(), "units", units.Table.Count())

	builder, err := feature.NewBuilder(units.Table, units.RainyMonths, units.SchoolYearStart)
	if err != nil {
		logger.Error("failed to build feature engine", "error", err)
		os.Exit(1)
	}

	interpreter, err := risk.NewInterpreter(cfg.PredictionThreshold)
	if err != nil {
		logger.Error("failed to build risk interpreter", "error", err)
		os.Exit(1)
	}

	holidayClient := holidayadapter.NewClient(cfg.HolidayAPIBaseURL, cfg.HolidayCountry, cfg.HolidayAPITimeout, logger, metrics)
	var holidays domain.HolidayProvider = holidayadapter.NewCachedProvider(holidayClient, metrics)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	var history *store.Store
	var batchSource httpadapter.BatchSource
	loaders := []pipeline.BatchLoader{}
	if cfg.HistoryDBPath != "" {
		history, err = store.Open(cfg.HistoryDBPath, logger)
		if err != nil {
			logger.Error("failed to open history db", "error", err)
			os.Exit(1)
		}
		batchSource = history
		loaders = append(loaders, history)
		logger.Info("history persistence enabled", "path", cfg.HistoryDBPath)
	} else {
		logger.Info("history persistence disabled")
	}

	predictor := pipeline.NewPredictor(units.Table, builder, scorer, interpreter, holidays, logger, metrics)
	loader := pipeline.NewMultiLoader(writer, logger, loaders...)
	p := pipeline.New(reader, predictor, loader, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, batchSource, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start prediction pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
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
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if history != nil {
		if err := history.Close(); err != nil {
			logger.Error("history db close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
