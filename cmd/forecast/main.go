package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/air-quality-forecast/internal/adapter/csvdir"
	httpadapter "github.com/couchcryptid/air-quality-forecast/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/air-quality-forecast/internal/adapter/kafka"
	"github.com/couchcryptid/air-quality-forecast/internal/adapter/model"
	"github.com/couchcryptid/air-quality-forecast/internal/adapter/postgres"
	"github.com/couchcryptid/air-quality-forecast/internal/adapter/s3source"
	"github.com/couchcryptid/air-quality-forecast/internal/adapter/session"
	"github.com/couchcryptid/air-quality-forecast/internal/adapter/stationfile"
	"github.com/couchcryptid/air-quality-forecast/internal/config"
	"github.com/couchcryptid/air-quality-forecast/internal/domain"
	"github.com/couchcryptid/air-quality-forecast/internal/observability"
	"github.com/couchcryptid/air-quality-forecast/internal/pipeline"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, metrics); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	registry, err := stationfile.Load(cfg.StationsFile)
	if err != nil {
		return err
	}

	src, closeSource, err := newSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	models := newModelHolder(cfg, logger)
	models.OnStatus(func(s domain.ModelStatus) {
		if s.Available {
			metrics.ModelAvailable.Set(1)
		} else {
			metrics.ModelAvailable.Set(0)
		}
	})
	// The service still serves stats without a model; predictions report
	// model_unavailable until a reload succeeds.
	if err := models.Reload(ctx); err != nil {
		logger.Warn("starting without a model", "error", err)
	}

	var publisher pipeline.PredictionPublisher
	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaPredictionsTopic, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		publisher = writer
		logger.Info("prediction events enabled", "topic", cfg.KafkaPredictionsTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("prediction events disabled")
	}

	store, closeStore, err := newSessionStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	forecaster := pipeline.NewForecaster(registry, models, publisher,
		domain.WindowOptions{RequireContiguous: cfg.RequireContiguous}, logger, metrics)
	sessions := pipeline.NewSessions(store, forecaster, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, forecaster, sessions, models, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Liveness is up while the corpus loads; /readyz flips once it is in.
	ds, _, err := pipeline.LoadDataset(ctx, src, logger, metrics)
	if err != nil {
		shutdown(cfg, srv, logger)
		return err
	}
	forecaster.SetDataset(ds)

	<-ctx.Done()
	shutdown(cfg, srv, logger)
	return nil
}

func shutdown(cfg *config.Config, srv *httpadapter.Server, logger *slog.Logger) {
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

func newSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (pipeline.Source, func(), error) {
	switch cfg.DatasetSource {
	case config.SourcePostgres:
		src, err := postgres.NewSource(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("dataset source", "kind", cfg.DatasetSource, "source", src.String())
		return src, src.Close, nil
	case config.SourceS3:
		src, err := s3source.NewSource(s3source.Options{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("dataset source", "kind", cfg.DatasetSource, "source", src.String())
		return src, func() {}, nil
	default:
		src := csvdir.NewSource(cfg.DatasetDir, logger)
		logger.Info("dataset source", "kind", cfg.DatasetSource, "source", src.String())
		return src, func() {}, nil
	}
}

func newModelHolder(cfg *config.Config, logger *slog.Logger) *model.Holder {
	var h *model.Holder
	switch cfg.ModelBackend {
	case config.BackendTFServing:
		client := model.NewTFServing(cfg.TFServingURL, cfg.TFServingModel, cfg.ModelTimeout, logger)
		h = model.NewHolder(cfg.ModelBackend, client.String(), model.TFServingLoader(client), logger)
	default:
		h = model.NewHolder(cfg.ModelBackend, cfg.ModelPath, model.FileLoader(cfg.ModelPath), logger)
	}
	h.SetTimeout(cfg.ModelTimeout)
	return h
}

func newSessionStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.SessionStore, func(), error) {
	if cfg.SessionStore != config.StoreRedis {
		logger.Info("session store", "kind", config.StoreMemory, "size", cfg.SessionCacheSize, "ttl", cfg.SessionTTL)
		return session.NewMemoryStore(cfg.SessionCacheSize, cfg.SessionTTL), func() {}, nil
	}
	client, err := session.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info("session store", "kind", config.StoreRedis, "addr", cfg.RedisAddr, "ttl", cfg.SessionTTL)
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}
	return session.NewRedisStore(client, cfg.SessionTTL), closeFn, nil
}
