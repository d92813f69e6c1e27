package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prperemyshlev/account-service/internal/config"
	"github.com/prperemyshlev/account-service/internal/service"
	"github.com/prperemyshlev/account-service/pkg/database"
	"github.com/prperemyshlev/account-service/pkg/observability"
	"github.com/prperemyshlev/account-service/pkg/storage"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

type Infrastructure interface {
	Mongo() *database.Mongo
	Redis() *database.Redis
	MediaStore() service.MediaStore
	Logger() *zap.Logger
	MetricsHandler() http.Handler
	MeterProvider() *metric.MeterProvider

	Shutdown(ctx context.Context) error
}

type infrastructure struct {
	mongo          *database.Mongo
	redis          *database.Redis
	gcs            *storage.GCS
	logger         *zap.Logger
	metricsHandler http.Handler
	meterProvider  *metric.MeterProvider
}

var _ Infrastructure = &infrastructure{}

func NewInfrastructure(ctx context.Context, cfg config.Config) (*infrastructure, error) {
	i := &infrastructure{}

	logger, err := observability.InitLogger(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	i.logger = logger

	mongo, err := database.NewMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.ConnectTimeout.Duration)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	i.mongo = mongo

	if cfg.Mongo.RunMigrations {
		if err := database.Migrate(mongo); err != nil {
			_ = i.mongo.Close(ctx)
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info("migrations applied", zap.String("database", cfg.Mongo.Database))
	}

	redis, err := database.NewRedis(ctx, database.RedisOptions{
		Addr:        cfg.Redis.Address(),
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout.Duration,
	})
	if err != nil {
		_ = i.mongo.Close(ctx)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	i.redis = redis

	gcs, err := storage.NewGCS(ctx, cfg.Storage.Bucket, cfg.Storage.CredentialsFile)
	if err != nil {
		_ = i.mongo.Close(ctx)
		_ = i.redis.Close()
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}
	i.gcs = gcs

	meterProvider, metricsHandler, err := observability.InitTelemetry("account-service")
	if err != nil {
		_ = i.mongo.Close(ctx)
		_ = i.redis.Close()
		_ = i.gcs.Close()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	i.meterProvider = meterProvider
	i.metricsHandler = metricsHandler

	return i, nil
}

func (i *infrastructure) Mongo() *database.Mongo {
	return i.mongo
}

func (i *infrastructure) Redis() *database.Redis {
	return i.redis
}

func (i *infrastructure) MediaStore() service.MediaStore {
	return i.gcs
}

func (i *infrastructure) Logger() *zap.Logger {
	return i.logger
}

func (i *infrastructure) MetricsHandler() http.Handler {
	return i.metricsHandler
}

func (i *infrastructure) MeterProvider() *metric.MeterProvider {
	return i.meterProvider
}

func (i *infrastructure) Shutdown(ctx context.Context) error {
	errs := make(chan error, 5)

	go func() { errs <- i.mongo.Close(ctx) }()
	go func() { errs <- i.redis.Close() }()
	go func() { errs <- i.gcs.Close() }()
	go func() { errs <- i.logger.Sync() }()
	go func() { errs <- observability.Shutdown(ctx, i.meterProvider, i.logger) }()

	return errors.Join(<-errs, <-errs, <-errs, <-errs, <-errs)
}
