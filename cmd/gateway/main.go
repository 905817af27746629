package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"gorm.io/gorm"

	"warehouse-system/config"
	"warehouse-system/internal/cache"
	"warehouse-system/internal/database"
	"warehouse-system/internal/events"
	"warehouse-system/internal/gateway"
	"warehouse-system/internal/health"
	"warehouse-system/internal/logger"
	"warehouse-system/internal/metrics"
	"warehouse-system/internal/storage"
	"warehouse-system/internal/tracing"
	sysutils "warehouse-system/internal/utils"
)

const (
	shutdownTimeout = 15 * time.Second
	healthInterval  = 30 * time.Second
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init(cfg.ServiceName, cfg.Log.Development)
	logger.SetLevel(cfg.Log.Level)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.ServiceName, cfg.Tracing.JaegerEndpoint)
		if err != nil {
			logger.Logger.Warn().Err(err).Msg("Tracing disabled")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tracing.Shutdown(ctx, tp)
			}()
		}
	}

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to db")
	}
	if err := database.Migrate(db); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = config.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Logger.Warn().Err(err).Msg("Redis unavailable, running without cache")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	publisher, err := newPublisher(cfg.Events, redisClient)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to create event publisher")
	}
	defer publisher.Close()

	documents, err := storage.NewDocumentStore(cfg.Storage)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to create document store")
	}
	if documents != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := documents.EnsureBucket(ctx); err != nil {
			logger.Logger.Warn().Err(err).Msg("Document bucket not ready")
		}
		cancel()
	}

	checker := newChecker(cfg, db, redisClient, documents)
	m := metrics.New("warehouse")

	router, err := gateway.NewRouter(gateway.Deps{
		Config:    cfg,
		DB:        db,
		Cache:     cache.New(redisClient),
		Publisher: publisher,
		Metrics:   m,
		Tokens:    sysutils.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Documents: documents,
		Health:    checker,
	})
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to build router")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go checker.Watch(ctx, healthInterval)

	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, checker.GRPCServer())
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", ":"+cfg.GRPC.Port)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to listen")
	}
	go func() {
		logger.Logger.Info().Str("port", cfg.GRPC.Port).Msg("gRPC health service listening")
		if err := grpcServer.Serve(lis); err != nil {
			logger.Logger.Error().Err(err).Msg("gRPC server stopped")
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	go func() {
		logger.Logger.Info().Str("port", cfg.HTTP.Port).Msg("Warehouse API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logger.Logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("HTTP shutdown failed")
	}
	grpcServer.GracefulStop()
}

func newPublisher(cfg config.EventsConfig, redisClient *redis.Client) (events.Publisher, error) {
	switch cfg.Driver {
	case "kafka":
		return events.NewKafkaPublisher(cfg.Brokers, cfg.Topic)
	case "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("redis events driver needs a reachable Redis")
		}
		return events.NewRedisPublisher(redisClient, cfg.ChannelPrefix), nil
	}
	return events.Nop{}, nil
}

func newChecker(cfg config.Config, db *gorm.DB, redisClient *redis.Client, documents *storage.DocumentStore) *health.Checker {
	checker := health.NewChecker(cfg.ServiceName)
	checker.Register("database", true, func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	if redisClient != nil {
		checker.Register("redis", false, func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	if documents != nil {
		checker.Register("storage", false, documents.Ping)
	}
	return checker
}
