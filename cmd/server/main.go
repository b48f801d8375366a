package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/contest-communication/config"
	"github.com/d60-Lab/contest-communication/internal/api"
	"github.com/d60-Lab/contest-communication/internal/api/middleware"
	"github.com/d60-Lab/contest-communication/internal/cache"
	"github.com/d60-Lab/contest-communication/internal/service"
	"github.com/d60-Lab/contest-communication/internal/worker"
	"github.com/d60-Lab/contest-communication/pkg/database"
	"github.com/d60-Lab/contest-communication/pkg/logger"
	"github.com/d60-Lab/contest-communication/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg); err != nil {
		logger.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	sentryOn, err := telemetry.InitSentry(cfg.Sentry, cfg.Server.Mode)
	if err != nil {
		return err
	}
	if sentryOn {
		defer telemetry.FlushSentry()
	}

	pool, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	dispatcher := worker.NewDispatcher(cfg.Dispatcher.Workers, cfg.Dispatcher.QueueSize)
	stopDispatcher := dispatcher.Start()

	var opts []service.Option
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, announcement cache disabled", zap.Error(err))
		} else {
			opts = append(opts, service.WithAnnouncementCache(cache.NewAnnouncementCache(rdb, cfg.Redis.TTL)))
		}
	}
	svc := service.NewCommunicationService(pool, dispatcher, opts...)

	gin.SetMode(cfg.Server.Mode)
	routerOpts := api.Options{
		Sentry:  sentryOn,
		Limiter: middleware.NewTokenLimiter(cfg.RateLimit.QuestionsPerMinute, cfg.RateLimit.Burst, cfg.RateLimit.MaxTokens),
	}
	if cfg.Tracing.Endpoint != "" {
		routerOpts.ServiceName = cfg.Tracing.ServiceName
	}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(svc, routerOpts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := stopDispatcher(shutdownCtx); err != nil {
		logger.Warn("dispatcher stop", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
	return nil
}
