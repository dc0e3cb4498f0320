package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/planner-api/api/swagger"
	"github.com/noah-isme/planner-api/internal/client"
	"github.com/noah-isme/planner-api/internal/conflict"
	"github.com/noah-isme/planner-api/internal/handler"
	"github.com/noah-isme/planner-api/internal/repository"
	"github.com/noah-isme/planner-api/internal/service"
	"github.com/noah-isme/planner-api/pkg/cache"
	"github.com/noah-isme/planner-api/pkg/config"
	"github.com/noah-isme/planner-api/pkg/database"
	"github.com/noah-isme/planner-api/pkg/jobs"
	"github.com/noah-isme/planner-api/pkg/logger"
)

// @title Planner API
// @version 0.1.0
// @description Conflict detection for student term plans
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Migrations.OnStart {
		applied, err := database.Migrate(db)
		if err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
		logr.Info("migrations applied", zap.Int("count", applied))
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, requisite cache disabled", zap.Error(err))
	}
	var cacheClient redis.UniversalClient
	if redisClient != nil {
		cacheClient = redisClient
	}
	cacheRepo := repository.NewCacheRepository(cacheClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Requisites.Retention, logr, cfg.Requisites.CacheEnabled && cacheClient != nil)

	requisiteRepo := repository.NewRequisiteRepository(db)
	source, err := requisiteSource(cfg, requisiteRepo, logr)
	if err != nil {
		logr.Fatal("failed to configure requisite source", zap.Error(err))
	}
	requisiteSvc := service.NewRequisiteService(service.RequisiteServiceParams{
		Provider:  source,
		Cache:     cacheSvc,
		Freshness: cfg.Requisites.Freshness,
		Retention: cfg.Requisites.Retention,
		Logger:    logr,
	})

	tracker := service.NewConflictTracker(metricsSvc, logr)
	tracker.SetIdleTTL(cfg.Requisites.Retention)
	conflictSvc := service.NewConflictService(service.ConflictServiceParams{
		Plans:      repository.NewPlanRepository(db),
		Requisites: requisiteSvc,
		Tracker:    tracker,
		Metrics:    metricsSvc,
		Location:   cfg.Plan.Location(),
		Logger:     logr,
	})

	queue := jobs.NewQueue("conflicts", conflictSvc.HandleRecompute, jobs.QueueConfig{
		Workers:    cfg.Conflicts.Workers,
		BufferSize: cfg.Conflicts.QueueBuffer,
		MaxRetries: cfg.Conflicts.MaxRetries,
		RetryDelay: cfg.Conflicts.RetryDelay,
		Logger:     logr,
	})
	queue.Start(context.Background())
	defer queue.Stop()
	conflictSvc.UseQueue(queue)

	refreshParams := service.RefreshServiceParams{
		Cache:    requisiteSvc,
		Tracker:  tracker,
		Metrics:  metricsSvc,
		Schedule: cfg.Requisites.RefreshCron,
		Logger:   logr,
	}
	if cfg.Requisites.Source == config.RequisiteSourceDatabase {
		refreshParams.Views = requisiteRepo
	}
	refreshSvc := service.NewRefreshService(refreshParams)
	if cfg.Requisites.RefreshEnabled {
		if err := refreshSvc.Start(); err != nil {
			logr.Fatal("failed to schedule requisite refresh", zap.Error(err))
		}
		defer refreshSvc.Stop()
	}

	probes := map[string]handler.ReadinessProbe{
		"database": db.PingContext,
		"redis":    cacheRepo.Ping,
	}
	r := newRouter(cfg, logr, routerDeps{
		conflicts: conflictSvc,
		exports:   service.NewExportService(logr, nil, nil),
		tokens:    service.NewTokenService(cfg.JWT.Secret, 30*time.Second),
		metrics:   metricsSvc,
		probes:    probes,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

func requisiteSource(cfg *config.Config, repo *repository.RequisiteRepository, logr *zap.Logger) (conflict.RequisiteProvider, error) {
	if cfg.Requisites.Source != config.RequisiteSourceHTTP {
		return repo, nil
	}
	remote, err := client.NewRequisiteClient(client.RequisiteClientConfig{
		BaseURL: cfg.Requisites.BaseURL,
		Timeout: cfg.Requisites.Timeout,
		Breaker: client.BreakerSettings{
			MaxRequests:  cfg.Requisites.Breaker.MaxRequests,
			Interval:     cfg.Requisites.Breaker.Interval,
			Timeout:      cfg.Requisites.Breaker.Timeout,
			FailureRatio: cfg.Requisites.Breaker.FailureRatio,
			MinRequests:  cfg.Requisites.Breaker.MinRequests,
		},
		Logger: logr,
	})
	if err != nil {
		return nil, err
	}
	return remote, nil
}
