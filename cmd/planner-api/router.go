package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/planner-api/internal/handler"
	"github.com/noah-isme/planner-api/internal/middleware"
	"github.com/noah-isme/planner-api/internal/service"
	"github.com/noah-isme/planner-api/pkg/config"
	"github.com/noah-isme/planner-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/planner-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/planner-api/pkg/middleware/requestid"
)

type routerDeps struct {
	conflicts *service.ConflictService
	exports   *service.ExportService
	tokens    *service.TokenService
	metrics   *service.MetricsService
	probes    map[string]handler.ReadinessProbe
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics, "/metrics", "/health", "/ready"))

	metricsHandler := handler.NewMetricsHandler(deps.metrics, deps.probes)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Docs.Enabled && cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	conflictHandler := handler.NewConflictHandler(deps.conflicts, deps.exports)
	api := r.Group(cfg.APIPrefix)
	plan := api.Group("/plan/conflicts", middleware.JWT(deps.tokens), middleware.WithResponseMeta())
	plan.GET("", conflictHandler.Evaluate)
	plan.GET("/courses/:courseId", conflictHandler.CourseConflicts)
	plan.GET("/export", conflictHandler.Export)
	plan.POST("/preview", conflictHandler.Preview)
	plan.POST("/refresh", conflictHandler.Refresh)

	return r
}
