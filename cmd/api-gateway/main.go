package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/pfe-match/pfe-match-api/api/swagger"
	"github.com/pfe-match/pfe-match-api/internal/handler"
	"github.com/pfe-match/pfe-match-api/internal/middleware"
	"github.com/pfe-match/pfe-match-api/internal/repository"
	"github.com/pfe-match/pfe-match-api/internal/service"
	"github.com/pfe-match/pfe-match-api/pkg/cache"
	"github.com/pfe-match/pfe-match-api/pkg/config"
	"github.com/pfe-match/pfe-match-api/pkg/database"
	"github.com/pfe-match/pfe-match-api/pkg/logger"
	corsmiddleware "github.com/pfe-match/pfe-match-api/pkg/middleware/cors"
	reqidmiddleware "github.com/pfe-match/pfe-match-api/pkg/middleware/requestid"
)

// @title PFE Match API
// @version 1.0.0
// @description Graduation project subject allocation service
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard cache disabled", "error", err)
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	subjectRepo := repository.NewSubjectRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	metricsRepo := repository.NewMetricsRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	dashboardSvc := service.NewDashboardService(metricsRepo, teamRepo, cacheRepo, logr, cfg.Dashboard.CacheTTL)
	allocationSvc := service.NewAllocationService(subjectRepo, teamRepo, metricsRepo, dashboardSvc, metricsSvc, logr,
		service.AllocationConfig{TopSubjects: cfg.Allocation.TopSubjects})
	dispatcher := service.NewRecomputeDispatcher(ctx, allocationSvc, cfg.Allocation.QueueBuffer, logr)
	defer dispatcher.Stop()

	submissionSvc := service.NewSubmissionService(studentRepo, subjectRepo, teamRepo, dispatcher, nil, logr,
		service.SubmissionConfig{Open: cfg.Submissions.Open, ClosedMessage: cfg.Submissions.ClosedMessage})
	subjectSvc := service.NewSubjectService(subjectRepo, nil, logr)
	studentSvc := service.NewStudentService(studentRepo, nil, logr)
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	exportSvc := service.NewExportService(teamRepo, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	authHandler := handler.NewAuthHandler(authSvc)
	api.POST("/auth/login", authHandler.Login)

	submissionHandler := handler.NewSubmissionHandler(submissionSvc)
	api.POST("/choices", submissionHandler.Submit)

	allocationHandler := handler.NewAllocationHandler(allocationSvc)
	api.POST("/allocations/recompute", middleware.CronToken(cfg.Allocation.RecomputeToken), allocationHandler.Recompute)

	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	api.GET("/subjects", subjectHandler.List)
	api.GET("/subjects/:id", subjectHandler.Get)

	admin := api.Group("", middleware.JWT(authSvc))
	admin.POST("/subjects", subjectHandler.Create)
	admin.PUT("/subjects/:id", subjectHandler.Update)
	admin.DELETE("/subjects/:id", subjectHandler.Delete)

	studentHandler := handler.NewStudentHandler(studentSvc)
	admin.GET("/students", studentHandler.List)
	admin.GET("/students/:matricule", studentHandler.Get)
	admin.POST("/students", studentHandler.Create)
	admin.PUT("/students/:matricule", studentHandler.Update)
	admin.DELETE("/students/:matricule", studentHandler.Delete)

	admin.GET("/choices", submissionHandler.List)
	admin.GET("/choices/:id", submissionHandler.Get)
	admin.PATCH("/choices/:id/mentor-decision", submissionHandler.DecideMentor)

	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	admin.GET("/dashboard/summary", dashboardHandler.Summary)

	exportHandler := handler.NewExportHandler(exportSvc)
	admin.GET("/exports/assignments", exportHandler.Assignments)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
