package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sma-ekskul-api/api/swagger"
	"github.com/noah-isme/sma-ekskul-api/internal/handler"
	"github.com/noah-isme/sma-ekskul-api/internal/middleware"
	"github.com/noah-isme/sma-ekskul-api/internal/models"
	"github.com/noah-isme/sma-ekskul-api/internal/repository"
	"github.com/noah-isme/sma-ekskul-api/internal/service"
	"github.com/noah-isme/sma-ekskul-api/pkg/cache"
	"github.com/noah-isme/sma-ekskul-api/pkg/config"
	"github.com/noah-isme/sma-ekskul-api/pkg/database"
	"github.com/noah-isme/sma-ekskul-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-ekskul-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-ekskul-api/pkg/middleware/requestid"
)

// @title SMA Ekskul API
// @version 1.0.0
// @description Extracurricular enrollment and activity management
// @BasePath /api
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
		logr.Sugar().Warnw("redis unavailable, catalog caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	performanceRepo := repository.NewPerformanceRepository(db)
	predictionRepo := repository.NewPredictionRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	activitySvc := service.NewActivityService(activityRepo, cacheRepo, metricsSvc, validate, logr, cfg.Catalog.CacheTTL)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, activityRepo, validate, logr, cfg.Payments.DueIn)
	paymentSvc := service.NewPaymentService(paymentRepo, enrollmentRepo, validate, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, enrollmentRepo, validate, logr)
	performanceSvc := service.NewPerformanceService(performanceRepo, enrollmentRepo, validate, logr)
	riskSvc := service.NewRiskService(predictionRepo, service.RiskConfig{
		Enabled: cfg.AI.Enabled,
		BaseURL: cfg.AI.BaseURL,
		Timeout: cfg.AI.Timeout,
	}, validate, logr)
	reportSvc := service.NewReportService(enrollmentRepo, activityRepo, logr)

	reminderSvc := service.NewReminderService(paymentRepo, notificationRepo, metricsSvc, logr, service.ReminderConfig{
		Interval: cfg.Reminders.Interval,
		Workers:  cfg.Reminders.Workers,
		DueSoon:  cfg.Reminders.DueSoon,
	})
	if cfg.Reminders.Enabled {
		reminderSvc.Start(context.Background())
		defer reminderSvc.Stop()
	}

	authHandler := handler.NewAuthHandler(authSvc)
	activityHandler := handler.NewActivityHandler(activitySvc, reportSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, metricsSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	performanceHandler := handler.NewPerformanceHandler(performanceSvc)
	riskHandler := handler.NewRiskHandler(riskSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Profile)
	}

	activities := api.Group("/activities")
	{
		activities.GET("", activityHandler.List)
		activities.GET("/:id", activityHandler.Get)
		activities.POST("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), activityHandler.Create)
		activities.PUT("/:id/status", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), activityHandler.UpdateStatus)
		activities.GET("/:id/report", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), activityHandler.Report)
	}

	enrollments := api.Group("/enrollments", middleware.JWT(authSvc))
	{
		enrollments.GET("", enrollmentHandler.List)
		enrollments.GET("/:id", enrollmentHandler.Get)
		enrollments.POST("", middleware.RequireRoles(models.RoleStudent), enrollmentHandler.Create)
		enrollments.PUT("/:id/status", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), enrollmentHandler.UpdateStatus)
		enrollments.DELETE("/:id", middleware.RequireRoles(models.RoleStudent), enrollmentHandler.Delete)
		enrollments.GET("/student/:studentId/summary", middleware.RBAC("TEACHER", "ADMIN", "SELF"), enrollmentHandler.Summary)
	}

	payments := api.Group("/payments", middleware.JWT(authSvc))
	{
		payments.GET("", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), paymentHandler.List)
		payments.POST("", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), paymentHandler.Record)
		payments.GET("/student/:studentId", middleware.RBAC("TEACHER", "ADMIN", "SELF"), paymentHandler.ListByStudent)
	}

	attendance := api.Group("/attendance", middleware.JWT(authSvc))
	{
		attendance.GET("", attendanceHandler.List)
		attendance.POST("", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), attendanceHandler.Mark)
		attendance.GET("/enrollment/:enrollmentId/summary", attendanceHandler.Summary)
	}

	performance := api.Group("/performance", middleware.JWT(authSvc))
	{
		performance.GET("", performanceHandler.List)
		performance.POST("", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), performanceHandler.Record)
	}

	notifications := api.Group("/notifications", middleware.JWT(authSvc))
	{
		notifications.GET("", notificationHandler.List)
		notifications.PUT("/:id/read", notificationHandler.MarkRead)
	}

	ai := api.Group("/ai", middleware.JWT(authSvc))
	{
		ai.POST("/dropout-risk", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), riskHandler.Assess)
		ai.GET("/predictions", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), riskHandler.History)
		ai.GET("/recommendations/:studentId", riskHandler.Recommend)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	if redisClient != nil {
		_ = cacheRepo.Close()
	}
}
