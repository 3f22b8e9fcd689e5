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
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/regulars-api/api/swagger"
	"github.com/noah-isme/regulars-api/internal/handler"
	"github.com/noah-isme/regulars-api/internal/repository"
	"github.com/noah-isme/regulars-api/internal/service"
	"github.com/noah-isme/regulars-api/pkg/cache"
	"github.com/noah-isme/regulars-api/pkg/config"
	"github.com/noah-isme/regulars-api/pkg/database"
	"github.com/noah-isme/regulars-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// @title Regulars API
// @version 1.0.0
// @description Dance class passes, attendance and renewals
// @BasePath /api/v1
// @schemes http https
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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, report cache disabled", zap.Error(err))
		redisClient = nil
	}

	loc := cfg.Club.Location()
	validate := validator.New()
	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	dancerRepo := repository.NewDancerRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	userRepo := repository.NewUserRepository(db)
	passRepo := repository.NewPassRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, "regulars", logr)
	defer cacheRepo.Close() //nolint:errcheck

	auditSvc := service.NewAuditService(auditRepo, db, validate, logr, loc)
	settingsSvc := service.NewSettingsService(settingsRepo, auditSvc, db, validate, logr)
	notificationSvc := service.NewNotificationService(enrollmentRepo, passRepo, batchRepo, settingsSvc, logr, loc)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Reports.CacheTTL, logr, cfg.Reports.CacheEnabled && redisClient != nil)
	reportSvc := service.NewReportService(reportRepo, notificationSvc, batchRepo, cacheSvc, cfg.Reports.CacheTTL, validate, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, auditSvc, db, validate, logr)
	batchSvc := service.NewBatchService(batchRepo, userRepo, notificationSvc, auditSvc, db, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, dancerRepo, batchRepo, auditSvc, db, validate, logr)
	dancerSvc := service.NewDancerService(service.DancerServiceDeps{
		Dancers:     dancerRepo,
		Enrollments: enrollmentRepo,
		Batches:     batchRepo,
		Passes:      passRepo,
		Attendance:  attendanceRepo,
		Settings:    settingsSvc,
		Audit:       auditSvc,
		Tx:          db,
		Validator:   validate,
		Logger:      logr,
		Location:    loc,
	})
	passSvc := service.NewPassService(passRepo, dancerRepo, batchRepo, sessionRepo, settingsSvc, auditSvc, db, validate, logr, service.PassServiceConfig{
		MonthlyPeriodDays:    cfg.Passes.MonthlyPeriodDays,
		DefaultClassPackSize: cfg.Passes.DefaultClassPackSize,
		Location:             loc,
	})
	attendanceSvc := service.NewAttendanceService(service.AttendanceServiceDeps{
		Sessions:    sessionRepo,
		Batches:     batchRepo,
		Dancers:     dancerRepo,
		Enrollments: enrollmentRepo,
		Passes:      passRepo,
		Attendance:  attendanceRepo,
		Settings:    settingsSvc,
		Audit:       auditSvc,
		Reports:     reportSvc,
		Metrics:     metrics,
		Tx:          db,
		Validator:   validate,
		Logger:      logr,
		Location:    loc,
	})
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Batches:    batchRepo,
		Dancers:    dancerRepo,
		Sessions:   sessionRepo,
		Attendance: attendanceRepo,
		Lookups:    notificationSvc,
		Logger:     logr,
		Location:   loc,
	})

	h := handlers{
		auth:          handler.NewAuthHandler(authSvc),
		settings:      handler.NewSettingsHandler(settingsSvc),
		attendance:    handler.NewAttendanceHandler(attendanceSvc),
		passes:        handler.NewPassHandler(passSvc),
		notifications: handler.NewNotificationHandler(notificationSvc),
		dashboard:     handler.NewDashboardHandler(dashboardSvc),
		audit:         handler.NewAuditHandler(auditSvc),
		reports:       handler.NewReportHandler(reportSvc),
		dancers:       handler.NewDancerHandler(dancerSvc),
		batches:       handler.NewBatchHandler(batchSvc),
		enrollments:   handler.NewEnrollmentHandler(enrollmentSvc),
		users:         handler.NewUserHandler(userSvc),
		ops: handler.NewMetricsHandler(metrics, map[string]handler.Pinger{
			"database": handler.PingFunc(db.PingContext),
			"cache":    cacheRepo,
		}),
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, logr, h, authSvc, metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-shutdown:
		logr.Info("shutdown started", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		logr.Info("server stopped")
		return nil
	}
}
