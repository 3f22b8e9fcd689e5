package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/regulars-api/internal/handler"
	"github.com/noah-isme/regulars-api/internal/middleware"
	"github.com/noah-isme/regulars-api/internal/models"
	"github.com/noah-isme/regulars-api/internal/service"
	"github.com/noah-isme/regulars-api/pkg/config"
	"github.com/noah-isme/regulars-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/regulars-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/regulars-api/pkg/middleware/requestid"
)

type handlers struct {
	auth          *handler.AuthHandler
	settings      *handler.SettingsHandler
	attendance    *handler.AttendanceHandler
	passes        *handler.PassHandler
	notifications *handler.NotificationHandler
	dashboard     *handler.DashboardHandler
	audit         *handler.AuditHandler
	reports       *handler.ReportHandler
	dancers       *handler.DancerHandler
	batches       *handler.BatchHandler
	enrollments   *handler.EnrollmentHandler
	users         *handler.UserHandler
	ops           *handler.MetricsHandler
}

type tokenValidator interface {
	ValidateToken(tokenString string) (*models.JWTClaims, error)
}

func newRouter(cfg *config.Config, logr *zap.Logger, h handlers, tokens tokenValidator, metrics *service.MetricsService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if cfg.Metrics.Enabled && metrics != nil {
		r.Use(middleware.Metrics(metrics))
		r.GET("/metrics", h.ops.Prometheus)
	}

	r.GET("/health", h.ops.Health)
	r.GET("/ready", h.ops.Ready)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", h.auth.Login)

	secured := api.Group("", middleware.JWT(tokens))
	admin := secured.Group("", middleware.AdminOnly())

	secured.GET("/auth/me", h.auth.Me)

	secured.GET("/settings", h.settings.Get)
	admin.PUT("/settings", h.settings.Update)

	secured.GET("/sessions/today", h.attendance.Today)
	secured.GET("/sessions", h.attendance.ListSessions)
	secured.POST("/sessions", h.attendance.CreateSession)
	secured.GET("/attendance", h.attendance.ListAttendance)
	secured.POST("/attendance/bulk", h.attendance.BulkMark)
	secured.POST("/attendance/walk-in", h.attendance.WalkIn)

	secured.GET("/passes", h.passes.List)
	secured.POST("/passes", h.passes.Assign)
	secured.PUT("/passes/:id/renew", h.passes.Renew)
	secured.GET("/passes/:id/status", h.passes.Status)

	secured.GET("/notifications", h.notifications.List)
	secured.GET("/dashboard/stats", h.dashboard.Stats)

	admin.GET("/audit-log", h.audit.List)
	admin.GET("/reports/attendance", h.reports.Attendance)
	admin.GET("/reports/expiring", h.reports.Expiring)

	secured.GET("/dancers", h.dancers.List)
	secured.GET("/dancers/:id", h.dancers.Get)
	secured.POST("/dancers", h.dancers.Create)
	secured.PUT("/dancers/:id", h.dancers.Update)
	admin.DELETE("/dancers/:id", h.dancers.Deactivate)

	secured.GET("/batches", h.batches.List)
	secured.GET("/batches/:id", h.batches.Get)
	admin.POST("/batches", h.batches.Create)
	admin.PUT("/batches/:id", h.batches.Update)
	admin.DELETE("/batches/:id", h.batches.Deactivate)

	secured.POST("/enrollments", h.enrollments.Create)
	secured.PUT("/enrollments/:id/deactivate", h.enrollments.Deactivate)

	admin.GET("/users", h.users.List)
	admin.GET("/users/:id", h.users.Get)
	admin.POST("/users", h.users.Create)
	admin.PUT("/users/:id", h.users.Update)
	admin.DELETE("/users/:id", h.users.Deactivate)

	return r
}
