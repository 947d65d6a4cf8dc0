package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-events-api/internal/middleware"
	"github.com/noah-isme/campus-events-api/internal/models"
	"github.com/noah-isme/campus-events-api/internal/service"
	"github.com/noah-isme/campus-events-api/pkg/config"
	"github.com/noah-isme/campus-events-api/pkg/logger"
	bodylimitmiddleware "github.com/noah-isme/campus-events-api/pkg/middleware/bodylimit"
	corsmiddleware "github.com/noah-isme/campus-events-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-events-api/pkg/middleware/requestid"
)

// Deps bundles everything the router needs.
type Deps struct {
	Auth          *AuthHandler
	Events        *EventHandler
	Registrations *RegistrationHandler
	Attendance    *AttendanceHandler
	Feedback      *FeedbackHandler
	Notes         *NoteHandler
	Reports       *ReportHandler

	AuthService *service.AuthService
	Metrics     *service.MetricsService
	DB          *sqlx.DB
}

// NewRouter assembles the gin engine with middleware and all routes.
func NewRouter(cfg *config.Config, logr *zap.Logger, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(bodylimitmiddleware.New(cfg.Server.MaxBodyBytes))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if deps.DB != nil {
			if err := deps.DB.PingContext(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if cfg.Server.UploadsDir != "" {
		r.Static("/uploads", cfg.Server.UploadsDir)
	}
	if cfg.Server.PublicDir != "" {
		r.Static("/public", cfg.Server.PublicDir)
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register/student", deps.Auth.RegisterStudent)
	auth.POST("/register/admin", deps.Auth.RegisterAdmin)
	auth.POST("/login", deps.Auth.Login)
	auth.GET("/me", middleware.JWT(deps.AuthService), deps.Auth.Me)

	// Download is authenticated by the signed token itself, not a JWT.
	api.GET("/reports/exports/download/:token", deps.Reports.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(deps.AuthService))

	adminOnly := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)
	studentOnly := middleware.RequireRoles(models.RoleStudent)

	events := authed.Group("/events")
	events.GET("", deps.Events.List)
	events.GET("/:id", deps.Events.Get)
	events.POST("", adminOnly, deps.Events.Create)
	events.PATCH("/:id/status", adminOnly, deps.Events.UpdateStatus)
	events.GET("/:id/qr", adminOnly, deps.Events.QRPayload)

	registrations := authed.Group("/registrations", studentOnly)
	registrations.POST("", deps.Registrations.Register)
	registrations.GET("/my", deps.Registrations.ListMine)
	registrations.DELETE("/:id", deps.Registrations.Cancel)

	attendance := authed.Group("/attendance")
	attendance.POST("/manual", adminOnly, deps.Attendance.MarkManual)
	attendance.POST("/qr-checkin", studentOnly, deps.Attendance.QRCheckIn)
	attendance.GET("/event/:eventId", adminOnly, deps.Attendance.ListByEvent)

	feedback := authed.Group("/feedback")
	feedback.POST("", studentOnly, deps.Feedback.Create)
	feedback.PUT("/:id", studentOnly, deps.Feedback.Update)
	feedback.GET("/event/:eventId", adminOnly, deps.Feedback.ListByEvent)

	notes := authed.Group("/notes", studentOnly)
	notes.POST("", deps.Notes.Upsert)
	notes.GET("/event/:eventId", deps.Notes.GetByEvent)

	reports := authed.Group("/reports", adminOnly)
	reports.GET("/event-popularity", deps.Reports.EventPopularity)
	reports.GET("/student-participation", deps.Reports.StudentParticipation)
	reports.GET("/leaderboard", deps.Reports.Leaderboard)
	reports.GET("/top-students", deps.Reports.Leaderboard)
	reports.GET("/attendance-percentage", deps.Reports.AttendancePercentage)
	reports.GET("/average-feedback", deps.Reports.AverageFeedback)
	reports.POST("/exports", deps.Reports.RequestExport)
	reports.GET("/exports/:id", deps.Reports.ExportStatus)

	return r
}
