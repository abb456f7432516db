// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/javajoker/registration-backend/internal/config"
	"github.com/javajoker/registration-backend/internal/handlers"
	"github.com/javajoker/registration-backend/internal/middleware"
	"github.com/javajoker/registration-backend/internal/repository"
	"github.com/javajoker/registration-backend/internal/services"
	"github.com/javajoker/registration-backend/internal/utils"
)

func Initialize(svc *services.Services, store repository.Store, cfg *config.Config) *gin.Engine {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(svc.Auth, svc.Users)
	userHandler := handlers.NewUserHandler(svc.Users)
	applicationHandler := handlers.NewApplicationHandler(svc.Applications, cfg.Storage.MaxFileSize)
	documentHandler := handlers.NewDocumentHandler(svc.Documents, svc.Applications, cfg.Storage.MaxFileSize, cfg.Storage.LocalPath)
	notificationHandler := handlers.NewNotificationHandler(svc.Notifications)
	analyticsHandler := handlers.NewAnalyticsHandler(svc.Analytics, svc.Notifications)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	r := gin.New()

	var origins []string
	if cfg.IsProduction() && cfg.Frontend.BaseURL != "" {
		origins = append(origins, cfg.Frontend.BaseURL)
	}

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(origins...))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(store.Audit()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// User routes
		users := v1.Group("/users")
		users.Use(middleware.AuthRequired())
		{
			users.PUT("/profile", userHandler.UpdateProfile)

			admin := users.Group("")
			admin.Use(middleware.AdminRequired())
			{
				admin.GET("", userHandler.ListUsers)
				admin.POST("", userHandler.CreateUser)
				admin.GET("/:id", userHandler.GetUser)
				admin.PUT("/:id", userHandler.UpdateUser)
				admin.DELETE("/:id", userHandler.DeleteUser)
			}
		}

		// Application routes
		applications := v1.Group("/applications")
		applications.Use(middleware.AuthRequired())
		{
			applications.POST("", middleware.UploadRateLimit(), applicationHandler.CreateApplication)
			applications.GET("", applicationHandler.ListApplications)
			applications.GET("/:id", applicationHandler.GetApplication)
			applications.GET("/:id/history", applicationHandler.GetApplicationHistory)
			applications.PUT("/:id/resubmit", applicationHandler.Resubmit)
			applications.GET("/:id/documents", documentHandler.ListApplicationDocuments)
			applications.POST("/:id/documents", middleware.UploadRateLimit(), documentHandler.UploadDocument)

			review := applications.Group("")
			review.Use(middleware.ReviewerRequired())
			{
				review.POST("/:id/pre-validate", applicationHandler.PreValidate)
				review.POST("/:id/assign", applicationHandler.Assign)
				review.POST("/:id/start-review", applicationHandler.StartReview)
				review.POST("/:id/review", applicationHandler.Review)
			}

			applications.POST("/:id/finalize", middleware.AdminRequired(), applicationHandler.Finalize)
		}

		// Document routes
		documents := v1.Group("/documents")
		documents.Use(middleware.AuthRequired())
		{
			documents.GET("", middleware.ReviewerRequired(), documentHandler.ListDocuments)
			documents.GET("/:id", documentHandler.GetDocument)
			documents.GET("/:id/download", documentHandler.DownloadDocument)
			documents.PUT("/:id/validate", middleware.ReviewerRequired(), documentHandler.ValidateDocument)
			documents.DELETE("/:id", documentHandler.DeleteDocument)
		}

		// Notification routes
		notifications := v1.Group("/notifications")
		notifications.Use(middleware.AuthRequired())
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.PUT("/read-all", notificationHandler.MarkAllAsRead)
			notifications.PUT("/:id/read", notificationHandler.MarkAsRead)
		}

		// Analytics routes
		analytics := v1.Group("/analytics")
		analytics.Use(middleware.AuthRequired(), middleware.ReviewerRequired())
		{
			analytics.GET("/stats", analyticsHandler.GetStatistics)
			analytics.GET("/alerts", analyticsHandler.GetAlerts)
			analytics.POST("/alerts/remind", middleware.AdminRequired(), analyticsHandler.SendReminders)
		}
	}

	// Local document storage, when S3 is not configured
	if cfg.AWS.AccessKeyID == "" && cfg.Storage.LocalPath != "" {
		uploads := r.Group("/uploads", middleware.AuthRequired())
		uploads.GET("/applications/:id/:file", documentHandler.ServeLocalDocument)
	}

	return r
}
