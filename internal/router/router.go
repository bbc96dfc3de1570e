package router

import (
	"livedhere/internal/config"
	"livedhere/internal/db"
	"livedhere/internal/handlers"
	"livedhere/internal/middleware"
	"livedhere/internal/services"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, cfg *config.Config) {
	// Services
	mailService := services.NewMailService(cfg)
	statsService := services.GetBuildingStatsService(db.DB)
	reviewService := services.NewReviewService(db.DB, cfg, mailService, statsService)

	// Handlers
	authHandler := handlers.NewAuthHandler()
	reviewHandler := handlers.NewReviewHandler(reviewService, cfg)
	buildingHandler := handlers.NewBuildingHandler()
	reportHandler := handlers.NewReportHandler()
	adminHandler := handlers.NewAdminHandler(reviewService)

	api := r.Group("/api")
	api.Use(middleware.LoadUser())

	// Public routes
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/auth/me", authHandler.Me)

	api.GET("/captcha", reviewHandler.Captcha)
	api.POST("/reviews", reviewHandler.Submit)
	api.GET("/reviews/:id", reviewHandler.Show)
	api.PUT("/reviews/:code/resubmit", reviewHandler.Resubmit)
	api.GET("/review-status/:code", reviewHandler.Status)
	api.POST("/reviews/:id/report", reportHandler.Create)

	api.GET("/buildings/:id", buildingHandler.Show)
	api.GET("/buildings/:id/reviews", buildingHandler.Reviews)

	// Moderation routes
	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired())
	{
		admin.GET("/reviews", adminHandler.ListReviews)
		admin.POST("/reviews/:id/approve", adminHandler.Approve)
		admin.POST("/reviews/:id/reject", adminHandler.Reject)
		admin.POST("/reviews/:id/request-changes", adminHandler.RequestChanges)
		admin.POST("/reviews/:id/remove", adminHandler.Remove)
		admin.GET("/reviews/:id/audit", adminHandler.AuditTrail)
		admin.GET("/reports", adminHandler.ListReports)
		admin.POST("/reports/:id/resolve", adminHandler.ResolveReport)
	}
}
