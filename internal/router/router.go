// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tabvault/storefront-backend/internal/config"
	"github.com/tabvault/storefront-backend/internal/handlers"
	"github.com/tabvault/storefront-backend/internal/middleware"
	"github.com/tabvault/storefront-backend/internal/services"
	"github.com/tabvault/storefront-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) (*gin.Engine, *services.CommissionService) {
	// Initialize services. The lock set is shared by every service that
	// touches per-affiliate balance state.
	locks := services.NewAffiliateLocks()
	settingsService := services.NewSettingsService(db)
	affiliateService := services.NewAffiliateService(db)
	attributionService := services.NewAttributionService(db, settingsService)
	commissionService := services.NewCommissionService(db, settingsService, attributionService, locks)
	payoutService := services.NewPayoutService(db, settingsService, locks)
	statsService := services.NewStatsService(db)

	// Initialize handlers
	trackingHandler := handlers.NewTrackingHandler(attributionService, commissionService, cfg)
	affiliateHandler := handlers.NewAffiliateHandler(affiliateService, payoutService, statsService)
	adminHandler := handlers.NewAdminHandler(settingsService, commissionService, payoutService, affiliateService, statsService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Referral click feed (public, called by page routing)
		track := v1.Group("/track")
		track.Use(middleware.TrackingRateLimit())
		{
			track.POST("/visit", trackingHandler.RecordVisit)
		}

		// Order completion feeds
		v1.POST("/webhooks/stripe", trackingHandler.StripeWebhook)
		v1.POST("/orders/complete", middleware.ServiceToken(cfg.Payment.OrderFeedToken), trackingHandler.CompleteOrder)

		// Affiliate self-service
		affiliate := v1.Group("/affiliate")
		affiliate.Use(middleware.AuthRequired())
		{
			affiliate.POST("/join", affiliateHandler.JoinProgram)
			affiliate.GET("/dashboard", affiliateHandler.GetDashboard)
			affiliate.GET("/commissions", affiliateHandler.GetCommissions)
			affiliate.GET("/payouts", affiliateHandler.GetPayouts)
			affiliate.POST("/payouts", middleware.PayoutRateLimit(), affiliateHandler.RequestPayout)
		}

		// Admin console
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/affiliate-settings", adminHandler.GetSettings)
			admin.PUT("/affiliate-settings", adminHandler.UpdateSettings)

			adminCommissions := admin.Group("/commissions")
			{
				adminCommissions.GET("", adminHandler.GetCommissions)
				adminCommissions.POST("/auto-approve", adminHandler.RunAutoApproval)
				adminCommissions.PUT("/:id/approve", adminHandler.ApproveCommission)
				adminCommissions.PUT("/:id/reject", adminHandler.RejectCommission)
			}

			adminPayouts := admin.Group("/payouts")
			{
				adminPayouts.GET("", adminHandler.GetPayouts)
				adminPayouts.PUT("/:id/approve", adminHandler.ApprovePayout)
				adminPayouts.PUT("/:id/reject", adminHandler.RejectPayout)
			}

			adminAffiliates := admin.Group("/affiliates")
			{
				adminAffiliates.GET("/top", adminHandler.GetTopAffiliates)
				adminAffiliates.PUT("/:id/suspend", adminHandler.SuspendAffiliate)
			}

			admin.GET("/stats", adminHandler.GetStats)
		}
	}

	return r, commissionService
}
