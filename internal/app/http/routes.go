package routes

import (
	adminapi "artgen-app/internal/api/admin"
	"artgen-app/internal/api/analytics"
	authapi "artgen-app/internal/api/auth"
	"artgen-app/internal/api/billing"
	"artgen-app/internal/api/generate"
	"artgen-app/internal/api/plans"
	stripewebhooks "artgen-app/internal/api/stripewebhook"
	"artgen-app/internal/api/users"
	"artgen-app/internal/app/http/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, gen *generate.Handler, stats *analytics.Handler) {
	// Webhook stays outside sanitization, Stripe signs the raw body
	r.POST("/webhook", stripewebhooks.StripeWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	public := r.Group("/")
	public.Use(middleware.SanitizeInputMiddleware())

	public.POST("/register", authapi.Register)
	public.POST("/login", authapi.Login)
	public.GET("/plans", plans.ListPlans)
	public.GET("/verify", users.VerifyEmail)
	public.POST("/resend-verification", authapi.ResendVerification)

	public.GET("/auth/google", authapi.GoogleStart)
	public.GET("/auth/google/callback", authapi.GoogleCallback)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(), middleware.SanitizeInputMiddleware())
	auth.GET("/me", users.GetCurrentUser)
	auth.POST("/change-password", authapi.ChangePassword)

	auth.POST("/generate/image", gen.GenerateImage)
	auth.POST("/generate/video", gen.GenerateVideo)

	auth.GET("/usage/stats", stats.GetStats)
	auth.GET("/usage/daily", stats.GetDailyCounts)
	auth.GET("/usage/styles", stats.GetStyleDistribution)
	auth.GET("/usage/resolutions", stats.GetResolutionDistribution)
	auth.GET("/generations", stats.GetHistory)

	auth.GET("/payments", billing.GetPaymentHistory)
	auth.POST("/create-checkout-session", billing.CreateCheckoutSession)
	auth.POST("/create-credit-checkout", billing.CreateCreditCheckout)

	// Subscribed users
	subscribed := auth.Group("/")
	subscribed.Use(middleware.RequireActiveSubscription())
	subscribed.POST("/billing-portal", billing.CreateBillingPortal)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireRole("admin"))
	admin.GET("/dashboard", adminapi.AdminDashboard)
	admin.GET("/users", adminapi.ListAllUsers)
	admin.GET("/payments", adminapi.ListAllPayments)
	admin.POST("/sync-plans", plans.SyncPlansFromStripe)
}
