package admin

import (
	"net/http"

	"artgen-app/database"
	"artgen-app/internal/domain/billing"
	"artgen-app/internal/domain/generations"
	"artgen-app/internal/domain/users"

	"github.com/gin-gonic/gin"
)

// GET /admin/dashboard
func AdminDashboard(c *gin.Context) {
	var totalUsers int64
	if err := database.DB.Model(&users.User{}).Count(&totalUsers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"})
		return
	}

	var verifiedUsers int64
	database.DB.Model(&users.User{}).Where("is_verified = ?", true).Count(&verifiedUsers)

	var subscribedUsers int64
	database.DB.Model(&users.User{}).
		Where("subscription_tier NOT IN ?", []string{"free", "pay_as_you_go"}).
		Count(&subscribedUsers)

	var totalGenerations int64
	database.DB.Model(&generations.Record{}).Count(&totalGenerations)

	var totalRevenue struct {
		Amount float64
	}
	database.DB.Model(&billing.Payment{}).
		Select("COALESCE(SUM(amount_usd), 0) AS amount").
		Where("status = ?", billing.StatusCompleted).
		Scan(&totalRevenue)

	var tierBreakdown []struct {
		SubscriptionTier string `json:"subscription_tier"`
		Count            int64  `json:"count"`
	}
	database.DB.Model(&users.User{}).
		Select("subscription_tier, COUNT(*) AS count").
		Group("subscription_tier").
		Scan(&tierBreakdown)

	c.JSON(http.StatusOK, gin.H{
		"total_users":       totalUsers,
		"verified_users":    verifiedUsers,
		"subscribed_users":  subscribedUsers,
		"total_generations": totalGenerations,
		"total_revenue_usd": totalRevenue.Amount,
		"tier_breakdown":    tierBreakdown,
	})
}

// GET /admin/users
func ListAllUsers(c *gin.Context) {
	var list []users.User
	if err := database.DB.Order("created_at DESC").Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}

	out := make([]gin.H, 0, len(list))
	for _, u := range list {
		out = append(out, gin.H{
			"id":                u.ID,
			"email":             u.Email,
			"role":              u.Role,
			"auth_provider":     u.AuthProvider,
			"is_verified":       u.IsVerified,
			"subscription_tier": u.SubscriptionTier,
			"credits_remaining": u.CreditsRemaining,
			"created_at":        u.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"users": out})
}

// GET /admin/payments
func ListAllPayments(c *gin.Context) {
	var payments []billing.Payment
	if err := database.DB.Preload("User").Order("created_at DESC").Limit(500).Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}

	out := make([]gin.H, 0, len(payments))
	for _, p := range payments {
		out = append(out, gin.H{
			"id":         p.ID,
			"user_id":    p.UserID,
			"user_email": p.User.Email,
			"amount_usd": p.AmountUSD,
			"kind":       p.Kind,
			"status":     p.Status,
			"created_at": p.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"payments": out})
}
