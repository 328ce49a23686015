package middleware

import (
	"net/http"
	"time"

	"artgen-app/database"
	"artgen-app/internal/domain/plans"
	"artgen-app/internal/domain/users"

	"github.com/gin-gonic/gin"
)

// RequireActiveSubscription gates routes that only make sense for paying
// subscribers, like the billing portal. Credit spending is not gated here;
// the ledger enforces that per generation.
func RequireActiveSubscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetString("email")
		var user users.User

		if err := database.DB.Where("email = ?", email).First(&user).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Subscription not found",
			})
			return
		}

		tier := plans.NormalizeTier(user.SubscriptionTier)
		if tier == plans.TierFree || tier == plans.TierPayAsYouGo {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "No active subscription",
			})
			return
		}

		if user.SubscriptionEnd != nil && time.Now().After(*user.SubscriptionEnd) {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error": "Your subscription has expired",
			})
			return
		}

		c.Next()
	}
}
