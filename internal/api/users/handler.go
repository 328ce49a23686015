package users

import (
	"net/http"
	"time"

	"artgen-app/database"
	"artgen-app/internal/domain/plans"
	"artgen-app/internal/domain/users"

	"github.com/gin-gonic/gin"
)

func GetCurrentUser(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var user users.User
	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	unlimited := plans.Unlimited(user.SubscriptionTier) &&
		user.SubscriptionEnd != nil && time.Now().Before(*user.SubscriptionEnd)

	resp := MeResponse{
		User: UserDTO{
			ID:           user.ID,
			Email:        user.Email,
			Role:         user.Role,
			AuthProvider: user.AuthProvider,
			IsVerified:   user.IsVerified,
		},
		Billing: BillingDTO{
			SubscriptionTier: user.SubscriptionTier,
			SubscriptionEnd:  user.SubscriptionEnd,
			CreditsRemaining: user.CreditsRemaining,
			Unlimited:        unlimited,
		},
	}

	c.JSON(http.StatusOK, resp)
}

// GET /verify?token=...
func VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing verification token"})
		return
	}

	var verif users.VerificationToken
	if err := database.DB.Where("token = ?", token).First(&verif).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid verification token"})
		return
	}

	if err := database.DB.Model(&users.User{}).
		Where("id = ?", verif.UserID).
		Update("is_verified", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify user"})
		return
	}

	database.DB.Delete(&verif)

	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully. You can now log in."})
}
