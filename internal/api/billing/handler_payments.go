package billing

import (
	"net/http"

	"artgen-app/database"
	"artgen-app/internal/domain/billing"

	"github.com/gin-gonic/gin"
)

type PaymentDTO struct {
	ID        uint    `json:"id"`
	AmountUSD float64 `json:"amount_usd"`
	Kind      string  `json:"kind"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
}

// GET /payments
func GetPaymentHistory(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var payments []billing.Payment
	if err := database.DB.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}

	result := make([]PaymentDTO, 0, len(payments))
	for _, p := range payments {
		result = append(result, PaymentDTO{
			ID:        p.ID,
			AmountUSD: p.AmountUSD,
			Kind:      p.Kind,
			Status:    p.Status,
			CreatedAt: p.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	c.JSON(http.StatusOK, result)
}
