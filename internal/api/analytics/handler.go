package analytics

import (
	"net/http"
	"strconv"
	"time"

	"artgen-app/database"
	"artgen-app/internal/domain/usage"
	"artgen-app/internal/domain/users"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	recorder *usage.Recorder
}

func NewHandler(recorder *usage.Recorder) *Handler {
	return &Handler{recorder: recorder}
}

// GET /usage/stats
func (h *Handler) GetStats(c *gin.Context) {
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

	stats, err := h.recorder.Stats(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subscription_tier": user.SubscriptionTier,
		"credits_remaining": user.CreditsRemaining,
		"total_generations": stats.TotalGenerations,
		"total_spent_usd":   stats.TotalSpentUSD,
	})
}

// GET /usage/daily?days=30
func (h *Handler) GetDailyCounts(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days <= 0 || days > 365 {
		days = 30
	}

	counts, err := h.recorder.DailyCounts(c.Request.Context(), userID, time.Now().AddDate(0, 0, -days))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load daily usage"})
		return
	}

	c.JSON(http.StatusOK, counts)
}

// GET /usage/styles
func (h *Handler) GetStyleDistribution(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	dist, err := h.recorder.StyleDistribution(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load style distribution"})
		return
	}

	c.JSON(http.StatusOK, dist)
}

// GET /usage/resolutions
func (h *Handler) GetResolutionDistribution(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	dist, err := h.recorder.ResolutionDistribution(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load resolution distribution"})
		return
	}

	c.JSON(http.StatusOK, dist)
}

// GET /generations
func (h *Handler) GetHistory(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	records, err := h.recorder.History(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load generation history"})
		return
	}

	c.JSON(http.StatusOK, records)
}
