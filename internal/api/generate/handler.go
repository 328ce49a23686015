package generate

import (
	"encoding/base64"
	"errors"
	"net/http"

	"artgen-app/internal/domain/generation"
	"artgen-app/internal/domain/quota"
	"artgen-app/internal/infra/stability"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	orch *generation.Orchestrator
}

func NewHandler(orch *generation.Orchestrator) *Handler {
	return &Handler{orch: orch}
}

// POST /generate/image
func (h *Handler) GenerateImage(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	var body ImageRequestDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid request body"})
		return
	}

	// default to square when the UI sends no ratio
	if body.Width == 0 && body.Height == 0 {
		body.Width, body.Height = 1024, 1024
	}

	outcome, err := h.orch.Submit(c.Request.Context(), userID, generation.Request{
		Mode:           generation.ModeTextToImage,
		Prompt:         body.Prompt,
		NegativePrompt: body.NegativePrompt,
		Style:          body.Style,
		Width:          body.Width,
		Height:         body.Height,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResultDTO(outcome))
}

// POST /generate/video
func (h *Handler) GenerateVideo(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	var body VideoRequestDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid request body"})
		return
	}

	source, err := base64.StdEncoding.DecodeString(body.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image must be base64 encoded"})
		return
	}
	if body.Quality == "" {
		body.Quality = "standard"
	}
	if body.DurationSeconds == 0 {
		body.DurationSeconds = 5
	}

	outcome, err := h.orch.Submit(c.Request.Context(), userID, generation.Request{
		Mode:            generation.ModeImageToVideo,
		Prompt:          body.ContextPrompt,
		SourceImage:     source,
		MotionStyle:     body.MotionStyle,
		QualityTier:     body.Quality,
		DurationSeconds: body.DurationSeconds,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResultDTO(outcome))
}

func toResultDTO(outcome *generation.Outcome) ResultDTO {
	return ResultDTO{
		ID:        outcome.Record.ID,
		MediaType: outcome.MediaType,
		Media:     base64.StdEncoding.EncodeToString(outcome.MediaBytes),
		OutputRef: outcome.Record.OutputRef,
	}
}

// respondError maps the orchestrator's typed errors onto HTTP statuses.
// Provider diagnostics stay in the logs; users get a generic message.
func respondError(c *gin.Context, err error) {
	var validation *generation.ValidationError
	var rejected *stability.RejectedError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.Is(err, quota.ErrQuotaExceeded):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error": "You have no generation credits left. Upgrade your plan or buy credits to continue.",
		})
	case errors.Is(err, stability.ErrMissingAPIKey):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Generation service is not configured"})
	case errors.As(err, &rejected), errors.Is(err, stability.ErrMalformedResponse):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Generation failed. Please try a different prompt."})
	case errors.Is(err, generation.ErrProviderUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Generation service is temporarily unavailable. Please try again."})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Generation failed"})
	}
}
