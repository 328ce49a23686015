package generate

type ImageRequestDTO struct {
	Prompt         string `json:"prompt" binding:"required"`
	NegativePrompt string `json:"negative_prompt"`
	Style          string `json:"style"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

type VideoRequestDTO struct {
	Image           string `json:"image" binding:"required"` // base64 source image
	MotionStyle     string `json:"motion_style" binding:"required"`
	Quality         string `json:"quality"`
	DurationSeconds int    `json:"duration_seconds"`
	ContextPrompt   string `json:"context_prompt"`
}

type ResultDTO struct {
	ID        string `json:"id"`
	MediaType string `json:"media_type"`
	Media     string `json:"media"` // base64
	OutputRef string `json:"output_reference"`
}
