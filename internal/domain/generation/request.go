package generation

import (
	"fmt"
	"strings"
)

type Mode string

const (
	ModeTextToImage  Mode = "text-to-image"
	ModeImageToVideo Mode = "image-to-video"
)

const (
	MinDurationSeconds = 1
	MaxDurationSeconds = 10
)

// ValidationError covers malformed input. It is raised before the ledger or
// the provider is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Request is the validated input for one generation. Ephemeral: it is never
// persisted as-is, only folded into a generation record on success.
type Request struct {
	Mode           Mode
	Prompt         string
	NegativePrompt string
	Style          string
	Width          int
	Height         int

	// video mode only
	SourceImage     []byte
	MotionStyle     string
	DurationSeconds int
	QualityTier     string
}

// stylePrompts maps the UI style presets onto prompt suffixes handed to the
// provider. The empty style means no suffix.
var stylePrompts = map[string]string{
	"auto":           "masterpiece, professional photography, highly detailed, 8k uhd, cinematic lighting, sharp focus, best quality, ultra realistic",
	"photorealistic": "photorealistic, highly detailed, professional photography, 8k uhd",
	"digital_art":    "digital art, highly detailed, trending on artstation, 8k",
	"cinematic":      "cinematic, dramatic lighting, movie scene quality, 8k",
	"anime":          "anime style, high quality, detailed anime art, studio quality",
	"oil_painting":   "oil painting masterpiece, classical art style, museum quality",
	"":               "",
}

// allowedResolutions is the provider-supported aspect ratio set exposed in
// the UI: square, landscape, portrait.
var allowedResolutions = map[[2]int]bool{
	{1024, 1024}: true,
	{1344, 768}:  true,
	{768, 1344}:  true,
}

var motionStyles = map[string]bool{
	"zoom_out":  true,
	"zoom_in":   true,
	"pan_left":  true,
	"pan_right": true,
	"pan_up":    true,
	"pan_down":  true,
	"rotate":    true,
}

var qualityTiers = map[string]bool{
	"standard": true,
	"high":     true,
}

// StyleSuffix returns the prompt suffix for a validated style tag.
func StyleSuffix(style string) string {
	return stylePrompts[style]
}

// Validate normalizes and checks the request. A prompt is required for image
// generation; for video the prompt is optional context.
func (r *Request) Validate() error {
	r.Prompt = strings.TrimSpace(r.Prompt)
	r.NegativePrompt = strings.TrimSpace(r.NegativePrompt)
	r.Style = strings.ToLower(strings.TrimSpace(r.Style))

	switch r.Mode {
	case ModeTextToImage:
		if r.Prompt == "" {
			return &ValidationError{Field: "prompt", Reason: "must not be empty"}
		}
		if _, ok := stylePrompts[r.Style]; !ok {
			return &ValidationError{Field: "style", Reason: "unknown style preset"}
		}
		if !allowedResolutions[[2]int{r.Width, r.Height}] {
			return &ValidationError{
				Field:  "resolution",
				Reason: fmt.Sprintf("%dx%d is not a supported resolution", r.Width, r.Height),
			}
		}

	case ModeImageToVideo:
		if len(r.SourceImage) == 0 {
			return &ValidationError{Field: "source_image", Reason: "must not be empty"}
		}
		if !motionStyles[r.MotionStyle] {
			return &ValidationError{Field: "motion_style", Reason: "unknown motion style"}
		}
		if !qualityTiers[r.QualityTier] {
			return &ValidationError{Field: "quality", Reason: "unknown quality tier"}
		}
		if r.DurationSeconds < MinDurationSeconds || r.DurationSeconds > MaxDurationSeconds {
			return &ValidationError{
				Field:  "duration_seconds",
				Reason: fmt.Sprintf("must be between %d and %d", MinDurationSeconds, MaxDurationSeconds),
			}
		}

	default:
		return &ValidationError{Field: "mode", Reason: "unknown generation mode"}
	}

	return nil
}
