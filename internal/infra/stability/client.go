package stability

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	imagePath = "/v1/generation/stable-diffusion-xl-1024-v1-0/text-to-image"
	videoPath = "/v1/generation/stable-video-diffusion/text-to-video"

	maxSteps        = 50 // provider maximum
	defaultCfgScale = 9

	minFPS = 3
	maxFPS = 30
)

// Client talks to the Stability AI generation API and normalizes its
// response shapes into a single Result.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *logrus.Logger
}

func NewClient(apiKey, baseURL string, log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second, // generation latency bound
		},
		log: log,
	}
}

type ImageRequest struct {
	Prompt         string
	StyleSuffix    string // style preset text folded into the prompt
	NegativePrompt string
	Width          int
	Height         int
	Steps          int
	Seed           int // 0 lets the provider pick a random seed
}

type VideoRequest struct {
	Image           []byte // raw source image bytes
	MotionStyle     string
	QualityTier     string
	DurationSeconds int
	ContextPrompt   string
	Seed            int // 0 lets the provider pick a random seed
}

type Result struct {
	MediaBytes []byte
	MediaType  string
}

type textPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

// GenerateImage renders one image from weighted text prompts: the primary
// prompt at +1.0 and, when present, the negative prompt at -1.0.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*Result, error) {
	prompt := req.Prompt
	if req.StyleSuffix != "" {
		prompt = prompt + ", " + req.StyleSuffix
	}

	steps := req.Steps
	if steps <= 0 || steps > maxSteps {
		steps = maxSteps
	}

	prompts := []textPrompt{{Text: prompt, Weight: 1.0}}
	if req.NegativePrompt != "" {
		prompts = append(prompts, textPrompt{Text: req.NegativePrompt, Weight: -1.0})
	}

	body := map[string]interface{}{
		"text_prompts": prompts,
		"width":        req.Width,
		"height":       req.Height,
		"steps":        steps,
		"cfg_scale":    defaultCfgScale,
		"samples":      1,
		"seed":         req.Seed,
	}

	raw, err := c.post(ctx, imagePath, body)
	if err != nil {
		return nil, err
	}
	return c.normalize(raw, "image/png")
}

// motionBuckets maps the UI motion styles onto the provider's
// motion-intensity parameter.
var motionBuckets = map[string]int{
	"zoom_out":  30,
	"zoom_in":   60,
	"pan_left":  90,
	"pan_right": 110,
	"pan_up":    130,
	"pan_down":  150,
	"rotate":    180,
}

// qualityProfiles maps a quality tier to (frame count, inference steps).
var qualityProfiles = map[string]struct{ Frames, Steps int }{
	"standard": {Frames: 14, Steps: 25},
	"high":     {Frames: 25, Steps: 50},
}

// GenerateVideo animates a source image. Frames per second is derived from
// the quality tier's frame count and the requested duration, clamped to the
// provider's supported range.
func (c *Client) GenerateVideo(ctx context.Context, req VideoRequest) (*Result, error) {
	bucket, ok := motionBuckets[req.MotionStyle]
	if !ok {
		bucket = motionBuckets["zoom_out"]
	}
	profile, ok := qualityProfiles[req.QualityTier]
	if !ok {
		profile = qualityProfiles["standard"]
	}

	duration := req.DurationSeconds
	if duration <= 0 {
		duration = 1
	}
	fps := profile.Frames / duration
	if fps < minFPS {
		fps = minFPS
	}
	if fps > maxFPS {
		fps = maxFPS
	}

	body := map[string]interface{}{
		"image":            base64.StdEncoding.EncodeToString(req.Image),
		"motion_bucket_id": bucket,
		"frames":           profile.Frames,
		"steps":            profile.Steps,
		"fps":              fps,
		"cfg_scale":        2.5,
		"min_cfg":          1.0,
		"seed":             req.Seed,
	}
	if req.ContextPrompt != "" {
		body["text_prompts"] = []textPrompt{{Text: req.ContextPrompt, Weight: 1.0}}
	}

	raw, err := c.post(ctx, videoPath, body)
	if err != nil {
		return nil, err
	}
	return c.normalize(raw, "video/mp4")
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		c.log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"path":   path,
			"body":   truncate(raw, 512),
		}).Warn("stability request rejected")
		return nil, &RejectedError{StatusCode: resp.StatusCode, Message: truncate(raw, 512)}
	}

	return raw, nil
}

// envelope covers the response shapes seen across provider revisions:
// artifacts[].base64 for images, plus legacy top-level video / videos[] for
// the video engines.
type envelope struct {
	Artifacts []struct {
		Base64 string `json:"base64"`
	} `json:"artifacts"`
	Video  string   `json:"video"`
	Videos []string `json:"videos"`
}

func (c *Client) normalize(raw []byte, mediaType string) (*Result, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.WithField("body", truncate(raw, 1024)).Error("stability response unparseable")
		return nil, ErrMalformedResponse
	}

	encoded := ""
	switch {
	case len(env.Artifacts) > 0 && env.Artifacts[0].Base64 != "":
		encoded = env.Artifacts[0].Base64
	case len(env.Videos) > 0 && env.Videos[0] != "":
		encoded = env.Videos[0]
	case env.Video != "":
		encoded = env.Video
	default:
		c.log.WithField("body", truncate(raw, 1024)).Error("stability response missing media field")
		return nil, ErrMalformedResponse
	}

	media, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		c.log.WithError(err).Error("stability media payload is not valid base64")
		return nil, ErrMalformedResponse
	}

	return &Result{MediaBytes: media, MediaType: mediaType}, nil
}

func truncate(body []byte, limit int) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
