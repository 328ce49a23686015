package generate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"artgen-app/internal/domain/generation"
	"artgen-app/internal/domain/generations"
	"artgen-app/internal/domain/quota"
	"artgen-app/internal/infra/stability"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	err error
}

func (p *stubProvider) GenerateImage(ctx context.Context, req stability.ImageRequest) (*stability.Result, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &stability.Result{MediaBytes: []byte("png-bytes"), MediaType: "image/png"}, nil
}

func (p *stubProvider) GenerateVideo(ctx context.Context, req stability.VideoRequest) (*stability.Result, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &stability.Result{MediaBytes: []byte("mp4-bytes"), MediaType: "video/mp4"}, nil
}

type stubLedger struct {
	reserveErr error
}

func (l *stubLedger) CheckAndReserve(ctx context.Context, userID uint) (*quota.Reservation, error) {
	if l.reserveErr != nil {
		return nil, l.reserveErr
	}
	return &quota.Reservation{UserID: userID}, nil
}

func (l *stubLedger) Commit(ctx context.Context, r *quota.Reservation) {}

func (l *stubLedger) Release(ctx context.Context, r *quota.Reservation) {}

type stubRecorder struct{}

func (r *stubRecorder) RecordGeneration(ctx context.Context, rec *generations.Record) error {
	return nil
}

func newTestRouter(provider *stubProvider, ledger *stubLedger, userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	orch := generation.NewOrchestrator(provider, ledger, &stubRecorder{}, nil, nil)
	h := NewHandler(orch)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != 0 {
			c.Set("user_id", userID)
		}
	})
	r.POST("/generate/image", h.GenerateImage)
	r.POST("/generate/video", h.GenerateVideo)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGenerateImageSuccess(t *testing.T) {
	r := newTestRouter(&stubProvider{}, &stubLedger{}, 1)

	w := postJSON(t, r, "/generate/image", gin.H{
		"prompt": "a castle on a cliff",
		"style":  "cinematic",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var out ResultDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, "image/png", out.MediaType)

	media, err := base64.StdEncoding.DecodeString(out.Media)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), media)
}

func TestGenerateImageRequiresAuth(t *testing.T) {
	r := newTestRouter(&stubProvider{}, &stubLedger{}, 0)

	w := postJSON(t, r, "/generate/image", gin.H{"prompt": "p"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGenerateImageRequiresPrompt(t *testing.T) {
	r := newTestRouter(&stubProvider{}, &stubLedger{}, 1)

	w := postJSON(t, r, "/generate/image", gin.H{"style": "anime"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateImageValidationMapsTo400(t *testing.T) {
	r := newTestRouter(&stubProvider{}, &stubLedger{}, 1)

	w := postJSON(t, r, "/generate/image", gin.H{
		"prompt": "p",
		"width":  512,
		"height": 512,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "resolution")
}

func TestGenerateImageQuotaExceededMapsTo402(t *testing.T) {
	r := newTestRouter(&stubProvider{}, &stubLedger{reserveErr: quota.ErrQuotaExceeded}, 1)

	w := postJSON(t, r, "/generate/image", gin.H{"prompt": "p"})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "credits")
}

func TestGenerateImageMissingKeyMapsTo500(t *testing.T) {
	r := newTestRouter(&stubProvider{err: stability.ErrMissingAPIKey}, &stubLedger{}, 1)

	w := postJSON(t, r, "/generate/image", gin.H{"prompt": "p"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "not configured")
}

func TestGenerateImageRejectionMapsTo502(t *testing.T) {
	r := newTestRouter(&stubProvider{err: &stability.RejectedError{StatusCode: 400, Message: "nsfw"}}, &stubLedger{}, 1)

	w := postJSON(t, r, "/generate/image", gin.H{"prompt": "p"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	// provider diagnostics never leak to the user
	assert.NotContains(t, w.Body.String(), "nsfw")
}

func TestGenerateImageTransportFailureMapsTo503(t *testing.T) {
	r := newTestRouter(&stubProvider{err: &stability.TransportError{Err: errors.New("refused")}}, &stubLedger{}, 1)

	w := postJSON(t, r, "/generate/image", gin.H{"prompt": "p"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGenerateVideoSuccess(t *testing.T) {
	r := newTestRouter(&stubProvider{}, &stubLedger{}, 1)

	w := postJSON(t, r, "/generate/video", gin.H{
		"image":        base64.StdEncoding.EncodeToString([]byte{0x89, 0x50}),
		"motion_style": "zoom_in",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var out ResultDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "video/mp4", out.MediaType)
}

func TestGenerateVideoRejectsBadBase64(t *testing.T) {
	r := newTestRouter(&stubProvider{}, &stubLedger{}, 1)

	w := postJSON(t, r, "/generate/video", gin.H{
		"image":        "not base64!!",
		"motion_style": "zoom_in",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
