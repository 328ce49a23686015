package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sanitizeTestRouter(t *testing.T) (*gin.Engine, *[]byte) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var received []byte
	r := gin.New()
	r.Use(SanitizeInputMiddleware())
	r.POST("/echo", func(c *gin.Context) {
		buf, err := io.ReadAll(c.Request.Body)
		require.NoError(t, err)
		received = buf
		c.Status(http.StatusOK)
	})
	return r, &received
}

func postBody(r *gin.Engine, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, raw []byte) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestSanitizeStripsMarkup(t *testing.T) {
	r, received := sanitizeTestRouter(t)

	w := postBody(r, "application/json", `{"prompt":"<script>alert(1)</script>a castle","style":"anime"}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, *received)
	assert.Equal(t, "a castle", body["prompt"])
	assert.Equal(t, "anime", body["style"])
}

func TestSanitizeSkipsPasswordAndImageFields(t *testing.T) {
	r, received := sanitizeTestRouter(t)

	w := postBody(r, "application/json", `{"password":"a<b>c","image":"aGVsbG8="}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, *received)
	assert.Equal(t, "a<b>c", body["password"])
	assert.Equal(t, "aGVsbG8=", body["image"])
}

func TestSanitizeRejectsMalformedJSON(t *testing.T) {
	r, _ := sanitizeTestRouter(t)

	w := postBody(r, "application/json", `{"prompt": oops`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSanitizeIgnoresNonJSONContent(t *testing.T) {
	r, received := sanitizeTestRouter(t)

	w := postBody(r, "text/plain", "raw body")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "raw body", string(*received))
}
