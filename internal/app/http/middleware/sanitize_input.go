package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
)

var sanitizePolicy = bluemonday.StrictPolicy()

// Fields that must pass through untouched: credentials, and base64 media
// payloads that bluemonday would mangle for no benefit.
var skipSanitize = map[string]bool{
	"password":     true,
	"old_password": true,
	"new_password": true,
	"image":        true,
}

// SanitizeInputMiddleware strips markup from top-level string fields of JSON
// request bodies.
func SanitizeInputMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}
		if !strings.Contains(c.GetHeader("Content-Type"), "application/json") {
			c.Next()
			return
		}

		buf, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid body"})
			return
		}
		if len(bytes.TrimSpace(buf)) == 0 {
			c.Request.Body = io.NopCloser(bytes.NewBuffer(buf))
			c.Next()
			return
		}

		var body map[string]interface{}
		if err := json.Unmarshal(buf, &body); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Malformed JSON"})
			return
		}

		for k, v := range body {
			str, ok := v.(string)
			if !ok || skipSanitize[k] {
				continue
			}
			body[k] = sanitizePolicy.Sanitize(str)
		}

		newBody, _ := json.Marshal(body)
		c.Request.Body = io.NopCloser(bytes.NewBuffer(newBody))
		c.Request.ContentLength = int64(len(newBody))

		c.Next()
	}
}
