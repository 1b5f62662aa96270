package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxBodyBytes caps request bodies read by JSONBody.
const MaxBodyBytes = 1 << 20

// JSONBody rejects POST, PUT and PATCH requests whose non-empty body is not
// valid JSON, before any route handler sees them. The body is restored for
// the handler afterwards.
func JSONBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}
		if c.Request.Body == nil {
			c.Next()
			return
		}

		data, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxBodyBytes+1))
		_ = c.Request.Body.Close()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "could not read request body: " + err.Error()})
			return
		}
		if len(data) > MaxBodyBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}

		if len(bytes.TrimSpace(data)) > 0 {
			var v interface{}
			if err := json.Unmarshal(data, &v); err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON: " + err.Error()})
				return
			}
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(data))
		c.Next()
	}
}
