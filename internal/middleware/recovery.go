package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RecoveryWithLog turns a panic in any later handler into a 500 JSON body
// and logs the stack with the request id.
func RecoveryWithLog(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.WithFields(logrus.Fields{
					"request_id": GetRequestID(c),
					"method":     c.Request.Method,
					"path":       c.Request.URL.Path,
					"panic":      err,
					"stack":      string(debug.Stack()),
				}).Error("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}
