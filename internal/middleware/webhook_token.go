package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// WebhookTokenHeader carries the shared secret on provider callbacks
const WebhookTokenHeader = "X-Pkfare-Token"

// WebhookToken rejects provider callbacks whose X-Pkfare-Token header does
// not match expected. An empty expected token denies every request.
func WebhookToken(expected string, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := strings.TrimSpace(c.GetHeader(WebhookTokenHeader))

		if expected == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			logger.WithFields(logrus.Fields{
				"path":      c.Request.URL.Path,
				"ip":        c.ClientIP(),
				"has_token": provided != "",
			}).Warn("Rejected webhook with invalid token")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"errorCode": http.StatusForbidden,
				"errorMsg":  "forbidden",
			})
			return
		}

		c.Next()
	}
}
