package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	appErrors "github.com/pfe-match/pfe-match-api/pkg/errors"
	"github.com/pfe-match/pfe-match-api/pkg/response"
)

// CronTokenHeader carries the shared secret for scheduler-triggered calls.
const CronTokenHeader = "X-Cron-Token"

// CronToken guards recomputation triggers with a shared secret. When no
// secret is configured the route stays open, which suits local development.
func CronToken(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		provided := c.GetHeader(CronTokenHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "invalid cron token"))
			c.Abort()
			return
		}
		c.Next()
	}
}
