package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CSRFHeader carries the caller's CSRF token on write requests.
const CSRFHeader = "X-CSRF-Token"

const csrfErrorMessage = "Invalid or missing CSRF token"

// CSRFGuard rejects write requests bound to a session unless they carry
// the session's CSRF token. Read requests and anonymous requests pass;
// an anonymous request has no session state a forged request could abuse.
// Allow-listed paths pass too: the access gate already cleared them and
// their headers are echoed verbatim, no session state is touched.
func CSRFGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetBool(AllowlistedKey) {
			c.Next()
			return
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		session := SessionFromContext(c)
		if session == nil {
			c.Next()
			return
		}

		supplied := c.GetHeader(CSRFHeader)
		if supplied == "" ||
			subtle.ConstantTimeCompare([]byte(supplied), []byte(session.CSRFToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": csrfErrorMessage,
			})
			return
		}

		c.Next()
	}
}
