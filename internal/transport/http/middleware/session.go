package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ghga-de/auth-adapter/internal/core/domain"
	"github.com/ghga-de/auth-adapter/internal/core/port"
	"github.com/ghga-de/auth-adapter/internal/repository"
)

// SessionKey is the gin context key for the resolved session.
const SessionKey = "session"

// SessionResolver loads the caller's session from the session cookie.
// Missing and expired sessions leave the request anonymous; an expired
// session is indistinguishable from none at all.
func SessionResolver(store port.SessionStore, cookieName string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(cookieName)
		if err != nil || sessionID == "" {
			c.Next()
			return
		}

		session, err := store.Get(c.Request.Context(), sessionID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) && !errors.Is(err, repository.ErrExpired) {
				log.Error("session lookup failed", zap.Error(err))
			}
			c.Next()
			return
		}

		c.Set(SessionKey, session)
		c.Next()
	}
}

// SessionFromContext returns the resolved session, or nil for anonymous
// requests.
func SessionFromContext(c *gin.Context) *domain.Session {
	value, exists := c.Get(SessionKey)
	if !exists {
		return nil
	}
	session, ok := value.(*domain.Session)
	if !ok {
		return nil
	}
	return session
}
