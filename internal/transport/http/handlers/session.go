package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ghga-de/auth-adapter/internal/core/domain"
	"github.com/ghga-de/auth-adapter/internal/infra/config"
	"github.com/ghga-de/auth-adapter/internal/transport/http/middleware"
	"github.com/ghga-de/auth-adapter/internal/usecase"
)

// SessionHeader carries the client-visible session projection.
const SessionHeader = "X-Session"

// SessionHandler serves login and logout.
type SessionHandler struct {
	sessions *usecase.SessionService
	cfg      config.SessionSettings
	secure   bool
	logger   *zap.Logger
}

// NewSessionHandler builds the session lifecycle handler. secure controls
// the cookie's Secure attribute and is only disabled in development.
func NewSessionHandler(sessions *usecase.SessionService, cfg config.SessionSettings, secure bool, log *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, cfg: cfg, secure: secure, logger: log}
}

// Login verifies the presented access token with the identity provider
// and responds 204 with the session projection in the X-Session header.
// A fresh session also sets the session cookie.
func (h *SessionHandler) Login(c *gin.Context) {
	token := bearerToken(c.Request)
	if token == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "No access token provided"))
		return
	}

	existing := middleware.SessionFromContext(c)

	session, created, err := h.sessions.Login(c.Request.Context(), existing, token)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidAccessToken, Status: http.StatusUnauthorized, Message: "Invalid access token"},
		}, http.StatusInternalServerError, "Could not create session")
		return
	}

	if created {
		h.setSessionCookie(c, session.ID)
	}

	if err := h.writeSessionHeader(c, session); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "Could not create session"))
		return
	}

	c.Status(http.StatusNoContent)
}

// Logout destroys the caller's session. Without a session it is a no-op.
func (h *SessionHandler) Logout(c *gin.Context) {
	session := middleware.SessionFromContext(c)
	if session != nil {
		if err := h.sessions.Logout(c.Request.Context(), session.ID); err != nil {
			h.logger.Error("logout failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "Could not end session"))
			return
		}
	}

	h.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

// writeSessionHeader renders the client-visible projection into X-Session.
func (h *SessionHandler) writeSessionHeader(c *gin.Context, session *domain.Session) error {
	info := session.Info(h.sessions.ExpiresIn(session))

	payload, err := json.Marshal(info)
	if err != nil {
		return err
	}

	c.Header(SessionHeader, string(payload))
	return nil
}

func (h *SessionHandler) setSessionCookie(c *gin.Context, sessionID string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.CookieName, sessionID, 0, "/", "", h.secure, true)
}

func (h *SessionHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.CookieName, "", -1, "/", "", h.secure, true)
}
