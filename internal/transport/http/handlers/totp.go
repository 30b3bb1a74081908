package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ghga-de/auth-adapter/internal/transport/http/middleware"
	"github.com/ghga-de/auth-adapter/internal/usecase"
)

// TOTPHandler serves second-factor enrolment and verification.
type TOTPHandler struct {
	totp *usecase.TOTPService
}

// NewTOTPHandler builds the second-factor handler.
func NewTOTPHandler(totp *usecase.TOTPService) *TOTPHandler {
	return &TOTPHandler{totp: totp}
}

// CreateToken enrols a TOTP secret for the caller's session and returns
// the provisioning URI. Re-enrolment requires the force flag.
func (h *TOTPHandler) CreateToken(c *gin.Context) {
	session := middleware.SessionFromContext(c)
	if session == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "Not logged in"))
		return
	}

	var req TOTPTokenRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Invalid request payload"))
			return
		}
	}

	uri, err := h.totp.Enroll(c.Request.Context(), session, req.Force)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrSecondFactorExists, Status: http.StatusConflict, Message: "Second factor already set up"},
		}, http.StatusInternalServerError, "Could not create second factor")
		return
	}

	c.JSON(http.StatusOK, TOTPTokenResponse{URI: uri})
}

// VerifyCode checks the submitted code; success authenticates the session.
func (h *TOTPHandler) VerifyCode(c *gin.Context) {
	session := middleware.SessionFromContext(c)
	if session == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "Not logged in"))
		return
	}

	var req VerifyTOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Invalid request payload"))
		return
	}

	if err := h.totp.Verify(c.Request.Context(), session, req.Code); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCode, Status: http.StatusUnauthorized, Message: "Invalid TOTP code"},
			{Err: usecase.ErrNoSecondFactor, Status: http.StatusUnauthorized, Message: "Invalid TOTP code"},
		}, http.StatusInternalServerError, "Could not verify the code")
		return
	}

	c.Status(http.StatusNoContent)
}
