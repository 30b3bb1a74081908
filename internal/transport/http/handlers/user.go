package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ghga-de/auth-adapter/internal/repository"
	"github.com/ghga-de/auth-adapter/internal/transport/http/middleware"
	"github.com/ghga-de/auth-adapter/internal/usecase"
)

// UserHandler serves user self-registration and self-update.
type UserHandler struct {
	registration *usecase.RegistrationService
}

// NewUserHandler builds the registration handler.
func NewUserHandler(registration *usecase.RegistrationService) *UserHandler {
	return &UserHandler{registration: registration}
}

// Register creates a registry record for the session's identity.
func (h *UserHandler) Register(c *gin.Context) {
	session := middleware.SessionFromContext(c)
	if session == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "Not logged in"))
		return
	}

	var req RegisterRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Invalid request payload"))
			return
		}
	}

	user, err := h.registration.Register(c.Request.Context(), session, req.Title)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAlreadyRegistered, Status: http.StatusConflict, Message: "User is already registered"},
			{Err: repository.ErrAlreadyExists, Status: http.StatusConflict, Message: "User is already registered"},
		}, http.StatusInternalServerError, "Could not register user")
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{ID: user.ID})
}

// Update re-confirms the registry record from the session's identity.
func (h *UserHandler) Update(c *gin.Context) {
	session := middleware.SessionFromContext(c)
	if session == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "Not logged in"))
		return
	}

	var req RegisterRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Invalid request payload"))
			return
		}
	}

	if err := h.registration.Update(c.Request.Context(), session, req.Title); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrNotRegistered, Status: http.StatusConflict, Message: "User is not registered"},
			{Err: repository.ErrNotFound, Status: http.StatusNotFound, Message: "User not found"},
		}, http.StatusInternalServerError, "Could not update user")
		return
	}

	c.Status(http.StatusNoContent)
}
