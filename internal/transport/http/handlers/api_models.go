package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// TOTPTokenRequest defines the payload for second-factor enrolment.
type TOTPTokenRequest struct {
	Force bool `json:"force"`
}

// TOTPTokenResponse carries the provisioning URI for client-side QR display.
type TOTPTokenResponse struct {
	URI string `json:"uri"`
}

// VerifyTOTPRequest defines the payload for second-factor verification.
type VerifyTOTPRequest struct {
	Code string `json:"code" binding:"required"`
}

// RegisterRequest defines the payload for user self-registration and update.
// The identity itself comes from the session, never from the client.
type RegisterRequest struct {
	Title *string `json:"title"`
}

// RegisterResponse carries the id of a newly registered user.
type RegisterResponse struct {
	ID string `json:"id"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
