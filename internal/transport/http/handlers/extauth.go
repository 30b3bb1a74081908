package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ghga-de/auth-adapter/internal/core/domain"
	"github.com/ghga-de/auth-adapter/internal/transport/http/middleware"
	"github.com/ghga-de/auth-adapter/internal/usecase"
)

// ExchangeHandler answers the ExtAuth catch-all: the fronting proxy sends
// every request here and copies the response headers onto the upstream
// request. A 200 with a rewritten Authorization header admits the request;
// a 401 stops it at the gateway.
type ExchangeHandler struct {
	exchange *usecase.ExchangeService
	logger   *zap.Logger
}

// NewExchangeHandler builds the catch-all handler.
func NewExchangeHandler(exchange *usecase.ExchangeService, log *zap.Logger) *ExchangeHandler {
	return &ExchangeHandler{exchange: exchange, logger: log}
}

// Handle evaluates the request's credentials and rewrites the auth headers.
//
// The client-asserted Authorization never survives: it is either replaced
// by a freshly minted internal token or emptied. X-Authorization is always
// stripped. Allow-listed paths are the one exception and keep their
// headers untouched.
func (h *ExchangeHandler) Handle(c *gin.Context) {
	// gin's c.Header deletes on empty values, but the proxy contract
	// distinguishes an absent header from an emptied one. Write through
	// the header map directly so empty strings survive.
	header := c.Writer.Header()

	if c.GetBool(middleware.AllowlistedKey) {
		header.Set("Authorization", c.GetHeader("Authorization"))
		header.Set("X-Authorization", "")
		c.Status(http.StatusOK)
		return
	}

	var (
		decision domain.ExchangeDecision
		err      error
	)

	if token := bearerToken(c.Request); token != "" {
		decision, err = h.exchange.ExchangeBearer(c.Request.Context(), token)
	} else {
		decision, err = h.exchange.ExchangeSession(c.Request.Context(), middleware.SessionFromContext(c))
	}

	if err != nil {
		h.logger.Error("token exchange failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "Could not authorize request"))
		return
	}

	header.Set("X-Authorization", "")

	switch decision.Kind {
	case domain.DecisionReject:
		header.Set("Authorization", "")
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, decision.Reason))
	case domain.DecisionExchanged:
		header.Set("Authorization", "Bearer "+decision.Token)
		c.Status(http.StatusOK)
	default:
		header.Set("Authorization", "")
		c.Status(http.StatusOK)
	}
}
