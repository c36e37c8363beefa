package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
	orchestratornode "github.com/tanpawarit/fantrax-coach/agent/nodes/orchestrator"
	sessionx "github.com/tanpawarit/fantrax-coach/agent/session"
	statex "github.com/tanpawarit/fantrax-coach/agent/state"
)

const genericFailure = "could not complete that request"

// statusFor maps a core error to an HTTP status and the message shown to the
// caller. Provider and league auth errors keep their text.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, contractx.ErrAuth):
		return http.StatusUnauthorized, contractx.ErrAuth.Error()
	case errors.Is(err, contractx.ErrProviderQuotaOrAuth):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, sessionx.ErrSessionNotFound),
		errors.Is(err, statex.ErrStateNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, contractx.ErrValidation),
		errors.Is(err, orchestratornode.ErrInvalidMessage),
		errors.Is(err, statex.ErrInvalidSession):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, sessionx.ErrCycleInProgress),
		errors.Is(err, sessionx.ErrCycleAbandoned):
		return http.StatusConflict, err.Error()
	case errors.Is(err, sessionx.ErrNoAdvisor):
		return http.StatusNotImplemented, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, genericFailure
	default:
		return http.StatusInternalServerError, genericFailure
	}
}

func writeError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	c.JSON(status, gin.H{"error": msg})
}
