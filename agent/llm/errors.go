package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openaisdk "github.com/openai/openai-go"
	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
)

var quotaOrAuthMarkers = []string{
	"status code: 401",
	"status code: 402",
	"status code: 403",
	"status code: 429",
	"insufficient_quota",
	"invalid_api_key",
	"invalid x-api-key",
	"authentication_error",
	"permission_denied",
	"resource_exhausted",
	"rate limit",
	"quota",
}

// ClassifyError maps provider rejections of credentials or quota onto
// contract.ErrProviderQuotaOrAuth. Everything else is wrapped as
// contract.ErrModelInvoke. Cancellation passes through untouched.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, contractx.ErrProviderQuotaOrAuth) || errors.Is(err, contractx.ErrModelInvoke) {
		return err
	}

	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusPaymentRequired, http.StatusForbidden, http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", contractx.ErrProviderQuotaOrAuth, err)
		}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range quotaOrAuthMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", contractx.ErrProviderQuotaOrAuth, err)
		}
	}
	return fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
}
