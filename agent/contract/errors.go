package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")

	// ErrAuth means the league session handle is invalid or expired.
	ErrAuth = errors.New("league session is invalid or expired, please log in again")

	// ErrToolExecution marks a collaborator failure inside a tool. It is
	// reported back to the reasoning loop as an observation.
	ErrToolExecution = errors.New("tool execution failed")

	ErrUnknownTool = errors.New("unknown tool")

	// ErrMalformedOutput is returned when reasoning output stays unparsable
	// after the retry bound and no raw text is available to degrade to.
	ErrMalformedOutput = errors.New("malformed reasoning output")

	// ErrProviderQuotaOrAuth means a language model or search provider
	// rejected the credentials or the quota is exhausted.
	ErrProviderQuotaOrAuth = errors.New("provider rejected credentials or quota")
)

// IsFatal reports whether err must terminate the current cycle instead of
// being handed back to the reasoning loop.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAuth) || errors.Is(err, ErrProviderQuotaOrAuth)
}
