package orchestratornode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	llmx "github.com/tanpawarit/fantrax-coach/agent/llm"
)

const DefaultMaxParseRetries = 3

type OutcomeKind int

const (
	// OutcomeSuccess carries a parsed Step.
	OutcomeSuccess OutcomeKind = iota + 1
	// OutcomeMalformed is a single unparsable reply.
	OutcomeMalformed
	// OutcomeExhausted means every attempt within the bound was malformed.
	OutcomeExhausted
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

type ReasonOutcome struct {
	Kind OutcomeKind
	Step Step
	// Raw is the last non-empty reply text seen, kept for degradation.
	Raw string
	// Calls counts model invocations made for this outcome.
	Calls int
	// ParseErr is the last parse failure when Kind is not OutcomeSuccess.
	ParseErr error
}

const malformedFeedback = "Your previous reply could not be used: %v. " +
	"Either call one of the tools or answer the GM. In text mode reply with a single JSON object " +
	"with \"action\" and \"action_input\"."

// Reason asks the model for the next step, retrying malformed replies up to
// maxAttempts model calls. Model and provider errors end the loop
// immediately and are returned classified.
func Reason(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	msgs []*schema.Message,
	params ParamNamesFunc,
	maxAttempts int,
) (ReasonOutcome, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxParseRetries
	}

	working := append([]*schema.Message(nil), msgs...)
	out := ReasonOutcome{}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		one, err := reasonOnce(ctx, chatModel, working, params)
		out.Calls++
		if err != nil {
			return out, err
		}
		if one.Raw != "" {
			out.Raw = one.Raw
		}
		if one.Kind == OutcomeSuccess {
			out.Kind = OutcomeSuccess
			out.Step = one.Step
			out.ParseErr = nil
			return out, nil
		}

		out.ParseErr = one.ParseErr
		log.Warn().
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Err(one.ParseErr).
			Str("raw", truncate(one.Raw, 200)).
			Msg("malformed reasoning output")

		if one.Raw != "" {
			working = append(working, schema.AssistantMessage(one.Raw, nil))
		}
		working = append(working, schema.UserMessage(fmt.Sprintf(malformedFeedback, one.ParseErr)))
	}

	out.Kind = OutcomeExhausted
	return out, nil
}

func reasonOnce(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	msgs []*schema.Message,
	params ParamNamesFunc,
) (ReasonOutcome, error) {
	msg, err := chatModel.Generate(ctx, msgs)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return ReasonOutcome{}, ctxErr
		}
		return ReasonOutcome{}, llmx.ClassifyError(err)
	}

	raw := ""
	if msg != nil {
		raw = strings.TrimSpace(msg.Content)
	}
	step, err := ParseStep(msg, params)
	if err != nil {
		return ReasonOutcome{Kind: OutcomeMalformed, Raw: raw, ParseErr: err}, nil
	}
	return ReasonOutcome{Kind: OutcomeSuccess, Step: step, Raw: raw}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
