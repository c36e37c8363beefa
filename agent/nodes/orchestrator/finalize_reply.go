package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
)

const summarizeInstruction = "You are out of tool calls for this question. " +
	"Answer the GM now using only the information already gathered. Do not call any tools."

// SummarizeInstruction is appended when the step budget runs out.
func SummarizeInstruction() string {
	return summarizeInstruction
}

func Finalize(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	answer := strings.TrimSpace(in.Answer)
	if answer == "" {
		return GraphOutput{}, fmt.Errorf("%w: cycle produced no answer", contractx.ErrMalformedOutput)
	}
	return GraphOutput{
		Answer:          answer,
		Invocations:     append([]contractx.ToolInvocation(nil), in.Invocations...),
		ReasoningCalls:  in.ReasoningCalls,
		Degraded:        in.Degraded,
		BudgetExhausted: in.BudgetExhausted,
	}, nil
}

// SynthesizeBestEffort builds an answer from the observations gathered so
// far when the model could not summarise them itself.
func SynthesizeBestEffort(in *GraphState) string {
	if in == nil || len(in.Observations) == 0 {
		return "I ran out of time on that one and did not gather anything useful. Ask me again with a narrower question."
	}

	var b strings.Builder
	b.WriteString("I ran out of plays before finishing that one. Here is what I dug up:\n")
	for _, obs := range in.Observations {
		if obs.Error != "" {
			fmt.Fprintf(&b, "- %s: failed (%s)\n", obs.Tool, obs.Error)
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", obs.Tool, truncate(observationText(obs), 300))
	}
	return strings.TrimSpace(b.String())
}
