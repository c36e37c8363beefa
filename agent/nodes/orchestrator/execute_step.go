package orchestratornode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
	toolx "github.com/tanpawarit/fantrax-coach/agent/tool"
)

// ExecuteStep runs the tool named by step and feeds the raw output back into
// the working context as an observation. Every executed call is recorded in
// in.Invocations and logged, in order.
//
// An unknown tool returns contract.ErrUnknownTool without recording an
// invocation. Fatal collaborator errors end the cycle.
func ExecuteStep(ctx context.Context, in *GraphState, step Step, exec toolx.Executor) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if step.Kind != StepToolCall {
		return nil, fmt.Errorf("%w: step is %s, not a tool call", contractx.ErrValidation, step.Kind)
	}

	started := time.Now()
	res, err := exec(ctx, step.Tool, step.Args)
	elapsed := time.Since(started)

	if errors.Is(err, contractx.ErrUnknownTool) {
		log.Warn().
			Str("session_id", in.SessionID).
			Str("tool", step.Tool).
			Msg("reasoning requested unknown tool")
		return nil, err
	}

	inv := contractx.ToolInvocation{
		Step:     len(in.Invocations) + 1,
		Tool:     step.Tool,
		Args:     step.Args,
		Error:    res.Error,
		Duration: elapsed,
	}
	if err != nil && inv.Error == "" {
		inv.Error = err.Error()
	}
	in.Invocations = append(in.Invocations, inv)

	evt := log.Info()
	if inv.Error != "" {
		evt = log.Warn().Str("error", inv.Error)
	}
	evt.Str("session_id", in.SessionID).
		Int("step", inv.Step).
		Str("tool", inv.Tool).
		Interface("args", inv.Args).
		Dur("duration", inv.Duration).
		Msg("tool invoked")

	if err != nil {
		return nil, err
	}

	in.Observations = append(in.Observations, res)
	observation := observationText(res)
	if step.Native {
		in.Messages = append(in.Messages,
			step.Message,
			schema.ToolMessage(observation, step.CallID, schema.WithToolName(step.Tool)),
		)
	} else {
		in.Messages = append(in.Messages,
			step.Message,
			schema.UserMessage(fmt.Sprintf("Observation from %s:\n%s", step.Tool, observation)),
		)
	}
	return in, nil
}

func observationText(res contractx.ToolResult) string {
	if res.Error != "" {
		s, err := sonic.MarshalString(map[string]string{"error": res.Error})
		if err != nil {
			return res.Error
		}
		return s
	}
	if res.Result == nil {
		return "null"
	}
	s, err := sonic.MarshalString(res.Result)
	if err != nil {
		return fmt.Sprint(res.Result)
	}
	return s
}
