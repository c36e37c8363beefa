package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
	nodex "github.com/tanpawarit/fantrax-coach/agent/nodes/orchestrator"
)

func (o *Orchestrator) compileRunGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("build_messages",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.BuildMessages(ctx, in, o.template)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node build_messages: %w", err)
	}

	if err := graph.AddLambdaNode("agent_loop",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return o.loop(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node agent_loop: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.Finalize(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "build_messages"},
		{"build_messages", "agent_loop"},
		{"agent_loop", "finalize_reply"},
		{"finalize_reply", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.run"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}

// loop alternates reasoning and tool execution until the model answers, the
// replies stay malformed past the retry bound, or the step budget runs out.
func (o *Orchestrator) loop(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, err := nodex.Reason(ctx, o.toolModel, in.Messages, o.tools.ParamNames, o.maxParseRetries)
		in.ReasoningCalls += out.Calls
		if err != nil {
			return nil, err
		}

		if out.Kind == nodex.OutcomeExhausted {
			if o.degrade && out.Raw != "" {
				log.Warn().
					Str("session_id", in.SessionID).
					Int("reasoning_calls", in.ReasoningCalls).
					Msg("reasoning output stayed malformed, returning raw text")
				in.Answer = out.Raw
				in.Degraded = true
				return in, nil
			}
			return nil, fmt.Errorf("%w: gave up after %d attempts: %v", contractx.ErrMalformedOutput, o.maxParseRetries, out.ParseErr)
		}

		step := out.Step
		if step.Kind == nodex.StepFinalAnswer {
			in.Answer = step.Text
			return in, nil
		}

		if len(in.Invocations) >= o.maxSteps {
			return o.summarize(ctx, in)
		}

		if _, err := nodex.ExecuteStep(ctx, in, step, o.tools.Execute); err != nil {
			return nil, err
		}
	}
}

// summarize makes one tools-free call to answer from what was gathered, and
// falls back to a synthesized answer when that call does not produce one.
func (o *Orchestrator) summarize(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
	in.BudgetExhausted = true
	log.Warn().
		Str("session_id", in.SessionID).
		Int("max_steps", o.maxSteps).
		Msg("step budget exhausted")

	msgs := append(append([]*schema.Message(nil), in.Messages...), schema.UserMessage(nodex.SummarizeInstruction()))
	out, err := nodex.Reason(ctx, o.chatModel, msgs, o.tools.ParamNames, 1)
	in.ReasoningCalls += out.Calls
	if err != nil {
		if ctx.Err() != nil || contractx.IsFatal(err) {
			return nil, err
		}
		log.Warn().Err(err).Str("session_id", in.SessionID).Msg("summary call failed")
	}

	if err == nil && out.Kind == nodex.OutcomeSuccess && out.Step.Kind == nodex.StepFinalAnswer &&
		strings.TrimSpace(out.Step.Text) != "" {
		in.Answer = out.Step.Text
		return in, nil
	}

	in.Answer = nodex.SynthesizeBestEffort(in)
	return in, nil
}
