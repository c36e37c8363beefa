package advisor

import (
	"context"
	"fmt"
	"strings"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
)

// compileCompletionGraph renders prompt as a Go template and sends the
// result to the completer as a single user message.
func compileCompletionGraph(
	ctx context.Context,
	prompt string,
	completer contractx.Completer,
	graphName string,
) (compose.Runnable[map[string]any, string], error) {
	template := einoprompt.FromMessages(schema.GoTemplate, schema.UserMessage(prompt))

	graph := compose.NewGraph[map[string]any, string]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add advisor prompt node: %w", err)
	}
	if err := graph.AddLambdaNode("complete",
		compose.InvokableLambda(func(ctx context.Context, msgs []*schema.Message) (string, error) {
			if len(msgs) == 0 {
				return "", fmt.Errorf("%w: rendered prompt is empty", contractx.ErrPromptMissing)
			}
			out, err := completer.Complete(ctx, "", msgs[len(msgs)-1].Content)
			if err != nil {
				return "", err
			}
			out = strings.TrimSpace(out)
			if out == "" {
				return "", fmt.Errorf("%w: empty completion", contractx.ErrModelInvoke)
			}
			return out, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add advisor complete node: %w", err)
	}

	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add advisor edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "complete"); err != nil {
		return nil, fmt.Errorf("add advisor edge prompt->complete: %w", err)
	}
	if err := graph.AddEdge("complete", compose.END); err != nil {
		return nil, fmt.Errorf("add advisor edge complete->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", graphName, err)
	}
	return runner, nil
}
