package llm

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	openaisdk "github.com/openai/openai-go"
	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
	openrouterx "github.com/tanpawarit/fantrax-coach/pkg/openrouter"
)

var (
	_ contractx.Completer = (*ModelCompleter)(nil)
	_ contractx.Completer = (*OpenAICompleter)(nil)
)

type completionInput struct {
	System string
	User   string
}

// ModelCompleter runs single tools-free prompts through an eino chat model.
type ModelCompleter struct {
	runner compose.Runnable[completionInput, *schema.Message]
}

func NewModelCompleter(ctx context.Context, chatModel einomodel.BaseChatModel) (*ModelCompleter, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}

	graph := compose.NewGraph[completionInput, *schema.Message]()
	if err := graph.AddLambdaNode("build_messages",
		compose.InvokableLambda(func(ctx context.Context, in completionInput) ([]*schema.Message, error) {
			msgs := make([]*schema.Message, 0, 2)
			if strings.TrimSpace(in.System) != "" {
				msgs = append(msgs, schema.SystemMessage(in.System))
			}
			msgs = append(msgs, schema.UserMessage(in.User))
			return msgs, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add completion messages node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add completion model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "build_messages"); err != nil {
		return nil, fmt.Errorf("add completion edge start->messages: %w", err)
	}
	if err := graph.AddEdge("build_messages", "model"); err != nil {
		return nil, fmt.Errorf("add completion edge messages->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add completion edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("llm.completion_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile completion graph: %w", err)
	}
	return &ModelCompleter{runner: runner}, nil
}

func (c *ModelCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	msg, err := c.runner.Invoke(ctx, completionInput{System: system, User: user})
	if err != nil {
		return "", ClassifyError(err)
	}
	if msg == nil {
		return "", fmt.Errorf("%w: empty completion", contractx.ErrModelInvoke)
	}
	return strings.TrimSpace(msg.Content), nil
}

// OpenAICompleter calls an OpenAI-compatible chat completions endpoint
// directly through the official SDK.
type OpenAICompleter struct {
	client      *openaisdk.Client
	model       string
	temperature float64
	maxTokens   int64
}

func NewOpenAICompleter(cfg openrouterx.Config) (*OpenAICompleter, error) {
	client := openrouterx.NewClient(cfg)
	if client == nil {
		return nil, fmt.Errorf("%w: api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("%w: model is required", contractx.ErrValidation)
	}
	c := &OpenAICompleter{
		client:      client,
		model:       strings.TrimSpace(cfg.Model),
		temperature: float64(cfg.Temperature),
	}
	if cfg.MaxCompletionToken != nil {
		c.maxTokens = int64(*cfg.MaxCompletionToken)
	}
	return c, nil
}

func (c *OpenAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	msgs := make([]openaisdk.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, openaisdk.SystemMessage(system))
	}
	msgs = append(msgs, openaisdk.UserMessage(user))

	params := openaisdk.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    msgs,
		Temperature: openaisdk.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(c.maxTokens)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", ClassifyError(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: completion has no choices", contractx.ErrModelInvoke)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
