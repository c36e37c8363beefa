package llm

import (
	"context"
	"fmt"

	"github.com/bytedance/gg/gptr"
	claudemodel "github.com/cloudwego/eino-ext/components/model/claude"
	geminimodel "github.com/cloudwego/eino-ext/components/model/gemini"
	ollamamodel "github.com/cloudwego/eino-ext/components/model/ollama"
	openaimodel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

// NewChatModel builds the tool-calling chat model for role from cfg.
func NewChatModel(ctx context.Context, cfg Config, role Role) (model.ToolCallingChatModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := cfg.For(role)

	switch s.Provider {
	case ProviderOpenRouter:
		orCfg := cfg.OpenRouterFor(role)
		return orCfg.New(ctx)
	case ProviderOpenAI, ProviderGroq:
		m, err := openaimodel.NewChatModel(ctx, &openaimodel.ChatModelConfig{
			BaseURL:     s.BaseURL,
			APIKey:      s.APIKey,
			Model:       s.Model,
			MaxTokens:   gptr.Of(s.MaxTokens),
			Temperature: gptr.Of(s.Temperature),
			Timeout:     s.Timeout,
		})
		return asToolCalling(s, m, err)
	case ProviderOllama:
		m, err := ollamamodel.NewChatModel(ctx, &ollamamodel.ChatModelConfig{
			BaseURL: s.BaseURL,
			Model:   s.Model,
			Timeout: s.Timeout,
			Options: &ollamamodel.Options{
				Temperature: s.Temperature,
			},
		})
		return asToolCalling(s, m, err)
	case ProviderGemini:
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  s.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("create genai client: %w", err)
		}
		m, err := geminimodel.NewChatModel(ctx, &geminimodel.Config{
			Client:      client,
			Model:       s.Model,
			Temperature: gptr.Of(s.Temperature),
			MaxTokens:   gptr.Of(s.MaxTokens),
		})
		return asToolCalling(s, m, err)
	case ProviderClaude:
		conf := &claudemodel.Config{
			APIKey:      s.APIKey,
			Model:       s.Model,
			MaxTokens:   s.MaxTokens,
			Temperature: gptr.Of(s.Temperature),
		}
		if cfg.BaseURL != "" {
			conf.BaseURL = gptr.Of(s.BaseURL)
		}
		m, err := claudemodel.NewChatModel(ctx, conf)
		return asToolCalling(s, m, err)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", s.Provider)
	}
}

func asToolCalling(s ModelSettings, m model.BaseChatModel, err error) (model.ToolCallingChatModel, error) {
	if err != nil {
		return nil, fmt.Errorf("%s: create chat model: %w", s.Provider, err)
	}
	tc, ok := m.(model.ToolCallingChatModel)
	if !ok {
		return nil, fmt.Errorf("%s: model %s does not support tool calling", s.Provider, s.Model)
	}
	return tc, nil
}
