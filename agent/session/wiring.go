package session

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
	llmx "github.com/tanpawarit/fantrax-coach/agent/llm"
	promptx "github.com/tanpawarit/fantrax-coach/agent/prompt"
	statex "github.com/tanpawarit/fantrax-coach/agent/state"
	configx "github.com/tanpawarit/fantrax-coach/pkg/config"
	fantraxx "github.com/tanpawarit/fantrax-coach/pkg/fantrax"
	tavilyx "github.com/tanpawarit/fantrax-coach/pkg/tavily"
)

// Environment is every setting a coach process reads from the environment.
type Environment struct {
	LLM     llmx.Config
	Fantrax fantraxx.Config
	Tavily  tavilyx.Config
	Coach   Config
	Store   statex.StoreConfig
}

func LoadEnvironment() (*Environment, error) {
	llmCfg, err := configx.New[llmx.Config]("LLM")
	if err != nil {
		return nil, fmt.Errorf("llm config: %w", err)
	}
	fantraxCfg, err := configx.New[fantraxx.Config]("FANTRAX")
	if err != nil {
		return nil, fmt.Errorf("fantrax config: %w", err)
	}
	tavilyCfg, err := configx.New[tavilyx.Config]("TAVILY")
	if err != nil {
		return nil, fmt.Errorf("tavily config: %w", err)
	}
	coachCfg, err := configx.New[Config]("COACH")
	if err != nil {
		return nil, fmt.Errorf("coach config: %w", err)
	}
	storeCfg, err := configx.New[statex.StoreConfig]("STORE")
	if err != nil {
		return nil, fmt.Errorf("store config: %w", err)
	}
	return &Environment{
		LLM:     *llmCfg,
		Fantrax: *fantraxCfg,
		Tavily:  *tavilyCfg,
		Coach:   *coachCfg,
		Store:   *storeCfg,
	}, nil
}

// NewCompleter picks the advisor completion backend. OpenAI-compatible
// providers go straight through the SDK, everything else through the eino
// chat model.
func NewCompleter(ctx context.Context, cfg llmx.Config) (contractx.Completer, error) {
	s := cfg.For(llmx.RoleAdvisor)
	switch s.Provider {
	case llmx.ProviderOpenRouter, llmx.ProviderOpenAI, llmx.ProviderGroq:
		orCfg := cfg.OpenRouterFor(llmx.RoleAdvisor)
		if s.Provider != llmx.ProviderOpenRouter {
			orCfg.SiteURL, orCfg.SiteName = "", ""
		}
		return llmx.NewOpenAICompleter(orCfg)
	default:
		m, err := llmx.NewChatModel(ctx, cfg, llmx.RoleAdvisor)
		if err != nil {
			return nil, err
		}
		return llmx.NewModelCompleter(ctx, m)
	}
}

// NewFactory builds the language model clients once and returns a Factory
// that gives every session its own league client and tool registry.
func NewFactory(ctx context.Context, env *Environment, store statex.Store) (Factory, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: environment is required", contractx.ErrValidation)
	}

	prompts, err := promptx.Load(env.Coach.Overrides)
	if err != nil {
		return nil, err
	}

	chatModel, err := llmx.NewChatModel(ctx, env.LLM, llmx.RoleCoach)
	if err != nil {
		return nil, err
	}

	completer, err := NewCompleter(ctx, env.LLM)
	if err != nil {
		log.Warn().Err(err).Msg("advisor completer unavailable, recommendations disabled")
		completer = nil
	}

	var searcher contractx.Searcher
	if strings.TrimSpace(env.Tavily.APIKey) != "" {
		client, err := tavilyx.New(env.Tavily)
		if err != nil {
			return nil, err
		}
		searcher = client
	} else {
		log.Warn().Msg("TAVILY_API_KEY not set, search tools disabled")
	}

	return newFactory(env.Fantrax, env.Coach, chatModel, completer, searcher, store, prompts), nil
}

func newFactory(
	base fantraxx.Config,
	coach Config,
	chatModel einomodel.ToolCallingChatModel,
	completer contractx.Completer,
	searcher contractx.Searcher,
	store statex.Store,
	prompts promptx.PromptSet,
) Factory {
	return func(ctx context.Context, opts Options) (*Session, error) {
		cfg := base
		if v := strings.TrimSpace(opts.LeagueID); v != "" {
			cfg.LeagueID = v
		}
		if v := strings.TrimSpace(opts.Cookie); v != "" {
			cfg.Cookie = v
			cfg.CookieFile = ""
		}
		if opts.TeamID == "" && opts.TeamName == "" {
			opts.TeamID = cfg.TeamID
			opts.TeamName = cfg.TeamName
		}

		source, err := fantraxx.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", contractx.ErrValidation, err)
		}
		opts.LeagueID = source.LeagueID()
		opts.Config = coach

		return New(ctx, Deps{
			Source:    source,
			Searcher:  searcher,
			ChatModel: chatModel,
			Completer: completer,
			Store:     store,
			Prompts:   prompts,
		}, opts)
	}
}
