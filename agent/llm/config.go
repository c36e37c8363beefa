package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
	openrouterx "github.com/tanpawarit/fantrax-coach/pkg/openrouter"
)

type Provider string

const (
	ProviderOpenRouter Provider = "openrouter"
	ProviderOpenAI     Provider = "openai"
	ProviderGroq       Provider = "groq"
	ProviderOllama     Provider = "ollama"
	ProviderGemini     Provider = "gemini"
	ProviderClaude     Provider = "claude"
)

var defaultBaseURLs = map[Provider]string{
	ProviderOpenRouter: "https://openrouter.ai/api/v1",
	ProviderOpenAI:     "https://api.openai.com/v1",
	ProviderGroq:       "https://api.groq.com/openai/v1",
	ProviderOllama:     "http://localhost:11434",
}

// Role selects per-use model overrides.
type Role string

const (
	RoleCoach   Role = "coach"
	RoleAdvisor Role = "advisor"
)

type Config struct {
	Provider           string        `envconfig:"PROVIDER" default:"openrouter"`
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	CoachModel         string  `envconfig:"COACH_MODEL" split_words:"true"`
	AdvisorModel       string  `envconfig:"ADVISOR_MODEL" split_words:"true"`
	CoachTemperature   float32 `envconfig:"COACH_TEMPERATURE" split_words:"true" default:"-1"`
	AdvisorTemperature float32 `envconfig:"ADVISOR_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) provider() Provider {
	p := Provider(strings.ToLower(strings.TrimSpace(c.Provider)))
	if p == "" {
		return ProviderOpenRouter
	}
	return p
}

func (c Config) Validate() error {
	p := c.provider()
	switch p {
	case ProviderOpenRouter, ProviderOpenAI, ProviderGroq, ProviderGemini, ProviderClaude:
		if strings.TrimSpace(c.APIKey) == "" {
			return fmt.Errorf("%w: %s api key is required", contractx.ErrValidation, p)
		}
	case ProviderOllama:
	default:
		return fmt.Errorf("%w: unknown llm provider %q", contractx.ErrValidation, c.Provider)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// ModelSettings is the resolved configuration for one role.
type ModelSettings struct {
	Provider    Provider
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

func (c Config) For(role Role) ModelSettings {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch role {
	case RoleCoach:
		if v := strings.TrimSpace(c.CoachModel); v != "" {
			modelName = v
		}
		if c.CoachTemperature >= 0 {
			temp = c.CoachTemperature
		}
	case RoleAdvisor:
		if v := strings.TrimSpace(c.AdvisorModel); v != "" {
			modelName = v
		}
		if c.AdvisorTemperature >= 0 {
			temp = c.AdvisorTemperature
		}
	}

	p := c.provider()
	baseURL := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURLs[p]
	}
	return ModelSettings{
		Provider:    p,
		BaseURL:     baseURL,
		APIKey:      strings.TrimSpace(c.APIKey),
		Model:       modelName,
		MaxTokens:   c.MaxCompletionToken,
		Temperature: temp,
		Timeout:     c.Timeout,
	}
}

func (c Config) OpenRouterFor(role Role) openrouterx.Config {
	s := c.For(role)
	maxCompletionToken := s.MaxTokens
	return openrouterx.Config{
		BaseURL:            s.BaseURL,
		APIKey:             s.APIKey,
		Model:              s.Model,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        s.Temperature,
		Timeout:            s.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
