package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
	nodex "github.com/tanpawarit/fantrax-coach/agent/nodes/orchestrator"
	statex "github.com/tanpawarit/fantrax-coach/agent/state"
)

var ErrInvalidMessage = nodex.ErrInvalidMessage

const (
	DefaultMaxSteps        = 8
	DefaultMaxParseRetries = nodex.DefaultMaxParseRetries
)

// Tools is the registry surface the orchestrator needs.
type Tools interface {
	Infos() []*schema.ToolInfo
	Execute(ctx context.Context, name string, args map[string]any) (contractx.ToolResult, error)
	ParamNames(name string) []string
}

type Config struct {
	// SystemPrompt is the persona, rendered as a Go template with the
	// request vars.
	SystemPrompt string
	// MaxSteps bounds the tool calls of one cycle.
	MaxSteps int
	// MaxParseRetries bounds model calls per step while replies stay malformed.
	MaxParseRetries int
	// DisableDegrade returns ErrMalformedOutput instead of the last raw
	// reply when retries run out.
	DisableDegrade bool
	// Vars are the persona template defaults. Request vars override them.
	Vars map[string]any
}

type Request struct {
	SessionID string
	Message   string
	History   []statex.Turn
	Vars      map[string]any
}

type Result struct {
	Answer          string
	Invocations     []contractx.ToolInvocation
	ReasoningCalls  int
	Degraded        bool
	BudgetExhausted bool
}

// Orchestrator runs one reasoning cycle per user message. It keeps no
// per-conversation state and is safe to share within a session.
type Orchestrator struct {
	chatModel einomodel.BaseChatModel
	toolModel einomodel.BaseChatModel
	tools     Tools
	template  einoprompt.ChatTemplate
	vars      map[string]any

	maxSteps        int
	maxParseRetries int
	degrade         bool

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(chatModel einomodel.ToolCallingChatModel, tools Tools, cfg Config) (*Orchestrator, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	if tools == nil {
		return nil, errors.New("tool registry is required")
	}
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		return nil, fmt.Errorf("%w: coach system prompt", contractx.ErrPromptMissing)
	}

	toolModel := einomodel.BaseChatModel(chatModel)
	if infos := tools.Infos(); len(infos) > 0 {
		bound, err := chatModel.WithTools(infos)
		if err != nil {
			return nil, fmt.Errorf("%w: bind tools: %v", contractx.ErrModelInvoke, err)
		}
		toolModel = bound
	}

	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	maxParseRetries := cfg.MaxParseRetries
	if maxParseRetries <= 0 {
		maxParseRetries = DefaultMaxParseRetries
	}

	o := &Orchestrator{
		chatModel:       chatModel,
		toolModel:       toolModel,
		tools:           tools,
		template:        nodex.NewCoachTemplate(cfg.SystemPrompt),
		vars:            copyVars(cfg.Vars, nil),
		maxSteps:        maxSteps,
		maxParseRetries: maxParseRetries,
		degrade:         !cfg.DisableDegrade,
		now:             time.Now,
	}

	graphRunner, err := o.compileRunGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// Run turns one user message plus history into a final answer. The history
// slice is only read.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: req.SessionID,
		Text:      req.Message,
		History:   req.History,
		Vars:      copyVars(o.vars, req.Vars),
	})
	if err != nil {
		return Result{}, unwrapGraphError(err)
	}
	return Result{
		Answer:          out.Answer,
		Invocations:     out.Invocations,
		ReasoningCalls:  out.ReasoningCalls,
		Degraded:        out.Degraded,
		BudgetExhausted: out.BudgetExhausted,
	}, nil
}

// copyVars merges override onto base without touching either map.
func copyVars(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// unwrapGraphError keeps sentinel matching intact and strips graph node
// decoration from the message when the cause is a known sentinel.
func unwrapGraphError(err error) error {
	for _, sentinel := range []error{
		context.Canceled,
		context.DeadlineExceeded,
		contractx.ErrAuth,
		contractx.ErrProviderQuotaOrAuth,
		contractx.ErrUnknownTool,
		contractx.ErrMalformedOutput,
		contractx.ErrPromptMissing,
		contractx.ErrValidation,
		nodex.ErrInvalidMessage,
	} {
		if errors.Is(err, sentinel) {
			return innermost(err, sentinel)
		}
	}
	return err
}

// innermost returns the deepest wrapped error that still matches sentinel,
// so the caller sees the message produced at the failure site.
func innermost(err, sentinel error) error {
	cur := err
	for {
		next := errors.Unwrap(cur)
		if next == nil || next == sentinel || !errors.Is(next, sentinel) {
			return cur
		}
		cur = next
	}
}
