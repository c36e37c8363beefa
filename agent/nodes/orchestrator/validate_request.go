package orchestratornode

import (
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
	statex "github.com/tanpawarit/fantrax-coach/agent/state"
)

var ErrInvalidMessage = errors.New("message is empty")

type GraphInput struct {
	SessionID string
	Text      string
	History   []statex.Turn
	// Vars are rendered into the system prompt, for example team_name.
	Vars map[string]any
}

type GraphOutput struct {
	Answer          string
	Invocations     []contractx.ToolInvocation
	ReasoningCalls  int
	Degraded        bool
	BudgetExhausted bool
}

// GraphState is the working context of one orchestration cycle. It is
// created per cycle and never shared.
type GraphState struct {
	SessionID string
	Text      string
	History   []statex.Turn
	Vars      map[string]any
	Now       time.Time

	Messages     []*schema.Message
	Observations []contractx.ToolResult
	Invocations  []contractx.ToolInvocation

	ReasoningCalls  int
	Answer          string
	Degraded        bool
	BudgetExhausted bool
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	vars := make(map[string]any, len(in.Vars))
	for k, v := range in.Vars {
		vars[k] = v
	}

	return &GraphState{
		SessionID: strings.TrimSpace(in.SessionID),
		Text:      text,
		History:   append([]statex.Turn(nil), in.History...),
		Vars:      vars,
		Now:       nowFn().UTC(),
	}, nil
}
