package orchestratornode

import (
	"context"
	"fmt"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
	statex "github.com/tanpawarit/fantrax-coach/agent/state"
)

const (
	historyKey = "history"
	inputKey   = "input"
)

// NewCoachTemplate renders the persona as a Go template followed by the
// replayed transcript and the new user message.
func NewCoachTemplate(systemPrompt string) einoprompt.ChatTemplate {
	return einoprompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(systemPrompt),
		schema.MessagesPlaceholder(historyKey, true),
		schema.UserMessage("{{."+inputKey+"}}"),
	)
}

// HistoryMessages converts transcript turns to model messages, oldest first.
func HistoryMessages(turns []statex.Turn) []*schema.Message {
	out := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case statex.RoleUser:
			out = append(out, schema.UserMessage(t.Content))
		case statex.RoleAssistant:
			out = append(out, schema.AssistantMessage(t.Content, nil))
		}
	}
	return out
}

func BuildMessages(ctx context.Context, in *GraphState, tmpl einoprompt.ChatTemplate) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if tmpl == nil {
		return nil, fmt.Errorf("%w: coach template", contractx.ErrPromptMissing)
	}

	vars := make(map[string]any, len(in.Vars)+2)
	for k, v := range in.Vars {
		vars[k] = v
	}
	vars[historyKey] = HistoryMessages(in.History)
	vars[inputKey] = in.Text

	msgs, err := tmpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("%w: render coach prompt: %v", contractx.ErrValidation, err)
	}
	in.Messages = msgs
	return in, nil
}
