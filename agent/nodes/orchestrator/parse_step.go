package orchestratornode

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
)

// FinalAnswerAction is the action name a text-mode reply uses to answer.
const FinalAnswerAction = "Final Answer"

type StepKind int

const (
	StepToolCall StepKind = iota + 1
	StepFinalAnswer
)

func (k StepKind) String() string {
	switch k {
	case StepToolCall:
		return "tool_call"
	case StepFinalAnswer:
		return "final_answer"
	default:
		return "unknown"
	}
}

// Step is one decision of the reasoning loop.
type Step struct {
	Kind StepKind

	// Tool call fields.
	CallID string
	Tool   string
	Args   map[string]any
	// Native is set when the model used structured tool calls rather than
	// a JSON action blob in its text.
	Native bool

	// Final answer text.
	Text string

	// Message is the assistant message to keep in the working context.
	Message *schema.Message
}

type actionBlob struct {
	Action      string `json:"action"`
	ActionInput any    `json:"action_input"`
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ParamNamesFunc returns the declared parameter names of a tool, in order.
type ParamNamesFunc func(tool string) []string

// ParseStep turns one model reply into a Step. Anything that is neither a
// usable tool call nor a non-empty answer is reported as
// contract.ErrMalformedOutput.
func ParseStep(msg *schema.Message, params ParamNamesFunc) (Step, error) {
	if msg == nil {
		return Step{}, fmt.Errorf("%w: empty reply", contractx.ErrMalformedOutput)
	}

	if len(msg.ToolCalls) > 0 {
		return parseNativeCall(msg)
	}

	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return Step{}, fmt.Errorf("%w: empty reply", contractx.ErrMalformedOutput)
	}

	// json without an action key is content of the answer, not a step
	blob, looksLikeBlob := extractBlob(text)
	if !looksLikeBlob || !strings.Contains(blob, `"action"`) {
		return Step{Kind: StepFinalAnswer, Text: text, Message: schema.AssistantMessage(text, nil)}, nil
	}

	var action actionBlob
	if err := sonic.UnmarshalString(blob, &action); err != nil {
		return Step{}, fmt.Errorf("%w: invalid action json: %v", contractx.ErrMalformedOutput, err)
	}
	name := strings.TrimSpace(action.Action)
	if name == "" {
		return Step{}, fmt.Errorf("%w: action is empty", contractx.ErrMalformedOutput)
	}

	if strings.EqualFold(name, FinalAnswerAction) {
		answer := strings.TrimSpace(inputText(action.ActionInput))
		if answer == "" {
			return Step{}, fmt.Errorf("%w: final answer is empty", contractx.ErrMalformedOutput)
		}
		return Step{Kind: StepFinalAnswer, Text: answer, Message: schema.AssistantMessage(answer, nil)}, nil
	}

	args, err := blobArgs(name, action.ActionInput, params)
	if err != nil {
		return Step{}, err
	}
	return Step{
		Kind:    StepToolCall,
		CallID:  uuid.NewString(),
		Tool:    name,
		Args:    args,
		Message: schema.AssistantMessage(text, nil),
	}, nil
}

// parseNativeCall keeps only the first requested call. Tools run one at a
// time, so the kept message must reference exactly the executed call.
func parseNativeCall(msg *schema.Message) (Step, error) {
	call := msg.ToolCalls[0]
	name := strings.TrimSpace(call.Function.Name)
	if name == "" {
		return Step{}, fmt.Errorf("%w: tool call has no name", contractx.ErrMalformedOutput)
	}

	args := map[string]any{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" && raw != "null" {
		if err := sonic.UnmarshalString(raw, &args); err != nil {
			return Step{}, fmt.Errorf("%w: %w: tool %s arguments are not a json object: %v", contractx.ErrMalformedOutput, contractx.ErrSchemaViolation, name, err)
		}
		if args == nil {
			args = map[string]any{}
		}
	}

	if call.ID == "" {
		call.ID = uuid.NewString()
	}
	call.Function.Name = name
	kept := schema.AssistantMessage(msg.Content, []schema.ToolCall{call})

	return Step{
		Kind:    StepToolCall,
		CallID:  call.ID,
		Tool:    name,
		Args:    args,
		Native:  true,
		Message: kept,
	}, nil
}

func extractBlob(text string) (string, bool) {
	if m := fencedJSON.FindStringSubmatch(text); len(m) == 2 {
		return m[1], true
	}
	if strings.HasPrefix(text, "{") {
		return text, true
	}
	if strings.Contains(text, `"action"`) {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start >= 0 && end > start {
			return text[start : end+1], true
		}
		return text, true
	}
	return "", false
}

func blobArgs(tool string, input any, params ParamNamesFunc) (map[string]any, error) {
	switch v := input.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return map[string]any{}, nil
		}
		var names []string
		if params != nil {
			names = params(tool)
		}
		if len(names) == 0 {
			return map[string]any{}, nil
		}
		return map[string]any{names[0]: v}, nil
	default:
		return nil, fmt.Errorf("%w: %w: action_input for %s must be an object or a string", contractx.ErrMalformedOutput, contractx.ErrSchemaViolation, tool)
	}
}

func inputText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		s, err := sonic.MarshalString(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return s
	}
}
