package orchestratornode

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/fantrax-coach/agent/contract"
	statex "github.com/tanpawarit/fantrax-coach/agent/state"
)

type scriptedModel struct {
	responses []*schema.Message
	err       error
	calls     int
}

func (m *scriptedModel) Generate(_ context.Context, _ []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.calls > len(m.responses) {
		return nil, errors.New("script exhausted")
	}
	return m.responses[m.calls-1], nil
}

func (m *scriptedModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func paramsOf(m map[string][]string) ParamNamesFunc {
	return func(tool string) []string { return m[tool] }
}

func TestValidateRequestRejectsBlankText(t *testing.T) {
	t.Parallel()

	if _, err := ValidateRequest(GraphInput{Text: "  "}, time.Now); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("ValidateRequest() error = %v, want ErrInvalidMessage", err)
	}
}

func TestValidateRequestCopiesHistory(t *testing.T) {
	t.Parallel()

	history := []statex.Turn{{Role: statex.RoleUser, Content: "hi"}}
	st, err := ValidateRequest(GraphInput{Text: " who starts? ", History: history}, time.Now)
	if err != nil {
		t.Fatalf("ValidateRequest() error = %v", err)
	}
	st.History[0].Content = "changed"
	if history[0].Content != "hi" {
		t.Fatal("graph state shares the caller's history")
	}
	if st.Text != "who starts?" {
		t.Fatalf("Text = %q", st.Text)
	}
}

func TestBuildMessagesRendersPersonaAndHistory(t *testing.T) {
	t.Parallel()

	st := &GraphState{
		Text: "what team am I?",
		History: []statex.Turn{
			{Role: statex.RoleUser, Content: "hello {{coach}}"},
			{Role: statex.RoleAssistant, Content: "Get pucks in deep."},
		},
		Vars: map[string]any{"team_name": "Ice Holes"},
	}
	out, err := BuildMessages(context.Background(), st, NewCoachTemplate("You coach {{.team_name}}."))
	if err != nil {
		t.Fatalf("BuildMessages() error = %v", err)
	}
	if len(out.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(out.Messages))
	}
	if out.Messages[0].Role != schema.System || out.Messages[0].Content != "You coach Ice Holes." {
		t.Fatalf("system message = %+v", out.Messages[0])
	}
	if out.Messages[1].Content != "hello {{coach}}" || out.Messages[2].Role != schema.Assistant {
		t.Fatalf("history not replayed verbatim: %+v", out.Messages[1:3])
	}
	if out.Messages[3].Role != schema.User || out.Messages[3].Content != "what team am I?" {
		t.Fatalf("user message = %+v", out.Messages[3])
	}
}

func TestParseStepNativeToolCall(t *testing.T) {
	t.Parallel()

	msg := schema.AssistantMessage("", []schema.ToolCall{
		{ID: "call-1", Function: schema.FunctionCall{Name: "fetch_free_agents", Arguments: `{"position":"G"}`}},
		{ID: "call-2", Function: schema.FunctionCall{Name: "fetch_league_standings", Arguments: `{}`}},
	})
	step, err := ParseStep(msg, nil)
	if err != nil {
		t.Fatalf("ParseStep() error = %v", err)
	}
	if step.Kind != StepToolCall || !step.Native || step.Tool != "fetch_free_agents" || step.CallID != "call-1" {
		t.Fatalf("unexpected step: %+v", step)
	}
	if step.Args["position"] != "G" {
		t.Fatalf("args = %v", step.Args)
	}
	if len(step.Message.ToolCalls) != 1 {
		t.Fatalf("kept message should reference one call, got %d", len(step.Message.ToolCalls))
	}
}

func TestParseStepTextModes(t *testing.T) {
	t.Parallel()

	params := paramsOf(map[string][]string{"fetch_free_agents": {"position"}})
	cases := []struct {
		name     string
		content  string
		wantKind StepKind
		wantTool string
		wantArgs map[string]any
		wantText string
	}{
		{name: "plain text", content: "Bench him.", wantKind: StepFinalAnswer, wantText: "Bench him."},
		{
			name:     "fenced action",
			content:  "Let me check.\n```json\n{\"action\": \"fetch_free_agents\", \"action_input\": {\"position\": \"D\"}}\n```",
			wantKind: StepToolCall, wantTool: "fetch_free_agents", wantArgs: map[string]any{"position": "D"},
		},
		{
			name:     "string input maps to first param",
			content:  `{"action": "fetch_free_agents", "action_input": "G"}`,
			wantKind: StepToolCall, wantTool: "fetch_free_agents", wantArgs: map[string]any{"position": "G"},
		},
		{
			name:     "answer quoting json",
			content:  "Here are his numbers:\n```json\n{\"goals\": 12, \"assists\": 9}\n```\nStart him.",
			wantKind: StepFinalAnswer, wantText: "Here are his numbers:\n```json\n{\"goals\": 12, \"assists\": 9}\n```\nStart him.",
		},
		{
			name:     "bare object without action",
			content:  `{"action_input": "G"}`,
			wantKind: StepFinalAnswer, wantText: `{"action_input": "G"}`,
		},
		{
			name:     "final answer blob",
			content:  `{"action": "Final Answer", "action_input": "Play the kid."}`,
			wantKind: StepFinalAnswer, wantText: "Play the kid.",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			step, err := ParseStep(schema.AssistantMessage(tc.content, nil), params)
			if err != nil {
				t.Fatalf("ParseStep() error = %v", err)
			}
			if step.Kind != tc.wantKind {
				t.Fatalf("Kind = %s, want %s", step.Kind, tc.wantKind)
			}
			if step.Native {
				t.Fatal("text mode step marked native")
			}
			if tc.wantText != "" && step.Text != tc.wantText {
				t.Fatalf("Text = %q, want %q", step.Text, tc.wantText)
			}
			if tc.wantTool != "" {
				if step.Tool != tc.wantTool {
					t.Fatalf("Tool = %q, want %q", step.Tool, tc.wantTool)
				}
				for k, v := range tc.wantArgs {
					if step.Args[k] != v {
						t.Fatalf("Args[%s] = %v, want %v", k, step.Args[k], v)
					}
				}
			}
		})
	}
}

func TestParseStepMalformed(t *testing.T) {
	t.Parallel()

	cases := map[string]*schema.Message{
		"nil":            nil,
		"empty":          schema.AssistantMessage("   ", nil),
		"broken json":    schema.AssistantMessage(`{"action": "fetch_`, nil),
		"empty action":   schema.AssistantMessage(`{"action": " ", "action_input": "G"}`, nil),
		"empty final":    schema.AssistantMessage(`{"action": "Final Answer", "action_input": ""}`, nil),
		"bad input type": schema.AssistantMessage(`{"action": "fetch_free_agents", "action_input": 7}`, nil),
		"bad native args": schema.AssistantMessage("", []schema.ToolCall{
			{ID: "c", Function: schema.FunctionCall{Name: "fetch_free_agents", Arguments: `[1,2]`}},
		}),
	}
	for name, msg := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseStep(msg, nil); !errors.Is(err, contractx.ErrMalformedOutput) {
				t.Fatalf("ParseStep() error = %v, want ErrMalformedOutput", err)
			}
		})
	}
}

func TestParseStepShapeErrorsAreSchemaViolations(t *testing.T) {
	t.Parallel()

	msgs := []*schema.Message{
		schema.AssistantMessage(`{"action": "fetch_free_agents", "action_input": [1]}`, nil),
		schema.AssistantMessage("", []schema.ToolCall{
			{ID: "c", Function: schema.FunctionCall{Name: "fetch_free_agents", Arguments: `"G"`}},
		}),
	}
	for _, msg := range msgs {
		_, err := ParseStep(msg, nil)
		if !errors.Is(err, contractx.ErrSchemaViolation) || !errors.Is(err, contractx.ErrMalformedOutput) {
			t.Fatalf("ParseStep(%q) error = %v, want schema violation counted as malformed", msg.Content, err)
		}
	}

	_, err := ParseStep(schema.AssistantMessage(`{"action": "fetch_`, nil), nil)
	if errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("broken json reported as schema violation: %v", err)
	}
}

func TestReasonRetriesMalformedOutput(t *testing.T) {
	t.Parallel()

	m := &scriptedModel{responses: []*schema.Message{
		schema.AssistantMessage("", nil),
		schema.AssistantMessage(`{"action": "fetch_`, nil),
		schema.AssistantMessage("Keep shooting.", nil),
	}}
	out, err := Reason(context.Background(), m, nil, nil, 3)
	if err != nil {
		t.Fatalf("Reason() error = %v", err)
	}
	if out.Kind != OutcomeSuccess || out.Step.Text != "Keep shooting." {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if out.Calls != 3 || m.calls != 3 {
		t.Fatalf("calls = %d/%d, want 3", out.Calls, m.calls)
	}
}

func TestReasonExhaustedKeepsLastRawText(t *testing.T) {
	t.Parallel()

	m := &scriptedModel{responses: []*schema.Message{
		schema.AssistantMessage(`{"action": 1}`, nil),
		schema.AssistantMessage(`{"action": "x", "action_input": 3}`, nil),
	}}
	out, err := Reason(context.Background(), m, nil, nil, 2)
	if err != nil {
		t.Fatalf("Reason() error = %v", err)
	}
	if out.Kind != OutcomeExhausted {
		t.Fatalf("Kind = %s, want exhausted", out.Kind)
	}
	if out.Raw != `{"action": "x", "action_input": 3}` {
		t.Fatalf("Raw = %q", out.Raw)
	}
	if !errors.Is(out.ParseErr, contractx.ErrMalformedOutput) {
		t.Fatalf("ParseErr = %v", out.ParseErr)
	}
}

func TestReasonProviderErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	m := &scriptedModel{err: errors.New("error, status code: 429, message: quota exceeded")}
	out, err := Reason(context.Background(), m, nil, nil, 3)
	if !errors.Is(err, contractx.ErrProviderQuotaOrAuth) {
		t.Fatalf("Reason() error = %v, want ErrProviderQuotaOrAuth", err)
	}
	if out.Calls != 1 {
		t.Fatalf("calls = %d, want 1", out.Calls)
	}
}

func TestExecuteStepRecordsInvocationAndObservation(t *testing.T) {
	t.Parallel()

	st := &GraphState{SessionID: "s1"}
	var got []string
	exec := func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
		got = append(got, tool)
		return contractx.ToolResult{Tool: tool, Result: "Ice Holes"}, nil
	}
	step := Step{
		Kind:    StepToolCall,
		CallID:  "c1",
		Tool:    "fetch_user_team_name",
		Args:    map[string]any{},
		Native:  true,
		Message: schema.AssistantMessage("", []schema.ToolCall{{ID: "c1", Function: schema.FunctionCall{Name: "fetch_user_team_name"}}}),
	}

	out, err := ExecuteStep(context.Background(), st, step, exec)
	if err != nil {
		t.Fatalf("ExecuteStep() error = %v", err)
	}
	if len(got) != 1 || len(out.Invocations) != 1 || out.Invocations[0].Step != 1 {
		t.Fatalf("invocations = %+v", out.Invocations)
	}
	if len(out.Messages) != 2 {
		t.Fatalf("expected assistant + tool messages, got %d", len(out.Messages))
	}
	obs := out.Messages[1]
	if obs.Role != schema.Tool || obs.ToolCallID != "c1" || obs.Content != `"Ice Holes"` {
		t.Fatalf("observation = %+v", obs)
	}
}

func TestExecuteStepTextModeObservation(t *testing.T) {
	t.Parallel()

	st := &GraphState{}
	exec := func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
		return contractx.ToolResult{Tool: tool, Error: "tool execution failed: timeout"}, nil
	}
	step := Step{Kind: StepToolCall, Tool: "fetch_league_standings", Message: schema.AssistantMessage(`{"action":"fetch_league_standings"}`, nil)}

	out, err := ExecuteStep(context.Background(), st, step, exec)
	if err != nil {
		t.Fatalf("ExecuteStep() error = %v", err)
	}
	last := out.Messages[len(out.Messages)-1]
	if last.Role != schema.User || !strings.Contains(last.Content, "timeout") {
		t.Fatalf("observation = %+v", last)
	}
	if out.Invocations[0].Error == "" {
		t.Fatal("invocation error not recorded")
	}
}

func TestExecuteStepUnknownToolIsNotRecorded(t *testing.T) {
	t.Parallel()

	st := &GraphState{}
	exec := func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
		return contractx.ToolResult{Tool: tool}, contractx.ErrUnknownTool
	}
	_, err := ExecuteStep(context.Background(), st, Step{Kind: StepToolCall, Tool: "trade_everyone"}, exec)
	if !errors.Is(err, contractx.ErrUnknownTool) {
		t.Fatalf("ExecuteStep() error = %v, want ErrUnknownTool", err)
	}
	if len(st.Invocations) != 0 {
		t.Fatalf("unknown tool recorded as invocation: %+v", st.Invocations)
	}
}

func TestFinalizeRequiresAnswer(t *testing.T) {
	t.Parallel()

	if _, err := Finalize(&GraphState{Answer: "  "}); !errors.Is(err, contractx.ErrMalformedOutput) {
		t.Fatalf("Finalize() error = %v", err)
	}
	out, err := Finalize(&GraphState{Answer: " Dump and chase. ", ReasoningCalls: 2})
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if out.Answer != "Dump and chase." || out.ReasoningCalls != 2 {
		t.Fatalf("Finalize() = %+v", out)
	}
}

func TestSynthesizeBestEffortListsObservations(t *testing.T) {
	t.Parallel()

	st := &GraphState{Observations: []contractx.ToolResult{
		{Tool: "fetch_user_team_name", Result: "Ice Holes"},
		{Tool: "fetch_league_standings", Error: "boom"},
	}}
	got := SynthesizeBestEffort(st)
	if !strings.Contains(got, "Ice Holes") || !strings.Contains(got, "fetch_league_standings: failed (boom)") {
		t.Fatalf("SynthesizeBestEffort() = %q", got)
	}
	if SynthesizeBestEffort(&GraphState{}) == "" {
		t.Fatal("empty synthesis")
	}
}
