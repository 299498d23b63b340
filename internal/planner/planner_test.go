package planner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/catalyst-ai/catalyst/internal/llm"
	"github.com/catalyst-ai/catalyst/internal/plan"
	"github.com/catalyst-ai/catalyst/internal/tools"
)

type stubGateway struct {
	response string
	err      error
	lastReq  llm.Request
}

func (g *stubGateway) Generate(ctx context.Context, kind llm.TaskKind, req llm.Request) (string, error) {
	g.lastReq = req
	return g.response, g.err
}

var testDescriptors = []tools.Descriptor{
	{Name: "calculator", Description: "evaluates arithmetic"},
	{Name: "web_search", Description: "searches the web"},
}

func TestCreatePlan(t *testing.T) {
	gw := &stubGateway{response: `{
		"reasoning": "two steps needed",
		"plan": [
			{"id": 1, "description": "search for the population", "tool_name": "web_search",
			 "tool_args": {"query": "population of France"}, "depends_on": []},
			{"id": 2, "description": "double it", "tool_name": "calculator",
			 "tool_args": {"expression": "{step_1_result} * 2"}, "depends_on": [1]}
		]
	}`}

	p := New(gw)
	pl, err := p.CreatePlan(context.Background(), "double the population of France", Context{Tools: testDescriptors})
	if err != nil {
		t.Fatal(err)
	}

	if pl.ID == "" {
		t.Error("plan should get an ID")
	}
	if len(pl.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(pl.Steps))
	}
	if pl.Steps[0].ToolName != "web_search" || pl.Steps[1].ToolName != "calculator" {
		t.Errorf("tool names not carried over: %s, %s", pl.Steps[0].ToolName, pl.Steps[1].ToolName)
	}
	if pl.Steps[1].DependsOn[0] != 1 {
		t.Errorf("dependency not carried over: %v", pl.Steps[1].DependsOn)
	}
	if pl.Metadata["reasoning"] != "two steps needed" {
		t.Errorf("reasoning not recorded: %v", pl.Metadata["reasoning"])
	}
	for _, s := range pl.Steps {
		if s.Status != plan.StatusPending {
			t.Errorf("step %d should start pending, got %s", s.ID, s.Status)
		}
	}
}

func TestCreatePlan_EmptyGoal(t *testing.T) {
	p := New(&stubGateway{})
	_, err := p.CreatePlan(context.Background(), "   ", Context{})
	var gerr *GenerationError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
}

func TestCreatePlan_GatewayFailure(t *testing.T) {
	p := New(&stubGateway{err: errors.New("provider down")})
	_, err := p.CreatePlan(context.Background(), "do something", Context{})
	var gerr *GenerationError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if !strings.Contains(err.Error(), "provider down") {
		t.Errorf("underlying cause not preserved: %v", err)
	}
}

func TestCreatePlan_EmptyPlanGetsFallbackStep(t *testing.T) {
	gw := &stubGateway{response: `{"reasoning": "no tools needed", "plan": []}`}
	p := New(gw)

	pl, err := p.CreatePlan(context.Background(), "say hello", Context{})
	if err != nil {
		t.Fatal(err)
	}
	if len(pl.Steps) != 1 {
		t.Fatalf("expected the fallback step, got %d steps", len(pl.Steps))
	}
	s := pl.Steps[0]
	if s.ID != 1 || s.ToolName != "" {
		t.Errorf("fallback must be a language step with ID 1, got %+v", s)
	}
}

func TestCreatePlan_SystemPromptForwarded(t *testing.T) {
	gw := &stubGateway{response: `{"reasoning": "", "plan": []}`}
	p := New(gw)

	_, err := p.CreatePlan(context.Background(), "hi", Context{System: "You are a planner."})
	if err != nil {
		t.Fatal(err)
	}
	if gw.lastReq.System != "You are a planner." {
		t.Errorf("system prompt not forwarded: %q", gw.lastReq.System)
	}
}

func TestDecodeSteps(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{
			name: "fenced JSON accepted",
			raw: "```json\n" + `{"reasoning": "", "plan": [
				{"id": 1, "description": "search", "tool_name": "web_search", "tool_args": {}, "depends_on": []}
			]}` + "\n```",
		},
		{
			name: "implicit IDs accepted",
			raw: `{"reasoning": "", "plan": [
				{"description": "a", "tool_name": "", "tool_args": {}, "depends_on": []},
				{"description": "b", "tool_name": "", "tool_args": {}, "depends_on": [1]}
			]}`,
		},
		{
			name:    "not JSON",
			raw:     "Sure! Here is your plan: step one, step two.",
			wantErr: "not a valid plan document",
		},
		{
			name: "unknown field rejected",
			raw: `{"reasoning": "", "plan": [
				{"id": 1, "description": "a", "tool_name": "", "tool_args": {}, "depends_on": [], "surprise": true}
			]}`,
			wantErr: "not a valid plan document",
		},
		{
			name: "non-sequential ID rejected",
			raw: `{"reasoning": "", "plan": [
				{"id": 5, "description": "a", "tool_name": "", "tool_args": {}, "depends_on": []}
			]}`,
			wantErr: "carries ID 5",
		},
		{
			name: "forward dependency rejected",
			raw: `{"reasoning": "", "plan": [
				{"id": 1, "description": "a", "tool_name": "", "tool_args": {}, "depends_on": [2]},
				{"id": 2, "description": "b", "tool_name": "", "tool_args": {}, "depends_on": []}
			]}`,
			wantErr: "forward or invalid dependency",
		},
		{
			name: "unknown tool rejected",
			raw: `{"reasoning": "", "plan": [
				{"id": 1, "description": "a", "tool_name": "time_machine", "tool_args": {}, "depends_on": []}
			]}`,
			wantErr: `unknown tool "time_machine"`,
		},
		{
			name: "missing description rejected",
			raw: `{"reasoning": "", "plan": [
				{"id": 1, "description": "  ", "tool_name": "", "tool_args": {}, "depends_on": []}
			]}`,
			wantErr: "has no description",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			steps, _, err := DecodeSteps(tc.raw, testDescriptors)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(steps) == 0 {
					t.Fatal("expected steps")
				}
				return
			}
			if err == nil {
				t.Fatal("expected decode error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestDecodeSteps_ToolNameNormalization(t *testing.T) {
	raw := `{"reasoning": "", "plan": [
		{"id": 1, "description": "a", "tool_name": "null", "tool_args": {}, "depends_on": []},
		{"id": 2, "description": "b", "tool_name": "None", "tool_args": {}, "depends_on": []}
	]}`

	steps, _, err := DecodeSteps(raw, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range steps {
		if s.ToolName != "" {
			t.Errorf("step %d: null-ish tool name should normalize to empty, got %q", s.ID, s.ToolName)
		}
	}
}

func TestDecodeRevision(t *testing.T) {
	raw := `{"reasoning": "replace the tail", "plan": [
		{"id": 4, "description": "new step", "tool_name": "calculator", "tool_args": {"expression": "1+1"}, "depends_on": [2]},
		{"id": 5, "description": "another", "tool_name": "", "tool_args": {}, "depends_on": [4]}
	]}`

	steps, reasoning, err := DecodeRevision(raw, testDescriptors)
	if err != nil {
		t.Fatal(err)
	}
	if reasoning != "replace the tail" {
		t.Errorf("got reasoning %q", reasoning)
	}
	if len(steps) != 2 || steps[0].ID != 4 || steps[1].ID != 5 {
		t.Fatalf("explicit IDs must be kept, got %+v", steps)
	}
}

func TestDecodeRevision_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{
			name:    "missing ID",
			raw:     `{"reasoning": "", "plan": [{"description": "a", "tool_name": "", "tool_args": {}, "depends_on": []}]}`,
			wantErr: "no positive ID",
		},
		{
			name: "repeated ID",
			raw: `{"reasoning": "", "plan": [
				{"id": 4, "description": "a", "tool_name": "", "tool_args": {}, "depends_on": []},
				{"id": 4, "description": "b", "tool_name": "", "tool_args": {}, "depends_on": []}
			]}`,
			wantErr: "repeats step ID 4",
		},
		{
			name:    "unknown tool",
			raw:     `{"reasoning": "", "plan": [{"id": 4, "description": "a", "tool_name": "ghost", "tool_args": {}, "depends_on": []}]}`,
			wantErr: `unknown tool "ghost"`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := DecodeRevision(tc.raw, testDescriptors)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	want := `{"a": 1}`
	for _, raw := range []string{
		`{"a": 1}`,
		"```json\n{\"a\": 1}\n```",
		"```\n{\"a\": 1}\n```",
		"  {\"a\": 1}  ",
	} {
		if got := extractJSON(raw); got != want {
			t.Errorf("extractJSON(%q) = %q, want %q", raw, got, want)
		}
	}
}
