package engine

import (
	"context"
	"testing"

	"github.com/catalyst-ai/catalyst/internal/plan"
	"github.com/catalyst-ai/catalyst/internal/tools"
)

func newReevalEngine(exec Executor, responses ...string) (*Engine, *fakeGateway) {
	gw := &fakeGateway{reevalResponses: responses}
	e := New(nil, exec, gw, tools.NewRegistry(), WithReevaluation(true))
	return e, gw
}

func TestReevaluation_ReplacesPendingTail(t *testing.T) {
	exec := &fakeExecutor{}
	e, _ := newReevalEngine(exec,
		`{"reasoning": "step 3 is no longer needed",
		  "plan": [
		    {"id": 2, "description": "summarize {step_1_result}", "tool_name": "", "tool_args": {}, "depends_on": [1]},
		    {"id": 4, "description": "archive the summary", "tool_name": "", "tool_args": {}, "depends_on": [2]}
		  ]}`,
	)

	p := testPlan(
		&plan.Step{ID: 1, Description: "gather data"},
		&plan.Step{ID: 2, Description: "summarize", DependsOn: []int{1}},
		&plan.Step{ID: 3, Description: "obsolete extra work", DependsOn: []int{2}},
	)

	result, err := e.ExecutePlan(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", result.Status)
	}

	var ids []int
	for _, s := range p.Steps {
		ids = append(ids, s.ID)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 4 {
		t.Fatalf("expected steps [1 2 4] after revision, got %v", ids)
	}
	if p.Step(3) != nil {
		t.Error("step 3 should have been dropped by the revision")
	}
	if p.Step(2).Description != "summarize {step_1_result}" {
		t.Errorf("revised step 2 not applied: %q", p.Step(2).Description)
	}
	if p.Metadata["reevaluation_reasoning"] != "step 3 is no longer needed" {
		t.Errorf("reasoning not recorded: %v", p.Metadata["reevaluation_reasoning"])
	}
}

func TestReevaluation_RejectsCollisionWithExecutedStep(t *testing.T) {
	exec := &fakeExecutor{}
	e, _ := newReevalEngine(exec,
		`{"reasoning": "redo step 1",
		  "plan": [{"id": 1, "description": "redo the completed step", "tool_name": "", "tool_args": {}, "depends_on": []}]}`,
	)

	p := testPlan(
		&plan.Step{ID: 1, Description: "first"},
		&plan.Step{ID: 2, Description: "second", DependsOn: []int{1}},
	)

	if _, err := e.ExecutePlan(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	if len(p.Steps) != 2 || p.Step(2) == nil {
		t.Fatalf("colliding revision must be discarded, steps now %v", p.Steps)
	}
	if p.Step(2).Description != "second" {
		t.Errorf("step 2 should be untouched, got %q", p.Step(2).Description)
	}
}

func TestReevaluation_MalformedRevisionDiscarded(t *testing.T) {
	exec := &fakeExecutor{}
	e, _ := newReevalEngine(exec, "this is not a plan document")

	p := testPlan(
		&plan.Step{ID: 1, Description: "first"},
		&plan.Step{ID: 2, Description: "second", DependsOn: []int{1}},
	)

	result, err := e.ExecutePlan(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("malformed revision must not abort execution, got %s", result.Status)
	}
	if len(p.Steps) != 2 {
		t.Errorf("plan should be unchanged, got %d steps", len(p.Steps))
	}
}

func TestReevaluation_GatewayFailureDiscarded(t *testing.T) {
	exec := &fakeExecutor{}
	// No queued responses: every re-evaluation call errors out.
	e, gw := newReevalEngine(exec)

	p := testPlan(
		&plan.Step{ID: 1, Description: "first"},
		&plan.Step{ID: 2, Description: "second", DependsOn: []int{1}},
	)

	result, err := e.ExecutePlan(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("gateway failure during re-evaluation must not be fatal, got %s", result.Status)
	}
	if len(gw.calls) != 2 {
		t.Errorf("expected one re-evaluation per successful step, got %d", len(gw.calls))
	}
}

func TestReevaluation_UnknownToolDiscarded(t *testing.T) {
	exec := &fakeExecutor{}
	e, _ := newReevalEngine(exec,
		`{"reasoning": "use a new tool",
		  "plan": [{"id": 2, "description": "use it", "tool_name": "ghost", "tool_args": {}, "depends_on": []}]}`,
	)

	p := testPlan(
		&plan.Step{ID: 1, Description: "first"},
		&plan.Step{ID: 2, Description: "second", DependsOn: []int{1}},
	)

	if _, err := e.ExecutePlan(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	if p.Step(2).ToolName != "" {
		t.Errorf("revision naming an unregistered tool must be discarded, got tool %q", p.Step(2).ToolName)
	}
}

func TestEngineNotReevaluatingByDefault(t *testing.T) {
	exec := &fakeExecutor{}
	gw := &fakeGateway{}
	e := New(nil, exec, gw, tools.NewRegistry())

	p := testPlan(&plan.Step{ID: 1, Description: "only"})
	if _, err := e.ExecutePlan(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	if len(gw.calls) != 0 {
		t.Errorf("re-evaluation disabled: expected no gateway calls, got %d", len(gw.calls))
	}
}
