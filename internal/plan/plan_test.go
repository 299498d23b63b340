package plan

import (
	"strings"
	"testing"
)

func newPlan(steps ...*Step) *Plan {
	p := New("test goal")
	for _, s := range steps {
		p.AddStep(s)
	}
	return p
}

func TestNextRunnable_PlanOrder(t *testing.T) {
	p := newPlan(
		&Step{ID: 1, Description: "first"},
		&Step{ID: 2, Description: "second", DependsOn: []int{1}},
		&Step{ID: 3, Description: "independent"},
	)

	next := p.NextRunnable()
	if next == nil || next.ID != 1 {
		t.Fatalf("expected step 1, got %v", next)
	}

	p.Step(1).Status = StatusCompleted
	next = p.NextRunnable()
	if next == nil || next.ID != 2 {
		t.Fatalf("expected step 2 after step 1 completes, got %v", next)
	}
}

func TestNextRunnable_SkipsBlockedDependents(t *testing.T) {
	p := newPlan(
		&Step{ID: 1, Description: "fails"},
		&Step{ID: 2, Description: "needs 1", DependsOn: []int{1}},
		&Step{ID: 3, Description: "independent"},
	)
	p.Step(1).Status = StatusFailed

	next := p.NextRunnable()
	if next == nil || next.ID != 3 {
		t.Fatalf("expected independent step 3, got %v", next)
	}
}

func TestBlocked(t *testing.T) {
	p := newPlan(
		&Step{ID: 1, Description: "fails"},
		&Step{ID: 2, Description: "needs 1", DependsOn: []int{1}},
	)
	p.Step(1).Status = StatusFailed

	if !p.Blocked() {
		t.Error("plan with only unreachable pending steps should be blocked")
	}
	if p.Finished() {
		t.Error("blocked plan is not finished")
	}

	p.Step(2).Status = StatusFailed
	if p.Blocked() {
		t.Error("plan with no pending steps cannot be blocked")
	}
	if !p.Finished() {
		t.Error("plan with all terminal steps should be finished")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		steps   []*Step
		wantErr string
	}{
		{
			name: "valid chain",
			steps: []*Step{
				{ID: 1}, {ID: 2, DependsOn: []int{1}}, {ID: 3, DependsOn: []int{1, 2}},
			},
		},
		{
			name:    "duplicate ID",
			steps:   []*Step{{ID: 1}, {ID: 1}},
			wantErr: "duplicate step ID 1",
		},
		{
			name:    "non-positive ID",
			steps:   []*Step{{ID: 0}},
			wantErr: "not a positive ordinal",
		},
		{
			name:    "unknown dependency",
			steps:   []*Step{{ID: 1, DependsOn: []int{9}}},
			wantErr: "unknown step 9",
		},
		{
			name:    "self dependency",
			steps:   []*Step{{ID: 1, DependsOn: []int{1}}},
			wantErr: "depends on itself",
		},
		{
			name: "cycle",
			steps: []*Step{
				{ID: 1, DependsOn: []int{2}}, {ID: 2, DependsOn: []int{1}},
			},
			wantErr: "dependency cycle",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newPlan(tc.steps...)
			err := p.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestAddStep_DefaultsPending(t *testing.T) {
	p := newPlan(&Step{ID: 1})
	if p.Step(1).Status != StatusPending {
		t.Errorf("expected pending, got %s", p.Step(1).Status)
	}
}

func TestStatusTerminal(t *testing.T) {
	if StatusPending.Terminal() || StatusInProgress.Terminal() {
		t.Error("pending and in_progress are not terminal")
	}
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
		t.Error("completed and failed are terminal")
	}
}
