package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/catalyst-ai/catalyst/internal/llm"
	"github.com/catalyst-ai/catalyst/internal/plan"
	"github.com/catalyst-ai/catalyst/internal/planner"
)

// reevaluatePlan asks the gateway whether the remaining steps still make
// sense given what has executed so far. Any failure — gateway, decode, or
// validation of the proposed revision — discards the proposal and keeps the
// prior plan: re-evaluation is never fatal to a running plan.
func (e *Engine) reevaluatePlan(ctx context.Context) {
	raw, err := e.gateway.Generate(ctx, llm.TaskPlanReevaluation, llm.Request{
		Prompt: buildReevalPrompt(e.current, e.executed),
	})
	if err != nil {
		e.discardRevision(fmt.Sprintf("gateway call failed: %v", err))
		return
	}

	proposed, reasoning, err := planner.DecodeRevision(raw, e.registry.List())
	if err != nil {
		e.discardRevision(err.Error())
		return
	}

	revised, err := e.mergeRevision(proposed)
	if err != nil {
		e.discardRevision(err.Error())
		return
	}

	e.current.Steps = revised
	if reasoning != "" {
		e.current.Metadata["reevaluation_reasoning"] = reasoning
	}
	if e.logger != nil {
		e.logger.LogReevaluation(e.current.ID, true, reasoning)
	}
}

func (e *Engine) discardRevision(reason string) {
	log.Printf("Discarding plan revision: %s", reason)
	if e.logger != nil {
		e.logger.LogReevaluation(e.current.ID, false, reason)
	}
}

// mergeRevision builds the revised step list: every non-pending step is kept
// untouched in its original position, the pending tail is replaced by the
// proposal. Proposed IDs may not collide with kept steps — in particular a
// revision can never replace a completed, failed, or in-progress step.
func (e *Engine) mergeRevision(proposed []*plan.Step) ([]*plan.Step, error) {
	var kept []*plan.Step
	keptIDs := make(map[int]bool)
	for _, s := range e.current.Steps {
		if s.Status != plan.StatusPending {
			kept = append(kept, s)
			keptIDs[s.ID] = true
		}
	}

	for _, s := range proposed {
		if keptIDs[s.ID] {
			return nil, fmt.Errorf("revision reuses ID %d of a step that is no longer pending", s.ID)
		}
	}

	merged := append(append([]*plan.Step{}, kept...), proposed...)
	trial := &plan.Plan{ID: e.current.ID, Goal: e.current.Goal, Steps: merged}
	if err := trial.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

// buildReevalPrompt serializes the goal, the full plan, and the execution log
// so the model can propose a revised remainder.
func buildReevalPrompt(p *plan.Plan, executed []plan.ExecutedStep) string {
	var b strings.Builder

	b.WriteString("Review the remaining steps of the plan below in light of the results so far.\n\n")
	fmt.Fprintf(&b, "GOAL: %s\n\n", p.Goal)

	planJSON, _ := json.Marshal(p.Steps)
	fmt.Fprintf(&b, "CURRENT PLAN:\n%s\n\n", planJSON)

	executedJSON, _ := json.Marshal(executed)
	fmt.Fprintf(&b, "EXECUTED STEPS:\n%s\n\n", executedJSON)

	if len(executed) > 0 {
		last := executed[len(executed)-1]
		fmt.Fprintf(&b, "MOST RECENT RESULT (step %d): %v\n\n", last.ID, last.Result)
	}

	b.WriteString(`Respond with a single JSON object of the form:
{"reasoning": "<why the remainder changed or not>",
 "plan": [{"id": <explicit id>, "description": "...", "tool_name": "<tool or null>",
           "tool_args": {...}, "depends_on": [<ids>]}]}

Rules:
- The "plan" array holds ONLY the steps that should remain to be executed.
- Keep the IDs of pending steps you retain; give new steps fresh unused IDs.
- Never reuse the ID of a completed, failed, or in-progress step.
- depends_on may reference completed steps or other remaining steps.
- ` + "When a step's arguments need the output of step N, use the exact placeholder format {step_N_result}.\n")

	return b.String()
}
