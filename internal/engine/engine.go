package engine

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/catalyst-ai/catalyst/internal/llm"
	"github.com/catalyst-ai/catalyst/internal/observability"
	"github.com/catalyst-ai/catalyst/internal/plan"
	"github.com/catalyst-ai/catalyst/internal/planner"
	"github.com/catalyst-ai/catalyst/internal/tools"
)

// Status is the terminal outcome of a plan execution.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	// StatusBlocked means pending steps remain but every one of them
	// depends, transitively, on a failed step.
	StatusBlocked Status = "blocked"
)

// Result is what ExecutePlan hands back to the caller.
type Result struct {
	Status        Status
	ExecutedSteps []plan.ExecutedStep
	// Final is the last executed step's snapshot, carrying its result or
	// error. Nil when nothing ran at all.
	Final *plan.ExecutedStep
}

// Engine owns one active plan and its execution log. One engine instance
// serves one conversation; nothing is shared across instances, so no locking
// is needed inside the control loop.
type Engine struct {
	planner  *planner.Planner
	executor Executor
	gateway  llm.Gateway
	registry *tools.Registry
	logger   *observability.Logger

	reevaluate bool

	current  *plan.Plan
	executed []plan.ExecutedStep
}

type EngineOption func(*Engine)

// WithReevaluation enables adaptive revision of the remaining plan after each
// successful step.
func WithReevaluation(enabled bool) EngineOption {
	return func(e *Engine) { e.reevaluate = enabled }
}

func WithLogger(l *observability.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

func New(p *planner.Planner, executor Executor, gateway llm.Gateway, registry *tools.Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		planner:  p,
		executor: executor,
		gateway:  gateway,
		registry: registry,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CurrentPlan exposes the active plan; callers must treat it as read-only.
func (e *Engine) CurrentPlan() *plan.Plan {
	return e.current
}

// ExecutedSteps returns the append-only execution log.
func (e *Engine) ExecutedSteps() []plan.ExecutedStep {
	return e.executed
}

// CreatePlan delegates to the planner and adopts the result as the active
// plan, resetting the execution log.
func (e *Engine) CreatePlan(ctx context.Context, goal string, pctx planner.Context) (*plan.Plan, error) {
	log.Printf("Creating plan for goal: %s", goal)
	p, err := e.planner.CreatePlan(ctx, goal, pctx)
	if err != nil {
		return nil, err
	}
	e.current = p
	e.executed = nil
	if e.logger != nil {
		e.logger.LogPlan(p.ID, p.Goal, len(p.Steps))
	}
	return p, nil
}

// ExecutePlan drives the plan to a terminal state: it calls ExecuteNextStep
// until nothing is runnable, honoring context cancellation between steps.
// Step failures do not abort the loop; independent branches keep running.
func (e *Engine) ExecutePlan(ctx context.Context, p *plan.Plan) (*Result, error) {
	if p != nil && p != e.current {
		e.current = p
		e.executed = nil
	}
	if e.current == nil {
		return nil, fmt.Errorf("no plan to execute")
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		step, err := e.ExecuteNextStep(ctx)
		if err != nil {
			return nil, err
		}
		if step == nil {
			break
		}
	}

	return e.result(), nil
}

func (e *Engine) result() *Result {
	r := &Result{ExecutedSteps: e.executed}
	if len(e.executed) > 0 {
		r.Final = &e.executed[len(e.executed)-1]
	}

	switch {
	case e.current.Blocked():
		r.Status = StatusBlocked
	case anyFailed(e.current):
		r.Status = StatusFailed
	default:
		r.Status = StatusCompleted
	}
	return r
}

func anyFailed(p *plan.Plan) bool {
	for _, s := range p.Steps {
		if s.Status == plan.StatusFailed {
			return true
		}
	}
	return false
}

// ExecuteNextStep selects and runs the first runnable pending step. It
// returns nil when no step is runnable — the caller distinguishes a finished
// plan from a blocked one via the plan itself. Step-level failures are
// recorded on the step and do not surface as an error.
func (e *Engine) ExecuteNextStep(ctx context.Context) (*plan.Step, error) {
	if e.current == nil {
		return nil, fmt.Errorf("no plan to execute")
	}

	step := e.current.NextRunnable()
	if step == nil {
		return nil, nil
	}

	// Identical description+tool as an already-executed step would loop
	// forever when the model re-plans the same work; complete it in place.
	if e.isDuplicate(step) {
		log.Printf("Detected duplicate step %d (%s), skipping execution", step.ID, step.Description)
		step.Status = plan.StatusCompleted
		step.Result = "Step skipped to avoid duplicating a previous step"
		e.appendSnapshot(step)
		return step, nil
	}

	step.Status = plan.StatusInProgress
	if e.logger != nil {
		e.logger.LogStep(e.current.ID, step.ID, string(step.Status), step.Description)
	}

	args, description, err := e.resolveStep(step)
	if err != nil {
		// Unresolvable placeholder: the step fails without dispatch and
		// independent branches continue.
		step.Status = plan.StatusFailed
		step.Err = err.Error()
		e.appendSnapshot(step)
		return step, nil
	}

	resolved := *step
	resolved.Description = description
	payload, execErr := e.executor.ExecuteStep(ctx, &resolved, args, e.current.Goal, e.executed)
	if execErr != nil {
		step.Status = plan.StatusFailed
		step.Err = execErr.Error()
		e.appendSnapshot(step)
		return step, nil
	}

	step.Status = plan.StatusCompleted
	step.Result = payload
	e.appendSnapshot(step)

	if e.reevaluate {
		e.reevaluatePlan(ctx)
	}

	return step, nil
}

// resolveStep resolves placeholders in the step's arguments and description,
// freshly, immediately before dispatch.
func (e *Engine) resolveStep(step *plan.Step) (map[string]any, string, error) {
	args, err := resolveArgs(step.ToolArgs, e.current)
	if err != nil {
		return nil, "", err
	}

	description := step.Description
	if strings.Contains(description, "{step_") {
		v, err := resolveString(description, e.current)
		if err != nil {
			return nil, "", err
		}
		description = fmt.Sprintf("%v", v)
	}
	return args, description, nil
}

func (e *Engine) isDuplicate(step *plan.Step) bool {
	for _, es := range e.executed {
		if strings.EqualFold(es.Description, step.Description) && es.ToolName == step.ToolName {
			return true
		}
	}
	return false
}

func (e *Engine) appendSnapshot(step *plan.Step) {
	e.executed = append(e.executed, plan.Snapshot(step))
	if e.logger != nil {
		detail := step.Err
		if detail == "" {
			detail = step.Description
		}
		e.logger.LogStep(e.current.ID, step.ID, string(step.Status), detail)
	}
}
