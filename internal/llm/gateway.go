package llm

import (
	"context"
	"fmt"
)

// TaskKind identifies what the engine is asking the language model to do.
// The gateway may tune request options (JSON mode, temperature) per kind.
type TaskKind string

const (
	TaskPlanGeneration   TaskKind = "plan_generation"
	TaskPlanReevaluation TaskKind = "plan_reevaluation"
	TaskStepCompletion   TaskKind = "step_completion"
	TaskFinalResponse    TaskKind = "final_response"
)

// Request bundles the prompt material for one generation call.
type Request struct {
	System string // optional system prompt
	Prompt string
}

// Gateway abstracts the language model. The planning engine only depends on
// this contract; the concrete provider lives behind it.
type Gateway interface {
	Generate(ctx context.Context, kind TaskKind, req Request) (string, error)
}

// GatewayError wraps a provider failure, tagged with the task kind that hit it.
type GatewayError struct {
	Kind TaskKind
	Err  error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("language model call (%s) failed: %v", e.Kind, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
