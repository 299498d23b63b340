package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/catalyst-ai/catalyst/internal/llm"
	"github.com/catalyst-ai/catalyst/internal/plan"
	"github.com/catalyst-ai/catalyst/internal/tools"
)

// Executor runs a single resolved step. Implementations must not mutate the
// plan; the engine applies the returned outcome.
type Executor interface {
	// ExecuteStep runs the step with its already-resolved arguments and
	// description. The executed-steps log is provided as context for
	// language tasks. A nil error means success and the returned value is
	// the step result.
	ExecuteStep(ctx context.Context, step *plan.Step, args map[string]any, goal string, executed []plan.ExecutedStep) (any, error)
}

// StepExecutor dispatches tool steps to the registry and language steps to
// the gateway.
type StepExecutor struct {
	Registry *tools.Registry
	Gateway  llm.Gateway
}

func NewStepExecutor(registry *tools.Registry, gateway llm.Gateway) *StepExecutor {
	return &StepExecutor{Registry: registry, Gateway: gateway}
}

func (e *StepExecutor) ExecuteStep(ctx context.Context, step *plan.Step, args map[string]any, goal string, executed []plan.ExecutedStep) (any, error) {
	if step.IsToolStep() {
		result, err := e.Registry.ExecuteTool(ctx, step.ToolName, args)
		if err != nil {
			return nil, err
		}
		return result.Payload, nil
	}

	prompt := buildStepPrompt(step.Description, goal, executed)
	response, err := e.Gateway.Generate(ctx, llm.TaskStepCompletion, llm.Request{Prompt: prompt})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(response) == "" {
		return nil, fmt.Errorf("language model returned no content for step %d", step.ID)
	}
	return response, nil
}

const maxResultDigest = 500

// buildStepPrompt gives a language task the goal and a digest of what already
// ran, so the model can build on earlier results.
func buildStepPrompt(description, goal string, executed []plan.ExecutedStep) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Perform this task: %s\n", description)
	fmt.Fprintf(&b, "Based on the overall goal: %s\n", goal)

	b.WriteString("\nPREVIOUS STEP RESULTS:\n")
	if len(executed) == 0 {
		b.WriteString("No previous steps executed.\n")
	}
	for _, es := range executed {
		fmt.Fprintf(&b, "Step %d: %s\n", es.ID, es.Description)
		if es.Result != nil {
			digest := fmt.Sprintf("%v", es.Result)
			if len(digest) > maxResultDigest {
				digest = digest[:maxResultDigest-3] + "..."
			}
			fmt.Fprintf(&b, "  Result: %s\n", digest)
		}
		if es.Err != "" {
			fmt.Fprintf(&b, "  Error: %s\n", es.Err)
		}
	}

	b.WriteString("\nProvide only the direct output for the task, without any introductory phrases.")
	return b.String()
}
