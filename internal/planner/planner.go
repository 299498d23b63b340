package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/catalyst-ai/catalyst/internal/llm"
	"github.com/catalyst-ai/catalyst/internal/memory"
	"github.com/catalyst-ai/catalyst/internal/plan"
	"github.com/catalyst-ai/catalyst/internal/tools"
)

// Context is the bundle of information the planner considers when
// decomposing a goal.
type Context struct {
	History     []memory.Turn
	Tools       []tools.Descriptor
	MaxSteps    int
	CurrentDate string
	System      string // system prompt, usually assembled by the PromptManager
}

// GenerationError reports that the gateway's output could not be turned into
// a valid plan.
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("plan generation failed: %s: %v", e.Reason, e.Err)
	}
	return "plan generation failed: " + e.Reason
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Planner turns a goal plus context into a validated plan by delegating the
// decomposition to the language model gateway.
type Planner struct {
	gateway llm.Gateway
}

func New(gateway llm.Gateway) *Planner {
	return &Planner{gateway: gateway}
}

// CreatePlan asks the gateway for a structured decomposition of the goal and
// strict-decodes the response. Steps get sequential 1-based IDs in generation
// order; dependency references may only point at previously defined steps and
// tool names must exist in the supplied tool descriptors.
func (p *Planner) CreatePlan(ctx context.Context, goal string, pctx Context) (*plan.Plan, error) {
	if strings.TrimSpace(goal) == "" {
		return nil, &GenerationError{Reason: "goal is empty"}
	}

	prompt := BuildPlanPrompt(goal, pctx)
	raw, err := p.gateway.Generate(ctx, llm.TaskPlanGeneration, llm.Request{
		System: pctx.System,
		Prompt: prompt,
	})
	if err != nil {
		return nil, &GenerationError{Reason: "gateway call failed", Err: err}
	}

	steps, reasoning, err := DecodeSteps(raw, pctx.Tools)
	if err != nil {
		return nil, err
	}

	pl := plan.New(goal)
	if reasoning != "" {
		pl.Metadata["reasoning"] = reasoning
	}
	for _, s := range steps {
		pl.AddStep(s)
	}

	// A goal the model considers answerable without tools still gets one
	// language step so the engine has something to run.
	if len(pl.Steps) == 0 {
		log.Printf("Planner returned an empty plan for goal %q, adding a direct-response step", goal)
		pl.AddStep(&plan.Step{
			ID:          1,
			Description: "Analyze the request and respond to the user",
			Status:      plan.StatusPending,
		})
	}

	if err := pl.Validate(); err != nil {
		return nil, &GenerationError{Reason: "generated plan is invalid", Err: err}
	}
	return pl, nil
}

// generatedPlan mirrors the JSON contract the gateway is instructed to emit.
type generatedPlan struct {
	Reasoning string          `json:"reasoning"`
	Plan      []generatedStep `json:"plan"`
}

type generatedStep struct {
	ID          int            `json:"id"`
	Description string         `json:"description"`
	ToolName    string         `json:"tool_name"`
	ToolArgs    map[string]any `json:"tool_args"`
	DependsOn   []int          `json:"depends_on"`
}

// DecodeSteps strict-decodes a generated plan document into plan steps. It is
// shared by initial planning and re-evaluation, which both must reject rather
// than coerce malformed output.
func DecodeSteps(raw string, known []tools.Descriptor) ([]*plan.Step, string, error) {
	doc := extractJSON(raw)

	dec := json.NewDecoder(bytes.NewReader([]byte(doc)))
	dec.DisallowUnknownFields()

	var parsed generatedPlan
	if err := dec.Decode(&parsed); err != nil {
		return nil, "", &GenerationError{Reason: "response is not a valid plan document", Err: err}
	}

	knownTools := make(map[string]bool, len(known))
	for _, d := range known {
		knownTools[d.Name] = true
	}

	steps := make([]*plan.Step, 0, len(parsed.Plan))
	for i, gs := range parsed.Plan {
		ordinal := i + 1
		if gs.ID != 0 && gs.ID != ordinal {
			return nil, "", &GenerationError{Reason: fmt.Sprintf("step at position %d carries ID %d, want %d", ordinal, gs.ID, ordinal)}
		}
		if strings.TrimSpace(gs.Description) == "" {
			return nil, "", &GenerationError{Reason: fmt.Sprintf("step %d has no description", ordinal)}
		}

		toolName := normalizeToolName(gs.ToolName)
		if toolName != "" && !knownTools[toolName] {
			return nil, "", &GenerationError{Reason: fmt.Sprintf("step %d references unknown tool %q", ordinal, toolName)}
		}

		for _, dep := range gs.DependsOn {
			if dep <= 0 || dep >= ordinal {
				return nil, "", &GenerationError{Reason: fmt.Sprintf("step %d has forward or invalid dependency %d", ordinal, dep)}
			}
		}

		args := gs.ToolArgs
		if args == nil {
			args = map[string]any{}
		}

		steps = append(steps, &plan.Step{
			ID:          ordinal,
			Description: gs.Description,
			ToolName:    toolName,
			ToolArgs:    args,
			DependsOn:   gs.DependsOn,
			Status:      plan.StatusPending,
		})
	}

	return steps, parsed.Reasoning, nil
}

// normalizeToolName maps the null-ish spellings models produce to "no tool".
func normalizeToolName(name string) string {
	switch strings.TrimSpace(name) {
	case "", "null", "None", "none":
		return ""
	}
	return strings.TrimSpace(name)
}

// extractJSON strips a markdown code fence if the model wrapped its JSON in
// one, otherwise returns the input unchanged.
func extractJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
