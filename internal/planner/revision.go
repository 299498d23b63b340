package planner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/catalyst-ai/catalyst/internal/plan"
	"github.com/catalyst-ai/catalyst/internal/tools"
)

// DecodeRevision strict-decodes a re-evaluation response: the proposed set of
// remaining steps. Unlike initial planning the IDs are not renumbered — they
// must be explicit so they can coexist with the IDs of already-executed steps
// (which placeholders may still reference).
func DecodeRevision(raw string, known []tools.Descriptor) ([]*plan.Step, string, error) {
	doc := extractJSON(raw)

	dec := json.NewDecoder(bytes.NewReader([]byte(doc)))
	dec.DisallowUnknownFields()

	var parsed generatedPlan
	if err := dec.Decode(&parsed); err != nil {
		return nil, "", &GenerationError{Reason: "revision is not a valid plan document", Err: err}
	}

	knownTools := make(map[string]bool, len(known))
	for _, d := range known {
		knownTools[d.Name] = true
	}

	seen := make(map[int]bool, len(parsed.Plan))
	steps := make([]*plan.Step, 0, len(parsed.Plan))
	for _, gs := range parsed.Plan {
		if gs.ID <= 0 {
			return nil, "", &GenerationError{Reason: fmt.Sprintf("revised step %q has no positive ID", gs.Description)}
		}
		if seen[gs.ID] {
			return nil, "", &GenerationError{Reason: fmt.Sprintf("revision repeats step ID %d", gs.ID)}
		}
		seen[gs.ID] = true

		if strings.TrimSpace(gs.Description) == "" {
			return nil, "", &GenerationError{Reason: fmt.Sprintf("revised step %d has no description", gs.ID)}
		}

		toolName := normalizeToolName(gs.ToolName)
		if toolName != "" && !knownTools[toolName] {
			return nil, "", &GenerationError{Reason: fmt.Sprintf("revised step %d references unknown tool %q", gs.ID, toolName)}
		}

		args := gs.ToolArgs
		if args == nil {
			args = map[string]any{}
		}

		steps = append(steps, &plan.Step{
			ID:          gs.ID,
			Description: gs.Description,
			ToolName:    toolName,
			ToolArgs:    args,
			DependsOn:   gs.DependsOn,
			Status:      plan.StatusPending,
		})
	}

	return steps, parsed.Reasoning, nil
}
