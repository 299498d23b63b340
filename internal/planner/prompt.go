package planner

import (
	"encoding/json"
	"fmt"
	"strings"
)

const placeholderInstruction = "When a step's arguments need the output of a previous step N, use the exact placeholder format {step_N_result}."

// BuildPlanPrompt assembles the plan-generation prompt: goal, conversation
// history, tool catalog, and the JSON contract the response must follow.
func BuildPlanPrompt(goal string, pctx Context) string {
	var b strings.Builder

	b.WriteString("Decompose the goal below into an ordered JSON plan.\n\n")
	fmt.Fprintf(&b, "GOAL: %s\n\n", goal)

	if pctx.CurrentDate != "" {
		fmt.Fprintf(&b, "CURRENT DATE: %s\n\n", pctx.CurrentDate)
	}

	if len(pctx.History) > 0 {
		b.WriteString("CONVERSATION HISTORY:\n")
		for _, turn := range pctx.History {
			fmt.Fprintf(&b, "%s: %s\n", turn.Sender, turn.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("AVAILABLE TOOLS:\n")
	if len(pctx.Tools) == 0 {
		b.WriteString("(none)\n")
	}
	for _, d := range pctx.Tools {
		schema, _ := json.Marshal(d.Parameters)
		fmt.Fprintf(&b, "- %s: %s\n  parameters: %s\n", d.Name, d.Description, schema)
	}
	b.WriteString("\n")

	b.WriteString(`Respond with a single JSON object of the form:
{"reasoning": "<why the plan looks like this>",
 "plan": [{"id": 1, "description": "...", "tool_name": "<tool or null>",
           "tool_args": {...}, "depends_on": [<ids of prerequisite steps>]}]}

Rules:
- IDs are sequential starting at 1, in execution-independent creation order.
- depends_on may only reference earlier steps.
- Steps without a suitable tool use "tool_name": null and are answered by the language model.
- ` + placeholderInstruction + "\n")

	if pctx.MaxSteps > 0 {
		fmt.Fprintf(&b, "- Use at most %d steps.\n", pctx.MaxSteps)
	}

	return b.String()
}
