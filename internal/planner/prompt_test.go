package planner

import (
	"strings"
	"testing"

	"github.com/catalyst-ai/catalyst/internal/memory"
)

func TestBuildPlanPrompt(t *testing.T) {
	prompt := BuildPlanPrompt("book a flight", Context{
		History: []memory.Turn{
			{Sender: "user", Content: "I want to travel next week"},
		},
		Tools:       testDescriptors,
		MaxSteps:    5,
		CurrentDate: "January 2, 2026",
	})

	for _, want := range []string{
		"GOAL: book a flight",
		"I want to travel next week",
		"- calculator:",
		"- web_search:",
		"{step_N_result}",
		"Use at most 5 steps.",
		"January 2, 2026",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPlanPrompt_NoTools(t *testing.T) {
	prompt := BuildPlanPrompt("say hi", Context{})
	if !strings.Contains(prompt, "(none)") {
		t.Error("empty tool catalog should be stated explicitly")
	}
	if strings.Contains(prompt, "Use at most") {
		t.Error("no step cap should be mentioned when MaxSteps is zero")
	}
}
