package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/catalyst-ai/catalyst/internal/engine"
	"github.com/catalyst-ai/catalyst/internal/llm"
	"github.com/catalyst-ai/catalyst/internal/memory"
	"github.com/catalyst-ai/catalyst/internal/observability"
	"github.com/catalyst-ai/catalyst/internal/plan"
	"github.com/catalyst-ai/catalyst/internal/planner"
	"github.com/catalyst-ai/catalyst/internal/tools"
)

const defaultHistoryDepth = 10

// Core coordinates memory, planning, and tool use for one agent. It owns the
// engine's control loop: plan the goal, drive execution, synthesize a
// user-facing response from the terminal result.
type Core struct {
	Memory   memory.Manager
	Registry *tools.Registry
	Gateway  llm.Gateway
	Engine   *engine.Engine
	Prompts  *PromptManager
	Logger   *observability.Logger

	MaxSteps     int
	HistoryDepth int
}

type CoreOption func(*Core)

func WithMaxSteps(n int) CoreOption {
	return func(c *Core) { c.MaxSteps = n }
}

func WithHistoryDepth(n int) CoreOption {
	return func(c *Core) {
		if n > 0 {
			c.HistoryDepth = n
		}
	}
}

func NewCore(mem memory.Manager, registry *tools.Registry, gateway llm.Gateway, eng *engine.Engine, prompts *PromptManager, logger *observability.Logger, opts ...CoreOption) *Core {
	c := &Core{
		Memory:       mem,
		Registry:     registry,
		Gateway:      gateway,
		Engine:       eng,
		Prompts:      prompts,
		Logger:       logger,
		HistoryDepth: defaultHistoryDepth,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProcessMessage runs the full turn: record the message, plan the goal,
// execute the plan, and answer in natural language.
func (c *Core) ProcessMessage(ctx context.Context, conversationID, message string) (string, error) {
	log.Printf("Processing message: %s", message)

	if err := c.Memory.AddTurn(conversationID, "user", message); err != nil {
		log.Printf("Failed to record user turn: %v", err)
	}

	pctx := c.plannerContext(conversationID)

	observability.SetStatus(observability.PhasePlanning, message)
	defer observability.SetStatus(observability.PhaseIdle, "")

	pl, err := c.Engine.CreatePlan(ctx, message, pctx)
	if err != nil {
		var genErr *planner.GenerationError
		if !errors.As(err, &genErr) {
			return "", err
		}
		// A malformed plan is a terminal outcome of this turn, not a
		// crash: explain it to the user.
		response := c.composeReply(ctx, conversationID, fmt.Sprintf("I could not work out a plan for this request: %v", genErr))
		return response, nil
	}

	observability.SetStatus(observability.PhaseExecuting, message)
	result, err := c.Engine.ExecutePlan(ctx, pl)
	if err != nil {
		return "", err
	}

	response := c.synthesizeResponse(ctx, conversationID, pl, result)
	if err := c.Memory.AddTurn(conversationID, "agent", response); err != nil {
		log.Printf("Failed to record agent turn: %v", err)
	}
	return response, nil
}

// Assessment is the outcome of a feasibility check against the current tools.
type Assessment struct {
	CanAccomplish bool
	Reason        string
	Plan          *plan.Plan
}

// CanAccomplish plans the task without executing it and reports whether the
// registered tools cover it.
func (c *Core) CanAccomplish(ctx context.Context, task string) (*Assessment, error) {
	pl, err := c.Engine.CreatePlan(ctx, task, c.plannerContext(""))
	if err != nil {
		var genErr *planner.GenerationError
		if errors.As(err, &genErr) {
			return &Assessment{
				CanAccomplish: false,
				Reason:        genErr.Error(),
			}, nil
		}
		return nil, err
	}
	return &Assessment{
		CanAccomplish: true,
		Reason:        "The task can be accomplished with the current tools.",
		Plan:          pl,
	}, nil
}

func (c *Core) plannerContext(conversationID string) planner.Context {
	var history []memory.Turn
	if conversationID != "" {
		h, err := c.Memory.RecentHistory(conversationID, c.HistoryDepth)
		if err != nil {
			log.Printf("Failed to load history: %v", err)
		} else {
			history = h
		}
	}

	system := ""
	if c.Prompts != nil {
		s, err := c.Prompts.GetPlannerPrompt()
		if err != nil {
			log.Printf("Warning: failed to load planner prompt: %v", err)
		} else {
			system = s
		}
	}

	return planner.Context{
		History:     history,
		Tools:       c.Registry.List(),
		MaxSteps:    c.MaxSteps,
		CurrentDate: time.Now().Format("January 2, 2006"),
		System:      system,
	}
}

// synthesizeResponse turns the terminal plan result into user-facing text,
// delegating the wording to the gateway.
func (c *Core) synthesizeResponse(ctx context.Context, conversationID string, pl *plan.Plan, result *engine.Result) string {
	var summary string
	switch result.Status {
	case engine.StatusCompleted:
		summary = fmt.Sprintf("The plan to achieve the goal %q was executed successfully.", pl.Goal)
		if result.Final != nil && result.Final.Result != nil {
			summary += fmt.Sprintf(" The final step produced: %v", result.Final.Result)
		}
	case engine.StatusFailed:
		summary = fmt.Sprintf("I encountered an issue while trying to achieve the goal %q. %s", pl.Goal, failureReason(pl))
	case engine.StatusBlocked:
		summary = fmt.Sprintf("The plan for %q is stuck: a failed step blocks everything that remains. %s", pl.Goal, failureReason(pl))
	}

	return c.composeReply(ctx, conversationID, summary)
}

// composeReply asks the gateway for a natural-language rendering of the
// summary; when even that call fails, the summary itself is the answer.
func (c *Core) composeReply(ctx context.Context, conversationID, summary string) string {
	var b strings.Builder
	if conversationID != "" {
		if history, err := c.Memory.RecentHistory(conversationID, c.HistoryDepth); err == nil && len(history) > 0 {
			b.WriteString("CONVERSATION HISTORY:\n")
			for _, turn := range history {
				fmt.Fprintf(&b, "%s: %s\n", turn.Sender, turn.Content)
			}
			b.WriteString("\n")
		}
	}
	fmt.Fprintf(&b, "%s\n\nWrite the reply to the user. Be direct and concrete; include the actual results where available.", summary)

	system := ""
	if c.Prompts != nil {
		if s, err := c.Prompts.GetSystemPrompt(); err == nil {
			system = s
		}
	}

	response, err := c.Gateway.Generate(ctx, llm.TaskFinalResponse, llm.Request{System: system, Prompt: b.String()})
	if err != nil || strings.TrimSpace(response) == "" {
		log.Printf("Response synthesis failed (%v), falling back to summary", err)
		return summary
	}
	return response
}

func failureReason(pl *plan.Plan) string {
	for _, s := range pl.Steps {
		if s.Status == plan.StatusFailed {
			reason := fmt.Sprintf("Step %d (%s) failed", s.ID, s.Description)
			if s.Err != "" {
				reason += ": " + s.Err
			}
			return reason
		}
	}
	return "The failing step could not be identified."
}
