package plan

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Status tracks a step through its lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Step is a single unit of work within a plan. A step with a ToolName is a
// tool task; without one it is a language task handled by the LLM directly.
type Step struct {
	ID          int            `json:"id"`
	Description string         `json:"description"`
	ToolName    string         `json:"tool_name,omitempty"`
	ToolArgs    map[string]any `json:"tool_args,omitempty"`
	DependsOn   []int          `json:"depends_on,omitempty"`
	Status      Status         `json:"status"`
	Result      any            `json:"result,omitempty"`
	Err         string         `json:"error,omitempty"`
}

func (s *Step) IsToolStep() bool {
	return s.ToolName != ""
}

func (s *Step) String() string {
	if s.ToolName != "" {
		return fmt.Sprintf("%s (using %s)", s.Description, s.ToolName)
	}
	return s.Description
}

// Plan is a full decomposition of a goal into dependency-ordered steps.
// Steps stay in creation order; execution order is derived from DependsOn.
type Plan struct {
	ID       string         `json:"id"`
	Goal     string         `json:"goal"`
	Steps    []*Step        `json:"steps"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func New(goal string) *Plan {
	return &Plan{
		ID:       uuid.NewString(),
		Goal:     goal,
		Metadata: make(map[string]any),
	}
}

func (p *Plan) AddStep(s *Step) {
	if s.Status == "" {
		s.Status = StatusPending
	}
	p.Steps = append(p.Steps, s)
}

// Step returns the step with the given ID, or nil.
func (p *Plan) Step(id int) *Step {
	for _, s := range p.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// NextRunnable returns the first pending step, in plan order, whose
// dependencies have all completed. Nil when nothing is runnable.
func (p *Plan) NextRunnable() *Step {
	for _, s := range p.Steps {
		if s.Status != StatusPending {
			continue
		}
		ready := true
		for _, dep := range s.DependsOn {
			ds := p.Step(dep)
			if ds == nil || ds.Status != StatusCompleted {
				ready = false
				break
			}
		}
		if ready {
			return s
		}
	}
	return nil
}

// Blocked reports whether pending steps remain but none can ever run because
// every candidate depends, transitively, on a failed step.
func (p *Plan) Blocked() bool {
	return p.hasPending() && p.NextRunnable() == nil
}

// Finished reports whether no pending or in-progress steps remain.
func (p *Plan) Finished() bool {
	for _, s := range p.Steps {
		if !s.Status.Terminal() {
			return false
		}
	}
	return true
}

func (p *Plan) hasPending() bool {
	for _, s := range p.Steps {
		if s.Status == StatusPending {
			return true
		}
	}
	return false
}

// ValidationError describes why a plan (or a proposed revision) is not
// structurally sound.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid plan: " + e.Reason
}

// Validate enforces the structural invariants: unique step IDs, dependency
// references to existing steps only, and an acyclic dependency graph.
func (p *Plan) Validate() error {
	seen := make(map[int]bool, len(p.Steps))
	for _, s := range p.Steps {
		if s.ID <= 0 {
			return &ValidationError{Reason: fmt.Sprintf("step ID %d is not a positive ordinal", s.ID)}
		}
		if seen[s.ID] {
			return &ValidationError{Reason: fmt.Sprintf("duplicate step ID %d", s.ID)}
		}
		seen[s.ID] = true
	}
	for _, s := range p.Steps {
		for _, dep := range s.DependsOn {
			if !seen[dep] {
				return &ValidationError{Reason: fmt.Sprintf("step %d depends on unknown step %d", s.ID, dep)}
			}
			if dep == s.ID {
				return &ValidationError{Reason: fmt.Sprintf("step %d depends on itself", s.ID)}
			}
		}
	}
	if cycle := p.findCycle(); len(cycle) > 0 {
		return &ValidationError{Reason: "dependency cycle involving steps " + joinIDs(cycle)}
	}
	return nil
}

// findCycle runs Kahn's algorithm; any step left unprocessed sits on a cycle.
func (p *Plan) findCycle() []int {
	indegree := make(map[int]int, len(p.Steps))
	dependents := make(map[int][]int, len(p.Steps))
	for _, s := range p.Steps {
		indegree[s.ID] += 0
		for _, dep := range s.DependsOn {
			indegree[s.ID]++
			dependents[dep] = append(dependents[dep], s.ID)
		}
	}

	var queue []int
	for id, deg := range indegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	processed := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		processed++
		for _, next := range dependents[id] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	if processed == len(p.Steps) {
		return nil
	}
	var cycle []int
	for _, s := range p.Steps {
		if indegree[s.ID] > 0 {
			cycle = append(cycle, s.ID)
		}
	}
	return cycle
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}

func (p *Plan) String() string {
	lines := []string{fmt.Sprintf("Plan: %s (ID: %s)", p.Goal, p.ID)}
	for _, s := range p.Steps {
		lines = append(lines, fmt.Sprintf("%d. [%s] %s", s.ID, s.Status, s))
	}
	return strings.Join(lines, "\n")
}
