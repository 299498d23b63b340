package plan

import "time"

// ExecutedStep is a frozen snapshot of a step at the moment it reached a
// terminal status. Snapshots are appended to the engine's execution log and
// never mutated afterwards.
type ExecutedStep struct {
	ID          int            `json:"id"`
	Description string         `json:"description"`
	ToolName    string         `json:"tool_name,omitempty"`
	ToolArgs    map[string]any `json:"tool_args,omitempty"`
	Status      Status         `json:"status"`
	Result      any            `json:"result,omitempty"`
	Err         string         `json:"error,omitempty"`
	FinishedAt  time.Time      `json:"finished_at"`
}

// Snapshot copies the step's terminal state into an ExecutedStep record.
func Snapshot(s *Step) ExecutedStep {
	args := make(map[string]any, len(s.ToolArgs))
	for k, v := range s.ToolArgs {
		args[k] = v
	}
	return ExecutedStep{
		ID:          s.ID,
		Description: s.Description,
		ToolName:    s.ToolName,
		ToolArgs:    args,
		Status:      s.Status,
		Result:      s.Result,
		Err:         s.Err,
		FinishedAt:  time.Now(),
	}
}
