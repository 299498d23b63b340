package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/catalyst-ai/catalyst/internal/governance"
	"github.com/catalyst-ai/catalyst/internal/observability"
)

// Tool defines the interface for all agent capabilities.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any // JSON Schema for the tool's inputs
	// Execute runs the tool against a JSON-encoded argument object. The
	// returned payload may be any JSON-compatible value, not just a string.
	Execute(ctx context.Context, input string) (any, error)
}

// ResultStatus indicates whether a tool run produced a payload or an error.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultError   ResultStatus = "error"
)

// ToolResult is the structured outcome of a tool execution. Metadata carries
// auxiliary information (file path, size, content type) for callers; the
// planning engine does not interpret it.
type ToolResult struct {
	Status   ResultStatus   `json:"status"`
	Payload  any            `json:"payload,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MetadataProvider is implemented by tools that attach auxiliary metadata to
// their most recent result.
type MetadataProvider interface {
	ResultMetadata() map[string]any
}

// NotFoundError reports a call against an unregistered tool name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool %q is not registered", e.Name)
}

// ExecutionError wraps a failure raised by the tool itself (or by policy).
type ExecutionError struct {
	Name string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Name, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Descriptor is the planner-facing description of a registered tool.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Registry manages the set of available tools and dispatches calls to them.
type Registry struct {
	tools  map[string]Tool
	order  []string
	policy governance.PolicyEngine
	logger *observability.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithPolicy installs a policy engine consulted before every dispatch.
func WithPolicy(p governance.PolicyEngine) Option {
	return func(r *Registry) { r.policy = p }
}

// WithLogger installs an event logger for tool call/result events.
func WithLogger(l *observability.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) Tool {
	return r.tools[name]
}

// List returns descriptors for every registered tool in registration order,
// for the planner to include in its prompt.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, Descriptor{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return out
}

// ExecuteTool runs a named tool against an argument map. It returns a
// NotFoundError for unregistered names and an ExecutionError when the tool
// runs but fails (or is denied by policy).
func (r *Registry) ExecuteTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	t := r.tools[name]
	if t == nil {
		return nil, &NotFoundError{Name: name}
	}

	encoded, err := json.Marshal(args)
	if err != nil {
		return nil, &ExecutionError{Name: name, Err: fmt.Errorf("arguments are not JSON-encodable: %w", err)}
	}

	if r.policy != nil {
		verdict, err := r.policy.Evaluate(ctx, governance.Request{Tool: name, Arguments: string(encoded)})
		if err != nil {
			return nil, &ExecutionError{Name: name, Err: fmt.Errorf("policy evaluation failed: %w", err)}
		}
		if r.logger != nil {
			r.logger.LogPolicyCheck(name, string(verdict.Effect), verdict.Reason)
		}
		if verdict.Effect == governance.EffectDeny {
			return nil, &ExecutionError{Name: name, Err: fmt.Errorf("denied by policy: %s", verdict.Reason)}
		}
	}

	if r.logger != nil {
		r.logger.LogToolCall(name, string(encoded))
	}

	payload, err := t.Execute(ctx, string(encoded))
	if err != nil {
		if r.logger != nil {
			r.logger.LogToolResult(name, false, err.Error())
		}
		return nil, &ExecutionError{Name: name, Err: err}
	}

	result := &ToolResult{Status: ResultSuccess, Payload: payload}
	if mp, ok := t.(MetadataProvider); ok {
		result.Metadata = mp.ResultMetadata()
	}
	if r.logger != nil {
		r.logger.LogToolResult(name, true, payload)
	}
	return result, nil
}
