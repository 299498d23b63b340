package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/catalyst-ai/catalyst/internal/plan"
)

// Placeholders have the exact literal form {step_N_result} where N is the
// ordinal ID of an earlier step.
var (
	placeholderRe      = regexp.MustCompile(`\{step_(\d+)_result\}`)
	exactPlaceholderRe = regexp.MustCompile(`^\{step_(\d+)_result\}$`)
)

// PlaceholderError reports a placeholder that cannot be substituted: the
// referenced step is missing or has not completed.
type PlaceholderError struct {
	Ref    int
	Reason string
}

func (e *PlaceholderError) Error() string {
	return fmt.Sprintf("cannot resolve placeholder {step_%d_result}: %s", e.Ref, e.Reason)
}

// resolveArgs walks the argument map and substitutes placeholders against the
// plan's committed results. Resolution is performed freshly before each
// dispatch and never memoized, so it always sees the latest results.
func resolveArgs(args map[string]any, p *plan.Plan) (map[string]any, error) {
	if len(args) == 0 {
		return map[string]any{}, nil
	}
	resolved := make(map[string]any, len(args))
	for k, v := range args {
		rv, err := resolveValue(v, p)
		if err != nil {
			return nil, err
		}
		resolved[k] = rv
	}
	return resolved, nil
}

func resolveValue(v any, p *plan.Plan) (any, error) {
	switch val := v.(type) {
	case string:
		return resolveString(val, p)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, nested := range val {
			rv, err := resolveValue(nested, p)
			if err != nil {
				return nil, err
			}
			out[k] = rv
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, nested := range val {
			rv, err := resolveValue(nested, p)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	default:
		return v, nil
	}
}

// resolveString handles the two substitution modes. A string that is exactly
// one placeholder (modulo surrounding whitespace) yields the referenced
// result with its original type. A string merely containing placeholders gets
// every occurrence replaced by the result's string form.
func resolveString(s string, p *plan.Plan) (any, error) {
	if m := exactPlaceholderRe.FindStringSubmatch(strings.TrimSpace(s)); m != nil {
		result, err := referencedResult(m[1], p)
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	var resolveErr error
	out := placeholderRe.ReplaceAllStringFunc(s, func(token string) string {
		if resolveErr != nil {
			return token
		}
		m := placeholderRe.FindStringSubmatch(token)
		result, err := referencedResult(m[1], p)
		if err != nil {
			resolveErr = err
			return token
		}
		return fmt.Sprintf("%v", result)
	})
	if resolveErr != nil {
		return nil, resolveErr
	}
	return out, nil
}

func referencedResult(ordinal string, p *plan.Plan) (any, error) {
	var id int
	fmt.Sscanf(ordinal, "%d", &id)

	step := p.Step(id)
	if step == nil {
		return nil, &PlaceholderError{Ref: id, Reason: "no such step in the plan"}
	}
	if step.Status != plan.StatusCompleted {
		return nil, &PlaceholderError{Ref: id, Reason: fmt.Sprintf("step is %s, not completed", step.Status)}
	}
	return step.Result, nil
}
