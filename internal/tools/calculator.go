package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	calculator "github.com/tmc/langchaingo/tools"
)

type CalculatorTool struct {
	client calculator.Calculator
}

func NewCalculatorTool() *CalculatorTool {
	return &CalculatorTool{client: calculator.Calculator{}}
}

func (c *CalculatorTool) Name() string {
	return "calculator"
}

func (c *CalculatorTool) Description() string {
	return "Evaluate a mathematical expression and return the numeric result."
}

func (c *CalculatorTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "The expression to evaluate (e.g., '2+2' or '(3*4)/2')",
			},
		},
		"required": []string{"expression"},
	}
}

func (c *CalculatorTool) Execute(ctx context.Context, input string) (any, error) {
	var args struct {
		Expression string `json:"expression"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}
	if strings.TrimSpace(args.Expression) == "" {
		return "", fmt.Errorf("expression is empty")
	}

	out, err := c.client.Call(ctx, args.Expression)
	if err != nil {
		return "", fmt.Errorf("evaluation failed: %w", err)
	}

	// Keep the result numeric when it is one, so downstream steps that
	// substitute it see a number rather than its string form.
	trimmed := strings.TrimSpace(out)
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f, nil
	}
	return trimmed, nil
}
