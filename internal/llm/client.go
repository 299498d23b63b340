package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/catalyst-ai/catalyst/internal/observability"
)

const defaultRetries = 2

// Client is the langchaingo-backed Gateway implementation. Retries are
// bounded and only cover the call itself; parsing failures are the caller's
// problem.
type Client struct {
	model   llms.Model
	logger  *observability.Logger
	retries int
}

type ClientOption func(*Client)

func WithLogger(l *observability.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithRetries sets how many additional attempts follow a failed call.
func WithRetries(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

func NewClient(model llms.Model, opts ...ClientOption) *Client {
	c := &Client{
		model:   model,
		retries: defaultRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Generate(ctx context.Context, kind TaskKind, req Request) (string, error) {
	var messages []llms.MessageContent
	if req.System != "" {
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(req.System)},
		})
	}
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(req.Prompt)},
	})

	var callOpts []llms.CallOption
	if kind == TaskPlanGeneration || kind == TaskPlanReevaluation {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			log.Printf("LLM call (%s) attempt %d failed: %v, retrying in %v", kind, attempt, lastErr, backoff)
			select {
			case <-ctx.Done():
				return "", &GatewayError{Kind: kind, Err: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		resp, err := c.model.GenerateContent(ctx, messages, callOpts...)
		if err != nil {
			lastErr = err
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("model returned no choices")
			continue
		}

		content := resp.Choices[0].Content
		if c.logger != nil {
			c.logger.LogLLM(string(kind), req.Prompt, content)
		}
		return content, nil
	}

	return "", &GatewayError{Kind: kind, Err: lastErr}
}
