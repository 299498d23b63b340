package gateway

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Console is a line-oriented gateway on stdin/stdout. Every session maps to
// one conversation ID so history accumulates across prompts.
type Console struct {
	Handler        Handler
	ConversationID string

	In  io.Reader
	Out io.Writer

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func NewConsole(handler Handler, conversationID string) *Console {
	ctx, cancel := context.WithCancel(context.Background())
	return &Console{
		Handler:        handler,
		ConversationID: conversationID,
		In:             os.Stdin,
		Out:            os.Stdout,
		ctx:            ctx,
		cancel:         cancel,
	}
}

func (c *Console) Start() error {
	scanner := bufio.NewScanner(c.In)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Fprint(c.Out, "> ")
	for scanner.Scan() {
		if err := c.ctx.Err(); err != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Fprint(c.Out, "> ")
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}

		response, err := c.Handler.ProcessMessage(c.ctx, c.ConversationID, line)
		if err != nil {
			fmt.Fprintf(c.Out, "error: %v\n> ", err)
			continue
		}
		fmt.Fprintf(c.Out, "%s\n> ", response)
	}
	return scanner.Err()
}

func (c *Console) Send(conversationID string, text string) error {
	_, err := fmt.Fprintln(c.Out, text)
	return err
}

func (c *Console) Stop() error {
	c.once.Do(c.cancel)
	return nil
}
