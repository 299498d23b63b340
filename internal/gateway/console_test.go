package gateway

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

type recordingHandler struct {
	messages []string
	reply    string
	err      error
}

func (h *recordingHandler) ProcessMessage(ctx context.Context, conversationID, message string) (string, error) {
	h.messages = append(h.messages, message)
	return h.reply, h.err
}

func TestConsole_ProcessesLines(t *testing.T) {
	handler := &recordingHandler{reply: "done"}
	console := NewConsole(handler, "conv-1")
	console.In = strings.NewReader("first request\n\nsecond request\n/quit\nignored\n")
	var out bytes.Buffer
	console.Out = &out

	if err := console.Start(); err != nil {
		t.Fatal(err)
	}

	if len(handler.messages) != 2 {
		t.Fatalf("expected 2 handled messages, got %d: %v", len(handler.messages), handler.messages)
	}
	if handler.messages[0] != "first request" || handler.messages[1] != "second request" {
		t.Errorf("messages mangled: %v", handler.messages)
	}
	if !strings.Contains(out.String(), "done") {
		t.Errorf("reply not printed: %q", out.String())
	}
}

func TestConsole_HandlerErrorKeepsLoopAlive(t *testing.T) {
	handler := &recordingHandler{err: errors.New("planning failed")}
	console := NewConsole(handler, "conv-1")
	console.In = strings.NewReader("bad request\nanother try\n/exit\n")
	var out bytes.Buffer
	console.Out = &out

	if err := console.Start(); err != nil {
		t.Fatal(err)
	}
	if len(handler.messages) != 2 {
		t.Fatalf("an error must not end the session, got %d messages", len(handler.messages))
	}
	if !strings.Contains(out.String(), "planning failed") {
		t.Errorf("error not reported to the user: %q", out.String())
	}
}

func TestConsole_StopEndsLoop(t *testing.T) {
	handler := &recordingHandler{reply: "ok"}
	console := NewConsole(handler, "conv-1")
	console.Stop()
	console.In = strings.NewReader("late message\n")
	console.Out = &bytes.Buffer{}

	if err := console.Start(); err != nil {
		t.Fatal(err)
	}
	if len(handler.messages) != 0 {
		t.Errorf("no message should be handled after Stop, got %v", handler.messages)
	}
}
