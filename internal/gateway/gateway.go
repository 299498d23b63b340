package gateway

import "context"

// Handler processes one inbound message for a conversation and returns the
// agent's reply. The agent core implements this.
type Handler interface {
	ProcessMessage(ctx context.Context, conversationID, message string) (string, error)
}

// Messenger defines the interface for communication gateways. The engine core
// never depends on one; gateways are thin presentation shells around Handler.
type Messenger interface {
	// Start begins the message listening loop
	Start() error
	// Send sends a message to a specific conversation
	Send(conversationID string, text string) error
	// Stop gracefully shuts down the gateway
	Stop() error
}
