package memory

import "time"

// Turn is one entry in a conversation: who said it, what, and when.
type Turn struct {
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Manager stores and retrieves ordered conversation turns. The planning core
// only needs read access to recent history for context assembly.
type Manager interface {
	AddTurn(conversationID, sender, content string) error
	// RecentHistory returns up to limit turns in chronological order.
	RecentHistory(conversationID string, limit int) ([]Turn, error)
}
