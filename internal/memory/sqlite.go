package memory

import (
	"database/sql"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// Store is a sqlite-backed Manager. One database serves every conversation;
// turns are scoped by conversation ID.
type Store struct {
	DB *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Create tables if not exist
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT,
		sender TEXT,
		content TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);`)
	if err != nil {
		return nil, err
	}

	return &Store{DB: db}, nil
}

func (s *Store) AddTurn(conversationID, sender, content string) error {
	query := `INSERT INTO turns (conversation_id, sender, content) VALUES (?, ?, ?)`
	_, err := s.DB.Exec(query, conversationID, sender, content)
	return err
}

func (s *Store) RecentHistory(conversationID string, limit int) ([]Turn, error) {
	query := `SELECT sender, content, timestamp FROM turns WHERE conversation_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?`
	rows, err := s.DB.Query(query, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []Turn
	for rows.Next() {
		var sender, content string
		var ts time.Time
		if err := rows.Scan(&sender, &content, &ts); err != nil {
			return nil, err
		}
		history = append(history, Turn{Sender: sender, Content: content, Timestamp: ts})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to get chronological order
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}

	return history, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}
