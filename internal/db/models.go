// Package db provides SQLite storage for the prompts the user has submitted,
// used for input recall. Conversations themselves are stored by the host.
package db

import "time"

// Prompt is one submitted input line.
type Prompt struct {
	ID             int64
	ConversationID string
	Text           string
	CreatedAt      time.Time
}
