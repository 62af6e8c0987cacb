// internal/models/conversation.go
package models

import "time"

// ConversationExchange is one recorded question/answer pair.
type ConversationExchange struct {
	ID        string    `json:"id" db:"id"`
	SessionID string    `json:"sessionId" db:"session_id"`
	Question  string    `json:"question" db:"question"`
	Response  string    `json:"response" db:"response"`
	Intent    Intent    `json:"intent" db:"intent"`
	ToolsUsed []string  `json:"toolsUsed" db:"tools_used"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
