// internal/memory/session.go

// Package memory keeps per-session conversation state: the session
// store with its locks and TTL, the history digest fed back into
// classification, and the Postgres record of every exchange.
package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"wb-analyst/internal/models"
)

// Session is one conversation: its exchanges in order plus the
// activity timestamps the TTL is judged against.
type Session struct {
	ID         string
	History    []models.ConversationExchange
	CreatedAt  time.Time
	LastActive time.Time
}

// NewSession creates an empty session
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		CreatedAt:  now,
		LastActive: now,
	}
}

// AddExchange appends one question/answer pair and returns the stored record.
func (s *Session) AddExchange(question, response string, intent models.Intent, toolsUsed []string) models.ConversationExchange {
	exchange := models.ConversationExchange{
		ID:        uuid.NewString(),
		SessionID: s.ID,
		Question:  question,
		Response:  response,
		Intent:    intent,
		ToolsUsed: append([]string(nil), toolsUsed...),
		CreatedAt: time.Now(),
	}
	s.History = append(s.History, exchange)
	return exchange
}

// LastExchange returns the most recent exchange, if any.
func (s *Session) LastExchange() (models.ConversationExchange, bool) {
	if len(s.History) == 0 {
		return models.ConversationExchange{}, false
	}
	return s.History[len(s.History)-1], true
}

// Digest renders the recent history for the classifier prompt. An empty
// history renders to an empty string, never a bare header.
func Digest(history []models.ConversationExchange, maxExchanges, maxResponseChars int) string {
	if len(history) == 0 {
		return ""
	}

	start := len(history) - maxExchanges
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	b.WriteString("Предыдущие вопросы в этой сессии:\n\n")
	for i, exchange := range history[start:] {
		fmt.Fprintf(&b, "%d. Вопрос: %s\n", i+1, exchange.Question)
		fmt.Fprintf(&b, "   Ответ: %s\n\n", shorten(exchange.Response, maxResponseChars))
	}
	return b.String()
}

// shorten cuts at rune boundaries; responses are Cyrillic and byte
// slicing would split characters.
func shorten(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

// capRunes truncates without an ellipsis, for column-sized writes.
func capRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
