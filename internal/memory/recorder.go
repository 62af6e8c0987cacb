// internal/memory/recorder.go
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"wb-analyst/internal/common/logger"
	"wb-analyst/internal/models"
)

// maxStoredResponseChars bounds the response column in agent_conversations.
const maxStoredResponseChars = 10000

// ErrPersistenceFailed indicates a conversation row could not be written or read
var ErrPersistenceFailed = errors.New("PERSISTENCE_FAILED")

// Recorder writes finished exchanges to Postgres for long-term history.
type Recorder struct {
	db     *sql.DB
	logger logger.Logger
}

// NewRecorder creates a conversation recorder
func NewRecorder(db *sql.DB, log logger.Logger) *Recorder {
	return &Recorder{
		db: db,
		logger: log.WithFields(map[string]interface{}{
			"component": "conversation-recorder",
		}),
	}
}

// Save inserts one exchange. Callers treat failure as a degraded write,
// not as an invocation error.
func (r *Recorder) Save(ctx context.Context, exchange models.ConversationExchange) error {
	var toolsUsed interface{}
	if len(exchange.ToolsUsed) > 0 {
		encoded, err := json.Marshal(exchange.ToolsUsed)
		if err != nil {
			return fmt.Errorf("%w: encode tools: %v", ErrPersistenceFailed, err)
		}
		toolsUsed = string(encoded)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO agent_conversations (session_id, question, response, intent, tools_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		exchange.SessionID,
		exchange.Question,
		capRunes(exchange.Response, maxStoredResponseChars),
		string(exchange.Intent),
		toolsUsed,
		exchange.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	r.logger.Debug("exchange recorded", map[string]interface{}{
		"sessionId": exchange.SessionID,
		"intent":    string(exchange.Intent),
	})
	return nil
}

// History returns the stored exchanges for a session in chronological order.
func (r *Recorder) History(ctx context.Context, sessionID string, limit int) ([]models.ConversationExchange, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT question, response, intent, created_at
		FROM agent_conversations
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	defer rows.Close()

	var history []models.ConversationExchange
	for rows.Next() {
		var exchange models.ConversationExchange
		var intent string
		if err := rows.Scan(&exchange.Question, &exchange.Response, &intent, &exchange.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
		}
		exchange.SessionID = sessionID
		exchange.Intent = models.Intent(intent)
		history = append(history, exchange)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	// Rows arrive newest-first; flip to chronological.
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	return history, nil
}
