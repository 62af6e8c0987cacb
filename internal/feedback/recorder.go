// internal/feedback/recorder.go
package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"wb-analyst/internal/common/logger"
	"wb-analyst/internal/common/metrics"
	"wb-analyst/internal/models"
)

// maxStoredResponseChars bounds the response column in agent_feedback.
const maxStoredResponseChars = 5000

// ErrPersistenceFailed indicates a feedback row could not be written or read
var ErrPersistenceFailed = errors.New("PERSISTENCE_FAILED")

// Recorder writes feedback records to Postgres.
type Recorder struct {
	db     *sql.DB
	logger logger.Logger
}

// NewRecorder creates a feedback recorder
func NewRecorder(db *sql.DB, log logger.Logger) *Recorder {
	return &Recorder{
		db: db,
		logger: log.WithFields(map[string]interface{}{
			"component": "feedback-recorder",
		}),
	}
}

// Save inserts one feedback record with status "new".
func (r *Recorder) Save(ctx context.Context, record models.FeedbackRecord) error {
	var expected interface{}
	if record.Expected != "" {
		expected = record.Expected
	}

	var toolsUsed interface{}
	if len(record.ToolsUsed) > 0 {
		encoded, err := json.Marshal(record.ToolsUsed)
		if err != nil {
			return fmt.Errorf("%w: encode tools: %v", ErrPersistenceFailed, err)
		}
		toolsUsed = string(encoded)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO agent_feedback (session_id, question, response, feedback_type, user_comment, expected_answer, tools_used, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.SessionID,
		record.Question,
		capRunes(record.Response, maxStoredResponseChars),
		string(record.FeedbackType),
		record.Comment,
		expected,
		toolsUsed,
		record.Status,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	metrics.FeedbackRecorded.WithLabelValues(string(record.FeedbackType)).Inc()
	r.logger.Info("feedback recorded", map[string]interface{}{
		"sessionId":    record.SessionID,
		"feedbackType": string(record.FeedbackType),
	})
	return nil
}

// StatEntry is one name/count pair in the feedback statistics.
type StatEntry struct {
	Name  string
	Count int
}

// Stats summarizes recorded feedback by type and status.
type Stats struct {
	Total    int
	ByType   []StatEntry
	ByStatus []StatEntry
}

// Stats aggregates feedback counts, most frequent first.
func (r *Recorder) Stats(ctx context.Context) (*Stats, error) {
	byType, err := r.grouped(ctx, `
		SELECT feedback_type, COUNT(*)
		FROM agent_feedback
		GROUP BY feedback_type
		ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, err
	}

	byStatus, err := r.grouped(ctx, `
		SELECT status, COUNT(*)
		FROM agent_feedback
		GROUP BY status
		ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, entry := range byType {
		total += entry.Count
	}
	return &Stats{Total: total, ByType: byType, ByStatus: byStatus}, nil
}

func (r *Recorder) grouped(ctx context.Context, query string) ([]StatEntry, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	defer rows.Close()

	var entries []StatEntry
	for rows.Next() {
		var entry StatEntry
		if err := rows.Scan(&entry.Name, &entry.Count); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	return entries, nil
}

// Recent returns the latest feedback records, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]models.FeedbackRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, question, feedback_type, user_comment, status, created_at
		FROM agent_feedback
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	defer rows.Close()

	var records []models.FeedbackRecord
	for rows.Next() {
		var record models.FeedbackRecord
		var feedbackType string
		if err := rows.Scan(&record.SessionID, &record.Question, &feedbackType, &record.Comment, &record.Status, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
		}
		record.FeedbackType = models.FeedbackType(feedbackType)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	return records, nil
}

// capRunes truncates at rune boundaries; comments and responses are Cyrillic.
func capRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
