// internal/models/feedback.go
package models

import "time"

// FeedbackType categorizes what the user says went wrong.
type FeedbackType string

const (
	FeedbackIncorrectData       FeedbackType = "incorrect_data"
	FeedbackWrongRecommendation FeedbackType = "wrong_recommendation"
	FeedbackWrongCalculation    FeedbackType = "wrong_calculation"
	FeedbackMissingInfo         FeedbackType = "missing_info"
	FeedbackOther               FeedbackType = "other"
)

// Feedback statuses
const (
	FeedbackStatusNew      = "new"
	FeedbackStatusReviewed = "reviewed"
	FeedbackStatusResolved = "resolved"
)

// FeedbackRecord ties a user complaint to the exchange it is about.
type FeedbackRecord struct {
	ID           string       `json:"id" db:"id"`
	SessionID    string       `json:"sessionId" db:"session_id"`
	Question     string       `json:"question" db:"question"`
	Response     string       `json:"response" db:"response"`
	FeedbackType FeedbackType `json:"feedbackType" db:"feedback_type"`
	Comment      string       `json:"comment" db:"user_comment"`
	Expected     string       `json:"expected,omitempty" db:"expected_answer"`
	ToolsUsed    []string     `json:"toolsUsed,omitempty" db:"tools_used"`
	Status       string       `json:"status" db:"status"`
	CreatedAt    time.Time    `json:"createdAt" db:"created_at"`
}
