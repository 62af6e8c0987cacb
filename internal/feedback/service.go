// internal/feedback/service.go

// Package feedback records user complaints about answers: classifies
// the complaint, persists it for review and optionally alerts the
// analytics team.
package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wb-analyst/internal/common/logger"
	"wb-analyst/internal/models"
)

// NoPriorExchangeMessage is what the user sees when there is nothing
// to complain about yet.
const NoPriorExchangeMessage = "Нет предыдущего вопроса для записи фидбека"

const degradedRecordingMessage = "❌ Не удалось записать фидбек, попробуйте позже"

// Notifier alerts the analytics team about a recorded complaint.
type Notifier interface {
	FeedbackAlert(ctx context.Context, record models.FeedbackRecord) error
}

// RecordStore persists feedback records.
type RecordStore interface {
	Save(ctx context.Context, record models.FeedbackRecord) error
}

// Service ties complaint classification, persistence and alerting together.
type Service struct {
	store    RecordStore
	notifier Notifier
	logger   logger.Logger
}

// NewService creates a feedback service; notifier may be nil when alerts
// are disabled.
func NewService(store RecordStore, notifier Notifier, log logger.Logger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		logger: log.WithFields(map[string]interface{}{
			"component": "feedback",
		}),
	}
}

// Record files a complaint about the given exchange and returns the
// user-facing confirmation. Persistence and alert failures degrade the
// confirmation text but never surface as errors.
func (s *Service) Record(ctx context.Context, last *models.ConversationExchange, comment, expected string) string {
	if last == nil {
		return NoPriorExchangeMessage
	}

	record := models.FeedbackRecord{
		SessionID:    last.SessionID,
		Question:     last.Question,
		Response:     last.Response,
		FeedbackType: Classify(comment),
		Comment:      comment,
		Expected:     expected,
		ToolsUsed:    last.ToolsUsed,
		Status:       models.FeedbackStatusNew,
		CreatedAt:    time.Now(),
	}

	if err := s.store.Save(ctx, record); err != nil {
		s.logger.WithError(err).Error("feedback persistence failed", map[string]interface{}{
			"sessionId":    record.SessionID,
			"feedbackType": string(record.FeedbackType),
		})
		return degradedRecordingMessage
	}

	if s.notifier != nil {
		if err := s.notifier.FeedbackAlert(ctx, record); err != nil {
			s.logger.WithError(err).Warn("feedback alert failed", map[string]interface{}{
				"sessionId": record.SessionID,
			})
		}
	}

	return confirmation(record)
}

func confirmation(record models.FeedbackRecord) string {
	expectedLine := ""
	if record.Expected != "" {
		expectedLine = fmt.Sprintf("Ожидаемый ответ: %s\n", record.Expected)
	}
	return fmt.Sprintf(`✅ Фидбек записан. Спасибо!

Тип: %s
Комментарий: %s
%s
Мы проанализируем эту ошибку и улучшим систему.`,
		record.FeedbackType, record.Comment, expectedLine)
}

// Classify maps a complaint to a feedback type by keywords; the first
// matching group wins.
func Classify(comment string) models.FeedbackType {
	c := strings.ToLower(comment)
	switch {
	case containsAny(c, "цифр", "данн", "числ", "сумм"):
		return models.FeedbackIncorrectData
	case containsAny(c, "рекоменд", "совет", "действ"):
		return models.FeedbackWrongRecommendation
	case containsAny(c, "расчёт", "расчет", "формул", "считает"):
		return models.FeedbackWrongCalculation
	case containsAny(c, "нет", "не хватает", "добав"):
		return models.FeedbackMissingInfo
	default:
		return models.FeedbackOther
	}
}

func containsAny(s string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}
