// internal/notify/notifier.go
// Package notify alerts the analytics team when a user records feedback.
// Channels are config-gated; a failed alert never reaches the user.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"wb-analyst/internal/common/logger"
	"wb-analyst/internal/models"
)

var (
	ErrAlertSendFailed = errors.New("ALERT_SEND_FAILED")
)

// Channel ports, satisfied by the clients in internal/common/aws.
type SESService interface {
	SendTextEmail(ctx context.Context, from, to, subject, body string) error
}

type SNSService interface {
	PublishSMS(ctx context.Context, phone, message string) error
}

type Notifier struct {
	config    *Config
	sesClient SESService
	snsClient SNSService
	logger    logger.Logger
}

func NewNotifier(config *Config, sesClient SESService, snsClient SNSService, log logger.Logger) *Notifier {
	return &Notifier{
		config:    config,
		sesClient: sesClient,
		snsClient: snsClient,
		logger:    log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

// FeedbackAlert sends a short summary of a recorded complaint over every
// enabled channel. Returns an error if any enabled channel failed.
func (n *Notifier) FeedbackAlert(ctx context.Context, record models.FeedbackRecord) error {
	if !n.config.EmailEnabled && !n.config.SMSEnabled {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, n.config.Timeout)
	defer cancel()

	alertID := uuid.New().String()
	subject := fmt.Sprintf("Новый фидбек: %s", record.FeedbackType)
	body := alertBody(record)

	var failed []string

	if n.config.EmailEnabled && n.config.AlertEmail != "" {
		if err := n.sesClient.SendTextEmail(ctx, n.config.FromEmail, n.config.AlertEmail, subject, body); err != nil {
			n.logger.Error("feedback alert email failed", map[string]interface{}{
				"alertId": alertID,
				"error":   err,
			})
			failed = append(failed, "email")
		}
	}

	if n.config.SMSEnabled && n.config.AlertPhone != "" {
		if err := n.snsClient.PublishSMS(ctx, n.config.AlertPhone, body); err != nil {
			n.logger.Error("feedback alert SMS failed", map[string]interface{}{
				"alertId": alertID,
				"error":   err,
			})
			failed = append(failed, "sms")
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%w: %s", ErrAlertSendFailed, strings.Join(failed, ", "))
	}

	n.logger.Info("feedback alert sent", map[string]interface{}{
		"alertId":      alertID,
		"feedbackType": string(record.FeedbackType),
		"sessionId":    record.SessionID,
	})

	return nil
}

func alertBody(record models.FeedbackRecord) string {
	var b strings.Builder

	b.WriteString("Получен новый фидбек по ответу аналитика.\n\n")
	fmt.Fprintf(&b, "Тип: %s\n", record.FeedbackType)
	fmt.Fprintf(&b, "Сессия: %s\n", record.SessionID)
	fmt.Fprintf(&b, "Вопрос: %s\n", record.Question)
	fmt.Fprintf(&b, "Комментарий: %s\n", record.Comment)
	if record.Expected != "" {
		fmt.Fprintf(&b, "Ожидаемый ответ: %s\n", record.Expected)
	}
	fmt.Fprintf(&b, "Записано: %s\n", record.CreatedAt.Format(time.RFC3339))

	return b.String()
}
