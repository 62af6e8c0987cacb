// internal/analyst/analyst.go

// Package analyst is the service facade: it owns the session lifecycle
// around each question and exposes the session commands the transport
// layer serves.
package analyst

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wb-analyst/internal/archive"
	apperrors "wb-analyst/internal/common/errors"
	"wb-analyst/internal/common/logger"
	"wb-analyst/internal/memory"
	"wb-analyst/internal/models"
	"wb-analyst/internal/pipeline"
)

// ProcessingFailedMessage is shown instead of an answer when the
// pipeline fails; no partial output is ever surfaced.
const ProcessingFailedMessage = "❌ Не удалось обработать вопрос.\n\n" +
	"Попробуйте переформулировать или начать новую сессию."

// NoSearchResultsMessage is returned when a history search matches nothing.
const NoSearchResultsMessage = "Ничего не найдено в истории сессии"

// Runner executes the analytical pipeline for one question.
type Runner interface {
	Run(ctx context.Context, question, sessionID, memoryDigest string) (*pipeline.State, error)
}

// ExchangeStore persists completed exchanges and serves stored history.
type ExchangeStore interface {
	Save(ctx context.Context, exchange models.ConversationExchange) error
	History(ctx context.Context, sessionID string, limit int) ([]models.ConversationExchange, error)
}

// ComplaintRecorder files user feedback about the last exchange.
type ComplaintRecorder interface {
	Record(ctx context.Context, last *models.ConversationExchange, comment, expected string) string
}

// ConversationArchive indexes exchanges and searches past conversations.
type ConversationArchive interface {
	Index(ctx context.Context, exchange models.ConversationExchange) error
	Search(ctx context.Context, sessionID, query string, limit int) ([]archive.Hit, error)
}

// Analyst coordinates sessions, the pipeline and the persistence layers.
type Analyst struct {
	config   *Config
	sessions memory.SessionStore
	router   Runner
	recorder ExchangeStore
	feedback ComplaintRecorder
	archive  ConversationArchive
	logger   logger.Logger
}

// NewAnalyst wires the facade; archive may be nil when Elasticsearch is
// not configured.
func NewAnalyst(
	config *Config,
	sessions memory.SessionStore,
	router Runner,
	recorder ExchangeStore,
	feedback ComplaintRecorder,
	arch ConversationArchive,
	log logger.Logger,
) *Analyst {
	return &Analyst{
		config:   config,
		sessions: sessions,
		router:   router,
		recorder: recorder,
		feedback: feedback,
		archive:  arch,
		logger:   log.WithFields(map[string]interface{}{"component": "analyst"}),
	}
}

// Ask answers one question within a session. The session stays locked
// for the whole invocation, so concurrent questions on the same session
// wait or give up with a busy error. A pipeline failure degrades to the
// generic guidance text and leaves the session history untouched.
func (a *Analyst) Ask(ctx context.Context, sessionID, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", apperrors.NewEmptyQuestionError()
	}

	session, err := a.sessions.Acquire(ctx, sessionID)
	if err != nil {
		if errors.Is(err, memory.ErrSessionBusy) {
			return "", apperrors.NewSessionBusyError(sessionID)
		}
		return "", err
	}
	defer a.sessions.Release(sessionID)

	start := time.Now()
	digest := memory.Digest(session.History, a.config.DigestExchanges, a.config.DigestMaxChars)

	state, err := a.router.Run(ctx, question, sessionID, digest)
	if err != nil {
		a.logger.WithError(err).Error("pipeline run failed", map[string]interface{}{
			"sessionId": sessionID,
		})
		return ProcessingFailedMessage, nil
	}

	record := session.AddExchange(question, state.Response, state.Classification.Intent, state.Data.Tools())
	a.sessions.Touch(ctx, session)

	if err := a.recorder.Save(ctx, record); err != nil {
		a.logger.WithError(err).Warn("exchange persistence failed", map[string]interface{}{
			"sessionId": sessionID,
		})
	}
	if a.archive != nil {
		if err := a.archive.Index(ctx, record); err != nil {
			a.logger.WithError(err).Warn("exchange archiving failed", map[string]interface{}{
				"sessionId": sessionID,
			})
		}
	}

	a.logger.Info("question answered", map[string]interface{}{
		"sessionId":  sessionID,
		"intent":     string(state.Classification.Intent),
		"toolsUsed":  len(record.ToolsUsed),
		"durationMs": time.Since(start).Milliseconds(),
	})

	return state.Response, nil
}

// ReportError files feedback about the session's last answer and
// returns the user-facing confirmation.
func (a *Analyst) ReportError(ctx context.Context, sessionID, comment, expected string) (string, error) {
	session, err := a.sessions.Acquire(ctx, sessionID)
	if err != nil {
		if errors.Is(err, memory.ErrSessionBusy) {
			return "", apperrors.NewSessionBusyError(sessionID)
		}
		return "", err
	}
	defer a.sessions.Release(sessionID)

	var last *models.ConversationExchange
	if exchange, ok := session.LastExchange(); ok {
		last = &exchange
	}

	return a.feedback.Record(ctx, last, comment, expected), nil
}

// History returns the stored exchanges of a session in chronological order.
func (a *Analyst) History(ctx context.Context, sessionID string) ([]models.ConversationExchange, error) {
	history, err := a.recorder.History(ctx, sessionID, a.config.HistoryLimit)
	if err != nil {
		return nil, apperrors.NewPersistenceFailedError("conversation history", err)
	}
	return history, nil
}

// SearchHistory runs a keyword search over the session's archived
// exchanges and renders the matches.
func (a *Analyst) SearchHistory(ctx context.Context, sessionID, query string) (string, error) {
	if a.archive == nil {
		return "", apperrors.NewArchiveUnavailableError(errors.New("archive is not configured"))
	}

	hits, err := a.archive.Search(ctx, sessionID, query, a.config.SearchLimit)
	if err != nil {
		return "", apperrors.NewArchiveUnavailableError(err)
	}

	return renderSearchResults(hits, a.config.DigestMaxChars), nil
}

// Reset drops the session; the next question starts a fresh one.
func (a *Analyst) Reset(ctx context.Context, sessionID string) error {
	a.sessions.Reset(ctx, sessionID)
	a.logger.Info("session reset", map[string]interface{}{
		"sessionId": sessionID,
	})
	return nil
}

func renderSearchResults(hits []archive.Hit, maxResponseChars int) string {
	if len(hits) == 0 {
		return NoSearchResultsMessage
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Найдено в истории: %d\n\n", len(hits))
	for i, hit := range hits {
		fmt.Fprintf(&b, "%d. [%s] Вопрос: %s\n", i+1, hit.CreatedAt.Format("02.01.2006"), hit.Question)
		fmt.Fprintf(&b, "   Ответ: %s\n\n", shorten(hit.Response, maxResponseChars))
	}
	return strings.TrimSpace(b.String())
}

// shorten cuts at rune boundaries, answers are Cyrillic.
func shorten(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
