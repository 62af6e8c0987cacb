// internal/pipeline/gather-evidence/handler.go
package gatherevidence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wb-analyst/internal/common/logger"
	"wb-analyst/internal/models"
	"wb-analyst/internal/pipeline"
)

const (
	StageName = "gather-evidence"

	dateLayout = "2006-01-02"
)

var (
	ErrEvidenceFailed = errors.New("EVIDENCE_GATHERING_FAILED")
)

type Handler struct {
	config *Config
	runner ToolRunner
	logger logger.Logger
}

func NewHandler(config *Config, runner ToolRunner, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		runner: runner,
		logger: log.WithFields(map[string]interface{}{"stage": StageName}),
	}
}

func (h *Handler) Name() string {
	return StageName
}

// Execute matches the question against the rule table and appends one data
// context entry per executed operation. Individual tool failures are
// tolerated; the stage fails only when nothing could be gathered at all.
func (h *Handler) Execute(ctx context.Context, state *pipeline.State) (*pipeline.Delta, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	date := resolveDate(state.Classification.Entities.Period)
	calls := planCalls(state.Question, date)

	entries, err := h.runner.RunAll(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEvidenceFailed, err)
	}

	h.logger.Debug("evidence gathered", map[string]interface{}{
		"date":    date,
		"planned": len(calls),
		"entries": len(entries),
	})

	return &pipeline.Delta{DataEntries: entries}, nil
}

// planCalls walks the rule table in order over the lower-cased question.
// Zero matches fall back to the default pair.
func planCalls(question, date string) []models.ToolCall {
	q := strings.ToLower(question)

	var calls []models.ToolCall
	for _, rule := range evidenceRules {
		if containsAny(q, rule.keywords...) {
			calls = append(calls, rule.build(date)...)
		}
	}
	if len(calls) == 0 {
		calls = defaultCalls(date)
	}
	return calls
}

// resolveDate turns the symbolic date entity into a concrete YYYY-MM-DD.
// Literal dates pass through; anything unrecognized means yesterday.
func resolveDate(token string) string {
	switch token {
	case "today":
		return time.Now().Format(dateLayout)
	case "yesterday":
		return time.Now().AddDate(0, 0, -1).Format(dateLayout)
	case "last_week":
		return time.Now().AddDate(0, 0, -7).Format(dateLayout)
	}
	if strings.Contains(token, "-") {
		return token
	}
	return time.Now().AddDate(0, 0, -1).Format(dateLayout)
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
