// internal/pipeline/prescribe-actions/handler.go

// Package prescribeactions plans recommendation lookups for questions
// that ask what to do, and emits the structured recommendation list.
package prescribeactions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wb-analyst/internal/common/logger"
	"wb-analyst/internal/models"
	"wb-analyst/internal/pipeline"
)

const StageName = "prescribe-actions"

// ErrPrescriptionFailed indicates no recommendation evidence could be gathered
var ErrPrescriptionFailed = errors.New("PRESCRIPTION_FAILED")

// Handler runs prescriptive tool calls for the pipeline
type Handler struct {
	config *Config
	runner ToolRunner
	logger logger.Logger
}

// NewHandler creates a new prescribe-actions handler
func NewHandler(config *Config, runner ToolRunner, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		runner: runner,
		logger: log.WithFields(map[string]interface{}{
			"stage": StageName,
		}),
	}
}

// Name returns the stage name
func (h *Handler) Name() string {
	return StageName
}

// Execute matches the question against the action rules, runs the
// planned tools and replaces the recommendation list with one
// descriptor per matched rule.
func (h *Handler) Execute(ctx context.Context, state *pipeline.State) (*pipeline.Delta, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	calls, recommendations := planActions(state.Question)

	entries, err := h.runner.RunAll(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrescriptionFailed, err)
	}

	h.logger.Debug("recommendations gathered", map[string]interface{}{
		"planned":         len(calls),
		"entries":         len(entries),
		"recommendations": len(recommendations),
	})

	return &pipeline.Delta{
		DataEntries:     entries,
		Recommendations: recommendations,
	}, nil
}

// planActions walks the rule table in order. A question matching no
// rule still plans actionable_insights so the stage always has
// something to recommend.
func planActions(question string) ([]models.ToolCall, []models.Recommendation) {
	q := strings.ToLower(question)

	calls := make([]models.ToolCall, 0, len(actionRules))
	recommendations := make([]models.Recommendation, 0, len(actionRules))

	for _, rule := range actionRules {
		if !containsAny(q, rule.keywords...) {
			continue
		}
		calls = append(calls, models.ToolCall{Name: rule.tool})
		recommendations = append(recommendations, rule.recommendation)
	}

	if len(calls) == 0 {
		fallback := actionRules[0]
		calls = append(calls, models.ToolCall{Name: fallback.tool})
		recommendations = append(recommendations, fallback.recommendation)
	}

	return calls, recommendations
}

func containsAny(s string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}
