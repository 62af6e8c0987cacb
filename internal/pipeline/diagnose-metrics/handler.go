// internal/pipeline/diagnose-metrics/handler.go

// Package diagnosemetrics plans and runs causal lookups: period deltas,
// anomaly scans and per-SKU drilldowns for questions that ask "why".
package diagnosemetrics

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wb-analyst/internal/common/logger"
	"wb-analyst/internal/models"
	"wb-analyst/internal/pipeline"
)

const (
	StageName  = "diagnose-metrics"
	dateLayout = "2006-01-02"
)

// ErrDiagnosisFailed indicates no causal evidence could be gathered
var ErrDiagnosisFailed = errors.New("DIAGNOSIS_FAILED")

// Handler runs diagnostic tool calls for the pipeline
type Handler struct {
	config *Config
	runner ToolRunner
	logger logger.Logger
}

// NewHandler creates a new diagnose-metrics handler
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

// Execute plans causal lookups from the question wording and the
// classified SKUs, then appends whatever the runner could gather.
// Failing lookups are skipped by the runner; the stage errors only
// when every planned call failed.
func (h *Handler) Execute(ctx context.Context, state *pipeline.State) (*pipeline.Delta, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	calls := h.planCalls(state.Question, state.Classification.Entities.SKUs)

	entries, err := h.runner.RunAll(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiagnosisFailed, err)
	}

	h.logger.Debug("diagnostics gathered", map[string]interface{}{
		"planned": len(calls),
		"entries": len(entries),
	})

	return &pipeline.Delta{DataEntries: entries}, nil
}

// planCalls builds the diagnostic plan. Every branch emits a causal
// tool, so the closing fallback only fires for a question with no
// recognizable wording and no usable SKUs.
func (h *Handler) planCalls(question string, skus []string) []models.ToolCall {
	q := strings.ToLower(question)
	window := h.config.WindowDays

	calls := make([]models.ToolCall, 0, 4)

	looked := 0
	for _, sku := range skus {
		if looked == maxSKULookups {
			break
		}
		nmid, err := strconv.ParseInt(strings.TrimSpace(sku), 10, 64)
		if err != nil {
			continue
		}
		calls = append(calls, models.ToolCall{
			Name: models.ToolDiagnoseSKU,
			Args: map[string]interface{}{"sku": nmid, "days": window},
		})
		looked++
	}

	if containsAny(q, causalKeywords...) {
		calls = append(calls, analyzeCall(window))
	}
	if containsAny(q, comparisonKeywords...) {
		calls = append(calls, compareCall(window))
	}
	if containsAny(q, anomalyKeywords...) {
		calls = append(calls, models.ToolCall{
			Name: models.ToolFindAnomalies,
			Args: map[string]interface{}{"days": window},
		})
	}

	if len(calls) == 0 {
		calls = append(calls, analyzeCall(window))
	}

	return calls
}

func analyzeCall(window int) models.ToolCall {
	return models.ToolCall{
		Name: models.ToolAnalyzeMarginChange,
		Args: map[string]interface{}{"days_back": window},
	}
}

// compareCall compares the last window against the one before it.
// Boundaries are relative to today so the plan never hard-codes dates.
func compareCall(window int) models.ToolCall {
	return models.ToolCall{
		Name: models.ToolComparePeriods,
		Args: map[string]interface{}{
			"period1_start": daysAgo(2 * window),
			"period1_end":   daysAgo(window + 1),
			"period2_start": daysAgo(window),
			"period2_end":   daysAgo(1),
		},
	}
}

func daysAgo(n int) string {
	return time.Now().AddDate(0, 0, -n).Format(dateLayout)
}

func containsAny(s string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}
