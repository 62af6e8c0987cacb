// Package pipeline routes a question through the analytical stages and
// accumulates their results into a single state per invocation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "wb-analyst/internal/common/errors"
	"wb-analyst/internal/common/logger"
	"wb-analyst/internal/common/metrics"
	"wb-analyst/internal/models"
)

// State is the full record threaded through one pipeline run. Created fresh
// per question; exactly one invocation owns it at a time.
type State struct {
	Question        string
	SessionID       string
	MemoryDigest    string
	Classification  models.Classification
	Data            models.DataContext
	Insights        []string
	Recommendations []models.Recommendation
	Response        string
}

// Delta is what one stage returns. Data entries and insights accumulate,
// classification, recommendations and response replace what was there.
// Nil slices and empty strings mean "no change".
type Delta struct {
	Classification  *models.Classification
	DataEntries     []models.ContextEntry
	Insights        []string
	Recommendations []models.Recommendation
	Response        string
}

// Merge folds a stage delta into the state. Append-only fields never lose
// entries produced by earlier stages; the delta's own slices are copied,
// never aliased.
func Merge(state *State, delta *Delta) {
	if delta == nil {
		return
	}
	if delta.Classification != nil {
		state.Classification = *delta.Classification
	}
	for _, entry := range delta.DataEntries {
		state.Data.Add(entry.Tool, entry.Result)
	}
	state.Insights = append(state.Insights, delta.Insights...)
	if delta.Recommendations != nil {
		state.Recommendations = append([]models.Recommendation(nil), delta.Recommendations...)
	}
	if delta.Response != "" {
		state.Response = delta.Response
	}
}

// Stage is one pipeline step. Execute reads the state and returns a delta;
// it must not modify the state directly.
type Stage interface {
	Name() string
	Execute(ctx context.Context, state *State) (*Delta, error)
}

// Router runs the stage sequence for one question. classify, describe and
// synthesize are required; diagnose and prescribe may be nil when disabled,
// in which case their routes fall through to synthesis.
type Router struct {
	classify   Stage
	describe   Stage
	diagnose   Stage
	prescribe  Stage
	synthesize Stage
	logger     logger.Logger
}

func NewRouter(classify, describe, diagnose, prescribe, synthesize Stage, log logger.Logger) *Router {
	return &Router{
		classify:   classify,
		describe:   describe,
		diagnose:   diagnose,
		prescribe:  prescribe,
		synthesize: synthesize,
		logger:     log.WithFields(map[string]interface{}{"component": "pipeline"}),
	}
}

// Run executes one invocation. The route depends only on the classified
// intent: describe always runs, diagnose runs for diagnose and prescribe
// intents, prescribe only for prescribe, synthesize always runs last.
// clarify routes like describe.
func (r *Router) Run(ctx context.Context, question, sessionID, memoryDigest string) (*State, error) {
	state := &State{
		Question:     question,
		SessionID:    sessionID,
		MemoryDigest: memoryDigest,
	}

	if err := r.runStage(ctx, r.classify, state); err != nil {
		return nil, err
	}

	intent := state.Classification.Intent
	r.logger.Info("question classified", map[string]interface{}{
		"sessionId": sessionID,
		"intent":    string(intent),
		"source":    string(state.Classification.Source),
	})

	if err := r.runStage(ctx, r.describe, state); err != nil {
		return nil, err
	}
	if (intent == models.IntentDiagnose || intent == models.IntentPrescribe) && r.diagnose != nil {
		if err := r.runStage(ctx, r.diagnose, state); err != nil {
			return nil, err
		}
	}
	if intent == models.IntentPrescribe && r.prescribe != nil {
		if err := r.runStage(ctx, r.prescribe, state); err != nil {
			return nil, err
		}
	}
	if err := r.runStage(ctx, r.synthesize, state); err != nil {
		return nil, err
	}

	metrics.PipelineRunsCompleted.WithLabelValues(string(intent)).Inc()
	return state, nil
}

func (r *Router) runStage(ctx context.Context, stage Stage, state *State) error {
	start := time.Now()
	delta, err := stage.Execute(ctx, state)
	metrics.StageDuration.WithLabelValues(stage.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PipelineRunsFailed.WithLabelValues(stage.Name(), errorCode(err)).Inc()
		r.logger.WithError(err).Error("stage failed", map[string]interface{}{
			"stage": stage.Name(),
		})
		return fmt.Errorf("stage %s: %w", stage.Name(), err)
	}

	Merge(state, delta)
	r.logger.Debug("stage completed", map[string]interface{}{
		"stage":      stage.Name(),
		"durationMs": time.Since(start).Milliseconds(),
		"entries":    len(state.Data.Entries),
	})
	return nil
}

func errorCode(err error) string {
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		return string(stdErr.Code)
	}
	return "STAGE_FAILED"
}
