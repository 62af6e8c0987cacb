// Package tools executes analytics operations from the query registry
// against the Wildberries read model.
package tools

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wb-analyst/internal/common/logger"
	"wb-analyst/internal/common/metrics"
	"wb-analyst/internal/models"
	"wb-analyst/internal/tools/queries"
)

const (
	ComponentName = "tool-runner"
)

var (
	ErrToolExecutionFailed = errors.New("TOOL_EXECUTION_FAILED")
	ErrToolTimeout         = errors.New("TOOL_TIMEOUT")
	ErrUnknownTool         = errors.New("UNKNOWN_TOOL")
)

type Runner struct {
	config *Config
	db     *sql.DB
	logger logger.Logger
}

func NewRunner(config *Config, db *sql.DB, log logger.Logger) *Runner {
	return &Runner{
		config: config,
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": ComponentName}),
	}
}

// Run executes a single registry tool with the configured per-call timeout
// and returns its formatted text result.
func (r *Runner) Run(ctx context.Context, call models.ToolCall) (string, error) {
	if _, exists := queries.Registry[call.Name]; !exists {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	start := time.Now()
	result, err := queries.Execute(ctx, r.db, call.Name, call.Args)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			r.logger.Error("tool timed out", map[string]interface{}{
				"tool":    string(call.Name),
				"timeout": r.config.Timeout.String(),
			})
			return "", fmt.Errorf("%w: %s", ErrToolTimeout, call.Name)
		}
		r.logger.WithError(err).Error("tool execution failed", map[string]interface{}{
			"tool": string(call.Name),
		})
		return "", fmt.Errorf("%w: %v", ErrToolExecutionFailed, err)
	}

	metrics.ToolInvocations.WithLabelValues(string(call.Name)).Inc()
	r.logger.Debug("tool executed", map[string]interface{}{
		"tool":       string(call.Name),
		"durationMs": time.Since(start).Milliseconds(),
		"resultSize": len(result),
	})

	return result, nil
}

// RunAll executes every call in order and collects the successful results.
// A failed call is logged and skipped so one broken tool does not discard
// the evidence the remaining tools already produced; the last error is
// returned when nothing succeeded.
func (r *Runner) RunAll(ctx context.Context, calls []models.ToolCall) ([]models.ContextEntry, error) {
	entries := make([]models.ContextEntry, 0, len(calls))
	var lastErr error

	for _, call := range calls {
		result, err := r.Run(ctx, call)
		if err != nil {
			lastErr = err
			continue
		}
		entries = append(entries, models.ContextEntry{
			Tool:   string(call.Name),
			Result: result,
		})
	}

	if len(entries) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return entries, nil
}
