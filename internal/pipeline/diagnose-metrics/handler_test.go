// internal/pipeline/diagnose-metrics/handler_test.go
package diagnosemetrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"wb-analyst/internal/common/logger"
	"wb-analyst/internal/models"
	"wb-analyst/internal/pipeline"
)

// ==========================
// Mock Implementations
// ==========================

type MockToolRunner struct {
	RunAllFunc func(ctx context.Context, calls []models.ToolCall) ([]models.ContextEntry, error)
}

func (m *MockToolRunner) RunAll(ctx context.Context, calls []models.ToolCall) ([]models.ContextEntry, error) {
	return m.RunAllFunc(ctx, calls)
}

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		Timeout:    5 * time.Second,
		WindowDays: 7,
	}
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func createTestHandler(t *testing.T, captured *[]models.ToolCall) *Handler {
	runner := &MockToolRunner{
		RunAllFunc: func(ctx context.Context, calls []models.ToolCall) ([]models.ContextEntry, error) {
			*captured = calls
			entries := make([]models.ContextEntry, 0, len(calls))
			for _, call := range calls {
				entries = append(entries, models.ContextEntry{Tool: string(call.Name), Result: "ok"})
			}
			return entries, nil
		},
	}
	return NewHandler(createTestConfig(), runner, createTestLogger(t))
}

func callNames(calls []models.ToolCall) []models.ToolName {
	names := make([]models.ToolName, 0, len(calls))
	for _, call := range calls {
		names = append(names, call.Name)
	}
	return names
}

// ==========================
// Plan Tests
// ==========================

func TestPlanCalls_Keywords(t *testing.T) {
	tests := []struct {
		name     string
		question string
		expected []models.ToolName
	}{
		{
			name:     "causal question",
			question: "Почему упала маржа?",
			expected: []models.ToolName{models.ToolAnalyzeMarginChange},
		},
		{
			name:     "comparison question",
			question: "Сравни с прошлым периодом",
			expected: []models.ToolName{models.ToolComparePeriods},
		},
		{
			name:     "anomaly question",
			question: "Были резкие скачки по выручке?",
			expected: []models.ToolName{models.ToolFindAnomalies},
		},
		{
			name:     "causal and comparison together",
			question: "Почему сейчас хуже, чем было?",
			expected: []models.ToolName{models.ToolAnalyzeMarginChange, models.ToolComparePeriods},
		},
		{
			name:     "no keywords falls back to margin change",
			question: "Разберись с продажами",
			expected: []models.ToolName{models.ToolAnalyzeMarginChange},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := createTestHandler(t, &[]models.ToolCall{})
			calls := handler.planCalls(tt.question, nil)
			assert.Equal(t, tt.expected, callNames(calls))
		})
	}
}

func TestPlanCalls_SKUDrilldowns(t *testing.T) {
	handler := createTestHandler(t, &[]models.ToolCall{})

	calls := handler.planCalls("Почему просел артикул?", []string{"1234567", "7654321"})

	assert.Equal(t, []models.ToolName{
		models.ToolDiagnoseSKU,
		models.ToolDiagnoseSKU,
		models.ToolAnalyzeMarginChange,
	}, callNames(calls))
	assert.Equal(t, int64(1234567), calls[0].Args["sku"])
	assert.Equal(t, 7, calls[0].Args["days"])
	assert.Equal(t, int64(7654321), calls[1].Args["sku"])
}

func TestPlanCalls_SKUCap(t *testing.T) {
	handler := createTestHandler(t, &[]models.ToolCall{})

	skus := []string{"1", "2", "3", "4", "5"}
	calls := handler.planCalls("почему упали?", skus)

	drilldowns := 0
	for _, call := range calls {
		if call.Name == models.ToolDiagnoseSKU {
			drilldowns++
		}
	}
	assert.Equal(t, maxSKULookups, drilldowns)
}

func TestPlanCalls_NonNumericSKUsSkipped(t *testing.T) {
	handler := createTestHandler(t, &[]models.ToolCall{})

	calls := handler.planCalls("что случилось?", []string{"abc", "красный", "1234567"})

	assert.Equal(t, []models.ToolName{
		models.ToolDiagnoseSKU,
		models.ToolAnalyzeMarginChange,
	}, callNames(calls))
	assert.Equal(t, int64(1234567), calls[0].Args["sku"])
}

func TestPlanCalls_OnlyBadSKUsStillGetCausalFallback(t *testing.T) {
	handler := createTestHandler(t, &[]models.ToolCall{})

	calls := handler.planCalls("разберись с этим артикулом", []string{"n/a"})

	assert.Equal(t, []models.ToolName{models.ToolAnalyzeMarginChange}, callNames(calls))
	assert.Equal(t, 7, calls[0].Args["days_back"])
}

func TestPlanCalls_ComparisonWindows(t *testing.T) {
	handler := createTestHandler(t, &[]models.ToolCall{})

	calls := handler.planCalls("сравни периоды", nil)

	assert.Len(t, calls, 1)
	args := calls[0].Args
	assert.Equal(t, daysAgo(14), args["period1_start"])
	assert.Equal(t, daysAgo(8), args["period1_end"])
	assert.Equal(t, daysAgo(7), args["period2_start"])
	assert.Equal(t, daysAgo(1), args["period2_end"])
}

// ==========================
// Execute Tests
// ==========================

func TestExecute_AppendsEntries(t *testing.T) {
	var captured []models.ToolCall
	handler := createTestHandler(t, &captured)

	state := &pipeline.State{
		Question: "Почему упала маржа?",
		Classification: models.Classification{
			Intent:   models.IntentDiagnose,
			Entities: models.EntitySet{SKUs: []string{"1234567"}},
		},
	}

	delta, err := handler.Execute(context.Background(), state)

	assert.NoError(t, err)
	assert.Equal(t, []models.ToolName{
		models.ToolDiagnoseSKU,
		models.ToolAnalyzeMarginChange,
	}, callNames(captured))
	assert.Len(t, delta.DataEntries, 2)
	assert.Equal(t, "diagnose_sku", delta.DataEntries[0].Tool)
}

func TestExecute_ErrorWhenNothingGathered(t *testing.T) {
	runner := &MockToolRunner{
		RunAllFunc: func(ctx context.Context, calls []models.ToolCall) ([]models.ContextEntry, error) {
			return nil, assert.AnError
		},
	}
	handler := NewHandler(createTestConfig(), runner, createTestLogger(t))

	state := &pipeline.State{Question: "почему?"}

	_, err := handler.Execute(context.Background(), state)

	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrDiagnosisFailed)
}
