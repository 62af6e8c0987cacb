// internal/pipeline/synthesize-response/handler_test.go
package synthesizeresponse

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

type MockCompleter struct {
	CompleteFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

func (m *MockCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return m.CompleteFunc(ctx, systemPrompt, userPrompt)
}

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
	}
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func createTestState() *pipeline.State {
	state := &pipeline.State{
		Question: "Какая маржа за вчера и что с планом?",
	}
	state.Data.Add("margin_summary", "Сводка по марже за 2025-07-15: 117,500 ₽")
	state.Data.Add("plan_fact", "План выполняется на 92%")
	state.Recommendations = []models.Recommendation{
		{Title: "Подтянуть отстающие артикулы", Impact: "закрытие разрыва", Priority: "medium"},
	}
	return state
}

// ==========================
// Execute Tests
// ==========================

func TestExecute_SubmitsEvidenceAndReturnsCompletion(t *testing.T) {
	var capturedSystem, capturedUser string
	reasoner := &MockCompleter{
		CompleteFunc: func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			capturedSystem = systemPrompt
			capturedUser = userPrompt
			return "Маржа за вчера: 117,500 ₽. План выполняется на 92% 🟡", nil
		},
	}
	handler := NewHandler(createTestConfig(), reasoner, createTestLogger(t))

	delta, err := handler.Execute(context.Background(), createTestState())

	assert.NoError(t, err)
	assert.Equal(t, "Маржа за вчера: 117,500 ₽. План выполняется на 92% 🟡", delta.Response)

	assert.Contains(t, capturedSystem, "старший аналитик")
	assert.Contains(t, capturedSystem, "ДРР > 15%")
	assert.Contains(t, capturedSystem, "Сегодня: "+time.Now().Format(dateLayout))

	assert.Contains(t, capturedUser, "Какая маржа за вчера и что с планом?")
	assert.Contains(t, capturedUser, "### margin_summary:\nСводка по марже за 2025-07-15: 117,500 ₽")
	assert.Contains(t, capturedUser, "### plan_fact:\nПлан выполняется на 92%")
	assert.Contains(t, capturedUser, "Нет дополнительных инсайтов")
	assert.Contains(t, capturedUser, "- Подтянуть отстающие артикулы (приоритет: medium, эффект: закрытие разрыва)")
}

func TestExecute_PlaceholdersWhenNothingGathered(t *testing.T) {
	var capturedUser string
	reasoner := &MockCompleter{
		CompleteFunc: func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			capturedUser = userPrompt
			return "По этому вопросу данных нет.", nil
		},
	}
	handler := NewHandler(createTestConfig(), reasoner, createTestLogger(t))

	state := &pipeline.State{Question: "Что происходит?"}
	_, err := handler.Execute(context.Background(), state)

	assert.NoError(t, err)
	assert.Contains(t, capturedUser, "Собранные данные:\nНет данных")
	assert.Contains(t, capturedUser, "Инсайты:\nНет дополнительных инсайтов")
	assert.Contains(t, capturedUser, "Рекомендации:\nНет рекомендаций")
}

func TestExecute_ReasoningFailureIsFatal(t *testing.T) {
	reasoner := &MockCompleter{
		CompleteFunc: func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			return "", assert.AnError
		},
	}
	handler := NewHandler(createTestConfig(), reasoner, createTestLogger(t))

	_, err := handler.Execute(context.Background(), createTestState())

	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrSynthesisFailed)
}

// ==========================
// Rendering Tests
// ==========================

func TestRenderInsights(t *testing.T) {
	assert.Equal(t, "Нет дополнительных инсайтов", renderInsights(nil))
	assert.Equal(t, "первый\nвторой", renderInsights([]string{"первый", "второй"}))
}

func TestRenderRecommendations(t *testing.T) {
	assert.Equal(t, "Нет рекомендаций", renderRecommendations(nil))

	rendered := renderRecommendations([]models.Recommendation{
		{Title: "Снизить ставки", Impact: "экономия бюджета", Priority: "high"},
		{Title: "Масштабировать", Impact: "рост выручки", Priority: "medium"},
	})
	assert.Equal(t,
		"- Снизить ставки (приоритет: high, эффект: экономия бюджета)\n"+
			"- Масштабировать (приоритет: medium, эффект: рост выручки)",
		rendered)
}

func TestRenderData_PreservesEntryOrder(t *testing.T) {
	data := &models.DataContext{}
	data.Add("ads_summary", "ДРР 18%")
	data.Add("high_drr_campaigns", "2 кампании выше порога")

	rendered := renderData(data)

	first := "\n### ads_summary:\nДРР 18%\n"
	second := "\n### high_drr_campaigns:\n2 кампании выше порога\n"
	assert.Equal(t, first+second, rendered)
}
