// internal/pipeline/synthesize-response/handler.go

// Package synthesizeresponse turns gathered evidence into the final
// answer. It is the only stage whose reasoning failure stops the
// invocation: without synthesis there is nothing to show the user.
package synthesizeresponse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wb-analyst/internal/common/logger"
	"wb-analyst/internal/models"
	"wb-analyst/internal/pipeline"
	"wb-analyst/internal/reasoning"
)

const (
	StageName  = "synthesize-response"
	dateLayout = "2006-01-02"
)

// ErrSynthesisFailed indicates the final answer could not be produced
var ErrSynthesisFailed = errors.New("SYNTHESIS_FAILED")

// analystPersona is the system prompt. The advertising and plan rules
// keep the model's reading of the evidence consistent with how the
// tools themselves flag campaigns and plan status.
const analystPersona = `Ты старший аналитик e-commerce компании, продающей БАДы и витамины на Wildberries.

Твои задачи:
1. Отвечать на вопросы о продажах, марже и эффективности артикулов
2. Анализировать рекламные кампании и давать рекомендации

Правила для рекламы:
- ДРР > 15%% — кампания требует оптимизации
- ДРР < 15%% и CR > 8%% — кампанию можно масштабировать

ВАЖНО про зависимость от рекламы:
- Если доля рекламной выручки > 50%% — оптимизация должна быть КОНСЕРВАТИВНОЙ
- Резкое снижение ставок может обрушить продажи
- В таких случаях рекомендуй снижать ставки на 10-15%%, не более

Статус выполнения плана:
- ✅ выполнение >= 100%%
- 🟡 выполнение >= 85%%
- 🔴 выполнение < 85%%

Отвечай на русском языке, кратко и по делу.

Сегодня: %s
Вчера: %s`

const synthesisPromptTemplate = `Вопрос пользователя: %s

Собранные данные:
%s

Инсайты:
%s

Рекомендации:
%s

Сформулируй итоговый ответ на вопрос пользователя, опираясь только на собранные данные. Если данных недостаточно, скажи об этом прямо.`

// Handler synthesizes the final response for the pipeline
type Handler struct {
	config   *Config
	reasoner reasoning.Completer
	logger   logger.Logger
}

// NewHandler creates a new synthesize-response handler
func NewHandler(config *Config, reasoner reasoning.Completer, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		reasoner: reasoner,
		logger: log.WithFields(map[string]interface{}{
			"stage": StageName,
		}),
	}
}

// Name returns the stage name
func (h *Handler) Name() string {
	return StageName
}

// Execute renders the accumulated state into the analyst prompt and
// returns the completion verbatim as the response.
func (h *Handler) Execute(ctx context.Context, state *pipeline.State) (*pipeline.Delta, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	userPrompt := buildUserPrompt(state)

	response, err := h.reasoner.Complete(ctx, buildSystemPrompt(), userPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	h.logger.Debug("response synthesized", map[string]interface{}{
		"promptChars":   len(userPrompt),
		"responseChars": len(response),
	})

	return &pipeline.Delta{Response: response}, nil
}

func buildSystemPrompt() string {
	today := time.Now().Format(dateLayout)
	yesterday := time.Now().AddDate(0, 0, -1).Format(dateLayout)
	return fmt.Sprintf(analystPersona, today, yesterday)
}

func buildUserPrompt(state *pipeline.State) string {
	return fmt.Sprintf(synthesisPromptTemplate,
		state.Question,
		renderData(&state.Data),
		renderInsights(state.Insights),
		renderRecommendations(state.Recommendations),
	)
}

func renderData(data *models.DataContext) string {
	if data.Empty() {
		return "Нет данных"
	}
	var b strings.Builder
	for _, entry := range data.Entries {
		fmt.Fprintf(&b, "\n### %s:\n%s\n", entry.Tool, entry.Result)
	}
	return b.String()
}

func renderInsights(insights []string) string {
	if len(insights) == 0 {
		return "Нет дополнительных инсайтов"
	}
	return strings.Join(insights, "\n")
}

func renderRecommendations(recommendations []models.Recommendation) string {
	if len(recommendations) == 0 {
		return "Нет рекомендаций"
	}
	lines := make([]string, 0, len(recommendations))
	for _, rec := range recommendations {
		lines = append(lines, fmt.Sprintf("- %s (приоритет: %s, эффект: %s)", rec.Title, rec.Priority, rec.Impact))
	}
	return strings.Join(lines, "\n")
}
