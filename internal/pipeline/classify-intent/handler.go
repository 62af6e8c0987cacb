// internal/pipeline/classify-intent/handler.go
package classifyintent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"wb-analyst/internal/common/logger"
	"wb-analyst/internal/common/validation"
	"wb-analyst/internal/models"
	"wb-analyst/internal/pipeline"
	"wb-analyst/internal/reasoning"
)

const (
	StageName = "classify-intent"
)

const classifierSystemPrompt = `Ты классификатор вопросов для аналитики продаж на Wildberries.

Определи намерение вопроса:
- describe: вопрос о текущих цифрах и фактах (какая маржа, сколько заказов, покажи топ)
- diagnose: вопрос о причинах изменений (почему упала маржа, что случилось с продажами)
- prescribe: запрос рекомендаций и действий (что делать, как улучшить показатели)
- clarify: вопрос непонятен, нужно уточнение

Выдели сущности:
- skus: упомянутые артикулы (nmid), только цифры, каждый как строка
- date_range: "today", "yesterday", "last_week" или дата в формате YYYY-MM-DD
- metrics: упомянутые метрики (маржа, выручка, ДРР и т.п.)

Ответь ТОЛЬКО валидным JSON без пояснений:
{"intent": "...", "entities": {"skus": [], "date_range": "yesterday", "metrics": []}}`

type Handler struct {
	config   *Config
	reasoner reasoning.Completer
	logger   logger.Logger
}

func NewHandler(config *Config, reasoner reasoning.Completer, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		reasoner: reasoner,
		logger:   log.WithFields(map[string]interface{}{"stage": StageName}),
	}
}

func (h *Handler) Name() string {
	return StageName
}

// Execute asks the reasoning service for a structured classification and
// falls back to the keyword cascade whenever the answer is unusable. The
// stage itself never fails; a broken gateway degrades, it does not stop
// the invocation.
func (h *Handler) Execute(ctx context.Context, state *pipeline.State) (*pipeline.Delta, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	userPrompt := state.Question
	if state.MemoryDigest != "" {
		userPrompt = state.MemoryDigest + "\nТекущий вопрос: " + state.Question
	}

	text, err := h.reasoner.Complete(ctx, classifierSystemPrompt, userPrompt)
	if err != nil {
		h.logger.WithError(err).Warn("reasoning unavailable, using keyword fallback", nil)
		return h.fallbackDelta(state.Question), nil
	}

	payload, err := parsePayload(text)
	if err != nil {
		h.logger.WithError(err).Warn("unparseable classification, using keyword fallback", map[string]interface{}{
			"rawLength": len(text),
		})
		return h.fallbackDelta(state.Question), nil
	}

	classification := &models.Classification{
		Intent: models.Intent(payload.Intent),
		Entities: models.EntitySet{
			SKUs:    payload.Entities.SKUs,
			Period:  payload.Entities.DateRange,
			Metrics: payload.Entities.Metrics,
		},
		Source: models.SourceModel,
	}
	return &pipeline.Delta{Classification: classification}, nil
}

func (h *Handler) fallbackDelta(question string) *pipeline.Delta {
	classification := fallbackClassify(question)
	return &pipeline.Delta{Classification: &classification}
}

// parsePayload strips an optional fenced code block, decodes the JSON and
// validates it against the payload schema. Any failure means the text is
// unusable and the caller takes the fallback path.
func parsePayload(text string) (*classifierPayload, error) {
	cleaned := stripFences(text)

	var doc interface{}
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	result, err := validation.ValidateDocument(doc, payloadSchema)
	if err != nil {
		return nil, fmt.Errorf("schema check: %w", err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("schema violations: %s", strings.Join(result.GetErrorMessages(), "; "))
	}

	var payload classifierPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &payload, nil
}

func stripFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if idx := strings.Index(cleaned, "```json"); idx >= 0 {
		cleaned = cleaned[idx+len("```json"):]
	} else if idx := strings.Index(cleaned, "```"); idx >= 0 {
		cleaned = cleaned[idx+3:]
	}
	if idx := strings.Index(cleaned, "```"); idx >= 0 {
		cleaned = cleaned[:idx]
	}
	return strings.TrimSpace(cleaned)
}

// fallbackClassify applies the ordered keyword cascade over the lower-cased
// question. Pure function, no reasoning service involved.
func fallbackClassify(question string) models.Classification {
	q := strings.ToLower(question)

	intent := models.IntentDescribe
	switch {
	case containsAny(q, "почему", "причин", "упал", "снизил", "что случил"):
		intent = models.IntentDiagnose
	case containsAny(q, "что делать", "как улучш", "рекоменд", "оптимиз", "совет"):
		intent = models.IntentPrescribe
	case containsAny(q, "какой", "сколько", "покажи", "топ", "план", "маржа", "выручка"):
		intent = models.IntentDescribe
	}

	return models.Classification{
		Intent: intent,
		Entities: models.EntitySet{
			SKUs:    []string{},
			Period:  "yesterday",
			Metrics: []string{},
		},
		Source: models.SourceKeywords,
	}
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
