// internal/pipeline/prescribe-actions/models.go
package prescribeactions

import (
	"context"

	"wb-analyst/internal/models"
)

// ToolRunner executes planned tool calls against the read model.
type ToolRunner interface {
	RunAll(ctx context.Context, calls []models.ToolCall) ([]models.ContextEntry, error)
}

// actionRule pairs trigger keywords with the recommendation tool they
// plan and the structured descriptor shown alongside the evidence.
// Rules are evaluated in order and every match appends.
type actionRule struct {
	keywords       []string
	tool           models.ToolName
	recommendation models.Recommendation
}

var actionRules = []actionRule{
	{
		keywords: []string{"что делать", "как улучш", "рекоменд", "совет", "действ"},
		tool:     models.ToolActionableInsights,
		recommendation: models.Recommendation{
			Title:    "Отработать точечные действия по товарам",
			Impact:   "быстрый прирост маржи без изменения ассортимента",
			Priority: "high",
		},
	},
	{
		keywords: []string{"оптимиз", "снизить", "сэконом", "убыточ", "дрр"},
		tool:     models.ToolOptimizationCandidates,
		recommendation: models.Recommendation{
			Title:    "Снизить ставки на кампаниях с высоким ДРР",
			Impact:   "экономия рекламного бюджета при той же выручке",
			Priority: "high",
		},
	},
	{
		keywords: []string{"масштаб", "увелич", "рост", "больше", "скейл"},
		tool:     models.ToolScalingCandidates,
		recommendation: models.Recommendation{
			Title:    "Масштабировать эффективные кампании",
			Impact:   "рост выручки при контролируемом ДРР",
			Priority: "medium",
		},
	},
	{
		keywords: []string{"план", "выполн", "kpi", "цел"},
		tool:     models.ToolPlanRecommendations,
		recommendation: models.Recommendation{
			Title:    "Подтянуть отстающие от плана артикулы",
			Impact:   "закрытие разрыва между планом и фактом",
			Priority: "medium",
		},
	},
}
