// internal/pipeline/gather-evidence/models.go
package gatherevidence

import (
	"context"

	"wb-analyst/internal/models"
)

// ToolRunner executes analytics operations for this stage.
type ToolRunner interface {
	RunAll(ctx context.Context, calls []models.ToolCall) ([]models.ContextEntry, error)
}

// evidenceRule maps question keywords to the operations that gather the
// matching evidence. Rules are evaluated in order and every match appends;
// a question about margin and ads gets both blocks.
type evidenceRule struct {
	keywords []string
	build    func(date string) []models.ToolCall
}

var evidenceRules = []evidenceRule{
	{
		keywords: []string{"маржа", "прибыль", "финрез", "финансов"},
		build: func(date string) []models.ToolCall {
			return []models.ToolCall{
				{Name: models.ToolMarginSummary, Args: map[string]interface{}{"date": date}},
			}
		},
	},
	{
		keywords: []string{"план", "выполнен", "факт", "kpi"},
		build: func(date string) []models.ToolCall {
			return []models.ToolCall{
				{Name: models.ToolPlanFact},
				{Name: models.ToolPlanForecast},
			}
		},
	},
	{
		keywords: []string{"топ", "лучш", "лидер"},
		build: func(date string) []models.ToolCall {
			return []models.ToolCall{
				{Name: models.ToolTopMarginSKU, Args: map[string]interface{}{"date": date, "n": 10}},
			}
		},
	},
	{
		keywords: []string{"убыточ", "худш", "минус", "отрицат", "проблем"},
		build: func(date string) []models.ToolCall {
			return []models.ToolCall{
				{Name: models.ToolBottomMarginSKU, Args: map[string]interface{}{"date": date, "n": 10}},
			}
		},
	},
	{
		keywords: []string{"воронк", "конверс", "просмотр", "заказ", "выкуп"},
		build: func(date string) []models.ToolCall {
			return []models.ToolCall{
				{Name: models.ToolFunnelSummary, Args: map[string]interface{}{"date": date}},
			}
		},
	},
	{
		keywords: []string{"остат", "сток", "склад", "наличи"},
		build: func(date string) []models.ToolCall {
			return []models.ToolCall{
				{Name: models.ToolStockSummary, Args: map[string]interface{}{"date": date}},
			}
		},
	},
	{
		keywords: []string{"реклам", "drr", "дрр", "кампани", "ставк"},
		build: func(date string) []models.ToolCall {
			return []models.ToolCall{
				{Name: models.ToolAdsSummary, Args: map[string]interface{}{"date": date}},
				{Name: models.ToolHighDRRCampaigns, Args: map[string]interface{}{"date": date, "threshold": 15.0}},
			}
		},
	},
	{
		keywords: []string{"динамик", "тренд", "неделя", "дней", "измен"},
		build: func(date string) []models.ToolCall {
			return []models.ToolCall{
				{Name: models.ToolMarginTrend, Args: map[string]interface{}{"days": 7}},
			}
		},
	},
	{
		keywords: []string{"отстающ", "отставан", "недовыполн"},
		build: func(date string) []models.ToolCall {
			return []models.ToolCall{
				{Name: models.ToolUnderperformingSKU, Args: map[string]interface{}{"threshold": 80.0}},
			}
		},
	},
}

// defaultCalls is appended when no rule matched: the general margin picture
// plus the plan state.
func defaultCalls(date string) []models.ToolCall {
	return []models.ToolCall{
		{Name: models.ToolMarginSummary, Args: map[string]interface{}{"date": date}},
		{Name: models.ToolPlanFact},
	}
}
