// internal/tools/queries/registry.go
package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"wb-analyst/internal/models"
)

var (
	ErrMissingParam = errors.New("missing required parameter")
	ErrUnknownTool  = errors.New("unknown tool")
)

// ToolFunc runs one analytics operation against the read model and returns
// a formatted Russian text block. An empty result set is reported inside the
// text («Нет данных...»), not as an error.
type ToolFunc func(ctx context.Context, db *sql.DB, params map[string]interface{}) (string, error)

var Registry = map[models.ToolName]ToolFunc{
	models.ToolMarginSummary:      MarginSummary,
	models.ToolMarginTrend:        MarginTrend,
	models.ToolTopMarginSKU:       TopMarginSKU,
	models.ToolBottomMarginSKU:    BottomMarginSKU,
	models.ToolPlanFact:           PlanFact,
	models.ToolPlanForecast:       PlanForecast,
	models.ToolUnderperformingSKU: UnderperformingSKU,
	models.ToolFunnelSummary:      FunnelSummary,
	models.ToolStockSummary:       StockSummary,
	models.ToolLowConversionSKU:   LowConversionSKU,
	models.ToolAdsSummary:         AdsSummary,
	models.ToolHighDRRCampaigns:   HighDRRCampaigns,
	models.ToolScalableCampaigns:  ScalableCampaigns,
	models.ToolAdsTrend:           AdsTrend,

	models.ToolDiagnoseSKU:         DiagnoseSKU,
	models.ToolAnalyzeMarginChange: AnalyzeMarginChange,
	models.ToolComparePeriods:      ComparePeriods,
	models.ToolFindAnomalies:       FindAnomalies,

	models.ToolActionableInsights:     ActionableInsights,
	models.ToolOptimizationCandidates: OptimizationCandidates,
	models.ToolScalingCandidates:      ScalingCandidates,
	models.ToolPlanRecommendations:    PlanRecommendations,
}

func Execute(ctx context.Context, db *sql.DB, name models.ToolName, params map[string]interface{}) (string, error) {
	fn, exists := Registry[name]
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return fn(ctx, db, params)
}
