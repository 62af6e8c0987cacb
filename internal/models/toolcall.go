// internal/models/toolcall.go
package models

// ToolName identifies one analytics operation in the tool registry.
type ToolName string

const (
	// Descriptive
	ToolMarginSummary      ToolName = "margin_summary"
	ToolMarginTrend        ToolName = "margin_trend"
	ToolTopMarginSKU       ToolName = "top_margin_sku"
	ToolBottomMarginSKU    ToolName = "bottom_margin_sku"
	ToolPlanFact           ToolName = "plan_fact"
	ToolPlanForecast       ToolName = "plan_forecast"
	ToolUnderperformingSKU ToolName = "underperforming_sku"
	ToolFunnelSummary      ToolName = "funnel_summary"
	ToolStockSummary       ToolName = "stock_summary"
	ToolLowConversionSKU   ToolName = "low_conversion_sku"
	ToolAdsSummary         ToolName = "ads_summary"
	ToolHighDRRCampaigns   ToolName = "high_drr_campaigns"
	ToolScalableCampaigns  ToolName = "scalable_campaigns"
	ToolAdsTrend           ToolName = "ads_trend"

	// Diagnostic
	ToolDiagnoseSKU         ToolName = "diagnose_sku"
	ToolAnalyzeMarginChange ToolName = "analyze_margin_change"
	ToolComparePeriods      ToolName = "compare_periods"
	ToolFindAnomalies       ToolName = "find_anomalies"

	// Prescriptive
	ToolActionableInsights     ToolName = "actionable_insights"
	ToolOptimizationCandidates ToolName = "optimization_candidates"
	ToolScalingCandidates      ToolName = "scaling_candidates"
	ToolPlanRecommendations    ToolName = "plan_recommendations"
)

// ToolCall names a registry operation together with its arguments.
type ToolCall struct {
	Name ToolName               `json:"name"`
	Args map[string]interface{} `json:"args,omitempty"`
}
