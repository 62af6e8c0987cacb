// internal/pipeline/diagnose-metrics/models.go
package diagnosemetrics

import (
	"context"

	"wb-analyst/internal/models"
)

// ToolRunner executes planned tool calls against the read model.
type ToolRunner interface {
	RunAll(ctx context.Context, calls []models.ToolCall) ([]models.ContextEntry, error)
}

// Keyword groups that steer the causal plan. Groups are independent;
// a question can trigger several of them.
var (
	causalKeywords     = []string{"почему", "причин", "что случил", "что произошл"}
	comparisonKeywords = []string{"сравн", "неделя", "период", "было"}
	anomalyKeywords    = []string{"аномал", "резк", "скачок", "провал", "выброс"}
)

// maxSKULookups caps per-SKU drilldowns so a question listing a dozen
// articles does not fan out into a dozen queries.
const maxSKULookups = 3
