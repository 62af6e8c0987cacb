// internal/pipeline/classify-intent/models.go
package classifyintent

// classifierPayload is the JSON document the reasoning service is asked to
// produce for a question.
type classifierPayload struct {
	Intent   string          `json:"intent"`
	Entities entitiesPayload `json:"entities"`
}

type entitiesPayload struct {
	SKUs      []string `json:"skus"`
	DateRange string   `json:"date_range"`
	Metrics   []string `json:"metrics"`
}

// payloadSchema rejects malformed classifier output before it is trusted.
// A violation counts as a parse failure and takes the keyword fallback path.
const payloadSchema = `{
	"type": "object",
	"required": ["intent"],
	"properties": {
		"intent": {
			"type": "string",
			"enum": ["describe", "diagnose", "prescribe", "clarify"]
		},
		"entities": {
			"type": "object",
			"properties": {
				"skus": {"type": "array", "items": {"type": "string"}},
				"date_range": {"type": "string"},
				"metrics": {"type": "array", "items": {"type": "string"}}
			}
		}
	}
}`
