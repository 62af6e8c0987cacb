// internal/models/intent.go
package models

// Intent is the analytical mode a question is routed through.
type Intent string

const (
	IntentDescribe  Intent = "describe"
	IntentDiagnose  Intent = "diagnose"
	IntentPrescribe Intent = "prescribe"
	IntentClarify   Intent = "clarify"
)

// IsValid reports whether the intent is one of the four recognized modes.
func (i Intent) IsValid() bool {
	switch i {
	case IntentDescribe, IntentDiagnose, IntentPrescribe, IntentClarify:
		return true
	}
	return false
}

// ClassificationSource records which mechanism produced a classification.
type ClassificationSource string

const (
	SourceModel    ClassificationSource = "model"
	SourceKeywords ClassificationSource = "keywords"
)

// Classification is the outcome of intent recognition: the chosen intent,
// the entities pulled out of the question, and which mechanism decided.
type Classification struct {
	Intent   Intent               `json:"intent"`
	Entities EntitySet            `json:"entities"`
	Source   ClassificationSource `json:"source"`
}

// EntitySet holds the structured entities extracted from a question.
type EntitySet struct {
	SKUs    []string `json:"skus"`
	Period  string   `json:"period,omitempty"`
	Metrics []string `json:"metrics"`
}
