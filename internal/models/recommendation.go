// internal/models/recommendation.go
package models

// Recommendation is a structured action item produced by the prescriptive
// stage: what to do, the projected impact, and how urgent it is. The list is
// replaced wholesale on each invocation, never accumulated.
type Recommendation struct {
	Title    string `json:"title"`
	Impact   string `json:"impact"`
	Priority string `json:"priority"`
}
