// internal/tools/queries/params.go
package queries

import "time"

const dateLayout = "2006-01-02"

func stringParam(params map[string]interface{}, key, fallback string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// intParam tolerates float64 because arguments that travelled through JSON
// arrive as floats.
func intParam(params map[string]interface{}, key string, fallback int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

func int64Param(params map[string]interface{}, key string, fallback int64) int64 {
	switch v := params[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return fallback
}

func floatParam(params map[string]interface{}, key string, fallback float64) float64 {
	switch v := params[key].(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	}
	return fallback
}

func yesterday() string {
	return time.Now().AddDate(0, 0, -1).Format(dateLayout)
}

func daysAgo(n int) string {
	return time.Now().AddDate(0, 0, -n).Format(dateLayout)
}
