package queries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGroupDigits(t *testing.T) {
	tests := []struct {
		name     string
		input    int64
		expected string
	}{
		{"zero", 0, "0"},
		{"under thousand", 999, "999"},
		{"exact thousand", 1000, "1,000"},
		{"millions", 1234567, "1,234,567"},
		{"negative", -1234567, "-1,234,567"},
		{"small negative", -999, "-999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, groupDigits(tt.input))
		})
	}
}

func TestMoney(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected string
	}{
		{"rounds down", 1234.4, "1,234"},
		{"rounds up", 1234.5, "1,235"},
		{"negative rounds away from zero", -1234.5, "-1,235"},
		{"fraction", 0.4, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, money(tt.input))
		})
	}
}

func TestSignedMoney(t *testing.T) {
	assert.Equal(t, "+1,500", signedMoney(1500))
	assert.Equal(t, "-1,500", signedMoney(-1500))
	assert.Equal(t, "+0", signedMoney(0))
}

func TestPct(t *testing.T) {
	assert.Equal(t, "12.5", pct(12.5, 1))
	assert.Equal(t, "12", pct(12.0, 0))
	assert.Equal(t, "0.80", pct(0.8, 2))
}

func TestSignedPct(t *testing.T) {
	assert.Equal(t, "+12.5", signedPct(12.5, 1))
	assert.Equal(t, "-3", signedPct(-3.0, 0))
}

func TestNum(t *testing.T) {
	assert.Equal(t, "80", num(80))
	assert.Equal(t, "2.5", num(2.5))
	assert.Equal(t, "15", num(15))
}

func TestClip(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		limit    int
		expected string
	}{
		{"shorter than limit", "abc", 10, "abc"},
		{"cyrillic at rune boundary", "Куртка зимняя", 6, "Куртка"},
		{"exact length", "Шапка", 5, "Шапка"},
		{"empty", "", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, clip(tt.input, tt.limit))
		})
	}
}

func TestTitleOrID(t *testing.T) {
	assert.Equal(t, "Шапка", titleOrID("Шапка", 123))
	assert.Equal(t, "123", titleOrID("", 123))
}

func TestPercentChange(t *testing.T) {
	assert.Equal(t, 0.0, percentChange(0, 50))
	assert.Equal(t, 50.0, percentChange(100, 150))
	assert.Equal(t, -50.0, percentChange(200, 100))
}

func TestChangeBadge(t *testing.T) {
	assert.Equal(t, "📈 +50.0%", changeBadge(50))
	assert.Equal(t, "📉 -12.5%", changeBadge(-12.5))
	assert.Equal(t, "➡️ +0.0%", changeBadge(0))
}

func TestParamHelpers(t *testing.T) {
	params := map[string]interface{}{
		"date":      "2025-07-15",
		"empty":     "",
		"days":      7.0,
		"n":         5,
		"big":       1234567.0,
		"threshold": 12,
	}

	t.Run("stringParam", func(t *testing.T) {
		assert.Equal(t, "2025-07-15", stringParam(params, "date", "fallback"))
		assert.Equal(t, "fallback", stringParam(params, "empty", "fallback"))
		assert.Equal(t, "fallback", stringParam(params, "missing", "fallback"))
	})

	t.Run("intParam tolerates json floats", func(t *testing.T) {
		assert.Equal(t, 7, intParam(params, "days", 1))
		assert.Equal(t, 5, intParam(params, "n", 1))
		assert.Equal(t, 1, intParam(params, "missing", 1))
	})

	t.Run("int64Param", func(t *testing.T) {
		assert.Equal(t, int64(1234567), int64Param(params, "big", 0))
		assert.Equal(t, int64(0), int64Param(params, "missing", 0))
	})

	t.Run("floatParam", func(t *testing.T) {
		assert.Equal(t, 12.0, floatParam(params, "threshold", 80))
		assert.Equal(t, 80.0, floatParam(params, "missing", 80))
	})
}

func TestDateHelpers(t *testing.T) {
	for _, s := range []string{yesterday(), daysAgo(7)} {
		_, err := time.Parse(dateLayout, s)
		assert.NoError(t, err)
	}
}
