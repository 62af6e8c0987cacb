// internal/tools/queries/format.go
package queries

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// groupDigits renders an integer with thousands separators: 1234567 -> "1,234,567".
func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) > 3 {
		var b strings.Builder
		pre := len(s) % 3
		if pre > 0 {
			b.WriteString(s[:pre])
		}
		for i := pre; i < len(s); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(s[i : i+3])
		}
		s = b.String()
	}
	if neg {
		return "-" + s
	}
	return s
}

// money rounds to whole rubles and groups digits.
func money(v float64) string {
	return groupDigits(int64(math.Round(v)))
}

// signedMoney always carries a sign: "+1,234" / "-1,234".
func signedMoney(v float64) string {
	s := money(v)
	if !strings.HasPrefix(s, "-") {
		return "+" + s
	}
	return s
}

func pct(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

func signedPct(v float64, decimals int) string {
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	if !strings.HasPrefix(s, "-") {
		return "+" + s
	}
	return s
}

// num renders a plain threshold or parameter value without trailing zeros:
// 80 -> "80", 2.5 -> "2.5".
func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// clip truncates to at most n runes. Titles are Cyrillic, so byte slicing
// would split characters.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func titleOrID(title string, nmid int64) string {
	if title == "" {
		return strconv.FormatInt(nmid, 10)
	}
	return title
}

// percentChange returns 0 when the base is zero so empty baselines never
// blow up a comparison.
func percentChange(old, cur float64) float64 {
	if old == 0 {
		return 0
	}
	return (cur - old) / old * 100
}

// changeBadge formats a percent change with a direction marker.
func changeBadge(change float64) string {
	emoji := "➡️"
	if change > 0 {
		emoji = "📈"
	} else if change < 0 {
		emoji = "📉"
	}
	return fmt.Sprintf("%s %s%%", emoji, signedPct(change, 1))
}
