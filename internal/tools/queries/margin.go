// internal/tools/queries/margin.go
package queries

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// MarginSummary aggregates one day of margin data across all SKUs.
func MarginSummary(ctx context.Context, db *sql.DB, params map[string]interface{}) (string, error) {
	date := stringParam(params, "date", yesterday())

	var skuCount, profitableCount, unprofitableCount int
	var orders int64
	var revenue, adSpend, marginTotal, avgMarginPct float64
	var profitableMargin, unprofitableMargin float64
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(ordercount), 0),
		       COALESCE(SUM(revenue_total), 0),
		       COALESCE(SUM(ad_spend), 0),
		       COALESCE(SUM(margin_profit_after_ads), 0),
		       COALESCE(AVG(margin_percent_after_ads), 0),
		       COUNT(*) FILTER (WHERE margin_profit_after_ads > 0),
		       COALESCE(SUM(margin_profit_after_ads) FILTER (WHERE margin_profit_after_ads > 0), 0),
		       COUNT(*) FILTER (WHERE margin_profit_after_ads <= 0),
		       COALESCE(SUM(margin_profit_after_ads) FILTER (WHERE margin_profit_after_ads <= 0), 0)
		FROM wb_margin_daily
		WHERE reportdate = $1`, date).Scan(
		&skuCount, &orders, &revenue, &adSpend, &marginTotal, &avgMarginPct,
		&profitableCount, &profitableMargin, &unprofitableCount, &unprofitableMargin,
	)
	if err != nil {
		return "", err
	}
	if skuCount == 0 {
		return fmt.Sprintf("Нет данных по марже за %s", date), nil
	}

	return fmt.Sprintf(`Сводка по марже за %s:

SKU в продаже: %d
Заказов: %s
Выручка: %s ₽
Расход на рекламу: %s ₽
Маржа (после рекламы): %s ₽
Средняя маржинальность: %s%%

Прибыльных SKU: %d (маржа: %s ₽)
Убыточных SKU: %d (убыток: %s ₽)`,
		date, skuCount, groupDigits(orders), money(revenue), money(adSpend),
		money(marginTotal), pct(avgMarginPct, 1),
		profitableCount, money(profitableMargin),
		unprofitableCount, money(unprofitableMargin)), nil
}

// MarginTrend shows day-by-day totals for the last N days present in the data.
func MarginTrend(ctx context.Context, db *sql.DB, params map[string]interface{}) (string, error) {
	days := intParam(params, "days", 7)

	rows, err := db.QueryContext(ctx, `
		SELECT reportdate,
		       COALESCE(SUM(margin_profit_after_ads), 0),
		       COALESCE(SUM(revenue_total), 0),
		       COALESCE(SUM(ad_spend), 0)
		FROM wb_margin_daily
		GROUP BY reportdate
		ORDER BY reportdate DESC
		LIMIT $1`, days)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	type dayRow struct {
		date    time.Time
		margin  float64
		revenue float64
		adSpend float64
	}
	var daily []dayRow
	for rows.Next() {
		var d dayRow
		if err := rows.Scan(&d.date, &d.margin, &d.revenue, &d.adSpend); err != nil {
			return "", err
		}
		daily = append(daily, d)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(daily) == 0 {
		return "Нет данных по марже", nil
	}

	// Newest-first from the query, oldest-first for the reader.
	for i, j := 0, len(daily)-1; i < j; i, j = i+1, j-1 {
		daily[i], daily[j] = daily[j], daily[i]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Динамика маржи за %d дней:\n\n", days)
	b.WriteString("| Дата | Маржа | Выручка | Реклама | Маржа % |\n")
	b.WriteString("|------|-------|---------|---------|----------|\n")
	for _, d := range daily {
		marginPct := 0.0
		if d.revenue > 0 {
			marginPct = d.margin / d.revenue * 100
		}
		fmt.Fprintf(&b, "| %s | %s ₽ | %s ₽ | %s ₽ | %s%% |\n",
			d.date.Format("02.01"), money(d.margin), money(d.revenue),
			money(d.adSpend), pct(marginPct, 1))
	}

	if len(daily) >= 2 && daily[0].margin > 0 {
		change := percentChange(daily[0].margin, daily[len(daily)-1].margin)
		trend := "📉"
		if change > 0 {
			trend = "📈"
		}
		fmt.Fprintf(&b, "\nИзменение: %s %s%%", trend, signedPct(change, 1))
	}

	return b.String(), nil
}

// TopMarginSKU lists the most profitable SKUs for a day.
func TopMarginSKU(ctx context.Context, db *sql.DB, params map[string]interface{}) (string, error) {
	date := stringParam(params, "date", yesterday())
	n := intParam(params, "n", 10)
	return rankedMarginSKUs(ctx, db, date, n, true)
}

// BottomMarginSKU lists loss-making and low-margin SKUs for a day.
func BottomMarginSKU(ctx context.Context, db *sql.DB, params map[string]interface{}) (string, error) {
	date := stringParam(params, "date", yesterday())
	n := intParam(params, "n", 10)
	return rankedMarginSKUs(ctx, db, date, n, false)
}

func rankedMarginSKUs(ctx context.Context, db *sql.DB, date string, n int, top bool) (string, error) {
	order := "ASC"
	if top {
		order = "DESC"
	}
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`
		SELECT nmid, COALESCE(title, ''),
		       COALESCE(margin_profit_after_ads, 0),
		       COALESCE(margin_percent_after_ads, 0),
		       COALESCE(revenue_total, 0),
		       COALESCE(ordercount, 0),
		       COALESCE(ad_spend, 0)
		FROM wb_margin_daily
		WHERE reportdate = $1
		ORDER BY margin_profit_after_ads %s
		LIMIT $2`, order), date, n)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var b strings.Builder
	i := 0
	for rows.Next() {
		var (
			nmid              int64
			title             string
			margin, marginPct float64
			revenue, adSpend  float64
			orders            int64
		)
		if err := rows.Scan(&nmid, &title, &margin, &marginPct, &revenue, &orders, &adSpend); err != nil {
			return "", err
		}
		i++
		name := clip(titleOrID(title, nmid), 35)
		if top {
			fmt.Fprintf(&b, "%d. %s...\n", i, name)
			fmt.Fprintf(&b, "   Маржа: %s ₽ (%s%%)\n", money(margin), pct(marginPct, 1))
			fmt.Fprintf(&b, "   Выручка: %s ₽, Заказов: %d\n", money(revenue), orders)
			fmt.Fprintf(&b, "   Реклама: %s ₽\n\n", money(adSpend))
		} else {
			status := "🟡 Низкая маржа"
			if margin < 0 {
				status = "🔴 УБЫТОК"
			}
			fmt.Fprintf(&b, "%d. %s...\n", i, name)
			fmt.Fprintf(&b, "   %s: %s ₽ (%s%%)\n", status, money(margin), pct(marginPct, 1))
			fmt.Fprintf(&b, "   Выручка: %s ₽, Реклама: %s ₽\n\n", money(revenue), money(adSpend))
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if i == 0 {
		return fmt.Sprintf("Нет данных за %s", date), nil
	}

	header := fmt.Sprintf("Убыточные/низкомаржинальные SKU за %s:\n\n", date)
	if top {
		header = fmt.Sprintf("Топ-%d SKU по марже за %s:\n\n", n, date)
	}
	return header + b.String(), nil
}
