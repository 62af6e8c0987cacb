// internal/tools/queries/ads.go
package queries

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// AdsSummary aggregates spend, orders, revenue and DRR across all campaigns
// for a day.
func AdsSummary(ctx context.Context, db *sql.DB, params map[string]interface{}) (string, error) {
	date := stringParam(params, "date", yesterday())

	var campaigns int
	var spend, revenue float64
	var orders int64
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(ad_spend), 0),
		       COALESCE(SUM(ad_revenue), 0),
		       COALESCE(SUM(orders), 0)
		FROM v_ads_daily_performance
		WHERE reportdate = $1`, date).Scan(&campaigns, &spend, &revenue, &orders)
	if err != nil {
		return "", err
	}
	if campaigns == 0 {
		return fmt.Sprintf("Нет данных по рекламе за %s", date), nil
	}

	drr := 0.0
	if revenue > 0 {
		drr = spend / revenue * 100
	}

	return fmt.Sprintf(`Дата: %s
Кампаний: %d
Расход: %s ₽
Заказов: %d
Выручка: %s ₽
ДРР: %s%%`, date, campaigns, money(spend), orders, money(revenue), pct(drr, 1)), nil
}

// HighDRRCampaigns lists campaigns spending above the DRR threshold, flagging
// ones whose sales depend heavily on the ads.
func HighDRRCampaigns(ctx context.Context, db *sql.DB, params map[string]interface{}) (string, error) {
	date := stringParam(params, "date", yesterday())
	threshold := floatParam(params, "threshold", 15)

	rows, err := db.QueryContext(ctx, `
		SELECT campaign_name,
		       COALESCE(ad_spend, 0),
		       COALESCE(ad_revenue, 0),
		       COALESCE(drr, 0),
		       COALESCE(cr, 0),
		       COALESCE(ad_revenue_share, 0),
		       COALESCE(bid_search_rub, 0),
		       COALESCE(bid_recommendations_rub, 0)
		FROM v_ads_daily_performance
		WHERE reportdate = $1 AND drr > $2
		ORDER BY ad_spend DESC`, date, threshold)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var b strings.Builder
	found := false
	for rows.Next() {
		var name string
		var spend, revenue, drr, cr, adShare, bidSearch, bidRec float64
		if err := rows.Scan(&name, &spend, &revenue, &drr, &cr, &adShare, &bidSearch, &bidRec); err != nil {
			return "", err
		}
		found = true
		dependent := ""
		if adShare > 50 {
			dependent = "⚠️ ВЫСОКАЯ ЗАВИСИМОСТЬ"
		}
		fmt.Fprintf(&b, "• %s\n", clip(name, 40))
		fmt.Fprintf(&b, "  Расход: %s ₽, Выручка рекл: %s ₽\n", money(spend), money(revenue))
		fmt.Fprintf(&b, "  ДРР: %s%%, CR: %s%%\n", pct(drr, 1), pct(cr, 1))
		fmt.Fprintf(&b, "  Доля рекламной выручки: %s%% %s\n", pct(adShare, 0), dependent)
		fmt.Fprintf(&b, "  Ставки: поиск %s ₽, каталог %s ₽\n\n", pct(bidSearch, 0), pct(bidRec, 0))
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if !found {
		return fmt.Sprintf("Кампаний с ДРР > %s%% за %s не найдено", num(threshold), date), nil
	}

	return fmt.Sprintf("Кампании с ДРР > %s%% за %s:\n\n", num(threshold), date) + b.String(), nil
}

// ScalableCampaigns lists campaigns the read model already marked scalable.
func ScalableCampaigns(ctx context.Context, db *sql.DB, params map[string]interface{}) (string, error) {
	date := stringParam(params, "date", yesterday())

	rows, err := db.QueryContext(ctx, `
		SELECT campaign_name,
		       COALESCE(orders, 0),
		       COALESCE(cr, 0),
		       COALESCE(drr, 0),
		       COALESCE(bid_search_rub, 0),
		       COALESCE(bid_recommendations_rub, 0)
		FROM v_ads_daily_performance
		WHERE reportdate = $1 AND is_scalable = true
		ORDER BY orders DESC`, date)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var b strings.Builder
	found := false
	for rows.Next() {
		var name string
		var orders int64
		var cr, drr, bidSearch, bidRec float64
		if err := rows.Scan(&name, &orders, &cr, &drr, &bidSearch, &bidRec); err != nil {
			return "", err
		}
		found = true
		fmt.Fprintf(&b, "• %s\n", clip(name, 40))
		fmt.Fprintf(&b, "  Заказов: %d, CR: %s%%, ДРР: %s%%\n", orders, pct(cr, 1), pct(drr, 1))
		fmt.Fprintf(&b, "  Ставки: поиск %s ₽, каталог %s ₽\n\n", pct(bidSearch, 0), pct(bidRec, 0))
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if !found {
		return fmt.Sprintf("Кампаний для масштабирования за %s не найдено", date), nil
	}

	return fmt.Sprintf("Кампании для масштабирования за %s:\n\n", date) + b.String(), nil
}

// adsTrendMetrics keeps the whitelist ordered so the rejection text always
// enumerates options the same way.
var adsTrendMetrics = []struct {
	key   string
	label string
}{
	{"views", "Показы"},
	{"clicks", "Клики"},
	{"orders", "Заказы"},
	{"ad_spend", "Расход ₽"},
	{"ad_revenue", "Выручка с рекламы ₽"},
	{"cr", "CR %"},
	{"drr", "ДРР %"},
}

// averaged reports whether a metric aggregates as a daily mean rather than
// a daily sum.
func averaged(metric string) bool {
	return metric == "cr" || metric == "drr"
}

// AdsTrend shows a daily series for one whitelisted advertising metric.
func AdsTrend(ctx context.Context, db *sql.DB, params map[string]interface{}) (string, error) {
	metric := stringParam(params, "metric", "")
	days := intParam(params, "days", 7)

	label := ""
	for _, m := range adsTrendMetrics {
		if m.key == metric {
			label = m.label
			break
		}
	}
	if label == "" {
		keys := make([]string, 0, len(adsTrendMetrics))
		for _, m := range adsTrendMetrics {
			keys = append(keys, m.key)
		}
		return fmt.Sprintf("Неизвестная метрика '%s'. Доступные: %s",
			metric, strings.Join(keys, ", ")), nil
	}

	agg := "SUM"
	if averaged(metric) {
		agg = "AVG"
	}
	// metric passed the whitelist above, safe to inline as a column name
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`
		SELECT reportdate, COALESCE(%s(%s), 0)
		FROM v_ads_daily_performance
		GROUP BY reportdate
		ORDER BY reportdate DESC
		LIMIT $1`, agg, metric), days)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	type dayValue struct {
		date  time.Time
		value float64
	}
	var daily []dayValue
	for rows.Next() {
		var d dayValue
		if err := rows.Scan(&d.date, &d.value); err != nil {
			return "", err
		}
		daily = append(daily, d)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(daily) == 0 {
		return "Нет данных по рекламе", nil
	}

	for i, j := 0, len(daily)-1; i < j; i, j = i+1, j-1 {
		daily[i], daily[j] = daily[j], daily[i]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Динамика '%s' за %d дней:\n\n", label, days)
	for _, d := range daily {
		switch {
		case metric == "ad_spend" || metric == "ad_revenue":
			fmt.Fprintf(&b, "%s: %s ₽\n", d.date.Format("02.01"), money(d.value))
		case averaged(metric):
			fmt.Fprintf(&b, "%s: %s%%\n", d.date.Format("02.01"), pct(d.value, 1))
		default:
			fmt.Fprintf(&b, "%s: %s\n", d.date.Format("02.01"), money(d.value))
		}
	}

	if len(daily) >= 2 && daily[0].value > 0 {
		change := percentChange(daily[0].value, daily[len(daily)-1].value)
		trend := "📉"
		if change > 0 {
			trend = "📈"
		}
		fmt.Fprintf(&b, "\nИзменение: %s %s%%", trend, signedPct(change, 1))
	}

	return b.String(), nil
}
