// internal/tools/queries/diagnostics.go
package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

type periodMetrics struct {
	margin  float64
	revenue float64
	orders  int64
	adSpend float64
	days    int
}

func marginPeriod(ctx context.Context, db *sql.DB, from, to string) (periodMetrics, error) {
	var m periodMetrics
	err := db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(margin_profit_after_ads), 0),
		       COALESCE(SUM(revenue_total), 0),
		       COALESCE(SUM(ordercount), 0),
		       COALESCE(SUM(ad_spend), 0),
		       COUNT(DISTINCT reportdate)
		FROM wb_margin_daily
		WHERE reportdate >= $1 AND reportdate <= $2`, from, to).Scan(
		&m.margin, &m.revenue, &m.orders, &m.adSpend, &m.days)
	return m, err
}

// ComparePeriods puts two date ranges side by side on the key margin metrics.
// Both ranges come from the caller, derived relative to the current date.
func ComparePeriods(ctx context.Context, db *sql.DB, params map[string]interface{}) (string, error) {
	from1, ok1 := params["period1_start"].(string)
	to1, ok2 := params["period1_end"].(string)
	from2, ok3 := params["period2_start"].(string)
	to2, ok4 := params["period2_end"].(string)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return "", fmt.Errorf("%w: period boundaries", ErrMissingParam)
	}

	m1, err := marginPeriod(ctx, db, from1, to1)
	if err != nil {
		return "", err
	}
	m2, err := marginPeriod(ctx, db, from2, to2)
	if err != nil {
		return "", err
	}
	if m1.days == 0 && m2.days == 0 {
		return "Нет данных за указанные периоды", nil
	}

	daily1 := 0.0
	if m1.days > 0 {
		daily1 = m1.margin / float64(m1.days)
	}
	daily2 := 0.0
	if m2.days > 0 {
		daily2 = m2.margin / float64(m2.days)
	}

	return fmt.Sprintf(`Сравнение периодов:

Период 1: %s — %s (%d дн.)
Период 2: %s — %s (%d дн.)

| Метрика | Период 1 | Период 2 | Изменение |
|---------|----------|----------|-----------|
| Маржа | %s ₽ | %s ₽ | %s |
| Маржа/день | %s ₽ | %s ₽ | %s |
| Выручка | %s ₽ | %s ₽ | %s |
| Заказы | %s | %s | %s |
| Реклама | %s ₽ | %s ₽ | %s |

Δ Маржа: %s ₽
`, from1, to1, m1.days, from2, to2, m2.days,
		money(m1.margin), money(m2.margin), changeBadge(percentChange(m1.margin, m2.margin)),
		money(daily1), money(daily2), changeBadge(percentChange(daily1, daily2)),
		money(m1.revenue), money(m2.revenue), changeBadge(percentChange(m1.revenue, m2.revenue)),
		groupDigits(m1.orders), groupDigits(m2.orders), changeBadge(percentChange(float64(m1.orders), float64(m2.orders))),
		money(m1.adSpend), money(m2.adSpend), changeBadge(percentChange(m1.adSpend, m2.adSpend)),
		signedMoney(m2.margin-m1.margin)), nil
}

type funnelPeriod struct {
	views  int64
	orders int64
	days   int
}

func funnelPeriodMetrics(ctx context.Context, db *sql.DB, from, to string) (funnelPeriod, error) {
	var f funnelPeriod
	err := db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(opencount), 0),
		       COALESCE(SUM(ordercount), 0),
		       COUNT(DISTINCT reportdate)
		FROM wb_sales_funnel_products
		WHERE reportdate >= $1 AND reportdate <= $2`, from, to).Scan(
		&f.views, &f.orders, &f.days)
	return f, err
}

// AnalyzeMarginChange compares the most recent N days against the N days
// before them and names the factors that moved: margin itself, ad spend,
// traffic and conversion.
func AnalyzeMarginChange(ctx context.Context, db *sql.DB, params map[string]interface{}) (string, error) {
	daysBack := intParam(params, "days_back", 7)

	p2End := daysAgo(1)
	p2Start := daysAgo(daysBack)
	p1End := daysAgo(daysBack + 1)
	p1Start := daysAgo(daysBack * 2)

	var insights []string

	m1, err := marginPeriod(ctx, db, p1Start, p1End)
	if err != nil {
		return "", err
	}
	m2, err := marginPeriod(ctx, db, p2Start, p2End)
	if err != nil {
		return "", err
	}
	if m1.days > 0 || m2.days > 0 {
		marginChange := percentChange(m1.margin, m2.margin)
		if math.Abs(marginChange) > 10 {
			direction := "упала"
			if marginChange > 0 {
				direction = "выросла"
			}
			insights = append(insights, fmt.Sprintf("📊 Маржа %s на %s%%", direction, pct(math.Abs(marginChange), 0)))
		}
		adChange := percentChange(m1.adSpend, m2.adSpend)
		if math.Abs(adChange) > 20 {
			direction := "снизился"
			if adChange > 0 {
				direction = "вырос"
			}
			insights = append(insights, fmt.Sprintf("📢 Расход на рекламу %s на %s%%", direction, pct(math.Abs(adChange), 0)))
		}
	}

	f1, err := funnelPeriodMetrics(ctx, db, p1Start, p1End)
	if err != nil {
		return "", err
	}
	f2, err := funnelPeriodMetrics(ctx, db, p2Start, p2End)
	if err != nil {
		return "", err
	}
	if f1.days > 0 || f2.days > 0 {
		viewsChange := percentChange(float64(f1.views), float64(f2.views))
		if math.Abs(viewsChange) > 15 {
			direction := "упал"
			if viewsChange > 0 {
				direction = "вырос"
			}
			insights = append(insights, fmt.Sprintf("👁️ Трафик %s на %s%%", direction, pct(math.Abs(viewsChange), 0)))
		}

		cr1 := 0.0
		if f1.views > 0 {
			cr1 = float64(f1.orders) / float64(f1.views) * 100
		}
		cr2 := 0.0
		if f2.views > 0 {
			cr2 = float64(f2.orders) / float64(f2.views) * 100
		}
		if math.Abs(cr2-cr1) > 0.5 {
			direction := "упала"
			if cr2 > cr1 {
				direction = "выросла"
			}
			insights = append(insights, fmt.Sprintf("📈 Конверсия %s: %s%% → %s%%", direction, pct(cr1, 2), pct(cr2, 2)))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Диагностика изменений за последние %d дней:

Сравниваю:
- Период 1: %s — %s
- Период 2: %s — %s

`, daysBack, p1Start, p1End, p2Start, p2End)

	if len(insights) > 0 {
		b.WriteString("🔍 Выявленные факторы:\n\n")
		for _, insight := range insights {
			fmt.Fprintf(&b, "• %s\n", insight)
		}
	} else {
		b.WriteString("✅ Значительных изменений не выявлено")
	}

	return b.String(), nil
}

// FindAnomalies flags SKUs whose average daily margin in the recent window
// swung more than 50% against the preceding one.
func FindAnomalies(ctx context.Context, db *sql.DB, params map[string]interface{}) (string, error) {
	days := intParam(params, "days", 7)

	endDate := daysAgo(1)
	startDate := daysAgo(days + 7)
	midDate := daysAgo(days)

	rows, err := db.QueryContext(ctx, `
		SELECT nmid, COALESCE(MAX(title), ''),
		       AVG(margin_profit_after_ads) FILTER (WHERE reportdate < $1),
		       AVG(margin_profit_after_ads) FILTER (WHERE reportdate >= $1)
		FROM wb_margin_daily
		WHERE reportdate >= $2 AND reportdate <= $3
		GROUP BY nmid`, midDate, startDate, endDate)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	type anomaly struct {
		name   string
		early  float64
		late   float64
		change float64
	}
	var anomalies []anomaly
	sawData := false
	for rows.Next() {
		var nmid int64
		var title string
		var early, late sql.NullFloat64
		if err := rows.Scan(&nmid, &title, &early, &late); err != nil {
			return "", err
		}
		sawData = true
		if !early.Valid || !late.Valid || early.Float64 == 0 {
			continue
		}
		change := (late.Float64 - early.Float64) / math.Abs(early.Float64) * 100
		if math.Abs(change) > 50 {
			anomalies = append(anomalies, anomaly{
				name:   clip(titleOrID(title, nmid), 30),
				early:  early.Float64,
				late:   late.Float64,
				change: change,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if !sawData {
		return "Нет данных для анализа аномалий", nil
	}
	if len(anomalies) == 0 {
		return fmt.Sprintf("Аномальных изменений маржи за %d дней не найдено", days), nil
	}

	sort.Slice(anomalies, func(i, j int) bool {
		return math.Abs(anomalies[i].change) > math.Abs(anomalies[j].change)
	})
	if len(anomalies) > 10 {
		anomalies = anomalies[:10]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SKU с аномальными изменениями маржи за %d дней:\n\n", days)
	for _, a := range anomalies {
		emoji := "📉"
		if a.change > 0 {
			emoji = "📈"
		}
		fmt.Fprintf(&b, "%s %s...\n", emoji, a.name)
		fmt.Fprintf(&b, "   Было: %s ₽/день → Стало: %s ₽/день\n", money(a.early), money(a.late))
		fmt.Fprintf(&b, "   Изменение: %s%%\n\n", signedPct(a.change, 0))
	}
	return b.String(), nil
}

// DiagnoseSKU drills into one SKU, comparing the first and second half of the
// window on margin, ad spend, traffic, conversion and current stock.
func DiagnoseSKU(ctx context.Context, db *sql.DB, params map[string]interface{}) (string, error) {
	nmid := int64Param(params, "sku", 0)
	days := intParam(params, "days", 7)
	if nmid == 0 {
		return "", fmt.Errorf("%w: sku", ErrMissingParam)
	}

	endDate := daysAgo(1)
	startDate := daysAgo(days * 2)
	midDate := daysAgo(days)

	title := "Неизвестный SKU"
	var diagnostics []string

	var marginRows int
	var dbTitle string
	var earlyMargin, lateMargin, earlyAd, lateAd sql.NullFloat64
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(MAX(title), ''),
		       AVG(margin_profit_after_ads) FILTER (WHERE reportdate < $2),
		       AVG(margin_profit_after_ads) FILTER (WHERE reportdate >= $2),
		       AVG(ad_spend) FILTER (WHERE reportdate < $2),
		       AVG(ad_spend) FILTER (WHERE reportdate >= $2)
		FROM wb_margin_daily
		WHERE nmid = $1 AND reportdate >= $3 AND reportdate <= $4`,
		nmid, midDate, startDate, endDate).Scan(
		&marginRows, &dbTitle, &earlyMargin, &lateMargin, &earlyAd, &lateAd)
	if err != nil {
		return "", err
	}
	if marginRows > 0 {
		title = titleOrID(dbTitle, nmid)

		if earlyMargin.Valid && lateMargin.Valid && earlyMargin.Float64 != 0 {
			change := (lateMargin.Float64 - earlyMargin.Float64) / math.Abs(earlyMargin.Float64) * 100
			if math.Abs(change) > 20 {
				direction := "📉 упала"
				if change > 0 {
					direction = "📈 выросла"
				}
				diagnostics = append(diagnostics, fmt.Sprintf("Маржа %s на %s%% (%s → %s ₽/день)",
					direction, pct(math.Abs(change), 0), money(earlyMargin.Float64), money(lateMargin.Float64)))
			}
		}
		if earlyAd.Valid && lateAd.Valid && earlyAd.Float64 != 0 {
			change := percentChange(earlyAd.Float64, lateAd.Float64)
			if math.Abs(change) > 30 {
				direction := "снизился"
				if change > 0 {
					direction = "вырос"
				}
				diagnostics = append(diagnostics, fmt.Sprintf("Расход на рекламу %s на %s%%", direction, pct(math.Abs(change), 0)))
			}
		}
	}

	var funnelRows int
	var earlyViews, lateViews, earlyOrders, lateOrders sql.NullFloat64
	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       AVG(opencount) FILTER (WHERE reportdate < $2),
		       AVG(opencount) FILTER (WHERE reportdate >= $2),
		       AVG(ordercount) FILTER (WHERE reportdate < $2),
		       AVG(ordercount) FILTER (WHERE reportdate >= $2)
		FROM wb_sales_funnel_products
		WHERE nmid = $1 AND reportdate >= $3 AND reportdate <= $4`,
		nmid, midDate, startDate, endDate).Scan(
		&funnelRows, &earlyViews, &lateViews, &earlyOrders, &lateOrders)
	if err != nil {
		return "", err
	}
	if funnelRows > 0 && earlyViews.Valid && lateViews.Valid {
		if earlyViews.Float64 != 0 {
			change := percentChange(earlyViews.Float64, lateViews.Float64)
			if math.Abs(change) > 30 {
				direction := "упал"
				if change > 0 {
					direction = "вырос"
				}
				diagnostics = append(diagnostics, fmt.Sprintf("Трафик %s на %s%%", direction, pct(math.Abs(change), 0)))
			}
		}

		earlyCR := 0.0
		if earlyViews.Float64 > 0 && earlyOrders.Valid {
			earlyCR = earlyOrders.Float64 / earlyViews.Float64 * 100
		}
		lateCR := 0.0
		if lateViews.Float64 > 0 && lateOrders.Valid {
			lateCR = lateOrders.Float64 / lateViews.Float64 * 100
		}
		if math.Abs(lateCR-earlyCR) > 1 {
			direction := "упала"
			if lateCR > earlyCR {
				direction = "выросла"
			}
			diagnostics = append(diagnostics, fmt.Sprintf("Конверсия %s: %s%% → %s%%", direction, pct(earlyCR, 2), pct(lateCR, 2)))
		}

		var lastStock int64
		err = db.QueryRowContext(ctx, `
			SELECT stocks
			FROM wb_sales_funnel_products
			WHERE nmid = $1 AND reportdate >= $2 AND reportdate <= $3
			ORDER BY reportdate DESC
			LIMIT 1`, nmid, midDate, endDate).Scan(&lastStock)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
		if err == nil && lastStock < 50 {
			diagnostics = append(diagnostics, fmt.Sprintf("⚠️ Низкий остаток: %d шт", lastStock))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Диагностика SKU: %s
nmid: %d
Период анализа: %d дней (сравнение первой и второй половины)

`, title, nmid, days*2)

	if len(diagnostics) > 0 {
		b.WriteString("🔍 Выявленные изменения:\n\n")
		for _, d := range diagnostics {
			fmt.Fprintf(&b, "• %s\n", d)
		}
	} else {
		b.WriteString("✅ Значительных изменений не выявлено")
	}

	return b.String(), nil
}
