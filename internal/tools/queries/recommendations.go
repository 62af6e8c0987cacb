// internal/tools/queries/recommendations.go
package queries

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"
)

// OptimizationCandidates lists SKUs with active ad spend that leak money:
// too large an ad share, thin margin or an outright loss. Each issue carries
// an estimated recovery amount.
func OptimizationCandidates(ctx context.Context, db *sql.DB, params map[string]interface{}) (string, error) {
	date := stringParam(params, "date", yesterday())

	rows, err := db.QueryContext(ctx, `
		SELECT nmid, COALESCE(title, ''),
		       COALESCE(margin_profit_after_ads, 0),
		       COALESCE(margin_percent_after_ads, 0),
		       COALESCE(revenue_total, 0),
		       COALESCE(ad_spend, 0)
		FROM wb_margin_daily
		WHERE reportdate = $1 AND ad_spend > 100`, date)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	type candidate struct {
		name      string
		margin    float64
		marginPct float64
		adSpend   float64
		issues    []string
		potential float64
	}
	var candidates []candidate
	for rows.Next() {
		var nmid int64
		var title string
		var margin, marginPct, revenue, adSpend float64
		if err := rows.Scan(&nmid, &title, &margin, &marginPct, &revenue, &adSpend); err != nil {
			return "", err
		}

		c := candidate{
			name:      clip(titleOrID(title, nmid), 30),
			margin:    margin,
			marginPct: marginPct,
			adSpend:   adSpend,
		}
		if revenue > 0 && adSpend > 0 {
			adShare := adSpend / revenue * 100
			if adShare > 20 {
				c.issues = append(c.issues, fmt.Sprintf("Высокая доля рекламы: %s%% от выручки", pct(adShare, 0)))
				c.potential = adSpend * 0.3
			}
		}
		if marginPct < 15 && revenue > 0 {
			c.issues = append(c.issues, fmt.Sprintf("Низкая маржинальность: %s%%", pct(marginPct, 1)))
		}
		if margin < 0 {
			c.issues = append(c.issues, "🔴 УБЫТОЧНЫЙ")
			c.potential = math.Abs(margin)
		}
		if len(c.issues) > 0 {
			candidates = append(candidates, c)
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return fmt.Sprintf("Нет SKU, требующих срочной оптимизации за %s", date), nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].potential > candidates[j].potential
	})
	if len(candidates) > 10 {
		candidates = candidates[:10]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SKU для оптимизации за %s:\n\n", date)
	total := 0.0
	for _, c := range candidates {
		fmt.Fprintf(&b, "• %s...\n", c.name)
		fmt.Fprintf(&b, "  Маржа: %s ₽ (%s%%), Реклама: %s ₽\n", money(c.margin), pct(c.marginPct, 1), money(c.adSpend))
		for _, issue := range c.issues {
			fmt.Fprintf(&b, "  ⚠️ %s\n", issue)
		}
		if c.potential > 0 {
			fmt.Fprintf(&b, "  💡 Потенциал: +%s ₽\n", money(c.potential))
			total += c.potential
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n📊 Суммарный потенциал оптимизации: %s ₽", money(total))
	return b.String(), nil
}

// ScalingCandidates picks campaigns that are both cheap (low DRR) and
// converting well, and estimates the extra orders a +50% budget would bring.
func ScalingCandidates(ctx context.Context, db *sql.DB, params map[string]interface{}) (string, error) {
	date := stringParam(params, "date", yesterday())

	rows, err := db.QueryContext(ctx, `
		SELECT COALESCE(campaign_name, ''),
		       COALESCE(drr, 0), COALESCE(cr, 0),
		       COALESCE(orders, 0),
		       COALESCE(ad_spend, 0), COALESCE(ad_revenue, 0),
		       COALESCE(bid_search_rub, 0), COALESCE(bid_recommendations_rub, 0)
		FROM v_ads_daily_performance
		WHERE reportdate = $1 AND drr > 0 AND drr < 15 AND cr > 5 AND orders >= 1`, date)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	type candidate struct {
		name             string
		drr, cr          float64
		orders           int64
		adSpend          float64
		bidSearch        float64
		bidCatalog       float64
		potentialOrders  int64
		potentialRevenue float64
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		var adRevenue float64
		if err := rows.Scan(&c.name, &c.drr, &c.cr, &c.orders, &c.adSpend, &adRevenue, &c.bidSearch, &c.bidCatalog); err != nil {
			return "", err
		}
		c.potentialOrders = c.orders / 2
		if c.orders > 0 {
			avgOrderValue := adRevenue / float64(c.orders)
			c.potentialRevenue = float64(c.potentialOrders) * avgOrderValue
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return fmt.Sprintf("Нет кампаний для масштабирования за %s", date), nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].cr > candidates[j].cr
	})
	if len(candidates) > 10 {
		candidates = candidates[:10]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Кампании для масштабирования за %s:\n(ДРР < 15%%, CR > 5%%)\n\n", date)
	total := 0.0
	for _, c := range candidates {
		fmt.Fprintf(&b, "• %s...\n", clip(c.name, 35))
		fmt.Fprintf(&b, "  ДРР: %s%%, CR: %s%%, Заказов: %d\n", pct(c.drr, 1), pct(c.cr, 1), c.orders)
		fmt.Fprintf(&b, "  Текущий бюджет: %s ₽\n", money(c.adSpend))
		fmt.Fprintf(&b, "  Ставки: поиск %s ₽, каталог %s ₽\n", pct(c.bidSearch, 0), pct(c.bidCatalog, 0))
		fmt.Fprintf(&b, "  💡 При +50%% бюджета: ~%d доп. заказов (+%s ₽)\n\n", c.potentialOrders, money(c.potentialRevenue))
		total += c.potentialRevenue
	}
	fmt.Fprintf(&b, "\n📊 Потенциал роста выручки: +%s ₽", money(total))
	return b.String(), nil
}

// PlanRecommendations turns the plan/fact gap into a priority-ordered action
// list: reload the plan on the worst laggards, scale the overperformers.
func PlanRecommendations(ctx context.Context, db *sql.DB, params map[string]interface{}) (string, error) {
	var skuCount int
	var planToDate, fact float64
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(plan_margin_to_date), 0),
		       COALESCE(SUM(fact_margin_profit), 0)
		FROM v_plan_fact_margin`).Scan(&skuCount, &planToDate, &fact)
	if err != nil {
		return "", err
	}
	if skuCount == 0 {
		return "Нет данных по плану", nil
	}

	totalGap := planToDate - fact
	if totalGap <= 0 {
		return "✅ План выполняется! Отставания нет.", nil
	}

	type rec struct {
		sku      string
		action   string
		gap      float64
		priority string
	}
	var recs []rec

	laggards, err := db.QueryContext(ctx, `
		SELECT nmid, COALESCE(title, ''),
		       plan_margin_to_date - fact_margin_profit
		FROM v_plan_fact_margin
		WHERE plan_margin_to_date > 0 AND plan_margin_to_date - fact_margin_profit > 0
		ORDER BY plan_margin_to_date - fact_margin_profit DESC
		LIMIT 5`)
	if err != nil {
		return "", err
	}
	for laggards.Next() {
		var nmid int64
		var title string
		var gap float64
		if err := laggards.Scan(&nmid, &title, &gap); err != nil {
			laggards.Close()
			return "", err
		}
		priority := "medium"
		if gap > totalGap*0.1 {
			priority = "high"
		}
		recs = append(recs, rec{
			sku:      clip(titleOrID(title, nmid), 25),
			action:   "Дозагрузить план",
			gap:      gap,
			priority: priority,
		})
	}
	if err := laggards.Err(); err != nil {
		laggards.Close()
		return "", err
	}
	laggards.Close()

	overperformers, err := db.QueryContext(ctx, `
		SELECT nmid, COALESCE(title, ''),
		       COALESCE(plan_completion_percent, 0), fact_margin_profit
		FROM v_plan_fact_margin
		WHERE plan_margin_to_date > 0 AND plan_completion_percent > 120
		ORDER BY fact_margin_profit DESC
		LIMIT 3`)
	if err != nil {
		return "", err
	}
	for overperformers.Next() {
		var nmid int64
		var title string
		var completion, skuFact float64
		if err := overperformers.Scan(&nmid, &title, &completion, &skuFact); err != nil {
			overperformers.Close()
			return "", err
		}
		recs = append(recs, rec{
			sku:      clip(titleOrID(title, nmid), 25),
			action:   fmt.Sprintf("Масштабировать (уже %s%% плана)", pct(completion, 0)),
			gap:      skuFact * 0.2,
			priority: "medium",
		})
	}
	if err := overperformers.Err(); err != nil {
		overperformers.Close()
		return "", err
	}
	overperformers.Close()

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].priority != recs[j].priority {
			return recs[i].priority == "high"
		}
		return recs[i].gap > recs[j].gap
	})

	completion := 0.0
	if planToDate > 0 {
		completion = fact / planToDate * 100
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Рекомендации по выполнению плана:

📊 Общее отставание: %s ₽
Текущее выполнение: %s%%

🎯 ПРИОРИТЕТНЫЕ ДЕЙСТВИЯ:

`, money(totalGap), pct(completion, 0))
	for i, r := range recs {
		marker := "🟡"
		if r.priority == "high" {
			marker = "🔴"
		}
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, marker, r.sku)
		fmt.Fprintf(&b, "   Действие: %s\n", r.action)
		fmt.Fprintf(&b, "   Потенциал: +%s ₽\n\n", money(r.gap))
	}
	b.WriteString(`
📝 ОБЩИЕ РЕКОМЕНДАЦИИ:
1. Увеличить бюджет на эффективные кампании (ДРР < 15%)
2. Проверить остатки на складе у топовых SKU
3. Оптимизировать убыточные кампании (снизить ставки или стоп)
`)
	return b.String(), nil
}

// ActionableInsights scans ads, stocks, scalable campaigns and plan laggards
// for the day and emits the five actions with the largest estimated effect.
func ActionableInsights(ctx context.Context, db *sql.DB, params map[string]interface{}) (string, error) {
	date := stringParam(params, "date", yesterday())

	type action struct {
		emoji  string
		action string
		reason string
		impact float64
	}
	var actions []action

	expensive, err := db.QueryContext(ctx, `
		SELECT COALESCE(campaign_name, ''), COALESCE(drr, 0), COALESCE(ad_spend, 0)
		FROM v_ads_daily_performance
		WHERE reportdate = $1 AND drr > 20
		ORDER BY ad_spend DESC
		LIMIT 5`, date)
	if err != nil {
		return "", err
	}
	for expensive.Next() {
		var name string
		var drr, adSpend float64
		if err := expensive.Scan(&name, &drr, &adSpend); err != nil {
			expensive.Close()
			return "", err
		}
		actions = append(actions, action{
			emoji:  "💰",
			action: fmt.Sprintf("Снизить ставки в '%s...'", clip(name, 25)),
			reason: fmt.Sprintf("ДРР %s%% (слишком высокий)", pct(drr, 0)),
			impact: adSpend * 0.3,
		})
	}
	if err := expensive.Err(); err != nil {
		expensive.Close()
		return "", err
	}
	expensive.Close()

	lowStock, err := db.QueryContext(ctx, `
		SELECT nmid, COALESCE(title, ''), COALESCE(stocks, 0), COALESCE(ordercount, 0)
		FROM wb_sales_funnel_products
		WHERE reportdate = $1 AND stocks < 50 AND ordercount > 0`, date)
	if err != nil {
		return "", err
	}
	for lowStock.Next() {
		var nmid, stocks, orders int64
		var title string
		if err := lowStock.Scan(&nmid, &title, &stocks, &orders); err != nil {
			lowStock.Close()
			return "", err
		}
		actions = append(actions, action{
			emoji:  "⚠️",
			action: fmt.Sprintf("Заказать поставку '%s...'", clip(titleOrID(title, nmid), 25)),
			reason: fmt.Sprintf("Остаток %d шт, заказов %d/день", stocks, orders),
			impact: float64(orders) * 1000 * 7,
		})
	}
	if err := lowStock.Err(); err != nil {
		lowStock.Close()
		return "", err
	}
	lowStock.Close()

	scalable, err := db.QueryContext(ctx, `
		SELECT COALESCE(campaign_name, ''), COALESCE(drr, 0), COALESCE(cr, 0), COALESCE(ad_revenue, 0)
		FROM v_ads_daily_performance
		WHERE reportdate = $1 AND drr < 10 AND cr > 8
		ORDER BY orders DESC
		LIMIT 3`, date)
	if err != nil {
		return "", err
	}
	for scalable.Next() {
		var name string
		var drr, cr, adRevenue float64
		if err := scalable.Scan(&name, &drr, &cr, &adRevenue); err != nil {
			scalable.Close()
			return "", err
		}
		actions = append(actions, action{
			emoji:  "📈",
			action: fmt.Sprintf("Увеличить бюджет '%s...'", clip(name, 25)),
			reason: fmt.Sprintf("ДРР %s%%, CR %s%% (отличные показатели)", pct(drr, 0), pct(cr, 0)),
			impact: adRevenue * 0.5,
		})
	}
	if err := scalable.Err(); err != nil {
		scalable.Close()
		return "", err
	}
	scalable.Close()

	behindPlan, err := db.QueryContext(ctx, `
		SELECT nmid, COALESCE(title, ''),
		       COALESCE(plan_completion_percent, 0),
		       COALESCE(plan_margin_to_date, 0), COALESCE(fact_margin_profit, 0)
		FROM v_plan_fact_margin
		WHERE plan_completion_percent < 70
		LIMIT 3`)
	if err != nil {
		return "", err
	}
	for behindPlan.Next() {
		var nmid int64
		var title string
		var completion, planToDate, fact float64
		if err := behindPlan.Scan(&nmid, &title, &completion, &planToDate, &fact); err != nil {
			behindPlan.Close()
			return "", err
		}
		gap := planToDate - fact
		if gap <= 0 {
			continue
		}
		actions = append(actions, action{
			emoji:  "📋",
			action: fmt.Sprintf("Усилить продвижение '%s...'", clip(titleOrID(title, nmid), 25)),
			reason: fmt.Sprintf("Выполнение плана %s%%", pct(completion, 0)),
			impact: gap,
		})
	}
	if err := behindPlan.Err(); err != nil {
		behindPlan.Close()
		return "", err
	}
	behindPlan.Close()

	if len(actions) == 0 {
		return "✅ Всё оптимально! Критических действий не требуется.", nil
	}

	sort.Slice(actions, func(i, j int) bool {
		return actions[i].impact > actions[j].impact
	})
	if len(actions) > 5 {
		actions = actions[:5]
	}

	var b strings.Builder
	b.WriteString("🎯 ТОП-5 ДЕЙСТВИЙ для увеличения прибыли:\n\n")
	total := 0.0
	for i, a := range actions {
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, a.emoji, a.action)
		fmt.Fprintf(&b, "   Причина: %s\n", a.reason)
		fmt.Fprintf(&b, "   Эффект: ~%s ₽\n\n", money(a.impact))
		total += a.impact
	}
	fmt.Fprintf(&b, "📊 Суммарный потенциал: %s ₽", money(total))
	return b.String(), nil
}
