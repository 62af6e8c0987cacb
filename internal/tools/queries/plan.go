// internal/tools/queries/plan.go
package queries

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PlanFact reports month-to-date plan completion with the top laggards and
// leaders.
func PlanFact(ctx context.Context, db *sql.DB, params map[string]interface{}) (string, error) {
	var rowCount int
	var totalPlan, totalPlanToDate, totalFact float64
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(plan_margin_profit), 0),
		       COALESCE(SUM(plan_margin_to_date), 0),
		       COALESCE(SUM(fact_margin_profit), 0)
		FROM v_plan_fact_margin`).Scan(&rowCount, &totalPlan, &totalPlanToDate, &totalFact)
	if err != nil {
		return "", err
	}
	if rowCount == 0 {
		return "Нет данных по плану/факту", nil
	}

	completion := 0.0
	if totalPlanToDate > 0 {
		completion = totalFact / totalPlanToDate * 100
	}
	status := "🔴 Критическое отставание"
	if completion >= 100 {
		status = "✅ План выполняется"
	} else if completion >= 85 {
		status = "🟡 Небольшое отставание"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Выполнение плана по марже:

%s

Общий план на месяц: %s ₽
Линейный план на сегодня: %s ₽
Факт на сегодня: %s ₽
Выполнение: %s%%
Отклонение: %s ₽
`, status, money(totalPlan), money(totalPlanToDate), money(totalFact),
		pct(completion, 0), signedMoney(totalFact-totalPlanToDate))

	laggards, err := planGapList(ctx, db, "ASC")
	if err != nil {
		return "", err
	}
	if laggards != "" {
		b.WriteString("\n📉 Топ-5 отстающих от плана:\n")
		b.WriteString(laggards)

		leaders, err := planGapList(ctx, db, "DESC")
		if err != nil {
			return "", err
		}
		b.WriteString("\n📈 Топ-5 перевыполняющих план:\n")
		b.WriteString(leaders)
	}

	return b.String(), nil
}

// planGapList renders five SKUs ordered by fact-vs-plan gap. Only SKUs with a
// non-zero plan participate.
func planGapList(ctx context.Context, db *sql.DB, order string) (string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`
		SELECT nmid, COALESCE(title, ''),
		       COALESCE(plan_completion_percent, 0),
		       fact_margin_profit - plan_margin_to_date
		FROM v_plan_fact_margin
		WHERE plan_margin_to_date > 0
		ORDER BY fact_margin_profit - plan_margin_to_date %s
		LIMIT 5`, order))
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var nmid int64
		var title string
		var completion, gap float64
		if err := rows.Scan(&nmid, &title, &completion, &gap); err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "• %s: %s%% (%s ₽)\n",
			clip(titleOrID(title, nmid), 30), pct(completion, 0), signedMoney(gap))
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// UnderperformingSKU lists SKUs whose plan completion sits below the threshold.
func UnderperformingSKU(ctx context.Context, db *sql.DB, params map[string]interface{}) (string, error) {
	threshold := floatParam(params, "threshold", 80)

	rows, err := db.QueryContext(ctx, `
		SELECT nmid, COALESCE(title, ''),
		       COALESCE(plan_margin_to_date, 0),
		       COALESCE(fact_margin_profit, 0),
		       COALESCE(plan_completion_percent, 0)
		FROM v_plan_fact_margin
		WHERE plan_margin_to_date > 0 AND plan_completion_percent < $1
		ORDER BY fact_margin_profit - plan_margin_to_date ASC`, threshold)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	type lagRow struct {
		name       string
		planToDate float64
		fact       float64
		completion float64
		gap        float64
	}
	var lagging []lagRow
	totalGap := 0.0
	for rows.Next() {
		var nmid int64
		var title string
		var r lagRow
		if err := rows.Scan(&nmid, &title, &r.planToDate, &r.fact, &r.completion); err != nil {
			return "", err
		}
		r.name = clip(titleOrID(title, nmid), 35)
		r.gap = r.fact - r.planToDate
		totalGap += r.gap
		lagging = append(lagging, r)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(lagging) == 0 {
		return fmt.Sprintf("Нет SKU с выполнением плана ниже %s%%", num(threshold)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SKU с выполнением плана < %s%%:\n", num(threshold))
	fmt.Fprintf(&b, "Всего: %d SKU, общее отставание: %s ₽\n\n", len(lagging), money(totalGap))
	for _, r := range lagging {
		fmt.Fprintf(&b, "• %s\n", r.name)
		fmt.Fprintf(&b, "  План: %s ₽ → Факт: %s ₽\n", money(r.planToDate), money(r.fact))
		fmt.Fprintf(&b, "  Выполнение: %s%%, Отставание: %s ₽\n\n", pct(r.completion, 0), money(r.gap))
	}
	return b.String(), nil
}

// PlanForecast projects month-end margin from the current daily pace.
func PlanForecast(ctx context.Context, db *sql.DB, params map[string]interface{}) (string, error) {
	var rowCount, daysPassed, daysInMonth int
	var totalPlan, totalFact float64
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(plan_margin_profit), 0),
		       COALESCE(SUM(fact_margin_profit), 0),
		       COALESCE(MAX(days_passed), 0),
		       COALESCE(MAX(days_in_month), 0)
		FROM v_plan_fact_margin`).Scan(&rowCount, &totalPlan, &totalFact, &daysPassed, &daysInMonth)
	if err != nil {
		return "", err
	}
	if rowCount == 0 {
		return "Нет данных по плану/факту", nil
	}
	if daysPassed <= 0 {
		return "Недостаточно данных для прогноза", nil
	}

	daysLeft := daysInMonth - daysPassed
	dailyRate := totalFact / float64(daysPassed)
	forecast := totalFact + dailyRate*float64(daysLeft)
	forecastCompletion := 0.0
	if totalPlan > 0 {
		forecastCompletion = forecast / totalPlan * 100
	}
	remaining := totalPlan - totalFact
	requiredDaily := 0.0
	if daysLeft > 0 {
		requiredDaily = remaining / float64(daysLeft)
	}
	status := "⚠️ План под угрозой"
	if forecast >= totalPlan {
		status = "✅ План будет выполнен"
	}

	return fmt.Sprintf(`Прогноз выполнения плана:

%s

Дней прошло: %d из %d
Текущий факт: %s ₽
Текущий темп: %s ₽/день

📊 Прогноз на конец месяца: %s ₽ (%s%% от плана)

План на месяц: %s ₽
Осталось набрать: %s ₽
Требуемый темп: %s ₽/день

Разница темпов: %s ₽/день
`, status, daysPassed, daysInMonth, money(totalFact), money(dailyRate),
		money(forecast), pct(forecastCompletion, 0),
		money(totalPlan), money(remaining), money(requiredDaily),
		signedMoney(dailyRate-requiredDaily)), nil
}
