// internal/tools/queries/funnel.go
package queries

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// FunnelSummary renders the view -> cart -> order -> buyout funnel for a day.
func FunnelSummary(ctx context.Context, db *sql.DB, params map[string]interface{}) (string, error) {
	date := stringParam(params, "date", yesterday())

	var rowCount int
	var views, cart, orders, buyouts int64
	var orderSum, buyoutSum float64
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(opencount), 0),
		       COALESCE(SUM(cartcount), 0),
		       COALESCE(SUM(ordercount), 0),
		       COALESCE(SUM(ordersum), 0),
		       COALESCE(SUM(buyoutcount), 0),
		       COALESCE(SUM(buyoutsum), 0)
		FROM wb_sales_funnel_products
		WHERE reportdate = $1`, date).Scan(
		&rowCount, &views, &cart, &orders, &orderSum, &buyouts, &buyoutSum)
	if err != nil {
		return "", err
	}
	if rowCount == 0 {
		return fmt.Sprintf("Нет данных по воронке за %s", date), nil
	}

	crViewCart := 0.0
	if views > 0 {
		crViewCart = float64(cart) / float64(views) * 100
	}
	crCartOrder := 0.0
	if cart > 0 {
		crCartOrder = float64(orders) / float64(cart) * 100
	}
	crOrderBuyout := 0.0
	if orders > 0 {
		crOrderBuyout = float64(buyouts) / float64(orders) * 100
	}
	crTotal := 0.0
	if views > 0 {
		crTotal = float64(orders) / float64(views) * 100
	}
	avgCheck := 0.0
	if orders > 0 {
		avgCheck = orderSum / float64(orders)
	}

	return fmt.Sprintf(`Воронка продаж WB за %s:

👁️ ПРОСМОТРЫ: %s

   ↓ CR %s%%

🛒 КОРЗИНА: %s

   ↓ CR %s%%

📦 ЗАКАЗЫ: %s (%s ₽)

   ↓ CR %s%%

✅ ВЫКУПЫ: %s (%s ₽)

Общая конверсия (просмотр→заказ): %s%%
Средний чек заказа: %s ₽
`, date, groupDigits(views), pct(crViewCart, 2), groupDigits(cart),
		pct(crCartOrder, 2), groupDigits(orders), money(orderSum),
		pct(crOrderBuyout, 1), groupDigits(buyouts), money(buyoutSum),
		pct(crTotal, 2), money(avgCheck)), nil
}

// StockSummary groups SKUs into in-stock, critically low and out-of-stock
// buckets, detailing the risky ones.
func StockSummary(ctx context.Context, db *sql.DB, params map[string]interface{}) (string, error) {
	date := stringParam(params, "date", yesterday())

	var rowCount, outOfStock, critical, normal int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE stocks = 0),
		       COUNT(*) FILTER (WHERE stocks > 0 AND stocks < 50),
		       COUNT(*) FILTER (WHERE stocks >= 50)
		FROM wb_sales_funnel_products
		WHERE reportdate = $1`, date).Scan(&rowCount, &outOfStock, &critical, &normal)
	if err != nil {
		return "", err
	}
	if rowCount == 0 {
		return fmt.Sprintf("Нет данных по остаткам за %s", date), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Сводка по остаткам на %s:

✅ В наличии (>50 шт): %d SKU
🟡 Критически мало (<50 шт): %d SKU
🔴 Нет в наличии: %d SKU

`, date, normal, critical, outOfStock)

	if critical > 0 {
		rows, err := db.QueryContext(ctx, `
			SELECT nmid, COALESCE(title, ''), stocks
			FROM wb_sales_funnel_products
			WHERE reportdate = $1 AND stocks > 0 AND stocks < 50
			ORDER BY stocks ASC
			LIMIT 10`, date)
		if err != nil {
			return "", err
		}
		b.WriteString("⚠️ Критически мало остатков:\n")
		for rows.Next() {
			var nmid, stocks int64
			var title string
			if err := rows.Scan(&nmid, &title, &stocks); err != nil {
				rows.Close()
				return "", err
			}
			fmt.Fprintf(&b, "• %s: %d шт\n", clip(titleOrID(title, nmid), 30), stocks)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return "", err
		}
	}

	if outOfStock > 0 {
		rows, err := db.QueryContext(ctx, `
			SELECT nmid, COALESCE(title, ''), ordercount
			FROM wb_sales_funnel_products
			WHERE reportdate = $1 AND stocks = 0 AND ordercount > 0`, date)
		if err != nil {
			return "", err
		}
		wroteHeader := false
		for rows.Next() {
			var nmid, orders int64
			var title string
			if err := rows.Scan(&nmid, &title, &orders); err != nil {
				rows.Close()
				return "", err
			}
			if !wroteHeader {
				b.WriteString("\n🔴 Нет в наличии (но были заказы!):\n")
				wroteHeader = true
			}
			fmt.Fprintf(&b, "• %s: заказов %d\n", clip(titleOrID(title, nmid), 30), orders)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return "", err
		}
	}

	return b.String(), nil
}

// LowConversionSKU surfaces SKUs with plenty of views but almost no orders,
// candidates for listing-card rework.
func LowConversionSKU(ctx context.Context, db *sql.DB, params map[string]interface{}) (string, error) {
	date := stringParam(params, "date", yesterday())
	minViews := intParam(params, "min_views", 100)
	maxCR := floatParam(params, "max_cr", 2.0)

	rows, err := db.QueryContext(ctx, `
		SELECT nmid, COALESCE(title, ''), opencount, cartcount, ordercount, stocks
		FROM wb_sales_funnel_products
		WHERE reportdate = $1 AND opencount >= $2
		ORDER BY opencount DESC`, date, minViews)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	type skuRow struct {
		name   string
		views  int64
		cart   int64
		orders int64
		stocks int64
		cr     float64
	}
	var all []skuRow
	for rows.Next() {
		var nmid int64
		var title string
		var r skuRow
		if err := rows.Scan(&nmid, &title, &r.views, &r.cart, &r.orders, &r.stocks); err != nil {
			return "", err
		}
		r.name = clip(titleOrID(title, nmid), 35)
		if r.views > 0 {
			r.cr = float64(r.orders) / float64(r.views) * 100
		}
		all = append(all, r)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(all) == 0 {
		return fmt.Sprintf("Нет данных за %s с просмотрами >= %d", date, minViews), nil
	}

	var lowCR []skuRow
	for _, r := range all {
		if r.cr < maxCR {
			lowCR = append(lowCR, r)
		}
	}
	if len(lowCR) == 0 {
		return fmt.Sprintf("Нет SKU с CR < %s%% за %s", num(maxCR), date), nil
	}
	if len(lowCR) > 10 {
		lowCR = lowCR[:10]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SKU с низкой конверсией за %s:\n", date)
	fmt.Fprintf(&b, "(просмотров >= %d, CR < %s%%)\n\n", minViews, num(maxCR))
	for _, r := range lowCR {
		fmt.Fprintf(&b, "• %s\n", r.name)
		fmt.Fprintf(&b, "  Просмотров: %s, Заказов: %d\n", groupDigits(r.views), r.orders)
		fmt.Fprintf(&b, "  CR: %s%%, В корзину: %d\n", pct(r.cr, 2), r.cart)
		fmt.Fprintf(&b, "  Остаток: %d шт\n\n", r.stocks)
	}
	return b.String(), nil
}
