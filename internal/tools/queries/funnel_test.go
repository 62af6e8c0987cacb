package queries

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestFunnelSummary(t *testing.T) {
	t.Run("full funnel", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		rows := sqlmock.NewRows([]string{
			"count", "views", "cart", "orders", "order_sum", "buyouts", "buyout_sum",
		}).AddRow(50, 200000, 16000, 4000, 6000000.0, 3200, 4800000.0)
		mock.ExpectQuery(`FROM wb_sales_funnel_products\s+WHERE reportdate = \$1`).
			WithArgs("2025-07-15").
			WillReturnRows(rows)

		result, err := FunnelSummary(context.Background(), db, map[string]interface{}{"date": "2025-07-15"})

		assert.NoError(t, err)
		assert.Contains(t, result, "Воронка продаж WB за 2025-07-15:")
		assert.Contains(t, result, "👁️ ПРОСМОТРЫ: 200,000")
		assert.Contains(t, result, "↓ CR 8.00%")
		assert.Contains(t, result, "🛒 КОРЗИНА: 16,000")
		assert.Contains(t, result, "↓ CR 25.00%")
		assert.Contains(t, result, "📦 ЗАКАЗЫ: 4,000 (6,000,000 ₽)")
		assert.Contains(t, result, "↓ CR 80.0%")
		assert.Contains(t, result, "✅ ВЫКУПЫ: 3,200 (4,800,000 ₽)")
		assert.Contains(t, result, "Общая конверсия (просмотр→заказ): 2.00%")
		assert.Contains(t, result, "Средний чек заказа: 1,500 ₽")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no data", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery(`FROM wb_sales_funnel_products\s+WHERE reportdate = \$1`).
			WithArgs("2025-07-15").
			WillReturnRows(sqlmock.NewRows([]string{
				"count", "views", "cart", "orders", "order_sum", "buyouts", "buyout_sum",
			}).AddRow(0, 0, 0, 0, 0.0, 0, 0.0))

		result, err := FunnelSummary(context.Background(), db, map[string]interface{}{"date": "2025-07-15"})

		assert.NoError(t, err)
		assert.Equal(t, "Нет данных по воронке за 2025-07-15", result)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStockSummary(t *testing.T) {
	t.Run("risky buckets detailed", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery(`COUNT\(\*\) FILTER \(WHERE stocks = 0\)`).
			WithArgs("2025-07-15").
			WillReturnRows(sqlmock.NewRows([]string{"count", "out", "critical", "normal"}).
				AddRow(60, 5, 12, 43))
		mock.ExpectQuery(`stocks > 0 AND stocks < 50\s+ORDER BY stocks ASC`).
			WithArgs("2025-07-15").
			WillReturnRows(sqlmock.NewRows([]string{"nmid", "title", "stocks"}).
				AddRow(1010101, "Платье летнее", 3).
				AddRow(2020202, "", 17))
		mock.ExpectQuery(`stocks = 0 AND ordercount > 0`).
			WithArgs("2025-07-15").
			WillReturnRows(sqlmock.NewRows([]string{"nmid", "title", "ordercount"}).
				AddRow(3030303, "Юбка миди", 25))

		result, err := StockSummary(context.Background(), db, map[string]interface{}{"date": "2025-07-15"})

		assert.NoError(t, err)
		assert.Contains(t, result, "Сводка по остаткам на 2025-07-15:")
		assert.Contains(t, result, "✅ В наличии (>50 шт): 43 SKU")
		assert.Contains(t, result, "🟡 Критически мало (<50 шт): 12 SKU")
		assert.Contains(t, result, "🔴 Нет в наличии: 5 SKU")
		assert.Contains(t, result, "⚠️ Критически мало остатков:")
		assert.Contains(t, result, "• Платье летнее: 3 шт")
		assert.Contains(t, result, "• 2020202: 17 шт")
		assert.Contains(t, result, "🔴 Нет в наличии (но были заказы!):")
		assert.Contains(t, result, "• Юбка миди: заказов 25")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("everything in stock", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery(`COUNT\(\*\) FILTER \(WHERE stocks = 0\)`).
			WithArgs("2025-07-15").
			WillReturnRows(sqlmock.NewRows([]string{"count", "out", "critical", "normal"}).
				AddRow(60, 0, 0, 60))

		result, err := StockSummary(context.Background(), db, map[string]interface{}{"date": "2025-07-15"})

		assert.NoError(t, err)
		assert.Contains(t, result, "✅ В наличии (>50 шт): 60 SKU")
		assert.NotContains(t, result, "Критически мало остатков")
		assert.NotContains(t, result, "но были заказы")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no data", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery(`COUNT\(\*\) FILTER \(WHERE stocks = 0\)`).
			WithArgs("2025-07-15").
			WillReturnRows(sqlmock.NewRows([]string{"count", "out", "critical", "normal"}).
				AddRow(0, 0, 0, 0))

		result, err := StockSummary(context.Background(), db, map[string]interface{}{"date": "2025-07-15"})

		assert.NoError(t, err)
		assert.Equal(t, "Нет данных по остаткам за 2025-07-15", result)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLowConversionSKU(t *testing.T) {
	t.Run("filters by conversion in go", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		rows := sqlmock.NewRows([]string{"nmid", "title", "opencount", "cartcount", "ordercount", "stocks"}).
			AddRow(9090909, "Ремень кожаный", 5000, 60, 40, 120).
			AddRow(8080808, "Сумка городская", 3000, 400, 150, 80)
		mock.ExpectQuery(`opencount >= \$2\s+ORDER BY opencount DESC`).
			WithArgs("2025-07-15", 100).
			WillReturnRows(rows)

		result, err := LowConversionSKU(context.Background(), db, map[string]interface{}{"date": "2025-07-15"})

		assert.NoError(t, err)
		assert.Contains(t, result, "SKU с низкой конверсией за 2025-07-15:")
		assert.Contains(t, result, "(просмотров >= 100, CR < 2%)")
		assert.Contains(t, result, "• Ремень кожаный")
		assert.Contains(t, result, "  Просмотров: 5,000, Заказов: 40")
		assert.Contains(t, result, "  CR: 0.80%, В корзину: 60")
		assert.Contains(t, result, "  Остаток: 120 шт")
		// CR 5% stays above the cutoff.
		assert.NotContains(t, result, "Сумка городская")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no rows with enough views", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery(`opencount >= \$2\s+ORDER BY opencount DESC`).
			WithArgs("2025-07-15", 500).
			WillReturnRows(sqlmock.NewRows([]string{"nmid", "title", "opencount", "cartcount", "ordercount", "stocks"}))

		result, err := LowConversionSKU(context.Background(), db, map[string]interface{}{
			"date":      "2025-07-15",
			"min_views": 500.0,
		})

		assert.NoError(t, err)
		assert.Equal(t, "Нет данных за 2025-07-15 с просмотрами >= 500", result)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("every sku converts", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery(`opencount >= \$2\s+ORDER BY opencount DESC`).
			WithArgs("2025-07-15", 100).
			WillReturnRows(sqlmock.NewRows([]string{"nmid", "title", "opencount", "cartcount", "ordercount", "stocks"}).
				AddRow(8080808, "Сумка городская", 3000, 400, 150, 80))

		result, err := LowConversionSKU(context.Background(), db, map[string]interface{}{"date": "2025-07-15"})

		assert.NoError(t, err)
		assert.Equal(t, "Нет SKU с CR < 2% за 2025-07-15", result)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
