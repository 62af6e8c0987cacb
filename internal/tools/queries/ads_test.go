package queries

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestAdsSummary(t *testing.T) {
	t.Run("day summary", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery(`FROM v_ads_daily_performance\s+WHERE reportdate = \$1`).
			WithArgs("2025-07-15").
			WillReturnRows(sqlmock.NewRows([]string{"count", "spend", "revenue", "orders"}).
				AddRow(8, 52000.0, 420000.0, 260))

		result, err := AdsSummary(context.Background(), db, map[string]interface{}{"date": "2025-07-15"})

		assert.NoError(t, err)
		assert.Contains(t, result, "Дата: 2025-07-15")
		assert.Contains(t, result, "Кампаний: 8")
		assert.Contains(t, result, "Расход: 52,000 ₽")
		assert.Contains(t, result, "Заказов: 260")
		assert.Contains(t, result, "Выручка: 420,000 ₽")
		assert.Contains(t, result, "ДРР: 12.4%")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no data", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery(`FROM v_ads_daily_performance\s+WHERE reportdate = \$1`).
			WithArgs("2025-07-15").
			WillReturnRows(sqlmock.NewRows([]string{"count", "spend", "revenue", "orders"}).
				AddRow(0, 0.0, 0.0, 0))

		result, err := AdsSummary(context.Background(), db, map[string]interface{}{"date": "2025-07-15"})

		assert.NoError(t, err)
		assert.Equal(t, "Нет данных по рекламе за 2025-07-15", result)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestHighDRRCampaigns(t *testing.T) {
	t.Run("expensive campaigns with dependency flag", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		rows := sqlmock.NewRows([]string{
			"campaign_name", "ad_spend", "ad_revenue", "drr", "cr", "ad_revenue_share", "bid_search", "bid_rec",
		}).AddRow("Авто Куртки поиск", 25000.0, 90000.0, 27.8, 6.5, 62.0, 450.0, 380.0).
			AddRow("Каталог обувь", 12000.0, 55000.0, 21.8, 4.2, 35.0, 300.0, 250.0)
		mock.ExpectQuery(`drr > \$2\s+ORDER BY ad_spend DESC`).
			WithArgs("2025-07-15", 15.0).
			WillReturnRows(rows)

		result, err := HighDRRCampaigns(context.Background(), db, map[string]interface{}{"date": "2025-07-15"})

		assert.NoError(t, err)
		assert.Contains(t, result, "Кампании с ДРР > 15% за 2025-07-15:")
		assert.Contains(t, result, "• Авто Куртки поиск")
		assert.Contains(t, result, "  Расход: 25,000 ₽, Выручка рекл: 90,000 ₽")
		assert.Contains(t, result, "  ДРР: 27.8%, CR: 6.5%")
		assert.Contains(t, result, "Доля рекламной выручки: 62% ⚠️ ВЫСОКАЯ ЗАВИСИМОСТЬ")
		assert.Contains(t, result, "  Ставки: поиск 450 ₽, каталог 380 ₽")
		assert.Contains(t, result, "• Каталог обувь")
		assert.Contains(t, result, "Доля рекламной выручки: 35%")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("none above threshold", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery(`drr > \$2\s+ORDER BY ad_spend DESC`).
			WithArgs("2025-07-15", 25.0).
			WillReturnRows(sqlmock.NewRows([]string{
				"campaign_name", "ad_spend", "ad_revenue", "drr", "cr", "ad_revenue_share", "bid_search", "bid_rec",
			}))

		result, err := HighDRRCampaigns(context.Background(), db, map[string]interface{}{
			"date":      "2025-07-15",
			"threshold": 25.0,
		})

		assert.NoError(t, err)
		assert.Equal(t, "Кампаний с ДРР > 25% за 2025-07-15 не найдено", result)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestScalableCampaigns(t *testing.T) {
	t.Run("flagged campaigns", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery(`is_scalable = true\s+ORDER BY orders DESC`).
			WithArgs("2025-07-15").
			WillReturnRows(sqlmock.NewRows([]string{
				"campaign_name", "orders", "cr", "drr", "bid_search", "bid_rec",
			}).AddRow("Поиск Платья", 85, 9.5, 8.2, 520.0, 410.0))

		result, err := ScalableCampaigns(context.Background(), db, map[string]interface{}{"date": "2025-07-15"})

		assert.NoError(t, err)
		assert.Contains(t, result, "Кампании для масштабирования за 2025-07-15:")
		assert.Contains(t, result, "• Поиск Платья")
		assert.Contains(t, result, "  Заказов: 85, CR: 9.5%, ДРР: 8.2%")
		assert.Contains(t, result, "  Ставки: поиск 520 ₽, каталог 410 ₽")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("none flagged", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery(`is_scalable = true\s+ORDER BY orders DESC`).
			WithArgs("2025-07-15").
			WillReturnRows(sqlmock.NewRows([]string{
				"campaign_name", "orders", "cr", "drr", "bid_search", "bid_rec",
			}))

		result, err := ScalableCampaigns(context.Background(), db, map[string]interface{}{"date": "2025-07-15"})

		assert.NoError(t, err)
		assert.Equal(t, "Кампаний для масштабирования за 2025-07-15 не найдено", result)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAdsTrend(t *testing.T) {
	t.Run("unknown metric lists the options", func(t *testing.T) {
		db, _, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		result, err := AdsTrend(context.Background(), db, map[string]interface{}{"metric": "ctr"})

		assert.NoError(t, err)
		assert.Equal(t, "Неизвестная метрика 'ctr'. Доступные: views, clicks, orders, ad_spend, ad_revenue, cr, drr", result)
	})

	t.Run("summed ruble metric", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		rows := sqlmock.NewRows([]string{"reportdate", "value"}).
			AddRow(time.Date(2025, time.July, 3, 0, 0, 0, 0, time.UTC), 30000.0).
			AddRow(time.Date(2025, time.July, 2, 0, 0, 0, 0, time.UTC), 25000.0).
			AddRow(time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), 20000.0)
		mock.ExpectQuery(`SELECT reportdate, COALESCE\(SUM\(ad_spend\), 0\)`).
			WithArgs(7).
			WillReturnRows(rows)

		result, err := AdsTrend(context.Background(), db, map[string]interface{}{"metric": "ad_spend"})

		assert.NoError(t, err)
		assert.Contains(t, result, "Динамика 'Расход ₽' за 7 дней:")
		assert.Contains(t, result, "01.07: 20,000 ₽")
		assert.Contains(t, result, "03.07: 30,000 ₽")
		assert.Contains(t, result, "Изменение: 📈 +50.0%")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("averaged percent metric", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		rows := sqlmock.NewRows([]string{"reportdate", "value"}).
			AddRow(time.Date(2025, time.July, 2, 0, 0, 0, 0, time.UTC), 14.0).
			AddRow(time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), 16.0)
		mock.ExpectQuery(`SELECT reportdate, COALESCE\(AVG\(drr\), 0\)`).
			WithArgs(7).
			WillReturnRows(rows)

		result, err := AdsTrend(context.Background(), db, map[string]interface{}{"metric": "drr"})

		assert.NoError(t, err)
		assert.Contains(t, result, "Динамика 'ДРР %' за 7 дней:")
		assert.Contains(t, result, "01.07: 16.0%")
		assert.Contains(t, result, "02.07: 14.0%")
		assert.Contains(t, result, "Изменение: 📉 -12.5%")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no data", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery(`SELECT reportdate, COALESCE\(SUM\(orders\), 0\)`).
			WithArgs(7).
			WillReturnRows(sqlmock.NewRows([]string{"reportdate", "value"}))

		result, err := AdsTrend(context.Background(), db, map[string]interface{}{"metric": "orders"})

		assert.NoError(t, err)
		assert.Equal(t, "Нет данных по рекламе", result)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
