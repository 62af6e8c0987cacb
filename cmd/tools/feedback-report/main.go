// cmd/tools/feedback-report/main.go
//
// Prints recorded answer feedback: totals by type and status plus the most
// recent records. Reads the same configuration as the server, so it can run
// on any host with access to the analytics database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"wb-analyst/internal/common/config"
	"wb-analyst/internal/common/database"
	"wb-analyst/internal/common/logger"
	"wb-analyst/internal/feedback"
)

func main() {
	recent := flag.Int("recent", 5, "How many recent records to print (0 disables)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		fmt.Printf("Error connecting to PostgreSQL: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	recorder := feedback.NewRecorder(pg.DB, logger.NewNoOpLogger())

	stats, err := recorder.Stats(ctx)
	if err != nil {
		fmt.Printf("Error loading feedback stats: %v\n", err)
		os.Exit(1)
	}

	if stats.Total == 0 {
		fmt.Println("Фидбеков пока нет")
		return
	}

	fmt.Println("Статистика фидбека:")
	fmt.Println()
	fmt.Printf("Всего записей: %d\n", stats.Total)
	fmt.Println()
	fmt.Println("По типам:")
	for _, entry := range stats.ByType {
		fmt.Printf("  • %s: %d\n", entry.Name, entry.Count)
	}
	fmt.Println()
	fmt.Println("По статусам:")
	for _, entry := range stats.ByStatus {
		fmt.Printf("  • %s: %d\n", entry.Name, entry.Count)
	}

	if *recent <= 0 {
		return
	}

	records, err := recorder.Recent(ctx, *recent)
	if err != nil {
		fmt.Printf("Error loading recent feedback: %v\n", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		return
	}

	fmt.Println()
	fmt.Printf("Последние записи (%d):\n", len(records))
	for _, record := range records {
		fmt.Printf("  [%s] %s/%s: %s\n",
			record.CreatedAt.Format("02.01.2006 15:04"),
			record.FeedbackType,
			record.Status,
			shorten(record.Comment, 80),
		)
	}
}

// shorten cuts at rune boundaries, comments are Cyrillic.
func shorten(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-3]) + "..."
}
