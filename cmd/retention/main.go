package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"marketlens/db"
	"marketlens/internal/config"
	"marketlens/internal/repository"
)

// retention deletes historical queries older than RETENTION_DAYS together
// with their market data, reports and insights.
func main() {
	cfg := config.Load()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("error connecting to DB: %v", err)
	}
	defer db.Close()

	queryRepo := repository.NewQueryRepository(db.DB)

	cutoff := time.Now().AddDate(0, 0, -cfg.RetentionDays)
	deleted, err := queryRepo.DeleteOlderThan(context.Background(), cutoff)
	if err != nil {
		log.Fatalf("error deleting old queries: %v", err)
	}

	slog.Info("retention complete", "cutoff", cutoff.Format(time.RFC3339), "deleted", deleted)
}
