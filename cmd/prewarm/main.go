package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"marketlens/db"
	"marketlens/internal/app"
	"marketlens/internal/config"
	"marketlens/internal/insight"
)

// prewarm runs the configured PREWARM_QUERIES through the search pipeline
// so the first interactive request for each is served from cache.
func main() {
	cfg := config.Load()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if len(cfg.PrewarmQueries) == 0 {
		slog.Info("no prewarm queries configured, exiting")
		return
	}

	err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("error connecting to DB: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("error applying schema: %v", err)
	}

	if err := db.ConnectRedis(ctx, cfg.RedisURL); err != nil {
		slog.Warn("redis unavailable, hot cache disabled", "error", err)
	}
	defer db.CloseRedis()

	service, err := app.NewSearchService(cfg, db.DB, db.Redis)
	if err != nil {
		log.Fatalf("error building search service: %v", err)
	}

	failed := 0
	for _, q := range cfg.PrewarmQueries {
		resp, err := service.Search(ctx, insight.SearchRequest{Query: q, Source: "all"})
		if err != nil {
			failed++
			e := insight.AsError(err)
			slog.Error("prewarm query failed", "query", q, "code", e.Code, "error", err)
			continue
		}
		slog.Info("prewarmed query", "query", q, "query_id", resp.QueryID, "cached", resp.Cached)
	}

	slog.Info("prewarm complete", "queries", len(cfg.PrewarmQueries), "failed", failed)
}
