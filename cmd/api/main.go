package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketlens/db"
	"marketlens/internal/app"
	"marketlens/internal/config"
	"marketlens/internal/handler"
	"marketlens/internal/repository"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("error connecting to DB: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		log.Fatalf("error applying schema: %v", err)
	}

	if err := db.ConnectRedis(context.Background(), cfg.RedisURL); err != nil {
		slog.Warn("redis unavailable, hot cache disabled", "error", err)
	}
	defer db.CloseRedis()

	service, err := app.NewSearchService(cfg, db.DB, db.Redis)
	if err != nil {
		log.Fatalf("error building search service: %v", err)
	}

	queryRepo := repository.NewQueryRepository(db.DB)
	usageRepo := repository.NewUsageRepository(db.DB)

	searchHandler := handler.NewSearchHandler(service)
	queryHandler := handler.NewQueryHandler(queryRepo, usageRepo)

	r := gin.Default()
	r.Use(handler.RequestID())

	allowedOrigins := []string{"http://localhost:3000"}

	if cfg.FrontendURL != "" {
		allowedOrigins = append(allowedOrigins, cfg.FrontendURL)
	}

	slog.Info("AllowOrigins URL:", "urls", allowedOrigins)

	r.Use(cors.New(cors.Config{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"X-Cache", "X-Request-ID"},
	}))

	api := r.Group("/api")
	api.POST("/search", searchHandler.Search)
	api.GET("/history", queryHandler.GetHistory)
	api.GET("/query/:id", queryHandler.GetQuery)
	api.GET("/trends", queryHandler.GetTrends)
	api.GET("/stats", queryHandler.GetStats)
	r.GET("/health", queryHandler.GetHealth)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr, "llm_provider", cfg.LLMProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("error starting server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
}
