package app

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"marketlens/internal/config"
	"marketlens/internal/insight"
	"marketlens/internal/repository"
	"marketlens/pkg/llm"
	"marketlens/pkg/news"
)

// NewAggregator registers every fetcher whose credentials are configured.
// Reddit needs none and is always present.
func NewAggregator(cfg *config.Config) *news.Aggregator {
	var fetchers []news.Fetcher
	if cfg.NewsAPIKey != "" {
		fetchers = append(fetchers, news.NewNewsAPIClient(cfg.NewsAPIKey))
	}
	if cfg.AlphaVantageAPIKey != "" {
		fetchers = append(fetchers, news.NewAlphaVantageClient(cfg.AlphaVantageAPIKey))
	}
	if cfg.FinnhubAPIKey != "" {
		fetchers = append(fetchers, news.NewFinnHubClient(cfg.FinnhubAPIKey))
	}
	if cfg.TwitterBearerToken != "" {
		fetchers = append(fetchers, news.NewTwitterClient(cfg.TwitterBearerToken))
	}
	fetchers = append(fetchers, news.NewRedditClient())

	names := make([]string, 0, len(fetchers))
	for _, f := range fetchers {
		names = append(names, f.Name())
	}
	slog.Info("source fetchers registered", "fetchers", names)

	return news.NewAggregator(cfg.FetchLimit, fetchers...)
}

func NewInsightsClient(cfg *config.Config) (llm.InsightsClient, error) {
	switch cfg.LLMProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for LLM_PROVIDER=openai")
		}
		return llm.NewOpenAIClient(cfg.OpenAIAPIKey), nil
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for LLM_PROVIDER=anthropic")
		}
		return llm.NewAnthropicClient(cfg.AnthropicAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

// NewSearchService wires the insight service. rdb may be nil.
func NewSearchService(cfg *config.Config, sqlDB *sql.DB, rdb *redis.Client) (*insight.Service, error) {
	llmClient, err := NewInsightsClient(cfg)
	if err != nil {
		return nil, err
	}

	fallback := insight.DefaultFallbackPolicy()
	fallback.Confidence = cfg.FallbackConfidence

	opts := []insight.Option{
		insight.WithTTL(cfg.CacheTTL),
		insight.WithLLMTimeout(cfg.LLMTimeout),
		insight.WithTrendWindow(cfg.TrendWindow),
		insight.WithFallbackPolicy(fallback),
	}
	if rdb != nil {
		opts = append(opts, insight.WithHotCache(insight.NewRedisCache(rdb)))
	}

	return insight.NewService(
		repository.NewQueryRepository(sqlDB),
		repository.NewUsageRepository(sqlDB),
		NewAggregator(cfg),
		llmClient,
		opts...,
	), nil
}
