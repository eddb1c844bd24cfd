package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	RedisURL    string
	Port        string
	FrontendURL string

	LLMProvider     string
	OpenAIAPIKey    string
	AnthropicAPIKey string

	NewsAPIKey         string
	AlphaVantageAPIKey string
	FinnhubAPIKey      string
	TwitterBearerToken string
	FetchLimit         int

	CacheTTL           time.Duration
	LLMTimeout         time.Duration
	TrendWindow        time.Duration
	FallbackConfidence float64

	RetentionDays  int
	PrewarmQueries []string
}

// Load reads .env (when present) and the process environment.
func Load() *Config {
	godotenv.Load()

	return &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		Port:        getString("PORT", "8080"),
		FrontendURL: os.Getenv("FRONTEND_URL"),

		LLMProvider:     strings.ToLower(getString("LLM_PROVIDER", "openai")),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),

		NewsAPIKey:         os.Getenv("NEWS_API_KEY"),
		AlphaVantageAPIKey: os.Getenv("ALPHA_VANTAGE_API_KEY"),
		FinnhubAPIKey:      os.Getenv("FINNHUB_API_KEY"),
		TwitterBearerToken: os.Getenv("TWITTER_BEARER_TOKEN"),
		FetchLimit:         getInt("FETCH_LIMIT", 50),

		CacheTTL:           getDuration("CACHE_TTL", 24*time.Hour),
		LLMTimeout:         getDuration("LLM_TIMEOUT", 300*time.Second),
		TrendWindow:        getDuration("TREND_WINDOW", 30*24*time.Hour),
		FallbackConfidence: getFloat("FALLBACK_CONFIDENCE", 0.3),

		RetentionDays:  getInt("RETENTION_DAYS", 90),
		PrewarmQueries: getList("PREWARM_QUERIES"),
	}
}

func getString(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		slog.Warn("invalid config value, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return v
}

func getFloat(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || v > 1 {
		slog.Warn("invalid config value, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		slog.Warn("invalid config value, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return v
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
