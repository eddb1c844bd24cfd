package news

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"marketlens/internal/model"
)

type AlphaVantageClient struct {
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewAlphaVantageClient(apiKey string) *AlphaVantageClient {
	return &AlphaVantageClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		// free tier allows 5 requests per minute
		limiter: rate.NewLimiter(rate.Every(12*time.Second), 1),
	}
}

func (c *AlphaVantageClient) Name() string {
	return "AlphaVantage"
}

func (c *AlphaVantageClient) Source() model.Source {
	return model.SourceNews
}

// Fetch reads the latest NEWS_SENTIMENT feed and keeps the items that mention
// the query. Alpha Vantage scores carry over as sentiment and relevance.
func (c *AlphaVantageClient) Fetch(ctx context.Context, query string, limit int) ([]model.RawItem, error) {
	params := url.Values{}
	params.Set("function", "NEWS_SENTIMENT")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("sort", "LATEST")
	params.Set("apikey", c.apiKey)

	var raw avResponse
	err := getJSON(ctx, c.httpClient, c.limiter, c.Name(), "https://www.alphavantage.co/query?"+params.Encode(), nil, &raw)
	if err != nil {
		return nil, err
	}

	items := make([]model.RawItem, 0, len(raw.Feed))
	for _, entry := range raw.Feed {
		symbols := make([]string, 0, len(entry.TickerSentiment))
		relevance := -1.0
		for _, ts := range entry.TickerSentiment {
			if ts.Ticker == "" {
				continue
			}
			symbols = append(symbols, ts.Ticker)
			if r, err := strconv.ParseFloat(ts.RelevanceScore, 64); err == nil && r > relevance {
				relevance = r
			}
		}

		if !mentionsQuery(query, entry.Title+" "+entry.Summary, symbols) {
			continue
		}

		publishedAt, err := time.Parse("20060102T150405", entry.TimePublished)
		if err != nil {
			publishedAt = time.Time{}
		}

		item := model.RawItem{
			Source:      c.Source(),
			Provider:    c.Name(),
			ExternalID:  generateExternalID(entry.URL),
			Title:       entry.Title,
			Content:     entry.Summary,
			URL:         entry.URL,
			Author:      entry.Source,
			PublishedAt: publishedAt,
		}

		if entry.OverallSentimentScore != nil {
			s := math.Max(-1, math.Min(1, *entry.OverallSentimentScore))
			item.SentimentScore = &s
		}
		if relevance >= 0 {
			r := math.Min(1, relevance)
			item.RelevanceScore = &r
		}

		items = append(items, item)
		if len(items) >= limit {
			break
		}
	}

	return items, nil
}

func generateExternalID(url string) string {
	sum := sha256.Sum256([]byte(url))
	return fmt.Sprintf("%x", sum)[:16]
}

type avResponse struct {
	Feed []avFeedItem `json:"feed"`
}

type avFeedItem struct {
	Title                 string              `json:"title"`
	Summary               string              `json:"summary"`
	URL                   string              `json:"url"`
	Source                string              `json:"source"`
	TimePublished         string              `json:"time_published"`
	OverallSentimentScore *float64            `json:"overall_sentiment_score"`
	TickerSentiment       []avTickerSentiment `json:"ticker_sentiment"`
}

type avTickerSentiment struct {
	Ticker         string `json:"ticker"`
	RelevanceScore string `json:"relevance_score"`
}
