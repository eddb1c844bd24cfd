package news

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"marketlens/internal/model"
)

const newsAPILookback = 7 * 24 * time.Hour

type NewsAPIClient struct {
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
}

func NewNewsAPIClient(apiKey string) *NewsAPIClient {
	return &NewsAPIClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 2),
		now:        time.Now,
	}
}

func (c *NewsAPIClient) Name() string {
	return "NewsAPI"
}

func (c *NewsAPIClient) Source() model.Source {
	return model.SourceNews
}

func (c *NewsAPIClient) Fetch(ctx context.Context, query string, limit int) ([]model.RawItem, error) {
	to := c.now().UTC()
	params := url.Values{}
	params.Set("q", query)
	params.Set("from", to.Add(-newsAPILookback).Format("2006-01-02"))
	params.Set("to", to.Format("2006-01-02"))
	params.Set("sortBy", "publishedAt")
	params.Set("language", "en")
	params.Set("pageSize", strconv.Itoa(min(limit, 100)))

	var raw newsAPIResponse
	headers := map[string]string{"X-Api-Key": c.apiKey}
	if err := getJSON(ctx, c.httpClient, c.limiter, c.Name(), "https://newsapi.org/v2/everything?"+params.Encode(), headers, &raw); err != nil {
		return nil, err
	}

	items := make([]model.RawItem, 0, len(raw.Articles))
	for _, a := range raw.Articles {
		if a.Title == "[Removed]" {
			continue
		}

		publishedAt, err := time.Parse(time.RFC3339, a.PublishedAt)
		if err != nil {
			publishedAt = time.Time{}
		}

		items = append(items, model.RawItem{
			Source:      c.Source(),
			Provider:    c.Name(),
			ExternalID:  generateExternalID(a.URL),
			Title:       a.Title,
			Content:     strings.TrimSpace(a.Description + " " + a.Content),
			URL:         a.URL,
			Author:      a.Author,
			PublishedAt: publishedAt,
		})
		if len(items) >= limit {
			break
		}
	}

	return items, nil
}

type newsAPIResponse struct {
	Status   string           `json:"status"`
	Articles []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}
