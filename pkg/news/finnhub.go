package news

import (
	"context"
	"strconv"
	"strings"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"

	"marketlens/internal/model"
)

type FinnHubClient struct {
	client *finnhub.DefaultApiService
}

func NewFinnHubClient(apiKey string) *FinnHubClient {
	cfg := finnhub.NewConfiguration()
	cfg.AddDefaultHeader("X-Finnhub-Token", apiKey)
	client := finnhub.NewAPIClient(cfg).DefaultApi
	return &FinnHubClient{client: client}
}

func (c *FinnHubClient) Name() string {
	return "FinnHub"
}

func (c *FinnHubClient) Source() model.Source {
	return model.SourceNews
}

// Fetch filters the general market news feed down to items mentioning query.
func (c *FinnHubClient) Fetch(ctx context.Context, query string, limit int) ([]model.RawItem, error) {
	res, _, err := c.client.MarketNews(ctx).Category("general").Execute()
	if err != nil {
		return nil, &FetchError{Provider: c.Name(), RateLimited: strings.Contains(err.Error(), "429"), Err: err}
	}

	var items []model.RawItem

	for _, news := range res {
		item := model.RawItem{
			Source:   c.Source(),
			Provider: c.Name(),
		}

		if news.Id != nil {
			item.ExternalID = strconv.FormatInt(*news.Id, 10)
		}

		if news.Headline != nil {
			item.Title = *news.Headline
		}

		if news.Summary != nil {
			item.Content = *news.Summary
		}

		if news.Url != nil {
			item.URL = *news.Url
		}

		if news.Datetime != nil {
			item.PublishedAt = time.Unix(*news.Datetime, 0).UTC()
		}

		if news.Source != nil {
			item.Author = *news.Source
		}

		var symbols []string
		if news.Related != nil && *news.Related != "" {
			symbols = strings.Split(*news.Related, ",")
		}

		if !mentionsQuery(query, item.Text(), symbols) {
			continue
		}

		items = append(items, item)
		if len(items) >= limit {
			break
		}
	}

	return items, nil
}
