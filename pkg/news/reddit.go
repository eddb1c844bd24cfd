package news

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"marketlens/internal/model"
)

const redditUserAgent = "marketlens/1.0"

// RedditClient searches public posts. No credentials are needed.
type RedditClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewRedditClient() *RedditClient {
	return &RedditClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

func (c *RedditClient) Name() string {
	return "Reddit"
}

func (c *RedditClient) Source() model.Source {
	return model.SourceReddit
}

func (c *RedditClient) Fetch(ctx context.Context, query string, limit int) ([]model.RawItem, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("sort", "new")
	params.Set("t", "week")
	params.Set("limit", strconv.Itoa(min(limit, 100)))

	var raw redditListing
	headers := map[string]string{"User-Agent": redditUserAgent}
	if err := getJSON(ctx, c.httpClient, c.limiter, c.Name(), "https://www.reddit.com/search.json?"+params.Encode(), headers, &raw); err != nil {
		return nil, err
	}

	items := make([]model.RawItem, 0, len(raw.Data.Children))
	for _, child := range raw.Data.Children {
		post := child.Data

		content := post.Selftext
		if content == "" {
			content = post.Title
		}

		var publishedAt time.Time
		if post.CreatedUTC > 0 {
			publishedAt = time.Unix(int64(post.CreatedUTC), 0).UTC()
		}

		items = append(items, model.RawItem{
			Source:      c.Source(),
			Provider:    c.Name(),
			ExternalID:  post.ID,
			Title:       post.Title,
			Content:     content,
			URL:         "https://reddit.com" + post.Permalink,
			Author:      post.Author,
			PublishedAt: publishedAt,
		})
		if len(items) >= limit {
			break
		}
	}

	return items, nil
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	Permalink  string  `json:"permalink"`
	Author     string  `json:"author"`
	CreatedUTC float64 `json:"created_utc"`
}
