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

type TwitterClient struct {
	bearerToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

func NewTwitterClient(bearerToken string) *TwitterClient {
	return &TwitterClient{
		bearerToken: bearerToken,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		// recent search allows 450 requests per 15 minutes
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
}

func (c *TwitterClient) Name() string {
	return "Twitter"
}

func (c *TwitterClient) Source() model.Source {
	return model.SourceTwitter
}

func (c *TwitterClient) Fetch(ctx context.Context, query string, limit int) ([]model.RawItem, error) {
	params := url.Values{}
	params.Set("query", query+" lang:en -is:retweet")
	// the endpoint accepts 10..100
	params.Set("max_results", strconv.Itoa(max(10, min(limit, 100))))
	params.Set("tweet.fields", "created_at,author_id")
	params.Set("expansions", "author_id")
	params.Set("user.fields", "username")

	var raw twitterSearchResponse
	headers := map[string]string{"Authorization": "Bearer " + c.bearerToken}
	if err := getJSON(ctx, c.httpClient, c.limiter, c.Name(), "https://api.twitter.com/2/tweets/search/recent?"+params.Encode(), headers, &raw); err != nil {
		return nil, err
	}

	usernames := make(map[string]string, len(raw.Includes.Users))
	for _, u := range raw.Includes.Users {
		usernames[u.ID] = u.Username
	}

	items := make([]model.RawItem, 0, len(raw.Data))
	for _, tw := range raw.Data {
		author := usernames[tw.AuthorID]
		handle := author
		if handle == "" {
			handle = "i"
		}

		items = append(items, model.RawItem{
			Source:      c.Source(),
			Provider:    c.Name(),
			ExternalID:  tw.ID,
			Title:       truncate(tw.Text, 100),
			Content:     tw.Text,
			URL:         "https://twitter.com/" + handle + "/status/" + tw.ID,
			Author:      author,
			PublishedAt: tw.CreatedAt,
		})
		if len(items) >= limit {
			break
		}
	}

	return items, nil
}

type twitterSearchResponse struct {
	Data []struct {
		ID        string    `json:"id"`
		Text      string    `json:"text"`
		AuthorID  string    `json:"author_id"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"users"`
	} `json:"includes"`
}
