package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"marketlens/internal/model"
)

func TestTwitterFetch(t *testing.T) {
	var gotAuth, gotMax, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotMax = r.URL.Query().Get("max_results")
		gotQuery = r.URL.Query().Get("query")
		w.Write([]byte(`{
			"data":[{"id":"1001","text":"Bullish on $NVDA after earnings","author_id":"7","created_at":"2026-02-28T10:15:00.000Z"}],
			"includes":{"users":[{"id":"7","username":"chipwatcher"}]}
		}`))
	}))
	defer srv.Close()

	client := &TwitterClient{bearerToken: "tok", httpClient: newTestHTTPClient(srv)}

	items, err := client.Fetch(context.Background(), "nvidia", 5)

	assert.Equal(t, nil, err)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "10", gotMax)
	assert.Equal(t, "nvidia lang:en -is:retweet", gotQuery)
	assert.Equal(t, 1, len(items))

	tw := items[0]
	assert.Equal(t, model.SourceTwitter, tw.Source)
	assert.Equal(t, "chipwatcher", tw.Author)
	assert.Equal(t, "https://twitter.com/chipwatcher/status/1001", tw.URL)
	assert.Equal(t, "Bullish on $NVDA after earnings", tw.Content)
	assert.Equal(t, time.Date(2026, time.February, 28, 10, 15, 0, 0, time.UTC), tw.PublishedAt.UTC())
}
