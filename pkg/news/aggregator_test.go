package news

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"marketlens/internal/model"
)

type fakeFetcher struct {
	name   string
	source model.Source
	items  []model.RawItem
	err    error
}

func (f *fakeFetcher) Name() string         { return f.name }
func (f *fakeFetcher) Source() model.Source { return f.source }
func (f *fakeFetcher) Fetch(ctx context.Context, query string, limit int) ([]model.RawItem, error) {
	return f.items, f.err
}

func TestAggregatorFetchers(t *testing.T) {
	news1 := &fakeFetcher{name: "a", source: model.SourceNews}
	news2 := &fakeFetcher{name: "b", source: model.SourceNews}
	reddit := &fakeFetcher{name: "c", source: model.SourceReddit}
	agg := NewAggregator(10, news1, news2, reddit)

	assert.Equal(t, 3, len(agg.Fetchers("")))
	assert.Equal(t, 3, len(agg.Fetchers("all")))
	assert.Equal(t, 2, len(agg.Fetchers("news")))
	assert.Equal(t, 1, len(agg.Fetchers("reddit")))
	assert.Equal(t, 0, len(agg.Fetchers("twitter")))
}

func TestAggregatorFetch_PartialFailure(t *testing.T) {
	base := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	ok := &fakeFetcher{name: "ok", source: model.SourceNews, items: []model.RawItem{
		{Title: "old", URL: "u1", PublishedAt: base.Add(-2 * time.Hour)},
		{Title: "new", URL: "u2", PublishedAt: base},
	}}
	failing := &fakeFetcher{name: "down", source: model.SourceTwitter, err: &FetchError{Provider: "down", RateLimited: true, Err: errors.New("429")}}
	agg := NewAggregator(10, ok, failing)

	results := agg.Fetch(context.Background(), "q", "all")

	assert.Equal(t, 2, len(results))
	assert.Equal(t, "ok", results[0].Provider)
	assert.Equal(t, nil, results[0].Err)
	assert.Equal(t, "down", results[1].Provider)
	assert.Equal(t, true, IsRateLimited(results[1].Err))

	merged := Merge(results)
	assert.Equal(t, 2, len(merged))
	assert.Equal(t, "new", merged[0].Title)
	assert.Equal(t, "old", merged[1].Title)
}

func TestMerge_DedupesAndOrders(t *testing.T) {
	base := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	results := []SourceResult{
		{Items: []model.RawItem{
			{Title: "undated"},
			{Title: "a", URL: "same", PublishedAt: base.Add(-time.Hour)},
		}},
		{Items: []model.RawItem{
			{Title: "a-dup", URL: "same", PublishedAt: base},
			{Title: "b", URL: "other", PublishedAt: base},
		}},
	}

	merged := Merge(results)

	assert.Equal(t, 3, len(merged))
	assert.Equal(t, "b", merged[0].Title)
	assert.Equal(t, "a", merged[1].Title)
	assert.Equal(t, "undated", merged[2].Title)
}
