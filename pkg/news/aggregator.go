package news

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"marketlens/internal/model"
)

// SourceResult is the outcome of one fetcher within an aggregated fetch.
type SourceResult struct {
	Provider string
	Source   model.Source
	Items    []model.RawItem
	Err      error
	Elapsed  time.Duration
}

type Aggregator struct {
	fetchers []Fetcher
	limit    int
}

func NewAggregator(limit int, fetchers ...Fetcher) *Aggregator {
	return &Aggregator{fetchers: fetchers, limit: limit}
}

// Fetchers returns the registered fetchers matching filter. An empty filter
// or "all" matches every fetcher.
func (a *Aggregator) Fetchers(filter string) []Fetcher {
	if filter == "" || filter == model.SourceAll {
		return a.fetchers
	}

	var out []Fetcher
	for _, f := range a.fetchers {
		if string(f.Source()) == filter {
			out = append(out, f)
		}
	}
	return out
}

// Fetch queries every matching fetcher concurrently. Results keep fetcher
// registration order; a failing fetcher never affects the others.
func (a *Aggregator) Fetch(ctx context.Context, query, filter string) []SourceResult {
	fetchers := a.Fetchers(filter)
	results := make([]SourceResult, len(fetchers))

	var g errgroup.Group
	for i, f := range fetchers {
		i, f := i, f
		g.Go(func() error {
			start := time.Now()
			items, err := f.Fetch(ctx, query, a.limit)
			results[i] = SourceResult{
				Provider: f.Name(),
				Source:   f.Source(),
				Items:    items,
				Err:      err,
				Elapsed:  time.Since(start),
			}
			if err != nil {
				slog.Error("source fetch failed", "provider", f.Name(), "source", f.Source(), "error", err)
			}
			return nil
		})
	}
	g.Wait()

	return results
}

// Merge unions the items of all results, drops duplicate URLs and sorts by
// publication time, newest first. Undated items go last.
func Merge(results []SourceResult) []model.RawItem {
	seen := make(map[string]bool)
	var items []model.RawItem
	for _, r := range results {
		for _, item := range r.Items {
			if item.URL != "" {
				if seen[item.URL] {
					continue
				}
				seen[item.URL] = true
			}
			items = append(items, item)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].PublishedAt, items[j].PublishedAt
		if a.IsZero() != b.IsZero() {
			return !a.IsZero()
		}
		return a.After(b)
	})
	return items
}
