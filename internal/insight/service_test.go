package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"marketlens/internal/model"
	"marketlens/pkg/llm"
	"marketlens/pkg/news"
)

type fakeStore struct {
	mu          sync.Mutex
	nextID      int64
	queries     map[int64]*model.HistoricalQuery
	completions map[int64]*model.Completion
	completeErr error
	now         func() time.Time
}

func newFakeStore(now func() time.Time) *fakeStore {
	return &fakeStore{
		queries:     make(map[int64]*model.HistoricalQuery),
		completions: make(map[int64]*model.Completion),
		now:         now,
	}
}

func (f *fakeStore) CreateQuery(ctx context.Context, q *model.HistoricalQuery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	q.ID = f.nextID
	q.Status = model.StatusProcessing
	q.CreatedAt = f.now()
	q.UpdatedAt = q.CreatedAt
	stored := *q
	f.queries[q.ID] = &stored
	return nil
}

func (f *fakeStore) FindFreshCompleted(ctx context.Context, normalizedQuery, sourceFilter string, since time.Time) (*model.HistoricalQuery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *model.HistoricalQuery
	for _, q := range f.queries {
		if q.NormalizedQuery != normalizedQuery || q.SourceFilter != sourceFilter || q.Status != model.StatusCompleted || q.CreatedAt.Before(since) {
			continue
		}
		if best == nil || q.ID > best.ID {
			best = q
		}
	}
	if best == nil {
		return nil, nil
	}
	out := *best
	return &out, nil
}

func (f *fakeStore) GetQuery(ctx context.Context, id int64) (*model.HistoricalQuery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.queries[id]
	if !ok {
		return nil, nil
	}
	out := *q
	return &out, nil
}

func (f *fakeStore) CompleteQuery(ctx context.Context, id int64, c *model.Completion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return f.completeErr
	}
	q := f.queries[id]
	if q.Status != model.StatusProcessing {
		return errors.New("not processing")
	}
	q.Status = model.StatusCompleted
	q.Results = c.Results
	q.Summary = c.Summary
	q.ProcessingTime = c.ProcessingTime
	f.completions[id] = c
	return nil
}

func (f *fakeStore) MarkFailed(ctx context.Context, id int64, errorMessage string, processingTime float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.queries[id]
	q.Status = model.StatusFailed
	q.ErrorMessage = errorMessage
	q.ProcessingTime = processingTime
	return nil
}

type fakeUsage struct {
	mu      sync.Mutex
	entries []model.ApiUsage
}

func (f *fakeUsage) SaveUsage(ctx context.Context, u *model.ApiUsage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *u)
	return nil
}

type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	results []news.SourceResult
}

func (f *fakeFetcher) Fetch(ctx context.Context, query, filter string) []news.SourceResult {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.results
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeLLM struct {
	mu       sync.Mutex
	calls    int
	err      error
	block    bool
	insights llm.Insights
}

func (f *fakeLLM) Name() string { return "fake-llm" }

func (f *fakeLLM) GenerateInsights(ctx context.Context, req llm.InsightsRequest) (*llm.InsightsResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, fmt.Errorf("fake llm: %w", ctx.Err())
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llm.InsightsResult{Insights: f.insights, ModelUsed: "fake-model", TokensUsed: 42}, nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCache struct {
	mu   sync.Mutex
	keys map[string]int64
	ttls map[string]time.Duration
}

func (f *fakeCache) Get(ctx context.Context, key string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.keys[key]
	return id, ok, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, queryID int64, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[key] = queryID
	if f.ttls == nil {
		f.ttls = make(map[string]time.Duration)
	}
	f.ttls[key] = ttl
	return nil
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	clock   *clock
	store   *fakeStore
	usage   *fakeUsage
	fetcher *fakeFetcher
	llm     *fakeLLM
	service *Service
}

func newFixture(opts ...Option) *fixture {
	clk := &clock{t: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)}
	f := &fixture{
		clock: clk,
		store: newFakeStore(clk.Now),
		usage: &fakeUsage{},
		fetcher: &fakeFetcher{results: []news.SourceResult{
			{
				Provider: "NewsAPI",
				Source:   model.SourceNews,
				Items: []model.RawItem{
					{Source: model.SourceNews, Title: "Tesla sales surge", Content: "Strong growth in deliveries.", URL: "https://example.com/1", PublishedAt: clk.Now().Add(-time.Hour)},
					{Source: model.SourceNews, Title: "Tesla faces regulation", Content: "New policy may slow expansion.", URL: "https://example.com/2", PublishedAt: clk.Now().Add(-48 * time.Hour)},
				},
			},
			{
				Provider: "Reddit",
				Source:   model.SourceReddit,
				Err:      &news.FetchError{Provider: "Reddit", StatusCode: 503, Err: errors.New("down")},
			},
		}},
		llm: &fakeLLM{insights: llm.Insights{
			Summary:         "Tesla momentum is building.",
			KeyFindings:     []string{"Deliveries up"},
			MarketSentiment: "positive",
			ConfidenceScore: 0.8,
			Opportunities:   []llm.Opportunity{{Opportunity: "Energy storage", PotentialImpact: "high"}},
			Risks:           []llm.Risk{{Risk: "Regulation", Impact: "medium"}},
			Recommendations: []string{"Watch deliveries"},
		}},
	}
	opts = append([]Option{WithClock(clk.Now)}, opts...)
	f.service = NewService(f.store, f.usage, f.fetcher, f.llm, opts...)
	return f
}

func decodeResult(t *testing.T, raw json.RawMessage) Result {
	t.Helper()
	var r Result
	if err := json.Unmarshal(raw, &r); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return r
}

func TestSearch_CacheHitReturnsSameResult(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.service.Search(ctx, SearchRequest{Query: "  Tesla ", Source: "all"})
	assert.Equal(t, nil, err)
	assert.Equal(t, false, first.Cached)

	f.clock.Advance(2 * time.Hour)
	second, err := f.service.Search(ctx, SearchRequest{Query: "tesla", Source: ""})
	assert.Equal(t, nil, err)

	assert.Equal(t, true, second.Cached)
	assert.Equal(t, first.QueryID, second.QueryID)
	assert.Equal(t, string(first.Results), string(second.Results))
	assert.Equal(t, 1, f.llm.callCount())
	assert.Equal(t, 1, f.fetcher.callCount())

	r := decodeResult(t, second.Results)
	assert.Equal(t, first.QueryID, r.QueryID)
	assert.Equal(t, "Tesla", r.Query)
	assert.Equal(t, "all", r.Source)
	assert.Equal(t, 2, r.DataPoints)
	assert.Equal(t, "fake-model", r.ModelUsed)
	assert.Equal(t, false, r.Insights.FallbackMode)
}

func TestSearch_ExpiredEntryCreatesNewQuery(t *testing.T) {
	f := newFixture(WithTTL(24 * time.Hour))
	ctx := context.Background()

	first, err := f.service.Search(ctx, SearchRequest{Query: "tesla"})
	assert.Equal(t, nil, err)

	f.clock.Advance(25 * time.Hour)
	second, err := f.service.Search(ctx, SearchRequest{Query: "tesla"})
	assert.Equal(t, nil, err)

	assert.Equal(t, false, second.Cached)
	assert.NotEqual(t, first.QueryID, second.QueryID)
	assert.Equal(t, 2, f.llm.callCount())
}

func TestSearch_SourceFilterIsPartOfKey(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	all, err := f.service.Search(ctx, SearchRequest{Query: "tesla", Source: "all"})
	assert.Equal(t, nil, err)
	newsOnly, err := f.service.Search(ctx, SearchRequest{Query: "tesla", Source: "News"})
	assert.Equal(t, nil, err)

	assert.NotEqual(t, all.QueryID, newsOnly.QueryID)
	assert.Equal(t, "news", f.store.queries[newsOnly.QueryID].SourceFilter)
}

func TestSearch_HotCacheHit(t *testing.T) {
	cache := &fakeCache{keys: make(map[string]int64)}
	f := newFixture(WithHotCache(cache))
	ctx := context.Background()

	first, err := f.service.Search(ctx, SearchRequest{Query: "tesla"})
	assert.Equal(t, nil, err)
	assert.Equal(t, first.QueryID, cache.keys[CacheKey("tesla", "all")])

	second, err := f.service.Search(ctx, SearchRequest{Query: "TESLA"})
	assert.Equal(t, nil, err)
	assert.Equal(t, true, second.Cached)
	assert.Equal(t, first.QueryID, second.QueryID)
}

func TestSearch_HotCacheBackfillUsesRemainingTTL(t *testing.T) {
	cache := &fakeCache{keys: make(map[string]int64)}
	f := newFixture(WithHotCache(cache), WithTTL(24*time.Hour))
	ctx := context.Background()
	key := CacheKey("tesla", "all")

	first, err := f.service.Search(ctx, SearchRequest{Query: "tesla"})
	assert.Equal(t, nil, err)

	delete(cache.keys, key)
	f.clock.Advance(2 * time.Hour)
	_, err = f.service.Search(ctx, SearchRequest{Query: "tesla"})
	assert.Equal(t, nil, err)
	assert.Equal(t, first.QueryID, cache.keys[key])
	assert.Equal(t, 22*time.Hour, cache.ttls[key])

	delete(cache.keys, key)
	f.clock.Advance(22 * time.Hour)
	second, err := f.service.Search(ctx, SearchRequest{Query: "tesla"})
	assert.Equal(t, nil, err)
	assert.Equal(t, true, second.Cached)
	assert.Equal(t, first.QueryID, second.QueryID)

	_, ok := cache.keys[key]
	assert.Equal(t, false, ok)
}

func TestSearch_ConcurrentIdenticalRequestsShareOneRun(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]int64, 4)
	for i := range ids {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := f.service.Search(ctx, SearchRequest{Query: "tesla"})
			if err == nil {
				ids[i] = resp.QueryID
			}
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, f.llm.callCount())
}

func TestSearch_LLMTimeoutFailsWithoutDependentRows(t *testing.T) {
	f := newFixture(WithLLMTimeout(20 * time.Millisecond))
	f.llm.block = true

	resp, err := f.service.Search(context.Background(), SearchRequest{Query: "tesla"})

	assert.Equal(t, true, resp == nil)
	assert.Equal(t, CodeLLMTimeout, AsError(err).Code)

	q := f.store.queries[1]
	assert.Equal(t, model.StatusFailed, q.Status)
	assert.Equal(t, true, strings.HasPrefix(q.ErrorMessage, "LLM_TIMEOUT"))
	assert.Equal(t, 0, len(f.store.completions))
}

func TestSearch_PersistenceFailureMarksFailed(t *testing.T) {
	cache := &fakeCache{keys: make(map[string]int64)}
	f := newFixture(WithHotCache(cache))
	f.store.completeErr = errors.New("value too long for type character varying(20)")

	resp, err := f.service.Search(context.Background(), SearchRequest{Query: "tesla"})

	assert.Equal(t, true, resp == nil)
	e := AsError(err)
	assert.Equal(t, CodeDatabaseError, e.Code)
	assert.Equal(t, false, strings.Contains(e.Message, "character varying"))

	q := f.store.queries[1]
	assert.Equal(t, model.StatusFailed, q.Status)
	assert.Equal(t, true, strings.HasPrefix(q.ErrorMessage, "DATABASE_ERROR"))
	assert.Equal(t, 0, len(q.Results))
	assert.Equal(t, 0, len(f.store.completions))
	assert.Equal(t, 0, len(cache.keys))
}

func TestSearch_MalformedLLMResponseFallsBack(t *testing.T) {
	f := newFixture()
	f.llm.err = fmt.Errorf("%w: not json", llm.ErrMalformedResponse)

	resp, err := f.service.Search(context.Background(), SearchRequest{Query: "tesla"})
	assert.Equal(t, nil, err)

	r := decodeResult(t, resp.Results)
	assert.Equal(t, true, r.Insights.FallbackMode)
	assert.Equal(t, 0.3, r.Insights.ConfidenceScore)
	assert.Equal(t, "fallback", r.ModelUsed)
	assert.Equal(t, true, strings.Contains(r.Insights.Summary, `"tesla"`))
	assert.Equal(t, model.StatusCompleted, f.store.queries[resp.QueryID].Status)
}

func TestSearch_CustomFallbackPolicy(t *testing.T) {
	policy := DefaultFallbackPolicy()
	policy.Confidence = 0.1
	f := newFixture(WithFallbackPolicy(policy))
	f.llm.err = errors.New("provider exploded")

	resp, err := f.service.Search(context.Background(), SearchRequest{Query: "tesla"})
	assert.Equal(t, nil, err)

	r := decodeResult(t, resp.Results)
	assert.Equal(t, 0.1, r.Insights.ConfidenceScore)
}

func TestSearch_RejectsInvalidRequestsBeforeAnyWork(t *testing.T) {
	tests := []struct {
		name string
		req  SearchRequest
	}{
		{"empty", SearchRequest{Query: "   "}},
		{"too long", SearchRequest{Query: strings.Repeat("a", 501)}},
		{"unknown source", SearchRequest{Query: "tesla", Source: "facebook"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			resp, err := f.service.Search(context.Background(), tt.req)

			assert.Equal(t, true, resp == nil)
			assert.Equal(t, CodeInvalidRequest, AsError(err).Code)
			assert.Equal(t, 0, f.fetcher.callCount())
			assert.Equal(t, 0, f.llm.callCount())
			assert.Equal(t, 0, len(f.store.queries))
		})
	}
}

func TestSearch_AcceptsMaxLengthQuery(t *testing.T) {
	f := newFixture()

	_, err := f.service.Search(context.Background(), SearchRequest{Query: strings.Repeat("é", 500)})

	assert.Equal(t, nil, err)
}

func TestSearch_AllSourcesFailing(t *testing.T) {
	tests := []struct {
		name    string
		results []news.SourceResult
		want    Code
	}{
		{
			name: "rate limited",
			results: []news.SourceResult{
				{Provider: "NewsAPI", Err: &news.FetchError{Provider: "NewsAPI", StatusCode: 429, RateLimited: true, Err: errors.New("429")}},
				{Provider: "Reddit", Err: errors.New("timeout")},
			},
			want: CodeRateLimited,
		},
		{
			name:    "unavailable",
			results: []news.SourceResult{{Provider: "Reddit", Err: errors.New("timeout")}},
			want:    CodeUpstreamUnavailable,
		},
		{
			name:    "no fetcher for filter",
			results: nil,
			want:    CodeUpstreamUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.fetcher.results = tt.results

			_, err := f.service.Search(context.Background(), SearchRequest{Query: "tesla"})

			assert.Equal(t, tt.want, AsError(err).Code)
			assert.Equal(t, model.StatusFailed, f.store.queries[1].Status)
			assert.Equal(t, 0, f.llm.callCount())
		})
	}
}

func TestSearch_PersistsCompletionAndUsage(t *testing.T) {
	f := newFixture()

	resp, err := f.service.Search(context.Background(), SearchRequest{Query: "tesla"})
	assert.Equal(t, nil, err)

	c := f.store.completions[resp.QueryID]
	assert.Equal(t, 2, len(c.Items))
	assert.Equal(t, 2, c.DataPointsCount)
	assert.Equal(t, "Tesla momentum is building.", c.Summary)
	assert.Equal(t, 2, len(c.Insights))
	assert.Equal(t, model.InsightTypeOpportunity, c.Insights[0].Type)
	assert.Equal(t, model.InsightTypeRisk, c.Insights[1].Type)
	assert.Equal(t, true, c.ProcessingTime >= 0 && c.ProcessingTime <= model.MaxProcessingSeconds)

	// two sources plus the LLM call
	assert.Equal(t, 3, len(f.usage.entries))
	assert.Equal(t, 503, f.usage.entries[1].StatusCode)
	assert.Equal(t, "fake-llm", f.usage.entries[2].ApiName)
	assert.Equal(t, int64(42), f.usage.entries[2].TokensUsed)

	r := decodeResult(t, resp.Results)
	assert.Equal(t, 2, len(r.Sources))
	assert.Equal(t, "unavailable", r.Sources[1].Error)
}

func TestClampProcessingTime(t *testing.T) {
	assert.Equal(t, 0.0, clampProcessingTime(-time.Second))
	assert.Equal(t, 1.5, clampProcessingTime(1500*time.Millisecond))
	assert.Equal(t, 300.0, clampProcessingTime(10*time.Minute))
}

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "electric vehicles", NormalizeQuery("  Electric   VEHICLES\t"))
}

func TestCacheKey(t *testing.T) {
	k := CacheKey("tesla", "news")
	assert.Equal(t, true, strings.HasPrefix(k, "marketlens:insight:news:"))
	assert.Equal(t, len("marketlens:insight:news:")+64, len(k))
	assert.NotEqual(t, k, CacheKey("tesla", "all"))
}
