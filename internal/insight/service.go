package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"marketlens/internal/analysis"
	"marketlens/internal/model"
	"marketlens/pkg/llm"
	"marketlens/pkg/news"
)

const MaxQueryLength = 500

const (
	DefaultTTL        = 24 * time.Hour
	DefaultLLMTimeout = 300 * time.Second
)

type QueryStore interface {
	CreateQuery(ctx context.Context, q *model.HistoricalQuery) error
	FindFreshCompleted(ctx context.Context, normalizedQuery, sourceFilter string, since time.Time) (*model.HistoricalQuery, error)
	GetQuery(ctx context.Context, id int64) (*model.HistoricalQuery, error)
	CompleteQuery(ctx context.Context, id int64, c *model.Completion) error
	MarkFailed(ctx context.Context, id int64, errorMessage string, processingTime float64) error
}

type UsageRecorder interface {
	SaveUsage(ctx context.Context, u *model.ApiUsage) error
}

// SourceFetcher is satisfied by *news.Aggregator.
type SourceFetcher interface {
	Fetch(ctx context.Context, query, filter string) []news.SourceResult
}

type SearchRequest struct {
	Query  string
	Source string
}

// SearchResponse carries the serialized result exactly as stored.
type SearchResponse struct {
	QueryID int64
	Results json.RawMessage
	Cached  bool
}

type SourceStatus struct {
	Provider string       `json:"provider"`
	Source   model.Source `json:"source"`
	Items    int          `json:"items"`
	Error    string       `json:"error,omitempty"`
}

// Result is the document persisted in historical_queries.results and
// returned by the search endpoint.
type Result struct {
	QueryID        int64                 `json:"query_id"`
	Query          string                `json:"query"`
	Source         string                `json:"source"`
	Insights       llm.Insights          `json:"insights"`
	Sentiment      model.SentimentResult `json:"sentiment"`
	Trends         model.TrendResult     `json:"trends"`
	DataQuality    model.QualityMetrics  `json:"data_quality"`
	MarketSignals  model.SignalSet       `json:"market_signals"`
	KeyThemes      []string              `json:"key_themes"`
	DataPoints     int                   `json:"data_points"`
	Sources        []SourceStatus        `json:"sources"`
	ModelUsed      string                `json:"model_used"`
	PromptVersion  string                `json:"prompt_version,omitempty"`
	ProcessingTime float64               `json:"processing_time"`
	GeneratedAt    time.Time             `json:"generated_at"`
}

type Service struct {
	store    QueryStore
	usage    UsageRecorder
	fetcher  SourceFetcher
	llm      llm.InsightsClient
	analyzer *analysis.Analyzer
	cache    HotCache
	fallback FallbackPolicy

	ttl         time.Duration
	llmTimeout  time.Duration
	trendWindow time.Duration
	now         func() time.Time

	group singleflight.Group
}

type Option func(*Service)

func WithHotCache(c HotCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

func WithLLMTimeout(d time.Duration) Option {
	return func(s *Service) { s.llmTimeout = d }
}

func WithTrendWindow(d time.Duration) Option {
	return func(s *Service) { s.trendWindow = d }
}

func WithFallbackPolicy(p FallbackPolicy) Option {
	return func(s *Service) { s.fallback = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store QueryStore, usage UsageRecorder, fetcher SourceFetcher, llmClient llm.InsightsClient, opts ...Option) *Service {
	s := &Service{
		store:      store,
		usage:      usage,
		fetcher:    fetcher,
		llm:        llmClient,
		fallback:   DefaultFallbackPolicy(),
		ttl:        DefaultTTL,
		llmTimeout: DefaultLLMTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.analyzer = analysis.NewAnalyzer(s.trendWindow)
	return s
}

// NormalizeQuery trims, lowercases and collapses inner whitespace.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

func validate(req SearchRequest) (query, source string, err error) {
	query = strings.TrimSpace(req.Query)
	if query == "" {
		return "", "", newError(CodeInvalidRequest, "query is required", nil)
	}
	if n := utf8.RuneCountInString(query); n > MaxQueryLength {
		e := newError(CodeInvalidRequest, fmt.Sprintf("query must be at most %d characters", MaxQueryLength), nil)
		e.Details = map[string]any{"max_length": MaxQueryLength, "length": n}
		return "", "", e
	}

	source = strings.ToLower(strings.TrimSpace(req.Source))
	if !model.ValidSourceFilter(source) {
		e := newError(CodeInvalidRequest, "unsupported source", nil)
		e.Details = map[string]any{"source": req.Source, "allowed": []string{model.SourceAll, string(model.SourceNews), string(model.SourceTwitter), string(model.SourceReddit)}}
		return "", "", e
	}
	if source == "" {
		source = model.SourceAll
	}
	return query, source, nil
}

// Search serves a completed result for the query when one is fresh and runs
// the pipeline otherwise. Identical in-flight searches share one run.
func (s *Service) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	query, source, err := validate(req)
	if err != nil {
		return nil, err
	}
	normalized := NormalizeQuery(query)

	// The run outlives a disconnecting caller so that joined callers still
	// get the result.
	runCtx := context.WithoutCancel(ctx)
	v, err, shared := s.group.Do(normalized+"|"+source, func() (any, error) {
		return s.search(runCtx, query, normalized, source)
	})
	if err != nil {
		return nil, err
	}

	resp := v.(*SearchResponse)
	if shared {
		slog.Info("joined in-flight search", "query_id", resp.QueryID, "source", source)
	}
	return resp, nil
}

func (s *Service) search(ctx context.Context, query, normalized, source string) (*SearchResponse, error) {
	hit, err := s.lookup(ctx, normalized, source)
	if err != nil {
		return nil, err
	}
	if hit != nil {
		slog.Info("insight cache hit", "query_id", hit.ID, "source", source)
		return &SearchResponse{QueryID: hit.ID, Results: hit.Results, Cached: true}, nil
	}

	return s.run(ctx, query, normalized, source)
}

// lookup checks the hot cache first, then the store.
func (s *Service) lookup(ctx context.Context, normalized, source string) (*model.HistoricalQuery, error) {
	now := s.now()
	since := now.Add(-s.ttl)
	key := CacheKey(normalized, source)

	if s.cache != nil {
		id, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			slog.Warn("hot cache read failed", "error", err)
		}
		if ok {
			q, err := s.store.GetQuery(ctx, id)
			if err != nil {
				return nil, newError(CodeDatabaseError, "failed to read cached query", err)
			}
			if s.fresh(q, since) {
				return q, nil
			}
		}
	}

	q, err := s.store.FindFreshCompleted(ctx, normalized, source, since)
	if err != nil {
		return nil, newError(CodeDatabaseError, "failed to look up cached query", err)
	}
	if !s.fresh(q, since) {
		return nil, nil
	}

	// A zero expiry would make the pointer permanent.
	if remaining := q.CreatedAt.Add(s.ttl).Sub(now); s.cache != nil && remaining > 0 {
		if err := s.cache.Set(ctx, key, q.ID, remaining); err != nil {
			slog.Warn("hot cache write failed", "error", err)
		}
	}
	return q, nil
}

func (s *Service) fresh(q *model.HistoricalQuery, since time.Time) bool {
	return q != nil && q.Status == model.StatusCompleted && len(q.Results) > 0 && !q.CreatedAt.Before(since)
}

func (s *Service) run(ctx context.Context, query, normalized, source string) (*SearchResponse, error) {
	start := s.now()

	hq := &model.HistoricalQuery{Query: query, NormalizedQuery: normalized, SourceFilter: source}
	if err := s.store.CreateQuery(ctx, hq); err != nil {
		return nil, newError(CodeDatabaseError, "failed to create query", err)
	}

	results := s.fetcher.Fetch(ctx, query, source)
	statuses := make([]SourceStatus, 0, len(results))
	succeeded, rateLimited := 0, false
	for _, r := range results {
		s.recordFetchUsage(ctx, r)

		st := SourceStatus{Provider: r.Provider, Source: r.Source, Items: len(r.Items)}
		if r.Err != nil {
			st.Error = "unavailable"
			if news.IsRateLimited(r.Err) {
				st.Error = "rate limited"
				rateLimited = true
			}
		} else {
			succeeded++
		}
		statuses = append(statuses, st)
	}

	if succeeded == 0 {
		if rateLimited {
			return nil, s.fail(ctx, hq.ID, start, newError(CodeRateLimited, "all sources are rate limited", nil))
		}
		return nil, s.fail(ctx, hq.ID, start, newError(CodeUpstreamUnavailable, "no data source is available", nil))
	}

	items := news.Merge(results)
	now := s.now()
	ar, err := s.analyzer.Analyze(ctx, items, now)
	if err != nil {
		return nil, s.fail(ctx, hq.ID, start, newError(CodeProcessingError, "analysis failed", err))
	}
	actx := analysis.Assemble(query, items, ar)

	insights, modelUsed, promptVersion, genErr := s.generate(ctx, query, actx.Text, ar)
	if genErr != nil {
		return nil, s.fail(ctx, hq.ID, start, genErr)
	}

	processingTime := clampProcessingTime(s.now().Sub(start))
	result := Result{
		QueryID:        hq.ID,
		Query:          query,
		Source:         source,
		Insights:       insights,
		Sentiment:      *ar.Sentiment,
		Trends:         *ar.Trend,
		DataQuality:    *ar.Quality,
		MarketSignals:  ar.Signals,
		KeyThemes:      ar.Themes,
		DataPoints:     len(items),
		Sources:        statuses,
		ModelUsed:      modelUsed,
		PromptVersion:  promptVersion,
		ProcessingTime: processingTime,
		GeneratedAt:    now.UTC(),
	}

	body, err := json.Marshal(result)
	if err != nil {
		return nil, s.fail(ctx, hq.ID, start, newError(CodeProcessingError, "failed to serialize result", err))
	}

	completion := &model.Completion{
		Results:         body,
		Summary:         insights.Summary,
		DataPointsCount: len(items),
		ProcessingTime:  processingTime,
		Items:           items,
		Sentiment:       *ar.Sentiment,
		Trend:           *ar.Trend,
		Insights:        marketInsights(insights),
	}
	if err := s.store.CompleteQuery(ctx, hq.ID, completion); err != nil {
		return nil, s.fail(ctx, hq.ID, start, newError(CodeDatabaseError, "failed to store results", err))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, CacheKey(normalized, source), hq.ID, s.ttl); err != nil {
			slog.Warn("hot cache write failed", "query_id", hq.ID, "error", err)
		}
	}

	slog.Info("search completed", "query_id", hq.ID, "source", source, "data_points", len(items), "processing_time", processingTime, "fallback_mode", insights.FallbackMode)
	return &SearchResponse{QueryID: hq.ID, Results: body}, nil
}

// generate calls the LLM under the configured timeout. A timeout is fatal;
// any other LLM failure degrades to fallback insights.
func (s *Service) generate(ctx context.Context, query, contextText string, ar *analysis.Result) (llm.Insights, string, string, *Error) {
	llmCtx, cancel := context.WithTimeout(ctx, s.llmTimeout)
	defer cancel()

	started := time.Now()
	res, err := s.llm.GenerateInsights(llmCtx, llm.InsightsRequest{Query: query, Context: contextText})

	usage := &model.ApiUsage{
		ApiName:      s.llm.Name(),
		Endpoint:     "insights",
		ResponseTime: time.Since(started).Seconds(),
		StatusCode:   http.StatusOK,
	}
	if res != nil {
		usage.TokensUsed = res.TokensUsed
	}
	if err != nil {
		usage.StatusCode = 0
		usage.ErrorMessage = err.Error()
	}
	s.recordUsage(ctx, usage)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(llmCtx.Err(), context.DeadlineExceeded) {
			return llm.Insights{}, "", "", newError(CodeLLMTimeout, fmt.Sprintf("insight generation exceeded %s", s.llmTimeout), err)
		}
		slog.Warn("llm failed, using fallback insights", "provider", s.llm.Name(), "error", err)
		return s.fallback.Insights(query, ar), "fallback", "", nil
	}

	return res.Insights, res.ModelUsed, res.PromptVersion, nil
}

// fail marks the query failed and returns e for the caller.
func (s *Service) fail(ctx context.Context, id int64, start time.Time, e *Error) *Error {
	slog.Error("search failed", "query_id", id, "code", e.Code, "error", e)

	msg := string(e.Code) + ": " + e.Message
	if err := s.store.MarkFailed(ctx, id, msg, clampProcessingTime(s.now().Sub(start))); err != nil {
		slog.Error("failed to mark query failed", "query_id", id, "error", err)
	}
	return e
}

func (s *Service) recordFetchUsage(ctx context.Context, r news.SourceResult) {
	u := &model.ApiUsage{
		ApiName:      r.Provider,
		Endpoint:     string(r.Source),
		ResponseTime: r.Elapsed.Seconds(),
		StatusCode:   http.StatusOK,
	}
	if r.Err != nil {
		u.StatusCode = 0
		u.ErrorMessage = r.Err.Error()
		var fe *news.FetchError
		if errors.As(r.Err, &fe) && fe.StatusCode != 0 {
			u.StatusCode = fe.StatusCode
		}
	}
	s.recordUsage(ctx, u)
}

func (s *Service) recordUsage(ctx context.Context, u *model.ApiUsage) {
	if s.usage == nil {
		return
	}
	if err := s.usage.SaveUsage(ctx, u); err != nil {
		slog.Warn("failed to record api usage", "api_name", u.ApiName, "error", err)
	}
}

func clampProcessingTime(d time.Duration) float64 {
	secs := d.Seconds()
	if secs < 0 {
		return 0
	}
	if secs > model.MaxProcessingSeconds {
		return model.MaxProcessingSeconds
	}
	return secs
}

func marketInsights(in llm.Insights) []model.MarketInsight {
	out := make([]model.MarketInsight, 0, len(in.Opportunities)+len(in.Risks))
	for _, o := range in.Opportunities {
		out = append(out, model.MarketInsight{
			Type:        model.InsightTypeOpportunity,
			Title:       o.Opportunity,
			Description: o.SupportingEvidence,
			ImpactLevel: orDefault(o.PotentialImpact, "medium"),
			Timeframe:   o.Timeframe,
		})
	}
	for _, r := range in.Risks {
		out = append(out, model.MarketInsight{
			Type:        model.InsightTypeRisk,
			Title:       r.Risk,
			Description: r.Mitigation,
			ImpactLevel: orDefault(r.Impact, "medium"),
		})
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
