package analysis

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"marketlens/internal/model"
)

// Result holds the four independent aggregator outputs of one run.
type Result struct {
	Quality   *model.QualityMetrics
	Sentiment *model.SentimentResult
	Trend     *model.TrendResult
	Signals   model.SignalSet
	Themes    []string
}

type Analyzer struct {
	signals *Matcher
	themes  *Matcher
	window  time.Duration
}

func NewAnalyzer(trendWindow time.Duration) *Analyzer {
	if trendWindow <= 0 {
		trendWindow = DefaultTrendWindow
	}
	return &Analyzer{
		signals: DefaultSignalMatcher(),
		themes:  DefaultThemeMatcher(),
		window:  trendWindow,
	}
}

// Analyze runs the aggregators concurrently. They share no mutable state;
// each goroutine writes only its own field of the result.
func (a *Analyzer) Analyze(ctx context.Context, items []model.RawItem, now time.Time) (*Result, error) {
	res := &Result{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		q := ScoreQuality(items, now)
		res.Quality = &q
		return ctx.Err()
	})
	g.Go(func() error {
		s := AggregateSentiment(items)
		res.Sentiment = &s
		return ctx.Err()
	})
	g.Go(func() error {
		t := AggregateTrend(a.signals, items, now, a.window)
		res.Trend = &t
		return ctx.Err()
	})
	g.Go(func() error {
		res.Signals = ExtractSignals(a.signals, items)
		res.Themes = RankThemes(a.themes, items)
		return ctx.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}
