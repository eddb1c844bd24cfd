package model

import "time"

type SignalCategory string

const (
	SignalVolume      SignalCategory = "volume"
	SignalPrice       SignalCategory = "price"
	SignalRegulatory  SignalCategory = "regulatory"
	SignalInnovation  SignalCategory = "innovation"
	SignalCompetitive SignalCategory = "competitive"
)

// SignalCategories is the fixed rendering and iteration order.
var SignalCategories = []SignalCategory{
	SignalVolume,
	SignalPrice,
	SignalRegulatory,
	SignalInnovation,
	SignalCompetitive,
}

// SignalSet maps each category to the snippets that matched it.
type SignalSet map[SignalCategory][]string

type QualityMetrics struct {
	Completeness    float64 `json:"completeness"`
	Recency         float64 `json:"recency"`
	SourceDiversity float64 `json:"source_diversity"`
	ContentQuality  float64 `json:"content_quality"`
	TotalItems      int     `json:"total_data_points"`
}

// Overall is the unweighted mean of the four metrics.
func (q QualityMetrics) Overall() float64 {
	return (q.Completeness + q.Recency + q.SourceDiversity + q.ContentQuality) / 4
}

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

type Volatility string

const (
	VolatilityLow    Volatility = "LOW"
	VolatilityMedium Volatility = "MEDIUM"
	VolatilityHigh   Volatility = "HIGH"
)

type SentimentItem struct {
	Source      Source         `json:"source"`
	Sentiment   SentimentLabel `json:"sentiment"`
	Score       float64        `json:"score"`
	Confidence  float64        `json:"confidence"`
	TextPreview string         `json:"text_preview"`
}

type SentimentResult struct {
	Overall    SentimentLabel  `json:"overall"`
	Positive   float64         `json:"positive"`
	Negative   float64         `json:"negative"`
	Neutral    float64         `json:"neutral"`
	Confidence float64         `json:"confidence"`
	Volatility Volatility      `json:"volatility"`
	Breakdown  []SentimentItem `json:"sentiment_breakdown"`
}

type TrendDirection string

const (
	TrendUpward   TrendDirection = "upward"
	TrendDownward TrendDirection = "downward"
	TrendStable   TrendDirection = "stable"
	TrendVolatile TrendDirection = "volatile"
)

type AnalysisPeriod struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

type TrendResult struct {
	Direction       TrendDirection     `json:"direction"`
	Strength        float64            `json:"strength"`
	Confidence      float64            `json:"confidence"`
	EmergingTopics  []string           `json:"emerging_topics"`
	DecliningTopics []string           `json:"declining_topics"`
	Indicators      map[string]float64 `json:"trend_indicators"`
	Period          AnalysisPeriod     `json:"analysis_period"`
	DataPoints      int                `json:"data_points"`
}

// AnalysisContext is everything the LLM call sees. Nil sections are rendered
// as "not available".
type AnalysisContext struct {
	Query     string
	Quality   *QualityMetrics
	Sentiment *SentimentResult
	Trend     *TrendResult
	Signals   SignalSet
	Themes    []string
	Samples   []ContentSample
	Stats     ContentStats
	Text      string
}

type ContentSample struct {
	Source      Source
	Title       string
	Snippet     string
	PublishedAt time.Time
}

type ContentStats struct {
	AverageContentLength float64
	SourceCounts         map[Source]int
	Earliest             time.Time
	Latest               time.Time
}
