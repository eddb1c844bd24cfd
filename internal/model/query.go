package model

import (
	"encoding/json"
	"time"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// MaxProcessingSeconds bounds the stored processing_time.
const MaxProcessingSeconds = 300.0

type HistoricalQuery struct {
	ID              int64
	Query           string
	NormalizedQuery string
	SourceFilter    string
	Results         json.RawMessage
	Summary         string
	DataPointsCount int
	ProcessingTime  float64
	Status          string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type SentimentReport struct {
	ID         int64
	QueryID    int64
	Positive   float64
	Negative   float64
	Neutral    float64
	Overall    string
	Confidence float64
	Volatility string
	Breakdown  json.RawMessage
	CreatedAt  time.Time
}

type TrendAnalysis struct {
	ID              int64
	QueryID         int64
	Direction       string
	Strength        float64
	Confidence      float64
	EmergingTopics  []string
	DecliningTopics []string
	Indicators      json.RawMessage
	CreatedAt       time.Time
}

// Completion is the row set written when a query transitions to completed.
type Completion struct {
	Results         json.RawMessage
	Summary         string
	DataPointsCount int
	ProcessingTime  float64
	Items           []RawItem
	Sentiment       SentimentResult
	Trend           TrendResult
	Insights        []MarketInsight
}

type TrendingTopic struct {
	Topic           string    `json:"topic"`
	Frequency       int       `json:"frequency"`
	AverageStrength float64   `json:"avg_strength"`
	LatestTimestamp time.Time `json:"latest_timestamp"`
}

const (
	InsightTypeOpportunity = "opportunity"
	InsightTypeRisk        = "risk"
)

// MarketInsight is one opportunity or risk extracted from the LLM answer.
type MarketInsight struct {
	Type        string `json:"insight_type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImpactLevel string `json:"impact_level"`
	Timeframe   string `json:"timeframe"`
}
