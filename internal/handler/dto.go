package handler

import "encoding/json"

// SearchRequest accepts the legacy "sources" list next to "source".
type SearchRequest struct {
	Query   string   `json:"query"`
	Source  string   `json:"source"`
	Sources []string `json:"sources" binding:"omitempty,max=4,dive,oneof=all news twitter reddit"`
}

// filter resolves the effective source filter: "source" wins, one legacy
// source is used as is, several mean all.
func (r SearchRequest) filter() string {
	if r.Source != "" {
		return r.Source
	}
	switch len(r.Sources) {
	case 0:
		return ""
	case 1:
		return r.Sources[0]
	default:
		return "all"
	}
}

type HistoryItemResponse struct {
	ID             int64   `json:"id"`
	Query          string  `json:"query"`
	Source         string  `json:"source"`
	Status         string  `json:"status"`
	Summary        string  `json:"summary"`
	DataPoints     int     `json:"data_points"`
	ProcessingTime float64 `json:"processing_time"`
	ErrorMessage   string  `json:"error_message,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

type HistoryResponse struct {
	History []HistoryItemResponse `json:"history"`
	Total   int                   `json:"total"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
}

type QueryResponse struct {
	ID             int64           `json:"id"`
	Query          string          `json:"query"`
	Source         string          `json:"source"`
	Status         string          `json:"status"`
	Summary        string          `json:"summary"`
	Results        json.RawMessage `json:"results"`
	DataPoints     int             `json:"data_points"`
	ProcessingTime float64         `json:"processing_time"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	CreatedAt      string          `json:"created_at"`
	UpdatedAt      string          `json:"updated_at"`
}

type SentimentReportResponse struct {
	Positive   float64         `json:"positive"`
	Negative   float64         `json:"negative"`
	Neutral    float64         `json:"neutral"`
	Overall    string          `json:"overall"`
	Confidence float64         `json:"confidence"`
	Volatility string          `json:"volatility"`
	Breakdown  json.RawMessage `json:"sentiment_breakdown"`
	CreatedAt  string          `json:"created_at"`
}

type TrendAnalysisResponse struct {
	Direction       string          `json:"direction"`
	Strength        float64         `json:"strength"`
	Confidence      float64         `json:"confidence"`
	EmergingTopics  []string        `json:"emerging_topics"`
	DecliningTopics []string        `json:"declining_topics"`
	Indicators      json.RawMessage `json:"trend_indicators"`
	CreatedAt       string          `json:"created_at"`
}

type MarketInsightResponse struct {
	Type        string `json:"insight_type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImpactLevel string `json:"impact_level"`
	Timeframe   string `json:"timeframe"`
}

type QueryDetailResponse struct {
	Query           QueryResponse            `json:"query"`
	SentimentReport *SentimentReportResponse `json:"sentiment_report"`
	TrendAnalysis   *TrendAnalysisResponse   `json:"trend_analysis"`
	MarketInsights  []MarketInsightResponse  `json:"market_insights"`
}

type TrendingTopicResponse struct {
	Topic           string  `json:"topic"`
	Frequency       int     `json:"frequency"`
	AverageStrength float64 `json:"avg_strength"`
	LatestTimestamp string  `json:"latest_timestamp"`
}

type TrendsResponse struct {
	Topics []TrendingTopicResponse `json:"trending_topics"`
	Days   int                     `json:"days"`
}

type ApiUsageResponse struct {
	ApiName         string  `json:"api_name"`
	TotalRequests   int     `json:"total_requests"`
	TotalTokens     int64   `json:"total_tokens"`
	AvgResponseTime float64 `json:"avg_response_time"`
	ErrorCount      int     `json:"error_count"`
}

type StatsResponse struct {
	ApiUsage         []ApiUsageResponse `json:"api_usage"`
	TotalQueries     int                `json:"total_queries"`
	CompletedQueries int                `json:"completed_queries"`
	FailedQueries    int                `json:"failed_queries"`
	Days             int                `json:"days"`
}

type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

type ErrorResponse struct {
	Error     ErrorBody `json:"error"`
	Timestamp string    `json:"timestamp"`
}
