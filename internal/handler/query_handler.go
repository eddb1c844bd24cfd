package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"marketlens/internal/insight"
	"marketlens/internal/model"
)

type QueryStore interface {
	GetHistory(ctx context.Context, limit, offset int) ([]model.HistoricalQuery, error)
	GetHistoryTotal(ctx context.Context) (int, error)
	GetQuery(ctx context.Context, id int64) (*model.HistoricalQuery, error)
	GetSentimentReport(ctx context.Context, queryID int64) (*model.SentimentReport, error)
	GetTrendAnalysis(ctx context.Context, queryID int64) (*model.TrendAnalysis, error)
	GetMarketInsights(ctx context.Context, queryID int64) ([]model.MarketInsight, error)
	Ping(ctx context.Context) error
}

type StatsStore interface {
	GetUsageStats(ctx context.Context, since time.Time) ([]model.ApiUsageStats, error)
	GetQueryStats(ctx context.Context, since time.Time) (*model.QueryStats, error)
	GetTrendingTopics(ctx context.Context, since time.Time, limit int) ([]model.TrendingTopic, error)
}

type QueryHandler struct {
	queries QueryStore
	stats   StatsStore
}

func NewQueryHandler(queries QueryStore, stats StatsStore) *QueryHandler {
	return &QueryHandler{queries: queries, stats: stats}
}

func (h *QueryHandler) GetHistory(c *gin.Context) {
	ctx := c.Request.Context()
	limit := getQueryLimit(c)
	offset := getQueryOffset(c)

	queries, err := h.queries.GetHistory(ctx, limit, offset)
	if err != nil {
		slog.Error("error fetching history", "error", err)
		writeError(c, insight.CodeDatabaseError, "Database error", nil)
		return
	}

	total, err := h.queries.GetHistoryTotal(ctx)
	if err != nil {
		slog.Error("error fetching history total", "error", err)
		writeError(c, insight.CodeDatabaseError, "Database error", nil)
		return
	}

	history := make([]HistoryItemResponse, 0, len(queries))
	for _, q := range queries {
		history = append(history, HistoryItemResponse{
			ID:             q.ID,
			Query:          q.Query,
			Source:         q.SourceFilter,
			Status:         q.Status,
			Summary:        q.Summary,
			DataPoints:     q.DataPointsCount,
			ProcessingTime: q.ProcessingTime,
			ErrorMessage:   q.ErrorMessage,
			CreatedAt:      q.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, HistoryResponse{
		History: history,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

func (h *QueryHandler) GetQuery(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	queryID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		slog.Warn("invalid query id", "id", id, "error", err)
		writeError(c, insight.CodeInvalidRequest, "Invalid query id", map[string]any{"id": id})
		return
	}

	q, err := h.queries.GetQuery(ctx, queryID)
	if err != nil {
		slog.Error("error fetching query", "error", err, "query_id", queryID)
		writeError(c, insight.CodeDatabaseError, "Database error", nil)
		return
	}

	if q == nil {
		writeError(c, insight.CodeNotFound, "Query not found", map[string]any{"id": queryID})
		return
	}

	res := QueryDetailResponse{
		Query: QueryResponse{
			ID:             q.ID,
			Query:          q.Query,
			Source:         q.SourceFilter,
			Status:         q.Status,
			Summary:        q.Summary,
			Results:        q.Results,
			DataPoints:     q.DataPointsCount,
			ProcessingTime: q.ProcessingTime,
			ErrorMessage:   q.ErrorMessage,
			CreatedAt:      q.CreatedAt.Format(time.RFC3339),
			UpdatedAt:      q.UpdatedAt.Format(time.RFC3339),
		},
		MarketInsights: []MarketInsightResponse{},
	}

	// dependent rows only exist for completed queries
	if q.Status != model.StatusCompleted {
		c.JSON(http.StatusOK, res)
		return
	}

	sentiment, err := h.queries.GetSentimentReport(ctx, queryID)
	if err != nil {
		slog.Error("error fetching sentiment report", "error", err, "query_id", queryID)
		writeError(c, insight.CodeDatabaseError, "Database error", nil)
		return
	}
	if sentiment != nil {
		res.SentimentReport = &SentimentReportResponse{
			Positive:   sentiment.Positive,
			Negative:   sentiment.Negative,
			Neutral:    sentiment.Neutral,
			Overall:    sentiment.Overall,
			Confidence: sentiment.Confidence,
			Volatility: sentiment.Volatility,
			Breakdown:  sentiment.Breakdown,
			CreatedAt:  sentiment.CreatedAt.Format(time.RFC3339),
		}
	}

	trend, err := h.queries.GetTrendAnalysis(ctx, queryID)
	if err != nil {
		slog.Error("error fetching trend analysis", "error", err, "query_id", queryID)
		writeError(c, insight.CodeDatabaseError, "Database error", nil)
		return
	}
	if trend != nil {
		res.TrendAnalysis = &TrendAnalysisResponse{
			Direction:       trend.Direction,
			Strength:        trend.Strength,
			Confidence:      trend.Confidence,
			EmergingTopics:  trend.EmergingTopics,
			DecliningTopics: trend.DecliningTopics,
			Indicators:      trend.Indicators,
			CreatedAt:       trend.CreatedAt.Format(time.RFC3339),
		}
	}

	insights, err := h.queries.GetMarketInsights(ctx, queryID)
	if err != nil {
		slog.Error("error fetching market insights", "error", err, "query_id", queryID)
		writeError(c, insight.CodeDatabaseError, "Database error", nil)
		return
	}
	for _, in := range insights {
		res.MarketInsights = append(res.MarketInsights, MarketInsightResponse(in))
	}

	c.JSON(http.StatusOK, res)
}

func (h *QueryHandler) GetTrends(c *gin.Context) {
	days := getQueryDays(c, 7)
	limit := getQueryLimit(c)
	since := time.Now().Add(-time.Duration(days) * 24 * time.Hour)

	topics, err := h.stats.GetTrendingTopics(c.Request.Context(), since, limit)
	if err != nil {
		slog.Error("error fetching trending topics", "error", err)
		writeError(c, insight.CodeDatabaseError, "Database error", nil)
		return
	}

	res := TrendsResponse{Topics: make([]TrendingTopicResponse, 0, len(topics)), Days: days}
	for _, t := range topics {
		res.Topics = append(res.Topics, TrendingTopicResponse{
			Topic:           t.Topic,
			Frequency:       t.Frequency,
			AverageStrength: t.AverageStrength,
			LatestTimestamp: t.LatestTimestamp.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, res)
}

func (h *QueryHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	days := getQueryDays(c, 30)
	since := time.Now().Add(-time.Duration(days) * 24 * time.Hour)

	usage, err := h.stats.GetUsageStats(ctx, since)
	if err != nil {
		slog.Error("error fetching usage stats", "error", err)
		writeError(c, insight.CodeDatabaseError, "Database error", nil)
		return
	}

	counts, err := h.stats.GetQueryStats(ctx, since)
	if err != nil {
		slog.Error("error fetching query stats", "error", err)
		writeError(c, insight.CodeDatabaseError, "Database error", nil)
		return
	}

	res := StatsResponse{
		ApiUsage:         make([]ApiUsageResponse, 0, len(usage)),
		TotalQueries:     counts.Total,
		CompletedQueries: counts.Completed,
		FailedQueries:    counts.Failed,
		Days:             days,
	}
	for _, u := range usage {
		res.ApiUsage = append(res.ApiUsage, ApiUsageResponse(u))
	}

	c.JSON(http.StatusOK, res)
}

func (h *QueryHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.queries.Ping(ctx); err != nil {
		slog.Error("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"database":  "disconnected",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func getQueryInt(name string, defaultValue int, c *gin.Context) int {
	paramLimit := c.Query(name)

	if paramLimit == "" {
		return defaultValue
	}

	parsedValue, err := strconv.Atoi(paramLimit)
	if err != nil {
		slog.Warn("invalid query parameter, using default", "param", name, "value", paramLimit, "error", err)
		return defaultValue
	}

	return parsedValue
}

func getQueryLimit(c *gin.Context) int {
	const (
		defaultLimit = 10
		maxLimit     = 100
	)

	limit := getQueryInt("limit", defaultLimit, c)
	if limit < 1 {
		slog.Warn("invalid query parameter, using default", "param", "limit", "value", limit, "default", defaultLimit)
		return defaultLimit
	}

	if limit > maxLimit {
		slog.Warn("query parameter exceeds max, clamping", "param", "limit", "value", limit, "max", maxLimit)
		return maxLimit
	}

	return limit
}

func getQueryOffset(c *gin.Context) int {
	offset := getQueryInt("offset", 0, c)
	if offset < 0 {
		slog.Warn("invalid query parameter, using default", "param", "offset", "value", offset, "default", 0)
		return 0
	}
	return offset
}

func getQueryDays(c *gin.Context, defaultDays int) int {
	const maxDays = 365

	days := getQueryInt("days", defaultDays, c)
	if days < 1 {
		return defaultDays
	}
	if days > maxDays {
		return maxDays
	}
	return days
}
