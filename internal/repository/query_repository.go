package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"marketlens/internal/model"
)

// ErrNotProcessing is returned when a status transition targets a query that
// already left the processing state.
var ErrNotProcessing = errors.New("query is not processing")

type QueryRepository struct {
	db *sql.DB
}

func NewQueryRepository(db *sql.DB) *QueryRepository {
	return &QueryRepository{db: db}
}

const queryColumns = `id, query, normalized_query, source_filter, results, results_summary, data_points_count, processing_time, status, error_message, created_at, updated_at`

func scanQuery(row interface{ Scan(...any) error }) (*model.HistoricalQuery, error) {
	var q model.HistoricalQuery
	var results []byte
	err := row.Scan(&q.ID, &q.Query, &q.NormalizedQuery, &q.SourceFilter, &results, &q.Summary, &q.DataPointsCount, &q.ProcessingTime, &q.Status, &q.ErrorMessage, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		q.Results = json.RawMessage(results)
	}
	return &q, nil
}

func (r *QueryRepository) CreateQuery(ctx context.Context, q *model.HistoricalQuery) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO historical_queries(query, normalized_query, source_filter, status)
		VALUES($1, $2, $3, $4)
		RETURNING id, status, created_at, updated_at
	`, q.Query, q.NormalizedQuery, q.SourceFilter, model.StatusProcessing).Scan(&q.ID, &q.Status, &q.CreatedAt, &q.UpdatedAt)
}

// FindFreshCompleted returns the newest completed query for the key created
// at or after since, or nil when there is none.
func (r *QueryRepository) FindFreshCompleted(ctx context.Context, normalizedQuery, sourceFilter string, since time.Time) (*model.HistoricalQuery, error) {
	q, err := scanQuery(r.db.QueryRowContext(ctx, `
		SELECT `+queryColumns+`
		FROM historical_queries
		WHERE normalized_query = $1 AND source_filter = $2 AND status = $3 AND created_at >= $4
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, normalizedQuery, sourceFilter, model.StatusCompleted, since))

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return q, nil
}

func (r *QueryRepository) GetQuery(ctx context.Context, id int64) (*model.HistoricalQuery, error) {
	q, err := scanQuery(r.db.QueryRowContext(ctx, `
		SELECT `+queryColumns+`
		FROM historical_queries
		WHERE id = $1
	`, id))

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return q, nil
}

// CompleteQuery writes the raw items, sentiment report, trend analysis and
// market insights of a run and flips the query to completed, all in one
// transaction.
func (r *QueryRepository) CompleteQuery(ctx context.Context, id int64, c *model.Completion) error {
	breakdown, err := json.Marshal(c.Sentiment.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal sentiment breakdown: %w", err)
	}
	indicators, err := json.Marshal(c.Trend.Indicators)
	if err != nil {
		return fmt.Errorf("marshal trend indicators: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, item := range c.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO market_data(query_id, source, provider, source_id, title, content, url, author, published_at, sentiment_score, relevance_score)
			VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, id, item.Source, item.Provider, item.ExternalID, item.Title, item.Content, item.URL, item.Author, nullTime(item.PublishedAt), item.SentimentScore, item.RelevanceScore)
		if err != nil {
			return fmt.Errorf("insert market data: %w", err)
		}
	}

	s := c.Sentiment
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sentiment_reports(query_id, positive_score, negative_score, neutral_score, overall_sentiment, confidence_score, volatility, sentiment_breakdown)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8)
	`, id, s.Positive, s.Negative, s.Neutral, s.Overall, s.Confidence, s.Volatility, breakdown)
	if err != nil {
		return fmt.Errorf("insert sentiment report: %w", err)
	}

	t := c.Trend
	_, err = tx.ExecContext(ctx, `
		INSERT INTO trend_analysis(query_id, trend_direction, trend_strength, confidence_score, emerging_topics, declining_topics, trend_indicators)
		VALUES($1, $2, $3, $4, $5, $6, $7)
	`, id, t.Direction, t.Strength, t.Confidence, pq.Array(nonNil(t.EmergingTopics)), pq.Array(nonNil(t.DecliningTopics)), indicators)
	if err != nil {
		return fmt.Errorf("insert trend analysis: %w", err)
	}

	for _, in := range c.Insights {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO market_insights(query_id, insight_type, title, description, impact_level, timeframe)
			VALUES($1, $2, $3, $4, $5, $6)
		`, id, in.Type, in.Title, in.Description, in.ImpactLevel, in.Timeframe)
		if err != nil {
			return fmt.Errorf("insert market insight: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE historical_queries
		SET status = $1, results = $2, results_summary = $3, data_points_count = $4, processing_time = $5, updated_at = NOW()
		WHERE id = $6 AND status = $7
	`, model.StatusCompleted, []byte(c.Results), c.Summary, c.DataPointsCount, c.ProcessingTime, id, model.StatusProcessing)
	if err != nil {
		return fmt.Errorf("update query status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotProcessing
	}

	return tx.Commit()
}

func (r *QueryRepository) MarkFailed(ctx context.Context, id int64, errorMessage string, processingTime float64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE historical_queries
		SET status = $1, error_message = $2, processing_time = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5
	`, model.StatusFailed, errorMessage, processingTime, id, model.StatusProcessing)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotProcessing
	}
	return nil
}

func (r *QueryRepository) GetHistory(ctx context.Context, limit int, offset int) ([]model.HistoricalQuery, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+queryColumns+`
		FROM historical_queries
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var queries []model.HistoricalQuery
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, err
		}
		queries = append(queries, *q)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return queries, nil
}

func (r *QueryRepository) GetHistoryTotal(ctx context.Context) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM historical_queries`).Scan(&total)
	return total, err
}

func (r *QueryRepository) GetSentimentReport(ctx context.Context, queryID int64) (*model.SentimentReport, error) {
	var s model.SentimentReport
	var breakdown []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT id, query_id, positive_score, negative_score, neutral_score, overall_sentiment, confidence_score, volatility, sentiment_breakdown, created_at
		FROM sentiment_reports
		WHERE query_id = $1
	`, queryID).Scan(&s.ID, &s.QueryID, &s.Positive, &s.Negative, &s.Neutral, &s.Overall, &s.Confidence, &s.Volatility, &breakdown, &s.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	s.Breakdown = json.RawMessage(breakdown)
	return &s, nil
}

func (r *QueryRepository) GetTrendAnalysis(ctx context.Context, queryID int64) (*model.TrendAnalysis, error) {
	var t model.TrendAnalysis
	var indicators []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT id, query_id, trend_direction, trend_strength, confidence_score, emerging_topics, declining_topics, trend_indicators, created_at
		FROM trend_analysis
		WHERE query_id = $1
	`, queryID).Scan(&t.ID, &t.QueryID, &t.Direction, &t.Strength, &t.Confidence, pq.Array(&t.EmergingTopics), pq.Array(&t.DecliningTopics), &indicators, &t.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	t.Indicators = json.RawMessage(indicators)
	return &t, nil
}

func (r *QueryRepository) GetMarketInsights(ctx context.Context, queryID int64) ([]model.MarketInsight, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT insight_type, title, description, impact_level, timeframe
		FROM market_insights
		WHERE query_id = $1
		ORDER BY id ASC
	`, queryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var insights []model.MarketInsight
	for rows.Next() {
		var in model.MarketInsight
		if err := rows.Scan(&in.Type, &in.Title, &in.Description, &in.ImpactLevel, &in.Timeframe); err != nil {
			return nil, err
		}
		insights = append(insights, in)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return insights, nil
}

// DeleteOlderThan removes queries created before cutoff. Dependent rows go
// with them through ON DELETE CASCADE.
func (r *QueryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM historical_queries WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *QueryRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
