package repository

import (
	"context"
	"database/sql"
	"time"

	"marketlens/internal/model"
)

type UsageRepository struct {
	db *sql.DB
}

func NewUsageRepository(db *sql.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

func (r *UsageRepository) SaveUsage(ctx context.Context, u *model.ApiUsage) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO api_usage(api_name, endpoint, tokens_used, response_time, status_code, error_message)
		VALUES($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, u.ApiName, u.Endpoint, u.TokensUsed, u.ResponseTime, u.StatusCode, u.ErrorMessage).Scan(&u.ID, &u.CreatedAt)
}

func (r *UsageRepository) GetUsageStats(ctx context.Context, since time.Time) ([]model.ApiUsageStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT api_name,
		       COUNT(*),
		       COALESCE(SUM(tokens_used), 0),
		       COALESCE(AVG(response_time), 0),
		       COUNT(*) FILTER (WHERE status_code >= 400 OR error_message <> '')
		FROM api_usage
		WHERE created_at >= $1
		GROUP BY api_name
		ORDER BY COUNT(*) DESC, api_name ASC
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []model.ApiUsageStats
	for rows.Next() {
		var s model.ApiUsageStats
		if err := rows.Scan(&s.ApiName, &s.TotalRequests, &s.TotalTokens, &s.AvgResponseTime, &s.ErrorCount); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *UsageRepository) GetQueryStats(ctx context.Context, since time.Time) (*model.QueryStats, error) {
	var s model.QueryStats
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = $2),
		       COUNT(*) FILTER (WHERE status = $3)
		FROM historical_queries
		WHERE created_at >= $1
	`, since, model.StatusCompleted, model.StatusFailed).Scan(&s.Total, &s.Completed, &s.Failed)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetTrendingTopics aggregates emerging topics of completed analyses created
// at or after since.
func (r *UsageRepository) GetTrendingTopics(ctx context.Context, since time.Time, limit int) ([]model.TrendingTopic, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.topic,
		       COUNT(*) AS frequency,
		       AVG(t.trend_strength) AS avg_strength,
		       MAX(t.created_at) AS latest
		FROM trend_analysis t
		JOIN historical_queries q ON q.id = t.query_id
		CROSS JOIN LATERAL unnest(t.emerging_topics) AS u(topic)
		WHERE q.status = $1 AND t.created_at >= $2
		GROUP BY u.topic
		ORDER BY frequency DESC, avg_strength DESC, u.topic ASC
		LIMIT $3
	`, model.StatusCompleted, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []model.TrendingTopic
	for rows.Next() {
		var t model.TrendingTopic
		if err := rows.Scan(&t.Topic, &t.Frequency, &t.AverageStrength, &t.LatestTimestamp); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return topics, nil
}
