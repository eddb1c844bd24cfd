package model

import "time"

type ApiUsage struct {
	ID           int64
	ApiName      string
	Endpoint     string
	TokensUsed   int64
	ResponseTime float64
	StatusCode   int
	ErrorMessage string
	CreatedAt    time.Time
}

type ApiUsageStats struct {
	ApiName         string  `json:"api_name"`
	TotalRequests   int     `json:"total_requests"`
	TotalTokens     int64   `json:"total_tokens"`
	AvgResponseTime float64 `json:"avg_response_time"`
	ErrorCount      int     `json:"error_count"`
}

type QueryStats struct {
	Total     int `json:"total_queries"`
	Completed int `json:"completed_queries"`
	Failed    int `json:"failed_queries"`
}
