package analysis

import (
	"strings"
	"time"
	"unicode/utf8"

	"marketlens/internal/model"
)

const (
	recencyWindow       = 7 * 24 * time.Hour
	diversityNormalizer = 5
	targetContentLength = 500
)

// ScoreQuality computes completeness, recency, source diversity and content
// quality for the item set as of now. An empty set scores zero everywhere.
func ScoreQuality(items []model.RawItem, now time.Time) model.QualityMetrics {
	if len(items) == 0 {
		return model.QualityMetrics{}
	}

	var complete, recent, totalLength int
	sources := make(map[model.Source]bool)

	for _, item := range items {
		if strings.TrimSpace(item.Title) != "" && strings.TrimSpace(item.Content) != "" {
			complete++
		}
		if isRecent(item.PublishedAt, now) {
			recent++
		}
		sources[item.Source] = true
		totalLength += utf8.RuneCountInString(item.Content)
	}

	n := float64(len(items))
	avgLength := float64(totalLength) / n

	return model.QualityMetrics{
		Completeness:    clamp01(float64(complete) / n),
		Recency:         clamp01(float64(recent) / n),
		SourceDiversity: clamp01(float64(len(sources)) / diversityNormalizer),
		ContentQuality:  clamp01(avgLength / targetContentLength),
		TotalItems:      len(items),
	}
}

func isRecent(publishedAt, now time.Time) bool {
	if publishedAt.IsZero() {
		return false
	}
	return now.Sub(publishedAt) <= recencyWindow
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
