package analysis

import (
	"time"

	"marketlens/internal/model"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func item(source model.Source, title, content string, age time.Duration) model.RawItem {
	it := model.RawItem{Source: source, Title: title, Content: content}
	if age >= 0 {
		it.PublishedAt = testNow.Add(-age)
	}
	return it
}

func scored(score float64) *float64 {
	return &score
}

const day = 24 * time.Hour
