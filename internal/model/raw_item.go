package model

import "time"

type Source string

const (
	SourceNews    Source = "news"
	SourceTwitter Source = "twitter"
	SourceReddit  Source = "reddit"
)

// SourceAll is the filter value that selects every source.
const SourceAll = "all"

// RawItem is one fetched news article, tweet or post. SentimentScore and
// RelevanceScore are nil when the provider does not supply them.
type RawItem struct {
	Source         Source
	Provider       string
	ExternalID     string
	Title          string
	Content        string
	URL            string
	Author         string
	PublishedAt    time.Time
	SentimentScore *float64
	RelevanceScore *float64
}

// Text is the title and content joined for keyword scanning.
func (r RawItem) Text() string {
	if r.Title == "" {
		return r.Content
	}
	if r.Content == "" {
		return r.Title
	}
	return r.Title + " " + r.Content
}

func ValidSourceFilter(s string) bool {
	switch s {
	case "", SourceAll, string(SourceNews), string(SourceTwitter), string(SourceReddit):
		return true
	}
	return false
}
