package analysis

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"marketlens/internal/model"
)

const (
	maxSamples        = 5
	sampleSnippetSize = 300
	notAvailable      = "not available"
)

// Assemble combines the aggregator outputs with a bounded content sample and
// renders the prompt context block. Nil results render as "not available" so
// the section layout never changes.
func Assemble(query string, items []model.RawItem, r *Result) model.AnalysisContext {
	actx := model.AnalysisContext{
		Query:   query,
		Samples: sampleContent(items),
		Stats:   contentStats(items),
	}
	if r != nil {
		actx.Quality = r.Quality
		actx.Sentiment = r.Sentiment
		actx.Trend = r.Trend
		actx.Signals = r.Signals
		actx.Themes = r.Themes
	}

	actx.Text = Render(actx)
	return actx
}

func Render(actx model.AnalysisContext) string {
	var sb strings.Builder

	sb.WriteString("MARKET INTELLIGENCE CONTEXT\n\n")

	sb.WriteString("SENTIMENT SUMMARY:\n")
	if s := actx.Sentiment; s != nil {
		sb.WriteString(fmt.Sprintf("- Overall Market Sentiment: %s\n", strings.ToUpper(string(s.Overall))))
		sb.WriteString(fmt.Sprintf("- Positive: %s\n", percent(s.Positive)))
		sb.WriteString(fmt.Sprintf("- Negative: %s\n", percent(s.Negative)))
		sb.WriteString(fmt.Sprintf("- Neutral: %s\n", percent(s.Neutral)))
		sb.WriteString(fmt.Sprintf("- Confidence: %s\n", percent(s.Confidence)))
		sb.WriteString(fmt.Sprintf("- Volatility: %s\n", s.Volatility))
	} else {
		sb.WriteString("- " + notAvailable + "\n")
	}
	sb.WriteString("\n")

	sb.WriteString("TREND SUMMARY:\n")
	if t := actx.Trend; t != nil {
		sb.WriteString(fmt.Sprintf("- Direction: %s\n", strings.ToUpper(string(t.Direction))))
		sb.WriteString(fmt.Sprintf("- Strength: %s\n", percent(t.Strength)))
		sb.WriteString(fmt.Sprintf("- Confidence: %s\n", percent(t.Confidence)))
		sb.WriteString(fmt.Sprintf("- Emerging Topics: %s\n", joinOrNone(t.EmergingTopics)))
		sb.WriteString(fmt.Sprintf("- Declining Topics: %s\n", joinOrNone(t.DecliningTopics)))
		sb.WriteString(fmt.Sprintf("- Indicators: %s\n", formatIndicators(t.Indicators)))
	} else {
		sb.WriteString("- " + notAvailable + "\n")
	}
	sb.WriteString("\n")

	sb.WriteString("KEY SIGNALS:\n")
	if actx.Signals != nil {
		for _, c := range model.SignalCategories {
			list := actx.Signals[c]
			if len(list) == 0 {
				sb.WriteString(fmt.Sprintf("- %s: none detected\n", c))
				continue
			}
			sb.WriteString(fmt.Sprintf("- %s: %d signals\n", c, len(list)))
			for _, snippet := range list {
				sb.WriteString(fmt.Sprintf("    %q\n", snippet))
			}
		}
	} else {
		sb.WriteString("- " + notAvailable + "\n")
	}
	sb.WriteString("\n")

	sb.WriteString("DOMINANT THEMES:\n")
	switch {
	case actx.Themes == nil:
		sb.WriteString("- " + notAvailable + "\n")
	case len(actx.Themes) == 0:
		sb.WriteString("- No dominant themes identified\n")
	default:
		for _, theme := range actx.Themes {
			sb.WriteString("- " + theme + "\n")
		}
	}
	sb.WriteString("\n")

	sb.WriteString("QUALITY ASSESSMENT:\n")
	if q := actx.Quality; q != nil {
		sb.WriteString(fmt.Sprintf("- Total Data Points: %d\n", q.TotalItems))
		sb.WriteString(fmt.Sprintf("- Completeness: %s\n", percent(q.Completeness)))
		sb.WriteString(fmt.Sprintf("- Recency: %s\n", percent(q.Recency)))
		sb.WriteString(fmt.Sprintf("- Source Diversity: %s\n", percent(q.SourceDiversity)))
		sb.WriteString(fmt.Sprintf("- Content Quality: %s\n", percent(q.ContentQuality)))
	} else {
		sb.WriteString("- " + notAvailable + "\n")
	}
	sb.WriteString("\n")

	sb.WriteString("CONTENT SAMPLES:\n")
	if len(actx.Samples) == 0 {
		sb.WriteString("- " + notAvailable + "\n")
	}
	for i, s := range actx.Samples {
		sb.WriteString(fmt.Sprintf("[%d] Source: %s\n", i+1, s.Source))
		sb.WriteString(fmt.Sprintf("    Title: %s\n", s.Title))
		sb.WriteString(fmt.Sprintf("    Content: %s\n", s.Snippet))
		sb.WriteString(fmt.Sprintf("    Published: %s\n", formatTime(s.PublishedAt, "2006-01-02 15:04")))
	}
	sb.WriteString("\n")

	sb.WriteString("STATISTICAL SUMMARY:\n")
	sb.WriteString(fmt.Sprintf("- Average Content Length: %.0f characters\n", actx.Stats.AverageContentLength))
	sb.WriteString(fmt.Sprintf("- Source Distribution: %s\n", formatSourceCounts(actx.Stats.SourceCounts)))
	if actx.Stats.Earliest.IsZero() {
		sb.WriteString("- Time Range: unknown\n")
	} else {
		sb.WriteString(fmt.Sprintf("- Time Range: %s to %s\n",
			actx.Stats.Earliest.Format("2006-01-02"), actx.Stats.Latest.Format("2006-01-02")))
	}

	return sb.String()
}

func sampleContent(items []model.RawItem) []model.ContentSample {
	samples := make([]model.ContentSample, 0, maxSamples)
	for i := 0; i < len(items) && i < maxSamples; i++ {
		samples = append(samples, model.ContentSample{
			Source:      items[i].Source,
			Title:       items[i].Title,
			Snippet:     preview(items[i].Content, sampleSnippetSize),
			PublishedAt: items[i].PublishedAt,
		})
	}
	return samples
}

func contentStats(items []model.RawItem) model.ContentStats {
	stats := model.ContentStats{SourceCounts: map[model.Source]int{}}
	if len(items) == 0 {
		return stats
	}

	total := 0
	for _, item := range items {
		total += utf8.RuneCountInString(item.Content)
		stats.SourceCounts[item.Source]++

		at := item.PublishedAt
		if at.IsZero() {
			continue
		}
		if stats.Earliest.IsZero() || at.Before(stats.Earliest) {
			stats.Earliest = at
		}
		if at.After(stats.Latest) {
			stats.Latest = at
		}
	}
	stats.AverageContentLength = float64(total) / float64(len(items))
	return stats
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func joinOrNone(list []string) string {
	if len(list) == 0 {
		return "none identified"
	}
	return strings.Join(list, ", ")
}

func formatIndicators(indicators map[string]float64) string {
	if len(indicators) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(indicators))
	for k := range indicators {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%.2f", k, indicators[k]))
	}
	return strings.Join(parts, ", ")
}

func formatSourceCounts(counts map[model.Source]int) string {
	if len(counts) == 0 {
		return "none"
	}
	sources := make([]model.Source, 0, len(counts))
	for s := range counts {
		sources = append(sources, s)
	}
	sort.Slice(sources, func(i, j int) bool {
		if counts[sources[i]] != counts[sources[j]] {
			return counts[sources[i]] > counts[sources[j]]
		}
		return sources[i] < sources[j]
	})

	parts := make([]string, 0, len(sources))
	for _, s := range sources {
		parts = append(parts, fmt.Sprintf("%s: %d", s, counts[s]))
	}
	return strings.Join(parts, ", ")
}

func formatTime(t time.Time, layout string) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format(layout)
}
