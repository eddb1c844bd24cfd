package analysis

import (
	"math"
	"sort"
	"time"

	"marketlens/internal/model"
)

const (
	DefaultTrendWindow = 30 * 24 * time.Hour

	directionThreshold  = 0.1
	volatileShift       = 0.3
	topicRatio          = 1.5
	minTopicFrequency   = 2
	maxTopics           = 5
	minConfidence       = 0.3
	maxConfidence       = 0.95
	confidentItemCount  = 5
	saturatingItemCount = 50
)

type timedItem struct {
	at        time.Time
	sentiment float64
	phrases   []string
	matches   map[string][]string
}

// AggregateTrend splits the items published within window before now into
// an earlier and a later half and compares volume, sentiment and phrase
// frequency between them. Items without a timestamp are ignored.
func AggregateTrend(m *Matcher, items []model.RawItem, now time.Time, window time.Duration) model.TrendResult {
	if window <= 0 {
		window = DefaultTrendWindow
	}
	start := now.Add(-window)
	mid := now.Add(-window / 2)

	var earlier, later []timedItem
	var first, last time.Time

	for _, item := range items {
		if item.PublishedAt.IsZero() || item.PublishedAt.Before(start) {
			continue
		}

		text := item.Text()
		ti := timedItem{
			at:      item.PublishedAt,
			phrases: m.Phrases(text),
			matches: m.Match(text),
		}
		if s, ok := scoreItem(item); ok {
			ti.sentiment = s.score
		}

		if first.IsZero() || ti.at.Before(first) {
			first = ti.at
		}
		if last.IsZero() || ti.at.After(last) {
			last = ti.at
		}

		if ti.at.Before(mid) {
			earlier = append(earlier, ti)
		} else {
			later = append(later, ti)
		}
	}

	total := len(earlier) + len(later)
	res := model.TrendResult{
		Direction:       model.TrendStable,
		EmergingTopics:  []string{},
		DecliningTopics: []string{},
		Indicators:      map[string]float64{},
		DataPoints:      total,
	}
	if total == 0 {
		return res
	}

	volumeChange := float64(len(later)-len(earlier)) / math.Max(float64(len(earlier)), 1)
	sentimentShift := avgSentiment(later) - avgSentiment(earlier)

	res.Direction = trendDirection(volumeChange, sentimentShift)
	res.Strength = math.Min(math.Abs(volumeChange), 1.0)
	res.Confidence = trendConfidence(total)
	res.EmergingTopics, res.DecliningTopics = topicShifts(earlier, later)
	res.Period = model.AnalysisPeriod{Start: &first, End: &last}

	res.Indicators["volume_change"] = volumeChange
	res.Indicators["sentiment_shift"] = sentimentShift
	res.Indicators["earlier_volume"] = float64(len(earlier))
	res.Indicators["later_volume"] = float64(len(later))
	for _, c := range model.SignalCategories {
		n := 0
		for _, half := range [][]timedItem{earlier, later} {
			for _, ti := range half {
				if len(ti.matches[string(c)]) > 0 {
					n++
				}
			}
		}
		res.Indicators["signal_"+string(c)] = float64(n)
	}

	return res
}

// trendDirection reports volatile when volume and sentiment move strongly in
// opposite directions.
func trendDirection(volumeChange, sentimentShift float64) model.TrendDirection {
	if math.Abs(volumeChange) > directionThreshold &&
		math.Abs(sentimentShift) > volatileShift &&
		math.Signbit(volumeChange) != math.Signbit(sentimentShift) {
		return model.TrendVolatile
	}

	switch {
	case volumeChange > directionThreshold:
		return model.TrendUpward
	case volumeChange < -directionThreshold:
		return model.TrendDownward
	default:
		return model.TrendStable
	}
}

func trendConfidence(n int) float64 {
	switch {
	case n == 0:
		return 0
	case n < confidentItemCount:
		return minConfidence
	}
	c := minConfidence + (maxConfidence-minConfidence)*float64(n)/saturatingItemCount
	return math.Min(c, maxConfidence)
}

func avgSentiment(items []timedItem) float64 {
	if len(items) == 0 {
		return 0
	}
	var sum float64
	for _, ti := range items {
		sum += ti.sentiment
	}
	return sum / float64(len(items))
}

type topicDelta struct {
	phrase string
	delta  int
}

// topicShifts ranks phrases whose later-half item frequency exceeds the
// earlier half by more than 1.5x (emerging) or the reverse (declining).
func topicShifts(earlier, later []timedItem) ([]string, []string) {
	before := phraseFrequency(earlier)
	after := phraseFrequency(later)

	phrases := make(map[string]bool)
	for p := range before {
		phrases[p] = true
	}
	for p := range after {
		phrases[p] = true
	}

	var emerging, declining []topicDelta
	for p := range phrases {
		b, a := before[p], after[p]
		switch {
		case a >= minTopicFrequency && float64(a) > topicRatio*float64(b):
			emerging = append(emerging, topicDelta{p, a - b})
		case b >= minTopicFrequency && float64(b) > topicRatio*float64(a):
			declining = append(declining, topicDelta{p, b - a})
		}
	}

	return topTopics(emerging), topTopics(declining)
}

func phraseFrequency(items []timedItem) map[string]int {
	freq := make(map[string]int)
	for _, ti := range items {
		for _, p := range ti.phrases {
			freq[p]++
		}
	}
	return freq
}

func topTopics(deltas []topicDelta) []string {
	sort.Slice(deltas, func(i, j int) bool {
		if deltas[i].delta != deltas[j].delta {
			return deltas[i].delta > deltas[j].delta
		}
		return deltas[i].phrase < deltas[j].phrase
	})

	out := make([]string, 0, maxTopics)
	for i := 0; i < len(deltas) && i < maxTopics; i++ {
		out = append(out, deltas[i].phrase)
	}
	return out
}
