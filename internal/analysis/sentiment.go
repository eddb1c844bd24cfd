package analysis

import (
	"math"
	"strings"
	"unicode/utf8"

	"marketlens/internal/model"
)

const (
	maxBreakdownItems   = 10
	previewLength       = 100
	scoreLabelThreshold = 0.15
	highVolatility      = 0.4
	mediumVolatility    = 0.2
)

var positiveKeywords = []string{
	"bullish", "optimistic", "growth", "opportunity", "positive", "strong", "excellent",
	"promising", "upward", "gain", "profit", "success", "breakthrough", "innovation",
	"expansion", "momentum", "rally", "surge", "boom", "thriving", "robust",
}

var negativeKeywords = []string{
	"bearish", "pessimistic", "decline", "risk", "negative", "weak", "poor",
	"concerning", "downward", "loss", "failure", "crash", "volatility", "uncertainty",
	"recession", "downturn", "plunge", "collapse", "struggling", "crisis",
}

var neutralKeywords = []string{
	"stable", "steady", "unchanged", "flat", "sideways", "consolidation",
	"mixed", "balanced", "moderate", "cautious", "watchful",
}

// itemSentiment is the per-item view both aggregators work from.
type itemSentiment struct {
	label      model.SentimentLabel
	score      float64
	confidence float64
	weight     float64
}

// scoreItem labels one item. A provider score wins over the lexicon; items
// with neither text nor a score are skipped (ok == false).
func scoreItem(item model.RawItem) (itemSentiment, bool) {
	weight := 1.0
	if item.RelevanceScore != nil && *item.RelevanceScore > 0 {
		weight = *item.RelevanceScore
	}

	if item.SentimentScore != nil {
		s := math.Max(-1, math.Min(1, *item.SentimentScore))
		label := model.SentimentNeutral
		switch {
		case s >= scoreLabelThreshold:
			label = model.SentimentPositive
		case s <= -scoreLabelThreshold:
			label = model.SentimentNegative
		}
		return itemSentiment{
			label:      label,
			score:      s,
			confidence: math.Min(0.95, 0.5+math.Abs(s)/2),
			weight:     weight,
		}, true
	}

	text := strings.ToLower(item.Text())
	if strings.TrimSpace(text) == "" {
		return itemSentiment{}, false
	}

	pos := countPresent(text, positiveKeywords)
	neg := countPresent(text, negativeKeywords)
	neu := countPresent(text, neutralKeywords)

	out := itemSentiment{label: model.SentimentNeutral, confidence: 0.6, weight: weight}
	switch {
	case pos > neg && pos > neu:
		out.label = model.SentimentPositive
		out.confidence = math.Min(0.9, 0.5+0.1*float64(pos))
	case neg > pos && neg > neu:
		out.label = model.SentimentNegative
		out.confidence = math.Min(0.9, 0.5+0.1*float64(neg))
	}
	if pos+neg > 0 {
		out.score = float64(pos-neg) / float64(pos+neg)
	}
	return out, true
}

func countPresent(text string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if strings.Contains(text, k) {
			n++
		}
	}
	return n
}

// AggregateSentiment tallies per-item labels into a distribution. With no
// scorable items the result is neutral=1, confidence=0, volatility LOW.
func AggregateSentiment(items []model.RawItem) model.SentimentResult {
	var (
		counts     = map[model.SentimentLabel]int{}
		scores     []float64
		confSum    float64
		weightSum  float64
		breakdown  = []model.SentimentItem{}
		totalCount int
	)

	for _, item := range items {
		s, ok := scoreItem(item)
		if !ok {
			continue
		}

		totalCount++
		counts[s.label]++
		scores = append(scores, s.score)
		confSum += s.confidence * s.weight
		weightSum += s.weight

		if len(breakdown) < maxBreakdownItems {
			breakdown = append(breakdown, model.SentimentItem{
				Source:      item.Source,
				Sentiment:   s.label,
				Score:       s.score,
				Confidence:  s.confidence,
				TextPreview: preview(item.Text(), previewLength),
			})
		}
	}

	if totalCount == 0 {
		return model.SentimentResult{
			Overall:    model.SentimentNeutral,
			Neutral:    1.0,
			Volatility: model.VolatilityLow,
			Breakdown:  breakdown,
		}
	}

	n := float64(totalCount)
	res := model.SentimentResult{
		Positive:   float64(counts[model.SentimentPositive]) / n,
		Negative:   float64(counts[model.SentimentNegative]) / n,
		Neutral:    float64(counts[model.SentimentNeutral]) / n,
		Confidence: clamp01(confSum / weightSum),
		Volatility: volatilityOf(scores),
		Breakdown:  breakdown,
	}
	res.Overall = dominantLabel(res.Positive, res.Neutral, res.Negative)
	return res
}

// dominantLabel picks the largest fraction; ties resolve positive, then
// neutral, then negative.
func dominantLabel(pos, neu, neg float64) model.SentimentLabel {
	label, best := model.SentimentPositive, pos
	if neu > best {
		label, best = model.SentimentNeutral, neu
	}
	if neg > best {
		label = model.SentimentNegative
	}
	return label
}

func volatilityOf(scores []float64) model.Volatility {
	sd := stddev(scores)
	switch {
	case sd > highVolatility:
		return model.VolatilityHigh
	case sd > mediumVolatility:
		return model.VolatilityMedium
	default:
		return model.VolatilityLow
	}
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(len(values)))
}

func preview(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}
