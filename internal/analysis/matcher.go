package analysis

import (
	"sort"
	"strings"

	"marketlens/internal/model"
)

// Matcher finds case-insensitive phrase occurrences for a fixed set of
// categories. The signal extractor, theme ranking and the trend aggregator
// share one instance so their keyword lists cannot drift apart.
type Matcher struct {
	categories []string
	phrases    map[string][]string
}

func NewMatcher(categories map[string][]string) *Matcher {
	m := &Matcher{phrases: make(map[string][]string, len(categories))}
	for name, list := range categories {
		m.categories = append(m.categories, name)
		lowered := make([]string, 0, len(list))
		for _, p := range list {
			lowered = append(lowered, strings.ToLower(p))
		}
		m.phrases[name] = lowered
	}
	sort.Strings(m.categories)
	return m
}

// Categories returns category names in sorted order.
func (m *Matcher) Categories() []string {
	return m.categories
}

// Match returns, per category, the phrases present in text (in list order).
// Categories with no match are absent.
func (m *Matcher) Match(text string) map[string][]string {
	lower := strings.ToLower(text)
	out := make(map[string][]string)
	if strings.TrimSpace(lower) == "" {
		return out
	}

	for _, name := range m.categories {
		for _, p := range m.phrases[name] {
			if strings.Contains(lower, p) {
				out[name] = append(out[name], p)
			}
		}
	}
	return out
}

// Count returns the total number of occurrences of every phrase of the
// category in text.
func (m *Matcher) Count(category, text string) int {
	lower := strings.ToLower(text)
	total := 0
	for _, p := range m.phrases[category] {
		total += strings.Count(lower, p)
	}
	return total
}

// Phrases returns every distinct phrase found in text regardless of category.
func (m *Matcher) Phrases(text string) []string {
	seen := make(map[string]bool)
	var out []string
	matches := m.Match(text)
	for _, name := range m.categories {
		for _, p := range matches[name] {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	sort.Strings(out)
	return out
}

var signalKeywords = map[string][]string{
	string(model.SignalVolume):      {"surge", "spike", "increase", "growth", "expansion"},
	string(model.SignalPrice):       {"price", "cost", "valuation", "market cap"},
	string(model.SignalRegulatory):  {"regulation", "policy", "government", "compliance"},
	string(model.SignalInnovation):  {"innovation", "technology", "breakthrough", "patent"},
	string(model.SignalCompetitive): {"acquisition", "merger", "partnership", "competition"},
}

var themeKeywords = map[string][]string{
	"Growth & Expansion":      {"growth", "expansion", "scale", "increase"},
	"Technology & Innovation": {"technology", "innovation", "digital", "artificial intelligence"},
	"Market Competition":      {"competition", "competitor", "market share"},
	"Financial Performance":   {"revenue", "profit", "earnings", "financial"},
	"Regulatory & Policy":     {"regulation", "policy", "compliance", "government"},
	"Customer & Demand":       {"customer", "demand", "consumer", "user"},
}

func DefaultSignalMatcher() *Matcher {
	return NewMatcher(signalKeywords)
}

func DefaultThemeMatcher() *Matcher {
	return NewMatcher(themeKeywords)
}
