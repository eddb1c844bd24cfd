package analysis

import (
	"sort"
	"strings"
	"unicode/utf8"

	"marketlens/internal/model"
)

const (
	maxSignalsPerCategory = 3
	snippetRadius         = 60
	maxThemes             = 5
)

// ExtractSignals scans title and content of every item for the signal
// keywords and keeps up to three snippets per category. Every category is
// present in the result, possibly with an empty list.
func ExtractSignals(m *Matcher, items []model.RawItem) model.SignalSet {
	signals := make(model.SignalSet, len(model.SignalCategories))
	for _, c := range model.SignalCategories {
		signals[c] = []string{}
	}

	for _, item := range items {
		text := item.Text()
		matches := m.Match(text)

		for _, c := range model.SignalCategories {
			phrases := matches[string(c)]
			if len(phrases) == 0 || len(signals[c]) >= maxSignalsPerCategory {
				continue
			}

			snippet := snippetAround(text, phrases[0])
			if snippet == "" || contains(signals[c], snippet) {
				continue
			}
			signals[c] = append(signals[c], snippet)
		}
	}

	return signals
}

// RankThemes orders theme categories by total phrase occurrences across all
// items, ties alphabetical, and returns at most five with a non-zero score.
func RankThemes(m *Matcher, items []model.RawItem) []string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString(item.Text())
		sb.WriteString(" ")
	}
	all := sb.String()

	type scored struct {
		theme string
		score int
	}

	var scores []scored
	for _, theme := range m.Categories() {
		if n := m.Count(theme, all); n > 0 {
			scores = append(scores, scored{theme, n})
		}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].theme < scores[j].theme
	})

	themes := make([]string, 0, maxThemes)
	for i := 0; i < len(scores) && i < maxThemes; i++ {
		themes = append(themes, scores[i].theme)
	}
	return themes
}

// snippetAround returns the text surrounding the first case-insensitive
// occurrence of phrase, cut on rune boundaries.
func snippetAround(text, phrase string) string {
	idx, n := indexFold(text, phrase)
	if idx < 0 {
		return phrase
	}

	start := idx - snippetRadius
	if start < 0 {
		start = 0
	}
	end := idx + n + snippetRadius
	if end > len(text) {
		end = len(text)
	}

	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}
	if start > end {
		return phrase
	}

	snippet := strings.Join(strings.Fields(text[start:end]), " ")
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(text) {
		snippet += "..."
	}
	return snippet
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// indexFold finds phrase in text under Unicode case folding. Offsets refer to
// text itself, so they stay valid when lowercasing changes byte lengths.
func indexFold(text, phrase string) (idx, n int) {
	if phrase == "" {
		return -1, 0
	}
	for i := range text {
		j, k := i, 0
		for k < len(phrase) && j < len(text) {
			tr, tn := utf8.DecodeRuneInString(text[j:])
			pr, pn := utf8.DecodeRuneInString(phrase[k:])
			if tr != pr && !strings.EqualFold(string(tr), string(pr)) {
				break
			}
			j += tn
			k += pn
		}
		if k == len(phrase) {
			return i, j - i
		}
	}
	return -1, 0
}
