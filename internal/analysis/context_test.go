package analysis

import (
	"context"
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"

	"marketlens/internal/model"
)

func TestAssemble_MissingSectionsRenderNotAvailable(t *testing.T) {
	actx := Assemble("tesla", nil, nil)

	for _, section := range []string{
		"SENTIMENT SUMMARY", "TREND SUMMARY", "KEY SIGNALS",
		"DOMINANT THEMES", "QUALITY ASSESSMENT", "CONTENT SAMPLES",
	} {
		assert.Equal(t, true, strings.Contains(actx.Text, section))
	}
	assert.Equal(t, 6, strings.Count(actx.Text, notAvailable))
}

func TestAssemble_FullContext(t *testing.T) {
	items := []model.RawItem{
		item(model.SourceNews, "Tesla expansion", "Tesla announced factory expansion and strong growth.", day),
		item(model.SourceReddit, "Tesla price", "Discussion of price cuts.", 2*day),
	}

	res, err := NewAnalyzer(0).Analyze(context.Background(), items, testNow)
	assert.Equal(t, nil, err)

	actx := Assemble("tesla", items, res)

	assert.Equal(t, 0, strings.Count(actx.Text, notAvailable))
	assert.Equal(t, 2, len(actx.Samples))
	assert.Equal(t, true, strings.Contains(actx.Text, "Overall Market Sentiment: POSITIVE"))
	assert.Equal(t, true, strings.Contains(actx.Text, "Title: Tesla expansion"))
	assert.Equal(t, true, strings.Contains(actx.Text, "news: 1, reddit: 1"))
}

func TestAssemble_SamplesBounded(t *testing.T) {
	var items []model.RawItem
	for i := 0; i < 12; i++ {
		items = append(items, item(model.SourceNews, "t", strings.Repeat("z", 1000), day))
	}

	actx := Assemble("q", items, nil)

	assert.Equal(t, maxSamples, len(actx.Samples))
	assert.Equal(t, sampleSnippetSize+3, len(actx.Samples[0].Snippet))
}
