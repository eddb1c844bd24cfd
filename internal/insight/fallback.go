package insight

import (
	"strings"

	"marketlens/internal/analysis"
	"marketlens/pkg/llm"
)

// FallbackPolicy describes the placeholder insights served when the LLM
// answer is unusable. "{query}" in Summary is replaced with the query text.
type FallbackPolicy struct {
	Confidence      float64
	Summary         string
	KeyFindings     []string
	Recommendations []string
	Opportunities   []llm.Opportunity
	Risks           []llm.Risk
}

func DefaultFallbackPolicy() FallbackPolicy {
	return FallbackPolicy{
		Confidence: 0.3,
		Summary:    `Analysis completed for "{query}". Market data shows mixed signals with varying sentiment across sources.`,
		KeyFindings: []string{
			"Market sentiment analysis indicates diverse opinions across data sources",
			"Trend analysis reveals ongoing market activity and discussion",
			"Multiple data points collected from various sources for comprehensive analysis",
		},
		Recommendations: []string{
			"Continue monitoring market sentiment for trend changes",
			"Analyze competitor activities and market positioning",
			"Consider diversification strategies based on current market conditions",
		},
		Opportunities: []llm.Opportunity{
			{
				Opportunity:        "Market monitoring and trend analysis",
				PotentialImpact:    "medium",
				Timeframe:          "short-term",
				SupportingEvidence: "Active market discussion and data availability",
			},
		},
		Risks: []llm.Risk{
			{
				Risk:        "Market volatility and uncertainty",
				Probability: "medium",
				Impact:      "medium",
				Mitigation:  "Continuous monitoring and diversification",
			},
		},
	}
}

// Insights builds the placeholder. Market sentiment comes from the aggregated
// sentiment so the fallback still reflects the fetched data.
func (p FallbackPolicy) Insights(query string, r *analysis.Result) llm.Insights {
	sentiment := "neutral"
	if r != nil && r.Sentiment != nil {
		sentiment = string(r.Sentiment.Overall)
	}

	return llm.Insights{
		Summary:             strings.ReplaceAll(p.Summary, "{query}", query),
		KeyFindings:         append([]string{}, p.KeyFindings...),
		MarketSentiment:     sentiment,
		ConfidenceScore:     p.Confidence,
		Opportunities:       append([]llm.Opportunity{}, p.Opportunities...),
		Risks:               append([]llm.Risk{}, p.Risks...),
		CompetitiveAnalysis: "",
		Recommendations:     append([]string{}, p.Recommendations...),
		FallbackMode:        true,
	}
}
