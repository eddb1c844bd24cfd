package llm

import (
	"fmt"
	"strings"
)

const promptVersion = "insights-v1"

const systemPrompt = `You are an expert market research analyst specializing in data-driven insights and trend analysis.
You only use facts present in the provided market data context. When the data is thin, say so and lower the confidence score.
Output JSON only, no other text.`

type promptExample struct {
	Query    string
	Context  string
	Analysis string
}

var insightExamples = []promptExample{
	{
		Query:    "Tesla stock performance",
		Context:  "Positive sentiment: 65%, Recent news about new factory, Stock up 12%",
		Analysis: "Tesla shows strong momentum driven by expansion news and positive investor sentiment. The 12% stock increase correlates with the factory announcement, indicating market confidence in the growth strategy.",
	},
	{
		Query:    "Cryptocurrency market trends",
		Context:  "Mixed sentiment: 45% positive, 35% negative, Regulatory concerns, Institutional adoption",
		Analysis: "The cryptocurrency market exhibits volatility with regulatory uncertainty offsetting institutional adoption benefits. Mixed sentiment reflects the tension between growth potential and regulatory risk.",
	},
}

const insightsSchema = `{
  "summary": "2-3 sentence executive summary of the most critical insights",
  "key_findings": ["[Pattern/Trend] - [Supporting Data] - [Implication]"],
  "market_sentiment": "one of: positive, negative, neutral, mixed",
  "confidence_score": 0.0-1.0,
  "opportunities": [
    {"opportunity": "...", "potential_impact": "low|medium|high", "timeframe": "short-term|medium-term|long-term", "supporting_evidence": "..."}
  ],
  "risks": [
    {"risk": "...", "probability": "low|medium|high", "impact": "low|medium|high", "mitigation": "..."}
  ],
  "competitive_analysis": "short paragraph on competitive dynamics",
  "recommendations": ["[Priority] [Specific Action] - [Expected Outcome] - [Timeline]"]
}`

// buildInsightsPrompt renders the user message for an insights request.
func buildInsightsPrompt(req InsightsRequest) string {
	var sb strings.Builder

	sb.WriteString("Analyze the market scenario below. Work through pattern recognition, causal analysis, trend extrapolation, risk-reward assessment and strategic recommendations.\n\n")

	sb.WriteString("LEARNING EXAMPLES:\n")
	for i, ex := range insightExamples {
		sb.WriteString(fmt.Sprintf("Example %d:\nQuery: %s\nContext: %s\nAnalysis: %s\n\n", i+1, ex.Query, ex.Context, ex.Analysis))
	}

	sb.WriteString(fmt.Sprintf("QUERY: %s\n\n", req.Query))
	sb.WriteString("MARKET DATA CONTEXT:\n")
	sb.WriteString(req.Context)
	sb.WriteString("\n\nRespond with a JSON object in exactly this format:\n")
	sb.WriteString(insightsSchema)
	sb.WriteString("\n")

	return sb.String()
}
