package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedResponse means the provider answered but the content was not a
// valid insights document.
var ErrMalformedResponse = errors.New("malformed llm response")

type InsightsRequest struct {
	Query   string
	Context string
}

type InsightsResult struct {
	Insights      Insights
	ModelUsed     string
	PromptVersion string
	TokensUsed    int64
}

type InsightsClient interface {
	Name() string
	GenerateInsights(ctx context.Context, req InsightsRequest) (*InsightsResult, error)
}

type Opportunity struct {
	Opportunity        string `json:"opportunity" validate:"required,max=500"`
	PotentialImpact    string `json:"potential_impact" validate:"omitempty,oneof=low medium high"`
	Timeframe          string `json:"timeframe" validate:"omitempty,oneof=short-term medium-term long-term"`
	SupportingEvidence string `json:"supporting_evidence"`
}

type Risk struct {
	Risk        string `json:"risk" validate:"required,max=500"`
	Probability string `json:"probability" validate:"omitempty,oneof=low medium high"`
	Impact      string `json:"impact" validate:"omitempty,oneof=low medium high"`
	Mitigation  string `json:"mitigation"`
}

// Insights is the structured answer of the LLM. FallbackMode is set only on
// placeholder insights produced without a usable LLM response.
type Insights struct {
	Summary             string        `json:"summary" validate:"required"`
	KeyFindings         []string      `json:"key_findings" validate:"required,min=1,dive,required"`
	MarketSentiment     string        `json:"market_sentiment" validate:"omitempty,oneof=positive negative neutral mixed"`
	ConfidenceScore     float64       `json:"confidence_score" validate:"gte=0,lte=1"`
	Opportunities       []Opportunity `json:"opportunities" validate:"dive"`
	Risks               []Risk        `json:"risks" validate:"dive"`
	CompetitiveAnalysis string        `json:"competitive_analysis"`
	Recommendations     []string      `json:"recommendations" validate:"dive,required"`
	FallbackMode        bool          `json:"fallback_mode"`
}

var validate = validator.New()

func (i *Insights) Validate() error {
	return validate.Struct(i)
}

// normalize lowercases the enum-like fields models tend to capitalize and
// replaces nil slices so they encode as [].
func (i *Insights) normalize() {
	i.MarketSentiment = strings.ToLower(strings.TrimSpace(i.MarketSentiment))
	for k := range i.Opportunities {
		i.Opportunities[k].PotentialImpact = strings.ToLower(strings.TrimSpace(i.Opportunities[k].PotentialImpact))
		i.Opportunities[k].Timeframe = normalizeTimeframe(i.Opportunities[k].Timeframe)
	}
	for k := range i.Risks {
		i.Risks[k].Probability = strings.ToLower(strings.TrimSpace(i.Risks[k].Probability))
		i.Risks[k].Impact = strings.ToLower(strings.TrimSpace(i.Risks[k].Impact))
	}
	if i.Opportunities == nil {
		i.Opportunities = []Opportunity{}
	}
	if i.Risks == nil {
		i.Risks = []Risk{}
	}
	if i.Recommendations == nil {
		i.Recommendations = []string{}
	}
}

// normalizeTimeframe maps free-form answers such as "Medium-term (6-12
// months)" onto the three horizons the prompt asks for. Anything else is
// left for validation to reject.
func normalizeTimeframe(tf string) string {
	tf = strings.ToLower(strings.TrimSpace(tf))
	switch {
	case tf == "":
		return ""
	case strings.HasPrefix(tf, "short"):
		return "short-term"
	case strings.HasPrefix(tf, "medium"), strings.HasPrefix(tf, "mid"):
		return "medium-term"
	case strings.HasPrefix(tf, "long"):
		return "long-term"
	}
	return tf
}

// parseInsights decodes and validates raw model output.
func parseInsights(content string) (*Insights, error) {
	content = cleanJSONResponse(content)

	var parsed Insights
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	parsed.normalize()
	parsed.FallbackMode = false

	if err := parsed.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &parsed, nil
}
