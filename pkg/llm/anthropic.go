package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type AnthropicClient struct {
	client    *anthropic.Client
	model     anthropic.Model
	modelName string
}

func NewAnthropicClient(apiKey string, opts ...option.RequestOption) *AnthropicClient {
	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &AnthropicClient{
		client:    &client,
		model:     anthropic.Model("claude-haiku-4-5"), // same value as ModelClaudeHaiku4_5 (added in SDK v1.10+)
		modelName: "claude-4.5-haiku",
	}
}

func (c *AnthropicClient) Name() string {
	return "anthropic"
}

func (c *AnthropicClient) GenerateInsights(ctx context.Context, req InsightsRequest) (*InsightsResult, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   1500,
		Temperature: anthropic.Float(0.3),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildInsightsPrompt(req))),
		},
	})

	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("%w: no content from anthropic", ErrMalformedResponse)
	}

	insights, err := parseInsights(resp.Content[0].Text)
	if err != nil {
		return nil, err
	}

	return &InsightsResult{
		Insights:      *insights,
		ModelUsed:     c.modelName,
		PromptVersion: promptVersion,
		TokensUsed:    resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	// Some model responses include extra prose around JSON.
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}
