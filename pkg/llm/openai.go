package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type OpenAIClient struct {
	client    *openai.Client
	model     openai.ChatModel
	modelName string
}

func NewOpenAIClient(apiKey string, opts ...option.RequestOption) *OpenAIClient {
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAIClient{
		client:    &client,
		model:     openai.ChatModelGPT4oMini,
		modelName: "gpt-4o-mini",
	}
}

func (c *OpenAIClient) Name() string {
	return "openai"
}

func (c *OpenAIClient) GenerateInsights(ctx context.Context, req InsightsRequest) (*InsightsResult, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildInsightsPrompt(req)),
		},
		MaxTokens:   openai.Int(1500),
		Temperature: openai.Float(0.3),
	})

	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices from openai", ErrMalformedResponse)
	}

	insights, err := parseInsights(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	return &InsightsResult{
		Insights:      *insights,
		ModelUsed:     c.modelName,
		PromptVersion: promptVersion,
		TokensUsed:    resp.Usage.TotalTokens,
	}, nil
}
