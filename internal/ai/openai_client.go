package ai

import (
	"context"
	"errors"
	"math"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var ErrEmptyReply = errors.New("ai: empty choices")

type Options struct {
	APIKey string
	Model  string
	// BaseURL + APIVersion включают Azure OpenAI; Model тогда — имя deployment
	BaseURL    string
	APIVersion string
	MaxTokens  int
}

type OpenAIClient struct {
	client    *openai.Client
	model     string
	maxTokens int
	log       *zap.Logger
}

func NewOpenAIClient(opts Options, log *zap.Logger) (*OpenAIClient, error) {
	if opts.APIKey == "" {
		return nil, errors.New("ai: OPENAI_API_KEY not set")
	}
	if opts.Model == "" {
		opts.Model = openai.GPT4oMini
	}

	var cfg openai.ClientConfig
	switch {
	case opts.BaseURL != "" && opts.APIVersion != "":
		cfg = openai.DefaultAzureConfig(opts.APIKey, opts.BaseURL)
		cfg.APIVersion = opts.APIVersion
	case opts.BaseURL != "":
		cfg = openai.DefaultConfig(opts.APIKey)
		cfg.BaseURL = opts.BaseURL
	default:
		cfg = openai.DefaultConfig(opts.APIKey)
	}

	return &OpenAIClient{
		client:    openai.NewClientWithConfig(cfg),
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		log:       log,
	}, nil
}

func (c *OpenAIClient) GetReply(
	ctx context.Context,
	systemPrompt string,
	input string,
) (string, error) {

	history := []Message{
		{Role: openai.ChatMessageRoleSystem, Text: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Text: input},
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Text,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
		// ноль go-openai выкидывает через omitempty
		Temperature: math.SmallestNonzeroFloat32,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		c.log.Warn("openai request failed", zap.String("model", c.model), zap.Error(err))
		return "", err
	}

	if len(resp.Choices) == 0 {
		c.log.Warn("openai returned no choices", zap.String("model", c.model))
		return "", ErrEmptyReply
	}

	raw := resp.Choices[0].Message.Content
	c.log.Debug("openai raw reply", zap.String("model", c.model), zap.String("reply", raw))

	return raw, nil
}
