package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"studygen_backend/internal/config"
	"studygen_backend/internal/util"
	"studygen_backend/pkg/logger"
	"studygen_backend/pkg/monitoring"
)

// AIService wraps the chat-completion provider behind a single Complete
// call. Provider failures are classified into the pipeline error
// taxonomy so callers never branch on raw HTTP codes.
type AIService struct {
	client *openai.Client
	model  string
	temp   float32
	tokens int
}

func NewAIService(cfg *config.Config) *AIService {
	clientCfg := openai.DefaultConfig(cfg.AI.APIKey)
	if cfg.AI.BaseURL != "" {
		clientCfg.BaseURL = cfg.AI.BaseURL
	}
	return &AIService{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.AI.Model,
		temp:   cfg.AI.Temperature,
		tokens: cfg.AI.MaxTokens,
	}
}

const systemPrompt = "You are a quiz generator for a study platform. " +
	"Respond with a single JSON object and nothing else."

// Complete sends one prompt and returns the raw text of the first choice.
func (s *AIService) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: s.temp,
		MaxTokens:   s.tokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	monitoring.ProviderDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		return "", s.classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", util.ErrProviderUnavailable)
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", util.ErrProviderSafetyBlocked
	}
	return choice.Message.Content, nil
}

func (s *AIService) classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		logger.Log.Warn("provider request failed",
			zap.Int("status", apiErr.HTTPStatusCode),
			zap.String("type", apiErr.Type))
		switch apiErr.HTTPStatusCode {
		case 401, 403:
			return fmt.Errorf("%w: %v", util.ErrProviderAuth, apiErr)
		case 429:
			return fmt.Errorf("%w: %v", util.ErrProviderRateLimited, apiErr)
		}
		if apiErr.Code == "content_filter" {
			return fmt.Errorf("%w: %v", util.ErrProviderSafetyBlocked, apiErr)
		}
		return fmt.Errorf("%w: %v", util.ErrProviderUnavailable, apiErr)
	}
	logger.Log.Warn("provider request failed", zap.Error(err))
	return fmt.Errorf("%w: %v", util.ErrProviderUnavailable, err)
}
