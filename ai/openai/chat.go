package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/policygraph/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrEmptyResponse indicates the model returned no choices.
var ErrEmptyResponse = errors.New("model returned no choices")

// chat sends a system and user message pair and decodes a JSON reply.
type chat struct {
	client      llms.Model
	temperature float64
	attempts    int
	logger      *slog.Logger
}

func newChat(config *ai.Config, component string) (*chat, error) {
	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(config.Token()),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}
	return &chat{
		client:      client,
		temperature: config.Temperature,
		attempts:    config.MaxAttempts,
		logger:      slog.Default().With("component", component),
	}, nil
}

// generateJSON retries up to c.attempts times while the reply fails to
// parse. Transport errors are returned immediately.
func (c *chat) generateJSON(ctx context.Context, system, user string, out any) error {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(user)},
		},
	}

	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		response, err := c.client.GenerateContent(ctx, content,
			llms.WithTemperature(c.temperature), llms.WithJSONMode())
		if err != nil {
			c.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return err
		}
		if len(response.Choices) < 1 {
			return ErrEmptyResponse
		}

		responseText := repairJSON(extractJSON(response.Choices[0].Content))
		if err := json.Unmarshal([]byte(responseText), out); err != nil {
			lastErr = err
			c.logger.Warn("error parsing model response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}
		return nil
	}
	return fmt.Errorf("parse model response after %d attempts: %w", c.attempts, lastErr)
}
