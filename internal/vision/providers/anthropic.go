package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	NameAnthropic = "anthropic"

	defaultAnthropicModel = "claude-sonnet-4-20250514"
)

// AnthropicProvider sends screenshots to Claude as base64 image blocks
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(apiKey, model, baseURL string) *AnthropicProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// Retries are handled by the caller's backoff.
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = defaultAnthropicModel
	}

	client := anthropic.NewClient(opts...)
	return &AnthropicProvider{client: &client, model: model}
}

func (c *AnthropicProvider) Name() string  { return NameAnthropic }
func (c *AnthropicProvider) Model() string { return c.model }

// Extract sends the images followed by the prompt and returns the reply.
func (c *AnthropicProvider) Extract(ctx context.Context, images [][]byte, prompt string) (string, error) {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(images)+1)
	for _, img := range images {
		blocks = append(blocks, anthropic.NewImageBlockBase64("image/png", base64.StdEncoding.EncodeToString(img)))
	}
	blocks = append(blocks, anthropic.NewTextBlock(prompt))

	// Prefill so Claude continues with the JSON object
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
			anthropic.NewAssistantMessage(anthropic.NewTextBlock("{")),
		},
	})
	if err != nil {
		err = fmt.Errorf("failed to call Claude API: %w", err)
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", classify(apiErr.StatusCode, err)
		}
		return "", err
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}
	if responseText == "" {
		return "", errors.New("Claude returned empty response")
	}

	// Prepend "{" since we used prefilling
	return "{" + responseText, nil
}
