// Package llm wraps the OpenAI chat completion API with structured-output
// parsing: every request names a JSON-schema response shape, and the reply is
// either a raw value matching that shape, a refusal, or nothing.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chimein/chime/pkg/models"
)

// ParseRequest describes one structured completion round trip.
type ParseRequest struct {
	// Model is the model identifier, e.g. "gpt-4o-mini".
	Model string

	// System is the system instruction, injected as the first message.
	System string

	// Messages is the ordered conversation context.
	Messages []models.ChatMessage

	// MaxTokens is the token budget for the response. Zero means no limit.
	MaxTokens int

	// Format is the response shape the model must produce.
	Format ResponseFormat
}

// ParseResult is the provider outcome of a structured request. Value is nil
// when the model produced nothing parseable against the requested shape;
// callers decide what that means for them.
type ParseResult struct {
	Refusal bool
	Value   json.RawMessage
}

// Client issues structured completion requests against the OpenAI API.
// It is safe for concurrent use.
type Client struct {
	api    *openai.Client
	logger *slog.Logger
}

// NewClient creates a Client with the given API key. A nil logger falls back
// to slog.Default.
func NewClient(apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:    openai.NewClient(apiKey),
		logger: logger.With("component", "llm"),
	}
}

// Parse sends a structured completion request and maps the reply onto a
// ParseResult. Transport and API faults are returned as errors; a reply that
// carries no parseable value is not an error.
func (c *Client) Parse(ctx context.Context, req ParseRequest) (*ParseResult, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: convertMessages(req.Messages, req.System),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Format.Name,
				Schema: req.Format.Schema,
				Strict: true,
			},
		},
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}

	resp, err := c.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		c.logger.Warn("completion returned no choices", "model", req.Model, "format", req.Format.Name)
		return &ParseResult{}, nil
	}

	msg := resp.Choices[0].Message
	out := &ParseResult{Refusal: msg.Refusal != ""}
	if !out.Refusal && msg.Content != "" && json.Valid([]byte(msg.Content)) {
		out.Value = json.RawMessage(msg.Content)
	}

	c.logger.Debug("completion parsed",
		"model", req.Model,
		"format", req.Format.Name,
		"refusal", out.Refusal,
		"has_value", out.Value != nil,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return out, nil
}

// convertMessages maps role-tagged messages to the OpenAI wire format. The
// system instruction becomes the first message; messages carrying image
// fragments use the multi-content form, plain text uses the string form.
func convertMessages(messages []models.ChatMessage, system string) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)

	if system != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}

	for _, msg := range messages {
		oaiMsg := openai.ChatCompletionMessage{Role: string(msg.Role)}

		if hasImagePart(msg) {
			parts := make([]openai.ChatMessagePart, 0, len(msg.Parts))
			for _, p := range msg.Parts {
				switch p.Type {
				case models.PartTypeText:
					parts = append(parts, openai.ChatMessagePart{
						Type: openai.ChatMessagePartTypeText,
						Text: p.Text,
					})
				case models.PartTypeImageURL:
					parts = append(parts, openai.ChatMessagePart{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    p.ImageURL,
							Detail: openai.ImageURLDetailAuto,
						},
					})
				}
			}
			oaiMsg.MultiContent = parts
		} else {
			oaiMsg.Content = msg.Text()
		}

		out = append(out, oaiMsg)
	}

	return out
}

func hasImagePart(msg models.ChatMessage) bool {
	for _, p := range msg.Parts {
		if p.Type == models.PartTypeImageURL {
			return true
		}
	}
	return false
}
