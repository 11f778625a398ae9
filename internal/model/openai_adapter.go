package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"roast-backend/internal/config"
	"roast-backend/pkg/logger"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openai "github.com/sashabaranov/go-openai"
)

// ErrUpstreamStatus marks a completion call that got a non-2xx answer.
var ErrUpstreamStatus = errors.New("upstream returned an error status")

// openRouterChatModel talks to OpenRouter (or any OpenAI-compatible
// endpoint) through go-openai and exposes it as an eino chat model.
type openRouterChatModel struct {
	client *openai.Client
	model  string
}

var _ einoModel.BaseChatModel = (*openRouterChatModel)(nil)

func newOpenRouterChatModel(cfg config.UpstreamConfig, httpClient *http.Client) *openRouterChatModel {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = httpClient

	return &openRouterChatModel{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}
}

// Generate sends the full message history in one completion request. A
// response without choices yields an assistant message with empty content.
func (m *openRouterChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.Message, error) {
	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    m.model,
		Messages: convertMessages(messages),
	})
	if err != nil {
		return nil, classifyError(err)
	}

	if len(resp.Choices) == 0 {
		logger.Warnf("upstream returned no choices (model %s)", m.model)
		return &schema.Message{Role: schema.Assistant}, nil
	}

	return &schema.Message{
		Role:    schema.Assistant,
		Content: resp.Choices[0].Message.Content,
	}, nil
}

// Stream is not used by the roast exchange; it replays Generate as a
// single-chunk stream so the type satisfies the eino interface.
func (m *openRouterChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func convertMessages(messages []*schema.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case schema.Assistant:
			role = openai.ChatMessageRoleAssistant
		case schema.System:
			role = openai.ChatMessageRoleSystem
		}
		result = append(result, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}
	return result
}

func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return fmt.Errorf("%w: status %d: %s", ErrUpstreamStatus, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return fmt.Errorf("%w: status %d", ErrUpstreamStatus, reqErr.HTTPStatusCode)
	}
	return err
}
