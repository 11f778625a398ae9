package service

import (
	"context"
	"errors"
	"time"

	"roast-backend/internal/config"
	"roast-backend/internal/model"
	"roast-backend/pkg/logger"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"
)

const (
	ValidationMessage     = "Please enter something about yourself."
	UpstreamStatusMessage = "Failed to fetch roast"
	FallbackErrorMessage  = "Something went wrong."
	DefaultPlaceholder    = "No roast found."
)

// RoastService runs one roast exchange against the upstream chat model.
// It holds no per-conversation state and is safe for concurrent use.
type RoastService struct {
	chatModel    einoModel.BaseChatModel
	systemPrompt string
	placeholder  string
}

func NewRoastService(chatModel einoModel.BaseChatModel, cfg config.RoastConfig) *RoastService {
	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = config.DefaultSystemPrompt
	}
	placeholder := cfg.PlaceholderReply
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	return &RoastService{
		chatModel:    chatModel,
		systemPrompt: systemPrompt,
		placeholder:  placeholder,
	}
}

// Exchange validates the input, sends system directive + history + input
// upstream and folds the reply into a new conversation. On any failure the
// returned conversation is a copy of req.Conversation with nothing appended.
func (s *RoastService) Exchange(ctx context.Context, req model.TurnRequest) model.TurnResult {
	history := req.Conversation.Clone()

	if req.UserInput == "" {
		return model.TurnResult{Error: ValidationMessage, Conversation: history}
	}

	started := time.Now()
	reply, err := s.chatModel.Generate(ctx, s.buildMessages(history, req.UserInput))
	entry := logger.WithFields(logrus.Fields{
		"history":  len(history),
		"duration": time.Since(started).String(),
	})
	if err != nil {
		entry.Errorf("roast exchange failed: %v", err)
		return model.TurnResult{Error: failureMessage(err), Conversation: history}
	}

	roast := ""
	if reply != nil {
		roast = reply.Content
	}
	if roast == "" {
		entry.Warn("upstream reply had no content, using placeholder")
		roast = s.placeholder
	}
	entry.Info("roast delivered")

	return model.TurnResult{
		Roast:        roast,
		UserInput:    req.UserInput,
		Conversation: history.WithTurn(req.UserInput, roast),
	}
}

func (s *RoastService) buildMessages(history model.Conversation, userInput string) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, schema.SystemMessage(s.systemPrompt))
	for _, m := range history {
		role := schema.User
		if m.Role == model.RoleAssistant {
			role = schema.Assistant
		}
		messages = append(messages, &schema.Message{Role: role, Content: m.Content})
	}
	return append(messages, schema.UserMessage(userInput))
}

// failureMessage turns an upstream error into the text shown to the user.
func failureMessage(err error) string {
	if errors.Is(err, model.ErrUpstreamStatus) {
		return UpstreamStatusMessage
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return FallbackErrorMessage
}
