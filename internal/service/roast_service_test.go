package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"roast-backend/internal/config"
	"roast-backend/internal/model"

	"github.com/cloudwego/eino/schema"
)

func twoMessages() model.Conversation {
	return model.Conversation{
		{Role: model.RoleUser, Content: "I love pineapple pizza"},
		{Role: model.RoleAssistant, Content: "Roast text"},
	}
}

func TestExchangeSuccessAppendsPair(t *testing.T) {
	fake := replying("Roast text")
	svc := NewRoastService(fake, config.RoastConfig{SystemPrompt: "be mean"})

	result := svc.Exchange(context.Background(), model.TurnRequest{UserInput: "I love pineapple pizza"})

	if result.Failed() {
		t.Fatalf("unexpected failure: %s", result.Error)
	}
	if result.Roast != "Roast text" || result.UserInput != "I love pineapple pizza" {
		t.Errorf("unexpected result %+v", result)
	}
	if !reflect.DeepEqual(result.Conversation, twoMessages()) {
		t.Errorf("unexpected conversation %+v", result.Conversation)
	}
}

func TestExchangeBuildsPayload(t *testing.T) {
	fake := replying("ok")
	svc := NewRoastService(fake, config.RoastConfig{SystemPrompt: "be mean"})

	svc.Exchange(context.Background(), model.TurnRequest{Conversation: twoMessages(), UserInput: "again"})

	if fake.callCount() != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", fake.callCount())
	}
	sent := fake.calls[0]
	want := []struct {
		role    schema.RoleType
		content string
	}{
		{schema.System, "be mean"},
		{schema.User, "I love pineapple pizza"},
		{schema.Assistant, "Roast text"},
		{schema.User, "again"},
	}
	if len(sent) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(sent))
	}
	for i, w := range want {
		if sent[i].Role != w.role || sent[i].Content != w.content {
			t.Errorf("message %d: got {%s %q}, want {%s %q}", i, sent[i].Role, sent[i].Content, w.role, w.content)
		}
	}
}

func TestExchangeDefaultSystemPrompt(t *testing.T) {
	fake := replying("ok")
	svc := NewRoastService(fake, config.RoastConfig{})

	svc.Exchange(context.Background(), model.TurnRequest{UserInput: "hi"})

	if got := fake.calls[0][0].Content; got != config.DefaultSystemPrompt {
		t.Errorf("expected default system prompt, got %q", got)
	}
}

func TestExchangeValidationShortCircuit(t *testing.T) {
	fake := replying("should not be used")
	svc := NewRoastService(fake, config.RoastConfig{})

	for _, history := range []model.Conversation{nil, twoMessages()} {
		result := svc.Exchange(context.Background(), model.TurnRequest{Conversation: history, UserInput: ""})
		if result.Error != ValidationMessage {
			t.Errorf("expected validation message, got %q", result.Error)
		}
		if len(result.Conversation) != len(history) {
			t.Errorf("conversation changed on rejection: %+v", result.Conversation)
		}
		if result.Conversation == nil {
			t.Errorf("conversation must encode as an array, got nil")
		}
	}
	if fake.callCount() != 0 {
		t.Errorf("validation failure must not call upstream, got %d calls", fake.callCount())
	}
}

func TestExchangePlaceholderReply(t *testing.T) {
	tests := []struct {
		name  string
		reply *schema.Message
	}{
		{"empty content", &schema.Message{Role: schema.Assistant}},
		{"nil message", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewRoastService(&fakeChatModel{reply: tc.reply}, config.RoastConfig{})
			result := svc.Exchange(context.Background(), model.TurnRequest{UserInput: "test"})

			if result.Failed() {
				t.Fatalf("placeholder case is a success, got error %q", result.Error)
			}
			if result.Roast != "No roast found." {
				t.Errorf("expected placeholder, got %q", result.Roast)
			}
			want := model.Conversation{
				{Role: model.RoleUser, Content: "test"},
				{Role: model.RoleAssistant, Content: "No roast found."},
			}
			if !reflect.DeepEqual(result.Conversation, want) {
				t.Errorf("unexpected conversation %+v", result.Conversation)
			}
		})
	}
}

type blankError struct{}

func (blankError) Error() string { return "" }

func TestExchangeFailureKeepsConversation(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"status error", fmt.Errorf("%w: status 500", model.ErrUpstreamStatus), UpstreamStatusMessage},
		{"network error", errors.New("dial tcp: connection refused"), "dial tcp: connection refused"},
		{"blank error", blankError{}, FallbackErrorMessage},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			history := twoMessages()
			svc := NewRoastService(&fakeChatModel{err: tc.err}, config.RoastConfig{})

			result := svc.Exchange(context.Background(), model.TurnRequest{Conversation: history, UserInput: "again"})

			if result.Error != tc.wantMsg {
				t.Errorf("expected error %q, got %q", tc.wantMsg, result.Error)
			}
			if result.Roast != "" || result.UserInput != "" {
				t.Errorf("failure must not carry a roast: %+v", result)
			}
			if !reflect.DeepEqual(result.Conversation, twoMessages()) {
				t.Errorf("conversation changed on failure: %+v", result.Conversation)
			}
		})
	}
}

func TestExchangeDoesNotAliasInput(t *testing.T) {
	history := append(make(model.Conversation, 0, 10), twoMessages()...)
	svc := NewRoastService(replying("burn"), config.RoastConfig{})

	result := svc.Exchange(context.Background(), model.TurnRequest{Conversation: history, UserInput: "more"})

	if len(history) != 2 {
		t.Fatalf("input conversation was modified")
	}
	result.Conversation[0].Content = "changed"
	if history[0].Content != "I love pineapple pizza" {
		t.Errorf("result shares storage with the input conversation")
	}
}
