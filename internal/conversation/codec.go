// Package conversation converts a message history to and from the text
// form carried in the hidden "conversation" form field.
package conversation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"roast-backend/internal/model"
)

var ErrInvalidConversation = errors.New("invalid conversation")

// wireMessage uses pointers so missing fields can be told apart from empty ones.
type wireMessage struct {
	Role    *string `json:"role"`
	Content *string `json:"content"`
}

// Encode renders c as a JSON array of {role, content} objects. An empty or
// nil conversation encodes as "[]".
func Encode(c model.Conversation) (string, error) {
	data, err := json.Marshal(c.Clone())
	if err != nil {
		return "", fmt.Errorf("encode conversation: %w", err)
	}
	return string(data), nil
}

// Parse is the strict decoder. It accepts only a JSON array whose elements
// carry a string role of "user" or "assistant" and a string content.
// Unknown fields on an element are ignored.
func Parse(text string) (model.Conversation, error) {
	trimmed := bytes.TrimSpace([]byte(text))
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: not a JSON array", ErrInvalidConversation)
	}

	var raw []wireMessage
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConversation, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after array", ErrInvalidConversation)
	}

	out := make(model.Conversation, 0, len(raw))
	for i, m := range raw {
		if m.Role == nil || m.Content == nil {
			return nil, fmt.Errorf("%w: message %d is missing role or content", ErrInvalidConversation, i)
		}
		switch *m.Role {
		case model.RoleUser, model.RoleAssistant:
		default:
			return nil, fmt.Errorf("%w: message %d has role %q", ErrInvalidConversation, i, *m.Role)
		}
		out = append(out, model.Message{Role: *m.Role, Content: *m.Content})
	}
	return out, nil
}

// Decode is the lenient decoder used on the request path: absent text and
// anything Parse rejects both yield an empty conversation.
func Decode(text string) model.Conversation {
	c, _ := DecodeReport(text)
	return c
}

// DecodeReport behaves like Decode and also returns the Parse error that was
// downgraded, so callers can log it.
func DecodeReport(text string) (model.Conversation, error) {
	if text == "" {
		return model.Conversation{}, nil
	}
	c, err := Parse(text)
	if err != nil {
		return model.Conversation{}, err
	}
	return c, nil
}
