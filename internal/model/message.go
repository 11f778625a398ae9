package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a conversation. Values are never modified after
// they are appended.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is the ordered message history, oldest first. The zero value
// is an empty conversation.
type Conversation []Message

// Clone returns a copy that shares no backing array with c. The result is
// never nil so it always encodes as a JSON array.
func (c Conversation) Clone() Conversation {
	out := make(Conversation, len(c))
	copy(out, c)
	return out
}

// WithTurn returns c extended by the user input and the assistant reply,
// in that order. c itself is left untouched.
func (c Conversation) WithTurn(userInput, reply string) Conversation {
	out := make(Conversation, len(c), len(c)+2)
	copy(out, c)
	return append(out,
		Message{Role: RoleUser, Content: userInput},
		Message{Role: RoleAssistant, Content: reply},
	)
}

// Session is a conversation kept server-side under an opaque ID.
type Session struct {
	ID        string       `json:"id"`
	Messages  Conversation `json:"messages"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
