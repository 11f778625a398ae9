package model

// TurnRequest is the input to one roast exchange.
type TurnRequest struct {
	Conversation Conversation
	UserInput    string
}

// TurnResult is the outcome of one exchange. Exactly one of Roast or Error
// is set; Conversation is always the state the client should adopt.
type TurnResult struct {
	Roast        string       `json:"roast,omitempty"`
	UserInput    string       `json:"userInput,omitempty"`
	Error        string       `json:"error,omitempty"`
	Conversation Conversation `json:"conversation"`
	SessionID    string       `json:"sessionId,omitempty"`
}

func (r TurnResult) Failed() bool {
	return r.Error != ""
}

type ResetResponse struct {
	Conversation Conversation `json:"conversation"`
	SessionID    string       `json:"sessionId,omitempty"`
}
