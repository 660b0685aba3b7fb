package models

// ChatRequest is the inbound payload of POST /chat. Message is a pointer so a
// missing field can be told apart from an empty string.
type ChatRequest struct {
	Message *string `json:"message"`
}

// ConversationResult is the outcome of a single turn.
type ConversationResult struct {
	AI     string `json:"ai"`
	Status bool   `json:"status"`
}

type ChatResponse struct {
	Response ConversationResult `json:"response"`
}
