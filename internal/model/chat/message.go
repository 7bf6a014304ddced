package chat

import (
	"time"

	"github.com/google/uuid"
)

const (
	messageTimeLayout      = "3:04:05 PM"
	conversationTimeLayout = "1/2/2006, 3:04:05 PM"
)

// Message is one immutable entry of a conversation log.
type Message struct {
	ID                string    `json:"id"`
	Content           string    `json:"content"`
	IsUser            bool      `json:"isUser"`
	Timestamp         string    `json:"timestamp"`
	QueryCode         string    `json:"queryCode,omitempty"`
	RawBackendPayload string    `json:"rawBackendPayload,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// NewUserMessage builds the optimistic message appended when the user submits input.
func NewUserMessage(content string, now time.Time) Message {
	return Message{
		ID:        NewID(),
		Content:   content,
		IsUser:    true,
		Timestamp: now.Format(messageTimeLayout),
		CreatedAt: now,
	}
}

// NewAssistantMessage builds a backend reply. queryCode and raw are only shown in the developer view.
func NewAssistantMessage(content, queryCode, raw string, now time.Time) Message {
	return Message{
		ID:                NewID(),
		Content:           content,
		Timestamp:         now.Format(messageTimeLayout),
		QueryCode:         queryCode,
		RawBackendPayload: raw,
		CreatedAt:         now,
	}
}

// NewID returns a time-ordered opaque identifier.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
