package chat

import "time"

// Conversation is one entry of the sidebar together with its message log.
type Conversation struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	LastMessage string    `json:"lastMessage"`
	Timestamp   string    `json:"timestamp"`
	Messages    []Message `json:"messages"`
	Starred     bool      `json:"starred"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewConversation returns an empty conversation stamped with now.
func NewConversation(title string, now time.Time) Conversation {
	return Conversation{
		ID:        NewID(),
		Title:     title,
		Timestamp: now.Format(conversationTimeLayout),
		Messages:  []Message{},
		UpdatedAt: now,
	}
}

// WithMessage returns a copy of c with msg appended. The receiver's message slice is never written to.
func (c Conversation) WithMessage(msg Message, now time.Time) Conversation {
	messages := make([]Message, len(c.Messages), len(c.Messages)+1)
	copy(messages, c.Messages)
	c.Messages = append(messages, msg)

	if msg.IsUser {
		c.LastMessage = msg.Content
		c.Timestamp = now.Format(conversationTimeLayout)
		c.UpdatedAt = now
	}
	return c
}
