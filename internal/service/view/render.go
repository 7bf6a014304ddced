package view

import (
	"fmt"

	"github.com/zhouzirui/platepal/frontend/internal/model/chat"
	chatsvc "github.com/zhouzirui/platepal/frontend/internal/service/chat"
	"github.com/zhouzirui/platepal/frontend/internal/service/session"
)

// Kind selects which fields a rendered view exposes.
type Kind string

const (
	User      Kind = "user"
	Developer Kind = "dev"
)

// ParseKind accepts "user" or "dev".
func ParseKind(raw string) (Kind, error) {
	switch Kind(raw) {
	case User, Developer:
		return Kind(raw), nil
	default:
		return "", fmt.Errorf("unknown view %q", raw)
	}
}

// State is everything a front-end needs to draw one view.
type State struct {
	Kind          Kind              `json:"kind"`
	Conversations []Summary         `json:"conversations"`
	ActiveID      string            `json:"activeId,omitempty"`
	Active        *ConversationView `json:"active,omitempty"`
	Pending       *PendingView      `json:"pending,omitempty"`
	InFlight      bool              `json:"inFlight"`
	Mode          chat.Mode         `json:"mode"`
	InputEnabled  bool              `json:"inputEnabled"`
}

// Summary is one sidebar row.
type Summary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	LastMessage string `json:"lastMessage"`
	Timestamp   string `json:"timestamp"`
	Starred     bool   `json:"starred"`
	Active      bool   `json:"active"`
}

// ConversationView is the open conversation.
type ConversationView struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	LastMessage string        `json:"lastMessage"`
	Timestamp   string        `json:"timestamp"`
	Starred     bool          `json:"starred"`
	Messages    []MessageView `json:"messages"`
}

// MessageView is one chat bubble. QueryCode and RawBackendPayload are only
// filled in the developer view.
type MessageView struct {
	ID                string `json:"id"`
	Content           string `json:"content"`
	IsUser            bool   `json:"isUser"`
	Timestamp         string `json:"timestamp"`
	QueryCode         string `json:"queryCode,omitempty"`
	RawBackendPayload string `json:"rawBackendPayload,omitempty"`
}

// PendingView describes the confirmation buttons or the field form.
type PendingView struct {
	Type       string            `json:"type"`
	Prompt     string            `json:"prompt"`
	Options    []string          `json:"options,omitempty"`
	Query      any               `json:"query,omitempty"`
	Operation  string            `json:"operation,omitempty"`
	Collection string            `json:"collection,omitempty"`
	Fields     []string          `json:"fields,omitempty"`
	Values     map[string]string `json:"values,omitempty"`
}

// Render projects a controller and its store into a view. It never mutates either.
func Render(c *session.Controller, kind Kind, search string) State {
	snap := c.Store().Snapshot()
	status := c.Status()

	state := State{
		Kind:         kind,
		ActiveID:     snap.ActiveID,
		Pending:      renderPending(status.Pending, status.Values),
		InFlight:     status.InFlight,
		Mode:         status.Mode,
		InputEnabled: !status.ReadOnly && !status.InFlight && status.State == session.Idle && snap.ActiveID != "",
	}

	listed := chatsvc.List(snap.Conversations, search)
	state.Conversations = make([]Summary, 0, len(listed))
	for _, conv := range listed {
		state.Conversations = append(state.Conversations, Summary{
			ID:          conv.ID,
			Title:       conv.Title,
			LastMessage: conv.LastMessage,
			Timestamp:   conv.Timestamp,
			Starred:     conv.Starred,
			Active:      conv.ID == snap.ActiveID,
		})
	}

	if active, ok := snap.Active(); ok {
		state.Active = RenderConversation(active, kind)
	}

	return state
}

// RenderConversation projects one conversation and its messages for kind.
func RenderConversation(conv chat.Conversation, kind Kind) *ConversationView {
	cv := &ConversationView{
		ID:          conv.ID,
		Title:       conv.Title,
		LastMessage: conv.LastMessage,
		Timestamp:   conv.Timestamp,
		Starred:     conv.Starred,
		Messages:    make([]MessageView, 0, len(conv.Messages)),
	}
	for _, msg := range conv.Messages {
		cv.Messages = append(cv.Messages, RenderMessage(msg, kind))
	}
	return cv
}

// RenderMessage projects one message. Only the developer view keeps the
// generated query and the raw backend trace.
func RenderMessage(msg chat.Message, kind Kind) MessageView {
	mv := MessageView{
		ID:        msg.ID,
		Content:   msg.Content,
		IsUser:    msg.IsUser,
		Timestamp: msg.Timestamp,
	}
	if kind == Developer && !msg.IsUser {
		mv.QueryCode = msg.QueryCode
		mv.RawBackendPayload = msg.RawBackendPayload
	}
	return mv
}

func renderPending(action chat.PendingAction, values map[string]string) *PendingView {
	switch a := action.(type) {
	case nil:
		return nil
	case chat.Confirm:
		return &PendingView{
			Type:    "confirm",
			Prompt:  a.Prompt,
			Options: append([]string(nil), chat.ConfirmOptions...),
			Query:   a.Query,
		}
	case chat.Collect:
		return &PendingView{
			Type:       "collect",
			Prompt:     a.Prompt,
			Operation:  a.Operation,
			Collection: a.Collection,
			Fields:     append([]string(nil), a.Fields...),
			Values:     values,
		}
	default:
		panic(fmt.Sprintf("view: unhandled pending action %T", action))
	}
}
