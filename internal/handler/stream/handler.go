package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/zhouzirui/platepal/frontend/internal/service/session"
	"github.com/zhouzirui/platepal/frontend/internal/service/view"
	"github.com/zhouzirui/platepal/frontend/pkg/utils"
)

// ErrTurnRejected is returned before any event is written when the user view
// cannot take a new turn.
var ErrTurnRejected = errors.New("turn rejected")

// Handler streams one turn of the user view as Server-Sent Events.
type Handler struct {
	workspace *view.Workspace
	log       *zap.Logger
}

// New creates a new stream handler
func New(workspace *view.Workspace, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{workspace: workspace, log: log}
}

// StreamResponse represents one SSE event. The event name is repeated in the
// payload for clients that only read data lines.
type StreamResponse struct {
	Event          string            `json:"event"`
	ConversationID string            `json:"conversationId,omitempty"`
	Outcome        string            `json:"outcome,omitempty"`
	Message        *view.MessageView `json:"message,omitempty"`
	Pending        *view.PendingView `json:"pending,omitempty"`
	Finished       bool              `json:"finished,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// HandleStreamRequest submits userMessage and emits start, then pending or
// message, then end.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	turn, ok := h.workspace.User().Submit(ctx, userMessage)
	if !ok {
		return ErrTurnRejected
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	userMsg := view.RenderMessage(turn.UserMessage, view.User)
	h.send(w, flusher, StreamResponse{
		Event:          "start",
		ConversationID: turn.ConversationID,
		Message:        &userMsg,
	})

	select {
	case <-turn.Done():
	case <-ctx.Done():
		h.log.Info("stream closed before turn resolved", zap.String("conversation", turn.ConversationID))
		return nil
	}

	outcome := turn.Wait()
	if outcome.Kind == session.OutcomeConfirming || outcome.Kind == session.OutcomeCollecting {
		state := view.Render(h.workspace.User(), view.User, "")
		h.send(w, flusher, StreamResponse{
			Event:          "pending",
			ConversationID: turn.ConversationID,
			Outcome:        outcome.Kind.String(),
			Pending:        state.Pending,
		})
	} else {
		resp := StreamResponse{
			Event:          "message",
			ConversationID: turn.ConversationID,
			Outcome:        outcome.Kind.String(),
		}
		if outcome.Reply != nil {
			reply := view.RenderMessage(*outcome.Reply, view.User)
			resp.Message = &reply
		}
		if outcome.Err != nil {
			resp.Error = outcome.Err.Error()
		}
		h.send(w, flusher, resp)
	}

	h.send(w, flusher, StreamResponse{
		Event:          "end",
		ConversationID: turn.ConversationID,
		Finished:       true,
	})
	return nil
}

func (h *Handler) send(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEEvent(w, flusher, response.Event, response)
}

// ServeHTTP 处理 GET /stream?message=
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	message := r.URL.Query().Get("message")
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	err := h.HandleStreamRequest(r.Context(), w, message)
	switch {
	case err == nil:
	case errors.Is(err, ErrTurnRejected):
		utils.RespondError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error("stream request failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "streaming failed")
	}
}
