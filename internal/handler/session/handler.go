package session

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	sessionService "github.com/zhouzirui/platepal/frontend/internal/service/session"
	"github.com/zhouzirui/platepal/frontend/internal/service/view"
	"github.com/zhouzirui/platepal/frontend/pkg/utils"
)

// Handler 处理用户视图的对话轮次与待确认操作
type Handler struct {
	workspace *view.Workspace
	log       *zap.Logger
}

// New 创建轮次处理器
func New(workspace *view.Workspace, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{workspace: workspace, log: log}
}

// RegisterRoutes 注册轮次相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/turns", h.handleTurn)
	r.Post("/pending/confirm", h.handleConfirm)
	r.Put("/pending/fields", h.handleSetField)
	r.Post("/pending/submit", h.handleSubmitFields)
}

// TurnResponse 是一个轮次结束后的结果与最新用户视图
type TurnResponse struct {
	Outcome     sessionService.OutcomeKind `json:"outcome"`
	UserMessage *view.MessageView          `json:"userMessage,omitempty"`
	Reply       *view.MessageView          `json:"reply,omitempty"`
	View        view.State                 `json:"view"`
}

// handleTurn 提交一条普通消息并等待后端结果
func (h *Handler) handleTurn(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	turn, ok := h.workspace.User().Submit(r.Context(), payload.Text)
	if !ok {
		utils.RespondError(w, http.StatusConflict, "turn rejected: input is blank, a turn is in flight or an action is pending")
		return
	}
	h.respondTurn(w, r, turn)
}

// handleConfirm 回答确认请求（yes / no / rewrite）
func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Option string `json:"option"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	turn, err := h.workspace.User().Confirm(r.Context(), payload.Option)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	h.respondTurn(w, r, turn)
}

// handleSetField 缓存一个待提交字段
func (h *Handler) handleSetField(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.workspace.User().SetField(payload.Field, payload.Value); err != nil {
		respondSessionError(w, err)
		return
	}
	h.respondView(w)
}

// handleSubmitFields 提交已收集的字段
func (h *Handler) handleSubmitFields(w http.ResponseWriter, r *http.Request) {
	turn, err := h.workspace.User().SubmitFields(r.Context())
	if err != nil {
		respondSessionError(w, err)
		return
	}
	h.respondTurn(w, r, turn)
}

// respondTurn 等待轮次结束；客户端断开时轮次仍在后台完成
func (h *Handler) respondTurn(w http.ResponseWriter, r *http.Request, turn *sessionService.Turn) {
	select {
	case <-turn.Done():
	case <-r.Context().Done():
		h.log.Info("client left before turn resolved", zap.String("conversation", turn.ConversationID))
		return
	}

	outcome := turn.Wait()
	resp := TurnResponse{
		Outcome: outcome.Kind,
		View:    view.Render(h.workspace.User(), view.User, ""),
	}
	if turn.UserMessage.ID != "" {
		msg := view.RenderMessage(turn.UserMessage, view.User)
		resp.UserMessage = &msg
	}
	if outcome.Reply != nil {
		reply := view.RenderMessage(*outcome.Reply, view.User)
		resp.Reply = &reply
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) respondView(w http.ResponseWriter) {
	utils.RespondJSON(w, http.StatusOK, view.Render(h.workspace.User(), view.User, ""))
}

func respondSessionError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, sessionService.ErrInvalidOption), errors.Is(err, sessionService.ErrUnknownField):
		status = http.StatusBadRequest
	case errors.Is(err, sessionService.ErrReadOnly):
		status = http.StatusForbidden
	case errors.Is(err, sessionService.ErrNoPendingAction),
		errors.Is(err, sessionService.ErrTurnInFlight),
		errors.Is(err, sessionService.ErrNoActiveConversation):
		status = http.StatusConflict
	}
	utils.RespondError(w, status, err.Error())
}
