package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/platepal/frontend/internal/model/chat"
	chatService "github.com/zhouzirui/platepal/frontend/internal/service/chat"
	"github.com/zhouzirui/platepal/frontend/internal/service/view"
	"github.com/zhouzirui/platepal/frontend/pkg/utils"
)

// Handler 会话列表与视图的HTTP处理器
type Handler struct {
	workspace *view.Workspace
}

// New 创建会话处理器
func New(workspace *view.Workspace) *Handler {
	return &Handler{workspace: workspace}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/views/{kind}", h.handleView)
	r.Put("/devmode", h.handleDevMode)
	r.Put("/mode", h.handleMode)

	r.Post("/conversations", h.handleCreateConversation)
	r.Post("/conversations/{id}/select", h.handleSelectConversation)
	r.Patch("/conversations/{id}", h.handleUpdateConversation)
	r.Delete("/conversations/{id}", h.handleDeleteConversation)
}

func (h *Handler) store() *chatService.Store {
	return h.workspace.User().Store()
}

// handleView 渲染用户视图或开发者视图
func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	kind, err := view.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	state, err := h.workspace.Render(kind, r.URL.Query().Get("q"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, state)
}

// handleDevMode 打开或关闭开发者视图
func (h *Handler) handleDevMode(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Enabled *bool `json:"enabled"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.Enabled == nil {
		utils.RespondError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	h.workspace.SetDevMode(*payload.Enabled)
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"enabled": h.workspace.DevMode()})
}

// handleMode 切换 mongo / sql 查询模式
func (h *Handler) handleMode(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Mode string `json:"mode"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	mode, err := chat.ParseMode(payload.Mode)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.workspace.User().SetMode(mode)
	if dev, ok := h.workspace.Developer(); ok {
		dev.SetMode(mode)
	}
	utils.RespondJSON(w, http.StatusOK, map[string]chat.Mode{"mode": mode})
}

// handleCreateConversation 新建会话并设为当前会话
func (h *Handler) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	conv := h.store().NewConversation()
	utils.RespondJSON(w, http.StatusCreated, view.RenderConversation(conv, view.User))
}

// handleSelectConversation 切换当前会话
func (h *Handler) handleSelectConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store().Select(id); err != nil {
		respondStoreError(w, err)
		return
	}
	h.respondConversation(w, id, http.StatusOK)
}

// handleUpdateConversation 重命名或标星
func (h *Handler) handleUpdateConversation(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title   *string `json:"title"`
		Starred *bool   `json:"starred"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	// 空标题按原样忽略，标题与标星一次性写入
	if err := h.store().Patch(id, payload.Title, payload.Starred); err != nil {
		respondStoreError(w, err)
		return
	}
	h.respondConversation(w, id, http.StatusOK)
}

// handleDeleteConversation 删除会话，必要时重新指定当前会话
func (h *Handler) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := h.store().Delete(chi.URLParam(r, "id")); err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"activeId": h.store().ActiveID()})
}

func (h *Handler) respondConversation(w http.ResponseWriter, id string, status int) {
	conv, err := h.store().Get(id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, status, view.RenderConversation(conv, view.User))
}

func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, chatService.ErrConversationNotFound) {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondError(w, http.StatusInternalServerError, err.Error())
}
