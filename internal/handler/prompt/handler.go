package prompt

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/platepal/frontend/internal/model/prompt"
	"github.com/zhouzirui/platepal/frontend/pkg/utils"
)

// Handler 推荐问题的HTTP处理器
type Handler struct {
	prompts prompt.Store
}

// New 创建推荐问题处理器
func New(prompts prompt.Store) *Handler {
	return &Handler{prompts: prompts}
}

// RegisterRoutes 注册推荐问题相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/prompts", h.handleListPrompts)
	r.Get("/prompts/{index}", h.handleGetPrompt)
}

// handleListPrompts 列出所有推荐问题
func (h *Handler) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.prompts.List())
}

// handleGetPrompt 按序号取推荐问题，序号循环
func (h *Handler) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	p, ok := h.prompts.At(index)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "no prompts configured")
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}
