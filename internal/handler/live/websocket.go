package live

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/platepal/frontend/internal/service/view"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// Handler 通过 WebSocket 推送渲染后的视图
type Handler struct {
	workspace *view.Workspace
	log       *zap.Logger
	upgrader  websocket.Upgrader
}

// New 创建视图推送处理器
func New(workspace *view.Workspace, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		workspace: workspace,
		log:       log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	View      *view.State `json:"view,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// handleWebSocket 每次工作区变化后推送一次最新视图
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	kind := view.User
	if raw := r.URL.Query().Get("view"); raw != "" {
		parsed, err := view.ParseKind(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		kind = parsed
	}
	search := r.URL.Query().Get("q")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// 合并通知：写协程落后时只保留一个待推送信号
	changed := make(chan struct{}, 1)
	unsubscribe := h.workspace.Subscribe(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	go h.readLoop(conn, cancel)

	h.log.Debug("websocket connected", zap.String("view", string(kind)))

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := h.push(conn, kind, search); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-changed:
			if err := h.push(conn, kind, search); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop 只处理控制帧，连接关闭时取消推送
func (h *Handler) readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Info("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (h *Handler) push(conn *websocket.Conn, kind view.Kind, search string) error {
	msg := outgoingMessage{Type: "view", Timestamp: time.Now().Unix()}
	state, err := h.workspace.Render(kind, search)
	switch {
	case err == nil:
		msg.View = &state
	case errors.Is(err, view.ErrViewUnavailable):
		msg.Type = "unavailable"
		msg.Error = err.Error()
	default:
		return err
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.log.Debug("websocket write failed", zap.Error(err))
		return err
	}
	return nil
}
