package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/platepal/frontend/internal/handler/chat"
	"github.com/zhouzirui/platepal/frontend/internal/handler/live"
	promptHandler "github.com/zhouzirui/platepal/frontend/internal/handler/prompt"
	"github.com/zhouzirui/platepal/frontend/internal/handler/session"
	"github.com/zhouzirui/platepal/frontend/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/platepal/frontend/internal/middleware"
	"github.com/zhouzirui/platepal/frontend/internal/model/prompt"
	"github.com/zhouzirui/platepal/frontend/internal/service/backend"
	"github.com/zhouzirui/platepal/frontend/internal/service/view"
	"github.com/zhouzirui/platepal/frontend/pkg/utils"
)

// HealthChecker is implemented by backends that expose a liveness probe.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewRouter wires HTTP routes to core services.
func NewRouter(workspace *view.Workspace, prompts prompt.Store, b backend.Backend, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	streamHandler := stream.New(workspace, log.Named("stream"))

	r.Route("/api", func(api chi.Router) {
		promptHandler.New(prompts).RegisterRoutes(api)
		chat.New(workspace).RegisterRoutes(api)
		session.New(workspace, log.Named("session")).RegisterRoutes(api)
		live.New(workspace, log.Named("live")).RegisterRoutes(api)

		api.Method(http.MethodGet, "/stream", streamHandler)

		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			status := map[string]string{"status": "ok", "backend": "ok"}
			if hc, ok := b.(HealthChecker); ok {
				ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
				defer cancel()
				if err := hc.Health(ctx); err != nil {
					log.Warn("backend health check failed", zap.Error(err))
					status["backend"] = "unreachable"
				}
			}
			utils.RespondJSON(w, http.StatusOK, status)
		})
	})

	return r
}
