package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/zhouzirui/platepal/frontend/internal/config"
)

// New builds the backend selected by cfg.Backend.Kind.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (Backend, error) {
	switch cfg.Backend.Kind {
	case config.BackendHTTP, "":
		log.Info("using database agent backend", zap.String("url", cfg.Backend.URL))
		return NewHTTPBackend(cfg.Backend.URL, nil), nil
	case config.BackendArk:
		log.Info("using Ark chat model backend", zap.String("model", cfg.AI.Model))
		b, err := NewArkBackend(ctx, cfg.AI, log)
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.BackendOpenAI:
		log.Info("using OpenAI-compatible backend", zap.String("model", cfg.OpenAI.Model), zap.String("base_url", cfg.OpenAI.BaseURL))
		b, err := NewOpenAIBackend(cfg.OpenAI, log)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend.Kind)
	}
}
