package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/platepal/frontend/internal/config"
	"github.com/zhouzirui/platepal/frontend/internal/handler"
	"github.com/zhouzirui/platepal/frontend/internal/logging"
	"github.com/zhouzirui/platepal/frontend/internal/model/prompt"
	"github.com/zhouzirui/platepal/frontend/internal/service/backend"
	"github.com/zhouzirui/platepal/frontend/internal/service/view"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Info("no .env file loaded, continuing with system environment variables only", zap.Error(envErr))
	}

	prompts, err := prompt.Load(cfg.Backend.PromptsFile)
	if err != nil {
		logger.Fatal("failed to load suggested prompts", zap.Error(err))
	}

	b, err := backend.New(ctx, cfg, logger.Named("backend"))
	if err != nil {
		logger.Fatal("failed to initialize backend", zap.Error(err))
	}

	workspace := view.NewWorkspace(b, logger.Named("workspace"), view.Options{
		Mode:           cfg.Backend.Mode,
		DevMode:        cfg.Backend.DevMode,
		SharedDevStore: cfg.Backend.SharedDevStore,
	})

	router := handler.NewRouter(workspace, prompts, b, logger.Named("http"))

	startServer(ctx, cfg.Server, router, logger)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("PlatePal chat server listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
