package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/platepal/frontend/internal/config"
	"github.com/zhouzirui/platepal/frontend/internal/logging"
	"github.com/zhouzirui/platepal/frontend/internal/model/chat"
	"github.com/zhouzirui/platepal/frontend/internal/model/prompt"
	"github.com/zhouzirui/platepal/frontend/internal/service/backend"
	"github.com/zhouzirui/platepal/frontend/internal/service/view"
	"github.com/zhouzirui/platepal/frontend/internal/tui"
)

type options struct {
	backendURL string
	mode       string
	dev        bool
	logFile    string
	style      string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "platepal-chat",
		Short: "Terminal chat client for the PlatePal recipe assistant",
		Long: `platepal-chat talks to the PlatePal database agent, or directly to an Ark or
OpenAI-compatible chat model, and keeps conversations in memory for the
lifetime of the process.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.backendURL, "backend-url", "", "database agent base URL (overrides PLATEPAL_BACKEND_URL)")
	flags.StringVar(&opts.mode, "mode", "", "query mode: mongo or sql (overrides PLATEPAL_MODE)")
	flags.BoolVar(&opts.dev, "dev", false, "show the developer pane with generated queries and raw traces")
	flags.StringVar(&opts.logFile, "log-file", filepath.Join(os.TempDir(), "platepal-chat.log"), "where to write logs")
	flags.StringVar(&opts.style, "style", "", "glamour style for assistant messages (dark, light, notty); auto-detected when empty")

	return cmd
}

// applyFlags overlays explicitly set flags onto the environment configuration.
func applyFlags(cmd *cobra.Command, opts *options, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("backend-url") {
		cfg.Backend.Kind = config.BackendHTTP
		cfg.Backend.URL = opts.backendURL
	}
	if flags.Changed("mode") {
		mode, err := chat.ParseMode(opts.mode)
		if err != nil {
			return err
		}
		cfg.Backend.Mode = mode
	}
	if flags.Changed("dev") {
		cfg.Backend.DevMode = opts.dev
	}
	return nil
}

func run(cmd *cobra.Command, opts *options) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := applyFlags(cmd, opts, cfg); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, opts.logFile)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	prompts, err := prompt.Load(cfg.Backend.PromptsFile)
	if err != nil {
		return err
	}

	b, err := backend.New(ctx, cfg, logger.Named("backend"))
	if err != nil {
		return fmt.Errorf("failed to initialize backend: %w", err)
	}

	// The terminal shows both panes over one conversation list.
	workspace := view.NewWorkspace(b, logger.Named("workspace"), view.Options{
		Mode:           cfg.Backend.Mode,
		DevMode:        cfg.Backend.DevMode,
		SharedDevStore: true,
	})

	logger.Info("starting terminal client",
		zap.String("backend", cfg.Backend.Kind),
		zap.String("mode", string(cfg.Backend.Mode)),
		zap.Bool("dev", cfg.Backend.DevMode))

	return tui.Run(ctx, workspace, prompts, logger.Named("tui"), tui.Options{GlamourStyle: opts.style})
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
