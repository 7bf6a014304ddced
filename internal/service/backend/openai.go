package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/zhouzirui/platepal/frontend/internal/config"
	"github.com/zhouzirui/platepal/frontend/internal/model/chat"
)

// OpenAIBackend answers queries with any OpenAI-compatible chat completion
// endpoint. Replies are parsed the same way as ArkBackend's.
type OpenAIBackend struct {
	client *openai.Client
	cfg    config.OpenAIConfig
	log    *zap.Logger
}

// NewOpenAIBackend creates the client. An empty API key is allowed for local
// servers that do not check it.
func NewOpenAIBackend(cfg config.OpenAIConfig, log *zap.Logger) (*OpenAIBackend, error) {
	if cfg.Model == "" {
		return nil, errors.New("OPENAI_MODEL is required for the openai backend")
	}
	if log == nil {
		log = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}

	return &OpenAIBackend{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		log:    log,
	}, nil
}

// Query implements Backend.
func (b *OpenAIBackend) Query(ctx context.Context, text string, mode chat.Mode) (*Response, error) {
	req := openai.ChatCompletionRequest{
		Model: b.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt(mode)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens:   b.cfg.MaxTokens,
		Temperature: b.cfg.Temperature,
	}

	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	content := resp.Choices[0].Message.Content
	b.log.Debug("assistant replied",
		zap.String("mode", string(mode)),
		zap.Int("length", len(content)),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
	return parseModelOutput(content), nil
}

// Submit implements Backend. Writes need the database agent.
func (b *OpenAIBackend) Submit(_ context.Context, req SubmitRequest) (*SubmitReply, error) {
	b.log.Info("structured submission rejected by model backend",
		zap.String("operation", req.Operation),
		zap.String("table", req.Table))
	return &SubmitReply{Error: ModelSubmitText}, nil
}
