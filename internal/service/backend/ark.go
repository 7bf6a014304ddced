package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/platepal/frontend/internal/config"
	"github.com/zhouzirui/platepal/frontend/internal/model/chat"
)

// ModelSubmitText is the submit reply of backends without a database.
const ModelSubmitText = "❌ Structured submissions need the database backend."

// ArkBackend answers queries with a chat model directly, without a database
// agent in between. The model is asked to reply in the agent's JSON shape.
type ArkBackend struct {
	chain compose.Runnable[map[string]any, *schema.Message]
	log   *zap.Logger
}

// NewArkBackend builds the Ark chat model from cfg and wraps it.
func NewArkBackend(ctx context.Context, cfg config.AIConfig, log *zap.Logger) (*ArkBackend, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewModelBackend(ctx, chatModel, log)
}

// NewModelBackend wraps any eino chat model.
func NewModelBackend(ctx context.Context, chatModel model.BaseChatModel, log *zap.Logger) (*ArkBackend, error) {
	if log == nil {
		log = zap.NewNop()
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile assistant chain: %w", err)
	}

	return &ArkBackend{chain: runnable, log: log}, nil
}

// Query implements Backend.
func (b *ArkBackend) Query(ctx context.Context, text string, mode chat.Mode) (*Response, error) {
	msg, err := b.chain.Invoke(ctx, map[string]any{
		"system": buildSystemPrompt(mode),
		"query":  text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run assistant chain: %w", err)
	}
	if msg == nil {
		return nil, errors.New("assistant returned no message")
	}

	b.log.Debug("assistant replied", zap.String("mode", string(mode)), zap.Int("length", len(msg.Content)))
	return parseModelOutput(msg.Content), nil
}

// Submit implements Backend. Writes need the database agent.
func (b *ArkBackend) Submit(_ context.Context, req SubmitRequest) (*SubmitReply, error) {
	b.log.Info("structured submission rejected by model backend",
		zap.String("operation", req.Operation),
		zap.String("table", req.Table))
	return &SubmitReply{Error: ModelSubmitText}, nil
}

// parseModelOutput extracts the first JSON object from content. Anything else
// is treated as a plain-text answer.
func parseModelOutput(content string) *Response {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start != -1 && end > start {
		if resp, err := DecodeResponse([]byte(trimmed[start : end+1])); err == nil && len(resp.Fields) > 0 {
			return resp
		}
	}
	return NewResponse(map[string]any{"result": trimmed})
}

func buildSystemPrompt(mode chat.Mode) string {
	var b strings.Builder
	b.WriteString("You are PlatePal, a recipe and nutrition assistant backed by a ")
	if mode == chat.ModeSQL {
		b.WriteString("SQL database with tables recipes and ingredients.")
	} else {
		b.WriteString("MongoDB database with collections recipes and ingredients.")
	}
	b.WriteString("\nReply with exactly one JSON object and nothing else. Allowed shapes:\n")
	b.WriteString(`- {"result": "<markdown answer>"} for normal answers.` + "\n")
	b.WriteString(`- {"data": [{"name": "...", "recipeingredientparts": ["..."]}], "message": "..."} for recipe lists.` + "\n")
	b.WriteString(`- {"data": [{"ingredient_name": "...", "energy_kcal": 0}], "message": "..."} for nutrition lists.` + "\n")
	b.WriteString(`- {"action": "confirm_query", "prompt": "...", "query": {...}} before any destructive operation.` + "\n")
	b.WriteString(`- {"action": "collect_input", "prompt": "...", "operation": "insert|update|delete", "collection": "...", "fields": ["..."]} when values are missing.`)
	return b.String()
}
