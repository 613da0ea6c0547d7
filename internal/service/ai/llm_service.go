package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/consult/backend/internal/config"
	"github.com/zhouzirui/consult/backend/internal/model/chat"
)

// Service runs the completion chain used for higher-quality replies.
type Service struct {
	chain        compose.Runnable[map[string]any, *schema.Message]
	model        string
	historyLimit int
	logger       *zap.Logger
}

// NewService builds the Ark chat model from cfg and compiles the chain.
func NewService(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, cfg.Model, cfg.HistoryLimit, logger)
}

// NewServiceWithModel compiles the chain around an existing chat model.
func NewServiceWithModel(ctx context.Context, chatModel model.ChatModel, modelName string, historyLimit int, logger *zap.Logger) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if historyLimit <= 0 {
		historyLimit = 10
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chain:        runnable,
		model:        modelName,
		historyLimit: historyLimit,
		logger:       logger.Named("ai"),
	}, nil
}

// Model returns the tag recorded on generated replies.
func (s *Service) Model() string {
	return s.model
}

// Complete generates a reply for the last user message in history.
func (s *Service) Complete(ctx context.Context, history []chat.Message, profile chat.Profile, intent string) (string, error) {
	if len(history) == 0 || history[len(history)-1].Role != chat.RoleUser {
		return "", fmt.Errorf("history must end with a user message")
	}

	input := map[string]any{
		"system":  BuildSystemPrompt(profile, intent),
		"history": s.buildHistoryMessages(history[:len(history)-1]),
		"query":   history[len(history)-1].Content,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return "", fmt.Errorf("empty completion")
	}

	s.logger.Debug("completion generated",
		zap.String("intent", intent),
		zap.Int("history", len(history)),
		zap.Int("length", len(response.Content)))
	return strings.TrimSpace(response.Content), nil
}

func (s *Service) buildHistoryMessages(messages []chat.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > s.historyLimit {
		startIdx = len(messages) - s.historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return history
}
