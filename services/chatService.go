package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vaibhav23244/multi-agent-backend/db"
	"github.com/vaibhav23244/multi-agent-backend/models"
	"github.com/vaibhav23244/multi-agent-backend/services/agent"
)

// TurnRunner runs one conversation turn. *agent.Controller implements it.
type TurnRunner interface {
	Run(ctx context.Context, userMessage string) (*agent.Outcome, error)
}

type ChatService struct {
	runner TurnRunner
	turns  db.TurnRepository
}

// NewChatService builds the service. turns may be nil, in which case finished
// turns are not recorded.
func NewChatService(runner TurnRunner, turns db.TurnRepository) *ChatService {
	return &ChatService{runner: runner, turns: turns}
}

func (s *ChatService) Chat(ctx context.Context, message string) (*models.ConversationResult, error) {
	logger := zerolog.Ctx(ctx)
	logger.Info().Msg("Starting chat turn")

	outcome, err := s.runner.Run(ctx, message)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to run chat turn")
		return nil, fmt.Errorf("failed to run conversation: %w", err)
	}

	s.record(ctx, message, outcome)

	logger.Info().
		Str("turn_id", outcome.TurnID).
		Bool("status", outcome.Status).
		Int("tool_calls", outcome.ToolCalls).
		Msg("Successfully completed chat turn")

	return &models.ConversationResult{AI: outcome.Answer, Status: outcome.Status}, nil
}

func (s *ChatService) record(ctx context.Context, message string, outcome *agent.Outcome) {
	if s.turns == nil {
		return
	}

	turn := &models.Turn{
		ID:        outcome.TurnID,
		Message:   message,
		Answer:    outcome.Answer,
		Status:    outcome.Status,
		ToolCalls: outcome.ToolCalls,
	}
	if err := s.turns.SaveTurn(ctx, turn); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("turn_id", outcome.TurnID).Msg("Failed to record turn")
	}
}
