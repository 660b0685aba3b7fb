package services

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vaibhav23244/multi-agent-backend/config"
	"github.com/vaibhav23244/multi-agent-backend/db"
	"github.com/vaibhav23244/multi-agent-backend/services/agent"
	"github.com/vaibhav23244/multi-agent-backend/services/github"
	"github.com/vaibhav23244/multi-agent-backend/services/tavily"
)

// Stack is the assembled conversation pipeline shared by the server and the
// terminal client.
type Stack struct {
	Chat     *ChatService
	Registry *agent.Registry

	closers []func() error
}

func (s *Stack) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// CheckSecrets reports the credentials the pipeline cannot run without.
func CheckSecrets(cfg *config.Config) error {
	if cfg.LLM.Key() == "" {
		return fmt.Errorf("API key for LLM provider %q is required", cfg.LLM.Provider)
	}
	if cfg.Tavily.APIKey == "" {
		return errors.New("TAVILY_API_KEY environment variable is required")
	}
	return nil
}

// NewStack wires the lookup services, tool registry, model gateway, controller
// and, when DB_URL is set, the turn recorder.
func NewStack(cfg *config.Config, logger zerolog.Logger) (*Stack, error) {
	if err := CheckSecrets(cfg); err != nil {
		return nil, err
	}
	if cfg.GitHub.Token == "" {
		logger.Warn().Msg("GITHUB_TOKEN is not set, repository lookups will be unauthenticated and rate limited")
	}

	githubService := github.NewService(cfg.GitHub.Token, cfg.GitHub.APIURL, cfg.HTTPTimeout)
	tavilyService := tavily.NewService(cfg.Tavily.APIKey, cfg.Tavily.APIURL, cfg.HTTPTimeout)

	registry, err := agent.NewRegistry(
		agent.NewGithubRepoTool(githubService),
		agent.NewTavilySearchTool(tavilyService),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build tool registry: %w", err)
	}

	gateway, err := agent.NewGateway(cfg.LLM, registry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model gateway: %w", err)
	}

	controller := agent.NewController(gateway, registry, agent.Options{
		MaxToolCalls:       cfg.Agent.MaxToolCalls,
		EscalateToolErrors: cfg.Agent.EscalateToolErrors,
	})

	stack := &Stack{Registry: registry}

	var turnRepo db.TurnRepository
	if cfg.DatabaseURL != "" {
		repo, err := db.NewPostgresTurnRepository(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize turn database: %w", err)
		}
		stack.closers = append(stack.closers, repo.Close)
		turnRepo = repo
	} else {
		logger.Info().Msg("DB_URL is not set, turn recording disabled")
	}

	stack.Chat = NewChatService(controller, turnRepo)
	return stack, nil
}
