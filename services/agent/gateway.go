package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vaibhav23244/multi-agent-backend/config"
)

// ErrGateway wraps every failure of a model call.
var ErrGateway = errors.New("model gateway failure")

// Gateway sends the transcript to a hosted model and returns the reply, either
// an AssistantPlain or an AssistantToolRequest message.
type Gateway interface {
	Send(ctx context.Context, transcript Transcript) (Message, error)
}

// GatewayOptions carries the sampling configuration shared by all backends.
type GatewayOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// NewGateway builds the backend selected by cfg.Provider.
func NewGateway(cfg config.LLMConfig, registry *Registry) (Gateway, error) {
	opts := GatewayOptions{
		Model:       cfg.ResolvedModel(),
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}

	switch cfg.Provider {
	case config.ProviderAnthropic:
		return NewAnthropicGateway(cfg.Key(), registry, opts), nil
	case config.ProviderGroq, config.ProviderOpenAI:
		return NewOpenAIGateway(cfg.Key(), cfg.ResolvedBaseURL(), registry, opts)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
}

func gatewayError(err error) error {
	return fmt.Errorf("%w: %v", ErrGateway, err)
}

// toolRequest builds the tool request message, filling in a call ID when the
// backend did not supply one.
func toolRequest(id, name, arguments string) Message {
	if id == "" {
		id = "call_" + uuid.NewString()
	}
	return ToolRequestMessage(ToolCall{ID: id, Name: name, Arguments: arguments})
}
