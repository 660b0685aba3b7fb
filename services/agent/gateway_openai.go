package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIGateway talks to any OpenAI-compatible chat-completion endpoint
// (Groq by default).
type OpenAIGateway struct {
	llm   llms.Model
	tools []llms.Tool
	opts  GatewayOptions
}

func NewOpenAIGateway(apiKey, baseURL string, registry *Registry, opts GatewayOptions) (*OpenAIGateway, error) {
	clientOpts := []openai.Option{
		openai.WithModel(opts.Model),
		openai.WithToken(apiKey),
	}
	if baseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(baseURL))
	}

	llm, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI-compatible client: %w", err)
	}

	return &OpenAIGateway{
		llm:   llm,
		tools: buildLangchainTools(registry),
		opts:  opts,
	}, nil
}

func (g *OpenAIGateway) Send(ctx context.Context, transcript Transcript) (Message, error) {
	logger := zerolog.Ctx(ctx)
	logger.Info().Str("model", g.opts.Model).Int("messages", len(transcript)).Msg("Calling model")

	callOpts := []llms.CallOption{
		llms.WithTemperature(g.opts.Temperature),
	}
	if len(g.tools) > 0 {
		callOpts = append(callOpts, llms.WithTools(g.tools))
	}
	if g.opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(g.opts.MaxTokens))
	}

	resp, err := g.llm.GenerateContent(ctx, toLangchainMessages(transcript), callOpts...)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to call model")
		return Message{}, gatewayError(err)
	}
	if len(resp.Choices) == 0 {
		return Message{}, gatewayError(errors.New("no choices in model response"))
	}

	choice := resp.Choices[0]
	if len(choice.ToolCalls) > 0 && choice.ToolCalls[0].FunctionCall != nil {
		call := choice.ToolCalls[0]
		if len(choice.ToolCalls) > 1 {
			logger.Warn().Int("tool_calls", len(choice.ToolCalls)).Msg("Model requested several tools, keeping the first")
		}
		logger.Info().Str("tool", call.FunctionCall.Name).Msg("Model requested a tool")
		return toolRequest(call.ID, call.FunctionCall.Name, call.FunctionCall.Arguments), nil
	}
	if choice.FuncCall != nil {
		logger.Info().Str("tool", choice.FuncCall.Name).Msg("Model requested a tool")
		return toolRequest("", choice.FuncCall.Name, choice.FuncCall.Arguments), nil
	}

	logger.Info().Int("answer_length", len(choice.Content)).Msg("Model answered in text")
	return AssistantMessage(choice.Content), nil
}

func buildLangchainTools(registry *Registry) []llms.Tool {
	if registry == nil {
		return nil
	}
	return lo.Map(registry.Tools(), func(tool AgentTool, _ int) llms.Tool {
		return llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  toolParameters(tool.InputSchema()),
			},
		}
	})
}

func toLangchainMessages(transcript Transcript) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(transcript))
	for _, msg := range transcript {
		switch msg.Kind {
		case KindSystem:
			out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, msg.Content))
		case KindUser:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, msg.Content))
		case KindAssistantPlain:
			out = append(out, llms.TextParts(llms.ChatMessageTypeAI, msg.Content))
		case KindAssistantToolRequest:
			out = append(out, llms.MessageContent{
				Role: llms.ChatMessageTypeAI,
				Parts: []llms.ContentPart{
					llms.ToolCall{
						ID:   msg.ToolCall.ID,
						Type: "function",
						FunctionCall: &llms.FunctionCall{
							Name:      msg.ToolCall.Name,
							Arguments: msg.ToolCall.Arguments,
						},
					},
				},
			})
		case KindToolResult:
			out = append(out, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{
					llms.ToolCallResponse{
						ToolCallID: msg.ToolCall.ID,
						Name:       msg.ToolCall.Name,
						Content:    msg.Content,
					},
				},
			})
		}
	}
	return out
}
