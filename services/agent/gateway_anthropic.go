package agent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const defaultAnthropicMaxTokens = 1024

// AnthropicGateway talks to the Anthropic Messages API.
type AnthropicGateway struct {
	client *anthropic.Client
	tools  []anthropic.ToolUnionParam
	opts   GatewayOptions
}

func NewAnthropicGateway(apiKey string, registry *Registry, opts GatewayOptions, reqOpts ...option.RequestOption) *AnthropicGateway {
	defaults := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	client := anthropic.NewClient(append(defaults, reqOpts...)...)

	return &AnthropicGateway{
		client: &client,
		tools:  buildAnthropicToolSpecs(registry),
		opts:   opts,
	}
}

func (g *AnthropicGateway) Send(ctx context.Context, transcript Transcript) (Message, error) {
	logger := zerolog.Ctx(ctx)
	logger.Info().Str("model", g.opts.Model).Int("messages", len(transcript)).Msg("Calling model")

	maxTokens := g.opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	system, messages := toAnthropicMessages(transcript)
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(g.opts.Model),
		MaxTokens:   int64(maxTokens),
		Messages:    messages,
		Temperature: anthropic.Float(g.opts.Temperature),
	}
	if len(system) > 0 {
		params.System = system
	}
	if len(g.tools) > 0 {
		params.Tools = g.tools
	}

	response, err := g.client.Messages.New(ctx, params)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to call Anthropic API")
		return Message{}, gatewayError(err)
	}

	logger.Info().Str("stop_reason", string(response.StopReason)).Int("blocks", len(response.Content)).Msg("Received Anthropic response")

	var text strings.Builder
	var toolUses []anthropic.ToolUseBlock
	for _, block := range response.Content {
		switch block := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(block.Text)
		case anthropic.ToolUseBlock:
			toolUses = append(toolUses, block)
		}
	}

	if len(toolUses) == 0 {
		return AssistantMessage(text.String()), nil
	}
	if len(toolUses) > 1 {
		logger.Warn().Int("tool_calls", len(toolUses)).Msg("Model requested several tools, keeping the first")
	}

	toolUse := toolUses[0]
	inputJSON, err := json.Marshal(toolUse.Input)
	if err != nil {
		return Message{}, gatewayError(err)
	}

	logger.Info().Str("tool", toolUse.Name).Msg("Model requested a tool")
	msg := toolRequest(toolUse.ID, toolUse.Name, string(inputJSON))
	msg.Content = text.String()
	return msg, nil
}

func buildAnthropicToolSpecs(registry *Registry) []anthropic.ToolUnionParam {
	if registry == nil {
		return nil
	}
	return lo.Map(registry.Tools(), func(tool AgentTool, _ int) anthropic.ToolUnionParam {
		return anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Name(),
				Description: anthropic.String(tool.Description()),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: tool.InputSchema().Properties,
				},
			},
		}
	})
}

// toAnthropicMessages splits system prompts off the transcript and converts
// the rest into Messages API turns.
func toAnthropicMessages(transcript Transcript) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var system []anthropic.TextBlockParam
	var messages []anthropic.MessageParam

	for _, msg := range transcript {
		switch msg.Kind {
		case KindSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case KindUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case KindAssistantPlain:
			if msg.Content == "" {
				continue
			}
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		case KindAssistantToolRequest:
			blocks := []anthropic.ContentBlockParamUnion{}
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			args := msg.ToolCall.Arguments
			if strings.TrimSpace(args) == "" {
				args = "{}"
			}
			blocks = append(blocks, anthropic.ContentBlockParamUnion{
				OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    msg.ToolCall.ID,
					Name:  msg.ToolCall.Name,
					Input: json.RawMessage(args),
				},
			})
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))
		case KindToolResult:
			messages = append(messages, anthropic.NewUserMessage(anthropic.ContentBlockParamUnion{
				OfToolResult: &anthropic.ToolResultBlockParam{
					ToolUseID: msg.ToolCall.ID,
					Content: []anthropic.ToolResultBlockParamContentUnion{
						{OfText: &anthropic.TextBlockParam{Text: msg.Content}},
					},
					IsError: anthropic.Bool(msg.ErrorKind != ""),
				},
			}))
		}
	}

	return system, messages
}
