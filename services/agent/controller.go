package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vaibhav23244/multi-agent-backend/models"
)

type state int

const (
	stateAwaitModel state = iota
	stateAwaitTool
	stateDone
)

func (s state) String() string {
	switch s {
	case stateAwaitModel:
		return "await_model"
	case stateAwaitTool:
		return "await_tool"
	default:
		return "done"
	}
}

// route decides the next state from the kind of the newest transcript entry.
func route(t Transcript) state {
	last, ok := t.Last()
	if !ok {
		return stateDone
	}
	switch last.Kind {
	case KindSystem, KindUser, KindToolResult:
		return stateAwaitModel
	case KindAssistantToolRequest:
		return stateAwaitTool
	default:
		return stateDone
	}
}

type Options struct {
	SystemPrompt string
	// MaxToolCalls caps tool invocations per turn. Zero or less disables the cap.
	MaxToolCalls int
	// EscalateToolErrors ends the turn when a tool reports a lookup failure
	// instead of handing the narrated failure back to the model.
	EscalateToolErrors bool
}

// Controller runs one conversation turn: it alternates between the model
// gateway and the registered tools until the model answers in plain text.
type Controller struct {
	gateway  Gateway
	registry *Registry
	opts     Options
}

func NewController(gateway Gateway, registry *Registry, opts Options) *Controller {
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	return &Controller{gateway: gateway, registry: registry, opts: opts}
}

// Outcome is the result of a finished turn.
type Outcome struct {
	TurnID     string
	Answer     string
	Status     bool
	ToolCalls  int
	Transcript Transcript
}

type turn struct {
	transcript Transcript
	toolCalls  int
}

func (t *turn) append(msg Message) {
	t.transcript = append(t.transcript, msg)
}

// Run processes a single user message. It only fails when ctx is already done;
// every other failure ends the turn with an explanatory answer.
func (c *Controller) Run(ctx context.Context, userMessage string) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("turn not started: %w", err)
	}

	turnID := uuid.NewString()
	logger := zerolog.Ctx(ctx).With().Str("turn_id", turnID).Logger()
	ctx = logger.WithContext(ctx)

	logger.Info().Int("message_length", len(userMessage)).Msg("Starting conversation turn")

	t := &turn{
		transcript: Transcript{
			SystemMessage(c.opts.SystemPrompt),
			UserMessage(userMessage),
		},
	}

	for {
		next := route(t.transcript)
		logger.Debug().Stringer("state", next).Int("transcript_length", len(t.transcript)).Msg("Routing turn")

		switch next {
		case stateAwaitModel:
			c.invokeModel(ctx, t)
		case stateAwaitTool:
			c.invokeTool(ctx, t)
		case stateDone:
			return c.finish(ctx, turnID, t), nil
		}
	}
}

func (c *Controller) invokeModel(ctx context.Context, t *turn) {
	logger := zerolog.Ctx(ctx)

	reply, err := c.gateway.Send(ctx, t.transcript)
	if err != nil {
		logger.Error().Err(err).Msg("Model call failed")
		t.append(AssistantMessage(fmt.Sprintf(gatewayFailureFormat, err)))
		return
	}

	switch reply.Kind {
	case KindAssistantPlain:
		t.append(reply)
	case KindAssistantToolRequest:
		t.append(reply)
		if _, ok := c.registry.Lookup(reply.ToolCall.Name); !ok {
			logger.Warn().Str("tool", reply.ToolCall.Name).Msg("Model requested an unknown tool")
			t.append(AssistantMessage(c.unknownToolMessage(reply.ToolCall.Name)))
		}
	default:
		logger.Error().Stringer("kind", reply.Kind).Msg("Model returned an unexpected message kind")
		t.append(AssistantMessage(fmt.Sprintf(gatewayFailureFormat, "unexpected "+reply.Kind.String()+" message from model")))
	}
}

func (c *Controller) unknownToolMessage(name string) string {
	msg := fmt.Sprintf(unknownToolFormat, name)
	if suggestion, ok := c.registry.Suggest(name); ok {
		msg += fmt.Sprintf(" (did you mean %q?)", suggestion)
	}
	return msg
}

func (c *Controller) invokeTool(ctx context.Context, t *turn) {
	logger := zerolog.Ctx(ctx)
	last, _ := t.transcript.Last()
	call := last.ToolCall

	if c.opts.MaxToolCalls > 0 && t.toolCalls >= c.opts.MaxToolCalls {
		logger.Warn().Int("max_tool_calls", c.opts.MaxToolCalls).Msg("Tool call limit reached")
		t.append(AssistantMessage(fmt.Sprintf(toolLimitFormat, c.opts.MaxToolCalls)))
		return
	}

	tool, ok := c.registry.Lookup(call.Name)
	if !ok {
		t.append(AssistantMessage(c.unknownToolMessage(call.Name)))
		return
	}

	var parsed any
	if err := json.Unmarshal([]byte(call.Arguments), &parsed); err != nil {
		logger.Error().Err(err).Str("tool", call.Name).Msg("Malformed tool arguments")
		t.append(AssistantMessage(fmt.Sprintf(toolFailureFormat, "malformed tool arguments: "+err.Error())))
		return
	}
	if err := c.registry.ValidateValue(call.Name, parsed); err != nil {
		logger.Error().Err(err).Str("tool", call.Name).Msg("Tool arguments failed validation")
		t.append(AssistantMessage(fmt.Sprintf(toolFailureFormat, err)))
		return
	}

	logger.Info().Str("tool", call.Name).Str("call_id", call.ID).Msg("Executing tool")
	t.toolCalls++

	out, err := safeCall(ctx, tool, call.Arguments)
	if err != nil {
		logger.Error().Err(err).Str("tool", call.Name).Msg("Tool execution failed")
		t.append(AssistantMessage(fmt.Sprintf(toolFailureFormat, err)))
		return
	}

	if out.Failed() {
		logger.Warn().Str("tool", call.Name).Str("error_kind", string(out.ErrorKind)).Msg("Tool reported a failure")
		if c.opts.EscalateToolErrors {
			t.append(AssistantMessage(fmt.Sprintf(toolFailureFormat, out.Content)))
			return
		}
	} else {
		logger.Info().Str("tool", call.Name).Int("output_size", len(out.Content)).Msg("Tool execution completed")
	}

	t.append(ToolResultMessage(call, out))
}

// safeCall turns a panicking tool into an ordinary error.
func safeCall(ctx context.Context, tool AgentTool, input string) (out models.ToolOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", tool.Name(), r)
		}
	}()
	return tool.Call(ctx, input)
}

func (c *Controller) finish(ctx context.Context, turnID string, t *turn) *Outcome {
	outcome := &Outcome{
		TurnID:     turnID,
		Status:     true,
		ToolCalls:  t.toolCalls,
		Transcript: t.transcript,
	}

	answer, ok := t.transcript.FinalAnswer()
	if !ok {
		answer = FallbackAnswer
		outcome.Status = false
	}
	outcome.Answer = answer

	zerolog.Ctx(ctx).Info().
		Bool("status", outcome.Status).
		Int("tool_calls", outcome.ToolCalls).
		Int("transcript_length", len(t.transcript)).
		Msg("Conversation turn completed")

	return outcome
}
