package agent

import (
	"github.com/samber/lo"

	"github.com/vaibhav23244/multi-agent-backend/models"
)

// Kind tags the variant held by a Message.
type Kind int

const (
	KindSystem Kind = iota
	KindUser
	KindAssistantPlain
	KindAssistantToolRequest
	KindToolResult
)

func (k Kind) String() string {
	switch k {
	case KindSystem:
		return "system"
	case KindUser:
		return "user"
	case KindAssistantPlain:
		return "assistant"
	case KindAssistantToolRequest:
		return "assistant_tool_request"
	case KindToolResult:
		return "tool_result"
	default:
		return "unknown"
	}
}

// Message is one transcript entry. Which fields are meaningful depends on Kind:
// Content for System, User, AssistantPlain and ToolResult; ToolCall for
// AssistantToolRequest and ToolResult (name and call ID only).
type Message struct {
	Kind      Kind
	Content   string
	ToolCall  ToolCall
	ErrorKind models.ToolErrorKind
}

// ToolCall is a single tool invocation requested by the model. Arguments is
// the raw payload exactly as the model produced it.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

func SystemMessage(content string) Message {
	return Message{Kind: KindSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Kind: KindUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Kind: KindAssistantPlain, Content: content}
}

func ToolRequestMessage(call ToolCall) Message {
	return Message{Kind: KindAssistantToolRequest, ToolCall: call}
}

func ToolResultMessage(call ToolCall, out models.ToolOutput) Message {
	return Message{
		Kind:      KindToolResult,
		Content:   out.Content,
		ToolCall:  ToolCall{ID: call.ID, Name: call.Name},
		ErrorKind: out.ErrorKind,
	}
}

// Transcript is the ordered message history of one turn.
type Transcript []Message

// Last returns the newest entry.
func (t Transcript) Last() (Message, bool) {
	if len(t) == 0 {
		return Message{}, false
	}
	return t[len(t)-1], true
}

// FinalAnswer returns the newest plain assistant message.
func (t Transcript) FinalAnswer() (string, bool) {
	msg, _, ok := lo.FindLastIndexOf(t, func(m Message) bool {
		return m.Kind == KindAssistantPlain
	})
	if !ok {
		return "", false
	}
	return msg.Content, true
}

// ToolCalls counts the tool results recorded in the transcript.
func (t Transcript) ToolCalls() int {
	return lo.CountBy(t, func(m Message) bool {
		return m.Kind == KindToolResult
	})
}
